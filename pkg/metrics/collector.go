// Package metrics exports pool statistics to Prometheus
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jzx17/stealpool/pkg/types"
)

const namespace = "stealpool"

// Collector is a prometheus.Collector that reads a pool's statistics at
// scrape time. Every metric carries a constant "pool" label set to the
// pool ID.
type Collector struct {
	provider types.StatsProvider

	workers    *prometheus.Desc
	minWorkers *prometheus.Desc
	maxWorkers *prometheus.Desc
	idle       *prometheus.Desc
	queued     *prometheus.Desc
	pending    *prometheus.Desc

	submitted *prometheus.Desc
	executed  *prometheus.Desc
	stolen    *prometheus.Desc
	failed    *prometheus.Desc
	discarded *prometheus.Desc
}

// NewCollector creates a collector for provider
func NewCollector(provider types.StatsProvider) *Collector {
	labels := prometheus.Labels{"pool": provider.ID()}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, labels)
	}

	return &Collector{
		provider:   provider,
		workers:    desc("workers", "Number of live workers"),
		minWorkers: desc("workers_min", "Configured minimum number of workers"),
		maxWorkers: desc("workers_max", "Configured maximum number of workers"),
		idle:       desc("workers_idle", "Number of workers looking for work or parked"),
		queued:     desc("tasks_queued", "Tasks waiting in worker deques"),
		pending:    desc("tasks_pending", "Accepted tasks not yet finished"),
		submitted:  desc("tasks_submitted_total", "Total number of accepted tasks"),
		executed:   desc("tasks_executed_total", "Total number of executed tasks"),
		stolen:     desc("tasks_stolen_total", "Total number of tasks taken from a peer deque"),
		failed:     desc("tasks_failed_total", "Total number of tasks that returned an error or panicked"),
		discarded:  desc("tasks_discarded_total", "Total number of tasks dropped by a discarding shutdown"),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.workers
	ch <- c.minWorkers
	ch <- c.maxWorkers
	ch <- c.idle
	ch <- c.queued
	ch <- c.pending
	ch <- c.submitted
	ch <- c.executed
	ch <- c.stolen
	ch <- c.failed
	ch <- c.discarded
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.provider.Stats()

	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}
	counter := func(d *prometheus.Desc, v int64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}

	gauge(c.workers, float64(s.Workers))
	gauge(c.minWorkers, float64(s.MinWorkers))
	gauge(c.maxWorkers, float64(s.MaxWorkers))
	gauge(c.idle, float64(s.IdleWorkers))
	gauge(c.queued, float64(s.Queued))
	gauge(c.pending, float64(s.Pending))

	counter(c.submitted, s.Submitted)
	counter(c.executed, s.Executed)
	counter(c.stolen, s.Stolen)
	counter(c.failed, s.Failed)
	counter(c.discarded, s.Discarded)
}

// Register creates a collector for provider and registers it with reg,
// or with prometheus.DefaultRegisterer when reg is nil
func Register(reg prometheus.Registerer, provider types.StatsProvider) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := NewCollector(provider)
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}

var _ prometheus.Collector = (*Collector)(nil)
