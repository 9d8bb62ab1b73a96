package worker

import (
	"errors"
	"sync"
	"time"

	"github.com/jzx17/stealpool/pkg/types"
)

type scaleAction int

const (
	scaleHold scaleAction = iota
	scaleUp
	scaleDown
)

func (a scaleAction) String() string {
	switch a {
	case scaleUp:
		return "up"
	case scaleDown:
		return "down"
	default:
		return "hold"
	}
}

// loadSample is one observation of the pool taken by the scaler
type loadSample struct {
	workers     int
	minWorkers  int
	maxWorkers  int
	queued      int
	idle        int
	longestIdle time.Duration
}

// scaler is the feedback loop that grows the pool under sustained backlog
// and shrinks it after sustained idleness. decide holds the policy; run and
// tick are the mechanism.
type scaler struct {
	pool  *Pool
	cfg   ScalingConfig
	clock types.Clock

	// backlogSince is when the current overload began, zero if none
	backlogSince time.Time

	quit     chan struct{}
	done     chan struct{}
	started  bool
	stopOnce sync.Once
}

func newScaler(pool *Pool, cfg ScalingConfig) *scaler {
	return &scaler{
		pool:  pool,
		cfg:   cfg,
		clock: pool.clock,
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// start launches the control loop unless scaling is disabled
func (s *scaler) start() {
	if s.cfg.Interval <= 0 {
		return
	}
	s.started = true
	go s.run()
}

func (s *scaler) stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		if s.started {
			<-s.done
		}
	})
}

func (s *scaler) run() {
	defer close(s.done)

	ticker := s.clock.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.quit:
			return
		case <-ticker.C():
			s.tick()
		}
	}
}

// tick samples the pool and applies one decision
func (s *scaler) tick() scaleAction {
	sample := s.sample()
	action := s.decide(sample, s.clock.Now())

	switch action {
	case scaleUp:
		if err := s.pool.CreateThread(); err != nil && !errors.Is(err, types.ErrCapacityExhausted) {
			s.pool.logger.Debug("scale up skipped", "error", err)
		}
	case scaleDown:
		if err := s.pool.DestroyThread(); err != nil {
			s.pool.logger.Debug("scale down skipped", "error", err)
		}
	}

	if sample.queued > 0 && sample.idle > 0 {
		s.pool.wakeAllIdle()
	}
	return action
}

func (s *scaler) sample() loadSample {
	live := s.pool.live()
	sample := loadSample{
		workers:    len(live),
		minWorkers: s.pool.cfg.MinWorkers,
		maxWorkers: s.pool.cfg.MaxWorkers,
	}
	for _, w := range live {
		sample.queued += w.deque.Len()
		if w.State() == WorkerStateIdle {
			sample.idle++
			if d := w.idleFor(); d > sample.longestIdle {
				sample.longestIdle = d
			}
		}
	}
	return sample
}

// decide maps a sample to an action. It scales up one worker per call while
// an overload has lasted ScaleUpAfter, and down one worker per call once
// nothing is queued and some worker has idled for ScaleDownAfter.
func (s *scaler) decide(sample loadSample, now time.Time) scaleAction {
	if sample.queued > sample.workers*s.cfg.BacklogPerWorker {
		if s.backlogSince.IsZero() {
			s.backlogSince = now
		}
		if sample.workers < sample.maxWorkers && now.Sub(s.backlogSince) >= s.cfg.ScaleUpAfter {
			return scaleUp
		}
		return scaleHold
	}

	s.backlogSince = time.Time{}
	if sample.queued == 0 && sample.workers > sample.minWorkers &&
		sample.idle > 0 && sample.longestIdle >= s.cfg.ScaleDownAfter {
		return scaleDown
	}
	return scaleHold
}
