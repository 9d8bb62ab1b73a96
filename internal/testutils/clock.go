// Package testutils provides test helpers shared by the pool packages
package testutils

import (
	"testing"
	"time"

	"github.com/coder/quartz"

	"github.com/jzx17/stealpool/pkg/types"
)

// NewMockPoolClock returns a quartz mock and the types.Clock view of it, for
// handing to Config.Clock while the test advances time through the mock
func NewMockPoolClock(t testing.TB) (*quartz.Mock, types.Clock) {
	mock := quartz.NewMock(t)
	return mock, poolClock{mock}
}

type poolClock struct {
	mock *quartz.Mock
}

func (c poolClock) Now() time.Time {
	return c.mock.Now()
}

func (c poolClock) Since(t time.Time) time.Duration {
	return c.mock.Since(t)
}

func (c poolClock) NewTicker(d time.Duration) types.Ticker {
	return mockTicker{c.mock.NewTicker(d)}
}

type mockTicker struct {
	ticker *quartz.Ticker
}

func (t mockTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t mockTicker) Stop() {
	t.ticker.Stop()
}
