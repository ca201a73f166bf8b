package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type countingPurger struct {
	calls atomic.Int32
	err   error
}

func (p *countingPurger) PurgeExpired(context.Context) (int64, error) {
	p.calls.Add(1)
	return 1, p.err
}

func TestSchedulerRunsPurge(t *testing.T) {
	p := &countingPurger{}
	s := NewScheduler(p, "* * * * * *", zerolog.Nop())
	require.NoError(t, s.Start())
	defer s.Stop(context.Background())

	require.Eventually(t, func() bool { return p.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewScheduler(&countingPurger{}, "every now and then", zerolog.Nop())
	require.Error(t, s.Start())
}

func TestSchedulerDisabled(t *testing.T) {
	p := &countingPurger{}
	s := NewScheduler(p, "", zerolog.Nop())
	require.NoError(t, s.Start())
	s.Stop(context.Background())
	require.Zero(t, p.calls.Load())
}

func TestPurgeErrorIsLogged(t *testing.T) {
	p := &countingPurger{err: errors.New("db down")}
	s := NewScheduler(p, "* * * * * *", zerolog.Nop())
	s.purgeExpired()
	require.EqualValues(t, 1, p.calls.Load())
}
