package service

import (
	"context"
	"time"
)

// pacer releases one tick per period against a monotonic target. A tick that
// starts late does not shorten the next period to catch up: the next target
// is taken relative to now instead.
type pacer struct {
	period time.Duration
	next   time.Time
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

func newPacer(period time.Duration) *pacer {
	return &pacer{period: period, now: time.Now, sleep: sleepContext}
}

// wait blocks until the next tick is due and returns how late it started.
func (p *pacer) wait(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	now := p.now()
	if p.next.IsZero() {
		p.next = now
	}
	if d := p.next.Sub(now); d > 0 {
		if err := p.sleep(ctx, d); err != nil {
			return 0, err
		}
		lag := p.now().Sub(p.next)
		if lag < 0 {
			lag = 0
		}
		p.next = p.next.Add(p.period)
		return lag, nil
	}
	lag := now.Sub(p.next)
	p.next = now.Add(p.period)
	return lag, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
