package internal

import (
	"context"
	"errors"
	"time"
)

// LoadFunc returns the current candidate rows of one session
type LoadFunc func(ctx context.Context) ([]any, error)

// Poller re-reads a session's rows on an interval and reports each new
// display snapshot
type Poller struct {
	Interval time.Duration
	Load     LoadFunc
	OnChange func(*SessionReport)
	Metrics  *Metrics

	detector *ChangeDetector
}

// NewPoller creates a poller with its own change detector
func NewPoller(interval time.Duration, load LoadFunc, onChange func(*SessionReport)) *Poller {
	return &Poller{
		Interval: interval,
		Load:     load,
		OnChange: onChange,
		detector: NewChangeDetector(),
	}
}

// Poll loads and replays the rows once. changed is true when the display
// snapshot differs from the one seen on the previous poll; OnChange is
// called in that case.
func (p *Poller) Poll(ctx context.Context) (report *SessionReport, changed bool, err error) {
	if p.Load == nil {
		return nil, false, errors.New("poller has no load function")
	}
	if p.detector == nil {
		p.detector = NewChangeDetector()
	}

	rows, err := p.Load(ctx)
	if err != nil {
		if p.Metrics != nil {
			p.Metrics.RecordLoadError()
		}
		return nil, false, err
	}

	start := time.Now()
	report = Replay(rows)
	digest, err := Digest(report.Display)
	if err != nil {
		return report, false, err
	}
	changed = p.detector.Changed(report.SessionID, digest)
	if p.Metrics != nil {
		p.Metrics.RecordPoll(report, time.Since(start), changed)
	}

	if changed && p.OnChange != nil {
		p.OnChange(report)
	}
	return report, changed, nil
}

// Run polls immediately and then on every tick until ctx is cancelled.
// Load errors are logged and polling continues.
func (p *Poller) Run(ctx context.Context) error {
	interval := ClampPollInterval(p.Interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	LogDebug("polling every %s", interval)
	for {
		if _, _, err := p.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			LogWarn("poll failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
