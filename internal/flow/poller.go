package flow

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/arendahub/miniapp-client/internal/backend"
	"github.com/arendahub/miniapp-client/internal/metrics"
)

// PollInterval is the fixed review-status polling period.
const PollInterval = 5 * time.Second

// PollerConfig configures a status poller.
type PollerConfig struct {
	Backend  *backend.Client
	Recorder *backend.Recorder
	Logger   zerolog.Logger
	Metrics  *metrics.Metrics

	// Interval overrides PollInterval in tests. Zero means PollInterval.
	Interval time.Duration

	// OnStatus observes every successfully fetched status value.
	OnStatus func(status string)
	// OnDecision fires exactly once, after the terminal transition has been
	// asserted at the backend.
	OnDecision func(t Transition)
}

// Poller repeatedly queries the review status while the subject awaits a
// decision and performs the terminal transition the moment one lands.
type Poller struct {
	cfg PollerConfig
}

// NewPoller creates a poller. It does nothing until Run.
func NewPoller(cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = PollInterval
	}
	return &Poller{cfg: cfg}
}

// Run blocks, ticking on the poll interval until the context is cancelled
// or a terminal decision is handled. Cancelling the context is the only way
// to stop an undecided poller; no timer survives return.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.tick(ctx) {
				return
			}
		}
	}
}

// tick performs one status fetch. A failed fetch is a silent no-op: the
// user sees nothing and the next tick retries.
func (p *Poller) tick(ctx context.Context) (decided bool) {
	p.cfg.Metrics.RecordPollTick()

	status := p.cfg.Backend.FetchStatus(ctx)
	if status == nil {
		return false
	}

	if p.cfg.OnStatus != nil {
		p.cfg.OnStatus(status.CheckStatus)
	}

	switch status.CheckStatus {
	case backend.StatusApproved:
		p.decide(ctx, GoToContract, "contract", "Анкета одобрена, переход на страницу договора")
		return true
	case backend.StatusDiscarded:
		p.decide(ctx, GoToRejected, "rejected", "Анкета отклонена")
		return true
	default:
		// Still in review; only the displayed status text changes.
		return false
	}
}

func (p *Poller) decide(ctx context.Context, t Transition, page, message string) {
	p.cfg.Backend.SetState(ctx, string(t.Target()))
	if p.cfg.Recorder != nil {
		p.cfg.Recorder.Record(backend.ActionPageView, page, message)
	}
	p.cfg.Logger.Info().Str("state", string(t.Target())).Msg("flow: review decision received")
	if p.cfg.OnDecision != nil {
		p.cfg.OnDecision(t)
	}
}
