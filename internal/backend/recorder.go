package backend

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/arendahub/miniapp-client/internal/metrics"
)

// Telemetry actions accepted by the backend.
const (
	ActionPageView    = "page_view"
	ActionButtonClick = "button_click"
	ActionFormSubmit  = "form_submit"
)

const (
	defaultQueueSize = 64
	closeDrainWindow = 2 * time.Second
)

// logEntry is the wire format of one telemetry event. The profile fields
// ride along only on the first page view of a session so the backend can
// backfill a record before the subject submits anything.
type logEntry struct {
	Action  string `json:"action"`
	Page    string `json:"page"`
	Message string `json:"message"`

	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Backfill carries the best-effort host profile fields attached to the
// first page view.
type Backfill struct {
	FirstName string
	LastName  string
	Username  string
	Phone     string
}

// RecorderConfig configures the telemetry recorder.
type RecorderConfig struct {
	Client   *Client
	Backfill Backfill
	Logger   zerolog.Logger
	Metrics  *metrics.Metrics

	// QueueSize bounds the event buffer; a full queue drops events.
	QueueSize int
	// EventsPerSecond throttles delivery. Zero means 5/s with burst 10.
	EventsPerSecond rate.Limit
}

// Recorder delivers telemetry events to the backend strictly off the
// primary flow: Record never blocks and never fails the caller, delivery
// failures are swallowed, and a full queue drops the event.
type Recorder struct {
	client   *Client
	backfill Backfill
	log      zerolog.Logger
	metrics  *metrics.Metrics
	limiter  *rate.Limiter

	queue  chan logEntry
	done   chan struct{}
	cancel context.CancelFunc

	mu            sync.Mutex
	closed        bool
	sentFirstView bool
}

// NewRecorder starts the delivery worker.
func NewRecorder(cfg RecorderConfig) *Recorder {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	limit := cfg.EventsPerSecond
	if limit <= 0 {
		limit = 5
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Recorder{
		client:   cfg.Client,
		backfill: cfg.Backfill,
		log:      cfg.Logger,
		metrics:  cfg.Metrics,
		limiter:  rate.NewLimiter(limit, 10),
		queue:    make(chan logEntry, queueSize),
		done:     make(chan struct{}),
		cancel:   cancel,
	}
	go r.worker(ctx)
	return r
}

// Record enqueues one event. It is a no-op after Close and when no identity
// is available.
func (r *Recorder) Record(action, page, message string) {
	if r.client.ChatID() <= 0 {
		return
	}

	entry := logEntry{Action: action, Page: page, Message: message}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if action == ActionPageView && !r.sentFirstView {
		r.sentFirstView = true
		entry.FirstName = r.backfill.FirstName
		entry.LastName = r.backfill.LastName
		entry.Username = r.backfill.Username
		entry.Phone = r.backfill.Phone
	}

	select {
	case r.queue <- entry:
	default:
		r.metrics.RecordTelemetryDrop()
		r.log.Debug().Str("action", action).Str("page", page).Msg("telemetry: queue full, event dropped")
	}
	r.mu.Unlock()
}

// Close stops accepting events and gives in-flight deliveries a short
// window to drain before cancelling them.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	select {
	case <-r.done:
	case <-time.After(closeDrainWindow):
		r.cancel()
		<-r.done
	}
	r.cancel()
}

func (r *Recorder) worker(ctx context.Context) {
	defer close(r.done)
	for entry := range r.queue {
		if err := r.limiter.Wait(ctx); err != nil {
			continue
		}
		if !r.client.postLog(ctx, entry) {
			r.log.Debug().Str("action", entry.Action).Str("page", entry.Page).Msg("telemetry: event not delivered")
		}
	}
}
