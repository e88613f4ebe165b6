// Package dispatch sends one message to many contacts in paced batches and
// reports a complete, partitioned outcome. A failed send never aborts its
// batch or the job; only an unready channel is fatal.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/outreach-cli/internal/model"
)

const (
	defaultBatchSize  = 5
	defaultBatchDelay = 2 * time.Second
)

// Config tunes one dispatch job.
type Config struct {
	// BatchSize bounds concurrent in-flight sends. Default 5.
	BatchSize int `json:"batch_size"`
	// BatchDelay is the pause between consecutive batches, pacing the
	// external channel's rate limits. Not applied after the last batch.
	// Default 2s.
	BatchDelay time.Duration `json:"batch_delay"`
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.BatchDelay <= 0 {
		c.BatchDelay = defaultBatchDelay
	}
	return c
}

// Option configures an Engine.
type Option func(*Engine)

// WithSleeper replaces the inter-batch wait, letting tests run without
// wall-clock delays.
func WithSleeper(sleep func(d time.Duration)) Option {
	return func(e *Engine) { e.sleep = sleep }
}

// WithRateLimit adds a per-send token-bucket limit on top of batch pacing.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(e *Engine) { e.limiter = rate.NewLimiter(limit, burst) }
}

// Engine dispatches messages through a Channel.
type Engine struct {
	channel Channel
	sleep   func(d time.Duration)
	limiter *rate.Limiter
}

// NewEngine creates an Engine for the given channel.
func NewEngine(ch Channel, opts ...Option) *Engine {
	e := &Engine{
		channel: ch,
		sleep:   time.Sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dispatch sends message to every contact and returns once all batches have
// finished. Contacts are processed in consecutive batches of cfg.BatchSize;
// within a batch sends fan out concurrently and the engine waits for the
// whole batch before pacing into the next one. Every contact lands in
// exactly one of Sent or Failed; there is no retry of failed sends.
func (e *Engine) Dispatch(ctx context.Context, contacts []model.Contact, message string, cfg Config) (*model.DispatchResult, error) {
	cfg = cfg.withDefaults()

	if !e.channel.IsReady() {
		return nil, eris.New("dispatch: channel is not ready")
	}

	log := zap.L().With(
		zap.Int("contacts", len(contacts)),
		zap.Int("batch_size", cfg.BatchSize),
	)
	log.Info("dispatch started")

	result := &model.DispatchResult{}
	for start := 0; start < len(contacts); start += cfg.BatchSize {
		end := min(start+cfg.BatchSize, len(contacts))
		e.sendBatch(ctx, contacts[start:end], message, result)

		if end < len(contacts) {
			e.sleep(cfg.BatchDelay)
		}
	}

	log.Info("dispatch finished",
		zap.Int("sent", len(result.Sent)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// sendBatch fans the batch out concurrently and fans in before returning.
// Failures are isolated per contact and recorded, never propagated.
func (e *Engine) sendBatch(ctx context.Context, batch []model.Contact, message string, result *model.DispatchResult) {
	var mu sync.Mutex
	g := new(errgroup.Group)

	for _, contact := range batch {
		g.Go(func() error {
			outcome := e.sendOne(ctx, contact, message)
			mu.Lock()
			if outcome.Error == "" {
				result.Sent = append(result.Sent, outcome)
			} else {
				result.Failed = append(result.Failed, outcome)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Engine) sendOne(ctx context.Context, contact model.Contact, message string) model.SendOutcome {
	outcome := model.SendOutcome{Contact: contact}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			outcome.Error = err.Error()
			outcome.SentAt = time.Now().UTC()
			return outcome
		}
	}

	id, err := e.channel.SendOne(ctx, contact, message)
	outcome.SentAt = time.Now().UTC()
	if err != nil {
		outcome.Error = err.Error()
		zap.L().Warn("send failed",
			zap.String("phone", contact.Phone),
			zap.Error(err),
		)
		return outcome
	}
	outcome.MessageID = id
	return outcome
}
