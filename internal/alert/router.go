package alert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Krumil/hacksignal/internal/domain"
)

// ThresholdPolicy decides whether an ROI score warrants an immediate alert.
// The baseline is a fixed cutoff; a percentile policy computed over
// historical scores can be substituted here.
type ThresholdPolicy interface {
	Exceeds(roiScore float64) bool
}

// FixedCutoff triggers immediate alerts strictly above the cutoff, in USD
// per hour. The 200.0 default is the original calibration placeholder, kept
// for compatibility.
type FixedCutoff float64

func (c FixedCutoff) Exceeds(roiScore float64) bool {
	return roiScore > float64(c)
}

// DigestQueue is the persisted below-threshold event queue. Its lifecycle
// spans pipeline runs until the scheduled digest flush clears it.
type DigestQueue interface {
	Load(ctx context.Context) ([]domain.EnrichedEvent, error)
	Append(ctx context.Context, event domain.EnrichedEvent) error
	Clear(ctx context.Context) error
}

// TxRunner wraps the digest flush so that load-dispatch-clear executes as a
// single critical section.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Router decides immediate-alert vs. digest-queue per event, and owns the
// digest flush.
type Router struct {
	policy   ThresholdPolicy
	queue    DigestQueue
	registry *Registry
	channel  Channel
	tx       TxRunner
	logger   *slog.Logger
}

// NewRouter wires a Router. tx may be nil for stores that need no
// transaction wrapper (e.g. in-memory queues).
func NewRouter(policy ThresholdPolicy, queue DigestQueue, registry *Registry, channel Channel, tx TxRunner, logger *slog.Logger) *Router {
	return &Router{
		policy:   policy,
		queue:    queue,
		registry: registry,
		channel:  channel,
		tx:       tx,
		logger:   logger.With("component", "router"),
	}
}

// Route dispatches an above-threshold event immediately and queues everything
// else for the digest. An immediate delivery failure is reported, not
// retried; the decision stands either way.
func (r *Router) Route(ctx context.Context, event domain.EnrichedEvent) (domain.RoutingDecision, error) {
	if !r.policy.Exceeds(event.ROIScore) {
		if err := r.queue.Append(ctx, event); err != nil {
			return domain.DecisionDigest, fmt.Errorf("queue for digest: %w", err)
		}
		r.logger.Debug("queued for digest", "post_id", event.PostID, "roi", event.ROIScore)
		return domain.DecisionDigest, nil
	}

	msg, err := r.buildMessage(event, domain.DecisionImmediate)
	if err != nil {
		return domain.DecisionImmediate, err
	}
	if err := r.registry.Send(ctx, r.channel, msg); err != nil {
		return domain.DecisionImmediate, fmt.Errorf("send immediate alert: %w", err)
	}

	r.logger.Info("immediate alert sent", "post_id", event.PostID, "roi", event.ROIScore)
	return domain.DecisionImmediate, nil
}

// FlushDigest formats and dispatches every queued event, then clears the
// queue. Load and clear run inside one transaction so a concurrent append
// is never lost silently. An empty queue is a no-op success. Returns the
// number of delivered events.
func (r *Router) FlushDigest(ctx context.Context) (int, error) {
	delivered := 0

	flush := func(ctx context.Context) error {
		events, err := r.queue.Load(ctx)
		if err != nil {
			return fmt.Errorf("load digest queue: %w", err)
		}
		if len(events) == 0 {
			return nil
		}

		for _, event := range events {
			msg, err := r.buildMessage(event, domain.DecisionDigest)
			if err != nil {
				r.logger.Warn("skipping unrenderable digest entry", "post_id", event.PostID, "error", err)
				continue
			}
			if err := r.registry.Send(ctx, r.channel, msg); err != nil {
				return fmt.Errorf("send digest entry %s: %w", event.PostID, err)
			}
			delivered++
		}

		if err := r.queue.Clear(ctx); err != nil {
			return fmt.Errorf("clear digest queue: %w", err)
		}
		return nil
	}

	var err error
	if r.tx != nil {
		err = r.tx.WithTransaction(ctx, flush)
	} else {
		err = flush(ctx)
	}
	if err != nil {
		return delivered, err
	}

	if delivered > 0 {
		r.logger.Info("digest flushed", "delivered", delivered)
	}
	return delivered, nil
}

func (r *Router) buildMessage(event domain.EnrichedEvent, decision domain.RoutingDecision) (Message, error) {
	body, err := FormatMessage(event)
	if err != nil {
		return Message{}, err
	}

	priority := PriorityNormal
	if decision == domain.DecisionImmediate {
		priority = PriorityHigh
	}

	return Message{
		Title:    fmt.Sprintf("Hackathon alert: %.0f USD/h", event.ROIScore),
		Body:     body,
		Priority: priority,
		Decision: decision,
		Event:    event,
	}, nil
}
