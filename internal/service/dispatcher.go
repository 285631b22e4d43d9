package service

import (
	"context"
	"fmt"

	"cartographer-notify/internal/entity"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Dispatcher fans a resolved delivery out to its channel sinks. Contract:
// at-least-once attempt, exactly-once bookkeeping per idempotency key
// (event id, user id, channel). Channels are independent; one failing
// never blocks another. Retry/backoff is the sink's concern, at the
// transport boundary.
type Dispatcher struct {
	deliveries DeliveryLog
	sinks      map[entity.Channel]ChannelSink
	log        *zap.Logger
}

func NewDispatcher(deliveries DeliveryLog, sinks map[entity.Channel]ChannelSink, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		deliveries: deliveries,
		sinks:      sinks,
		log:        log,
	}
}

// DispatchResult summarizes one recipient's channel outcomes.
type DispatchResult struct {
	Sent       int
	Failed     int
	Duplicates int
}

// Dispatch attempts every resolved channel target concurrently and
// records a DeliveryAttempt per channel regardless of sink success. A
// target whose idempotency key is already claimed reports a duplicate
// and never reaches the sink.
func (d *Dispatcher) Dispatch(ctx context.Context, event entity.NetworkEvent, delivery *entity.ResolvedDelivery) DispatchResult {
	var result DispatchResult

	eg, ctx := errgroup.WithContext(ctx)
	outcomes := make([]entity.DeliveryOutcome, len(delivery.Targets))

	for i, target := range delivery.Targets {
		eg.Go(func() error {
			outcomes[i] = d.dispatchOne(ctx, event, delivery, target)
			return nil
		})
	}
	_ = eg.Wait()

	for _, outcome := range outcomes {
		switch outcome {
		case entity.OutcomeSent:
			result.Sent++
		case entity.OutcomeDuplicate:
			result.Duplicates++
		default:
			result.Failed++
		}
	}
	return result
}

func (d *Dispatcher) dispatchOne(ctx context.Context, event entity.NetworkEvent, delivery *entity.ResolvedDelivery, target entity.ChannelTarget) entity.DeliveryOutcome {
	const op = "service.Dispatcher.dispatchOne"

	log := d.log.With(
		zap.String("op", op),
		zap.String("event_id", event.ID),
		zap.String("user_id", delivery.UserID),
		zap.String("channel", string(target.Channel)),
	)

	claimed, err := d.deliveries.Claim(ctx, nil, event.ID, delivery.UserID, target.Channel)
	if err != nil {
		log.Error("claim failed", zap.Error(err))
		return entity.OutcomeFailed
	}
	if !claimed {
		log.Debug("duplicate dispatch skipped")
		return entity.OutcomeDuplicate
	}

	sink, ok := d.sinks[target.Channel]
	if !ok {
		errMsg := fmt.Sprintf("no sink for channel %s", target.Channel)
		_ = d.deliveries.SetOutcome(ctx, nil, event.ID, delivery.UserID, target.Channel, entity.OutcomeFailed, errMsg)
		log.Warn("no sink configured")
		return entity.OutcomeFailed
	}

	if sendErr := sink.Send(ctx, target, event, delivery.EffectivePriority); sendErr != nil {
		if err := d.deliveries.SetOutcome(ctx, nil, event.ID, delivery.UserID, target.Channel, entity.OutcomeFailed, sendErr.Error()); err != nil {
			log.Error("record failure outcome", zap.Error(err))
		}
		log.Warn("sink delivery failed", zap.Error(sendErr))
		return entity.OutcomeFailed
	}

	if err := d.deliveries.SetOutcome(ctx, nil, event.ID, delivery.UserID, target.Channel, entity.OutcomeSent, ""); err != nil {
		log.Error("record sent outcome", zap.Error(err))
	}
	return entity.OutcomeSent
}
