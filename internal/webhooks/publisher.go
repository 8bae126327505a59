package webhooks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cflp/internal/model"
	"cflp/internal/store"
)

type Publisher struct {
	Store store.Store
	Log   *zap.Logger
}

func NewPublisher(s store.Store, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{Store: s, Log: log.Named("webhooks")}
}

// Emit enqueues ev for every subscription of its tenant that wants ev.Type.
// It returns the number of deliveries queued.
func (p *Publisher) Emit(ctx context.Context, ev model.SolveEvent) int {
	subs, err := p.Store.GetSubscriptionsForEvent(ctx, ev.TenantID, ev.Type)
	if err != nil {
		p.Log.Warn("lookup subscriptions", zap.String("tenant", ev.TenantID), zap.Error(err))
		return 0
	}
	if len(subs) == 0 {
		return 0
	}
	payload := map[string]any{
		"id":       "evt_" + uuid.New().String(),
		"type":     ev.Type,
		"tenantId": ev.TenantID,
		"ts":       ev.TS.UTC().Format(time.RFC3339),
		"data":     ev,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		p.Log.Error("encode event", zap.Error(err))
		return 0
	}
	n := 0
	for _, s := range subs {
		if _, err := p.Store.EnqueueWebhook(ctx, ev.TenantID, s.ID, ev.Type, s.URL, s.Secret, body); err != nil {
			p.Log.Warn("enqueue webhook", zap.String("subscription", s.ID), zap.Error(err))
			continue
		}
		n++
	}
	return n
}
