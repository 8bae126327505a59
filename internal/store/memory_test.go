package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cflp/internal/model"
	"cflp/internal/opt"
)

func TestMemory_SolvesAreTenantScoped(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a, err := m.SaveSolve(ctx, model.SolveRecord{TenantID: "t1", Status: opt.StatusHeuristic, Objective: 10})
	require.NoError(t, err)
	require.NotEmpty(t, a.ID)
	require.False(t, a.CreatedAt.IsZero())

	_, err = m.GetSolve(ctx, "t2", a.ID)
	require.ErrorIs(t, err, ErrNotFound)
	got, err := m.GetSolve(ctx, "t1", a.ID)
	require.NoError(t, err)
	require.Equal(t, 10.0, got.Objective)
}

func TestMemory_ListSolvesPaginatesAndFilters(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	var ids []string
	for i := 0; i < 5; i++ {
		status := opt.StatusHeuristic
		if i == 2 {
			status = opt.StatusInfeasible
		}
		rec, err := m.SaveSolve(ctx, model.SolveRecord{TenantID: "t1", Status: status})
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	page, next, err := m.ListSolves(ctx, "t1", "", "", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, ids[1], next)

	page, next, err = m.ListSolves(ctx, "t1", "", next, 2)
	require.NoError(t, err)
	require.Equal(t, []string{ids[2], ids[3]}, []string{page[0].ID, page[1].ID})

	page, next, err = m.ListSolves(ctx, "t1", "", next, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Empty(t, next)

	page, _, err = m.ListSolves(ctx, "t1", opt.StatusInfeasible, "", 0)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, ids[2], page[0].ID)
}

func TestMemory_SolveMetricsUpsertPerSolver(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.SaveSolveMetrics(ctx, "t1", "s1", "heuristic", opt.Metrics{Opened: 2}))
	require.NoError(t, m.SaveSolveMetrics(ctx, "t1", "s1", "heuristic", opt.Metrics{Opened: 3, Stages: []opt.Stage{opt.StageRanking}}))
	rows, err := m.ListSolveMetrics(ctx, "t1", "s1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 3, rows[0]["opened"])
	require.Equal(t, []string{"ranking"}, rows[0]["stages"])

	rows, err = m.ListSolveMetrics(ctx, "t2", "s1")
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestMemory_CatalogConfigIsCopied(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	cfg, err := m.GetCatalogConfig(ctx, "t1")
	require.NoError(t, err)
	require.Nil(t, cfg)

	tiers := opt.DefaultCatalog()
	require.NoError(t, m.SaveCatalogConfig(ctx, "t1", model.CatalogConfig{Tiers: tiers, DistanceCostFactor: 2}))
	tiers[0].Capacity = 1

	cfg, err = m.GetCatalogConfig(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, opt.DefaultCatalog(), cfg.Tiers)
	require.Equal(t, 2.0, cfg.DistanceCostFactor)
}

func TestMemory_SubscriptionsMatchEvents(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a, err := m.CreateSubscription(ctx, model.SubscriptionRequest{TenantID: "t1", URL: "http://a", Events: []string{model.EventSolveCompleted}})
	require.NoError(t, err)
	_, err = m.CreateSubscription(ctx, model.SubscriptionRequest{TenantID: "t1", URL: "http://b", Events: []string{"*"}})
	require.NoError(t, err)

	subs, err := m.GetSubscriptionsForEvent(ctx, "t1", model.EventSolveCompleted)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	subs, err = m.GetSubscriptionsForEvent(ctx, "t1", model.EventSolveInfeasible)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Equal(t, "http://b", subs[0].URL)

	require.NoError(t, m.DeleteSubscription(ctx, "t1", a.ID))
	require.ErrorIs(t, m.DeleteSubscription(ctx, "t1", a.ID), ErrNotFound)
	list, next, err := m.ListSubscriptions(ctx, "t1", "", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Empty(t, next)
}

func TestMemory_WebhookDeliveryLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id, err := m.EnqueueWebhook(ctx, "t1", "sub", model.EventSolveCompleted, "http://a", "s", []byte(`{}`))
	require.NoError(t, err)

	due, err := m.FetchDueWebhookDeliveries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, DeliveryPending, due[0].Status)

	later := time.Now().Add(time.Hour)
	require.NoError(t, m.MarkWebhookDelivery(ctx, id, false, &later, "boom", 500, 3))
	due, err = m.FetchDueWebhookDeliveries(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, due)

	items, _, err := m.ListWebhookDeliveries(ctx, "t1", DeliveryRetry, "", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "boom", items[0]["lastError"])
	require.Equal(t, 1, items[0]["attempts"])

	require.ErrorIs(t, m.RetryWebhookDelivery(ctx, "t2", id), ErrNotFound)
	require.NoError(t, m.RetryWebhookDelivery(ctx, "t1", id))
	due, err = m.FetchDueWebhookDeliveries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	require.NoError(t, m.MarkWebhookDelivery(ctx, id, true, nil, "", 200, 1))
	items, _, err = m.ListWebhookDeliveries(ctx, "t1", DeliveryDelivered, "", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotContains(t, items[0], "nextAttemptAt")

	require.ErrorIs(t, m.FailWebhookDelivery(ctx, "missing", "x", 0, 0), ErrNotFound)
}
