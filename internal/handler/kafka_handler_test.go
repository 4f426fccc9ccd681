package handler

import (
	"context"
	"testing"

	"lighthouse-checkout/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	purchases []domain.LicensePurchase
}

func (n *recordingNotifier) ProcessPurchase(_ context.Context, p domain.LicensePurchase) error {
	n.purchases = append(n.purchases, p)
	return nil
}

func TestPurchaseHandlerDecodesMessage(t *testing.T) {
	n := &recordingNotifier{}
	h := NewPurchaseHandler(n)

	msg := []byte(`{"purchase_id":"p-1","event_id":"evt_1","name":"Jane Doe","email":"jane@example.com","organization":"Acme","expiry":"2027-10-19","purchased_at":"2026-10-19T12:00:00Z"}`)
	require.NoError(t, h.HandleMessage(context.Background(), msg))

	require.Len(t, n.purchases, 1)
	assert.Equal(t, "p-1", n.purchases[0].PurchaseID)
	assert.Equal(t, "Acme", n.purchases[0].Organization)
	assert.Equal(t, 2026, n.purchases[0].PurchasedAt.Year())
}

func TestPurchaseHandlerRejectsGarbage(t *testing.T) {
	n := &recordingNotifier{}
	h := NewPurchaseHandler(n)

	assert.Error(t, h.HandleMessage(context.Background(), []byte("not json")))
	assert.Empty(t, n.purchases)
}
