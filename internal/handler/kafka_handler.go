package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"lighthouse-checkout/internal/domain"
)

// NotificationService defines the interface for notification business logic
type NotificationService interface {
	ProcessPurchase(ctx context.Context, purchase domain.LicensePurchase) error
}

type purchaseHandler struct {
	notificationService NotificationService
}

func NewPurchaseHandler(notificationService NotificationService) *purchaseHandler {
	return &purchaseHandler{notificationService: notificationService}
}

func (h *purchaseHandler) HandleMessage(ctx context.Context, message []byte) error {
	var purchase domain.LicensePurchase
	if err := json.Unmarshal(message, &purchase); err != nil {
		return fmt.Errorf("failed to decode license purchase: %w", err)
	}
	return h.notificationService.ProcessPurchase(ctx, purchase)
}
