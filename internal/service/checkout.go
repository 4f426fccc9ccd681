package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lighthouse-checkout/internal/domain"
	"lighthouse-checkout/internal/metrics"
	"lighthouse-checkout/internal/payment"
	"lighthouse-checkout/internal/validator"

	log "github.com/sirupsen/logrus"
)

// ErrValidation wraps every rejection of a purchase request.
var ErrValidation = errors.New("validation error")

// PaymentGateway defines the payment provider operations used by checkout
type PaymentGateway interface {
	FindCustomerID(ctx context.Context, email string) (string, error)
	CreateCheckoutSession(ctx context.Context, params payment.CheckoutParams) (*payment.CheckoutSession, error)
}

type checkoutService struct {
	gateway PaymentGateway
	baseURL string
}

// NewCheckoutService builds the checkout flow. baseURL is used for the
// redirect targets when a request carries no Origin header.
func NewCheckoutService(gateway PaymentGateway, baseURL string) *checkoutService {
	return &checkoutService{gateway: gateway, baseURL: baseURL}
}

// CreateCheckout creates one hosted checkout session and returns its URL.
// Repeated calls create distinct sessions.
func (s *checkoutService) CreateCheckout(ctx context.Context, req domain.PurchaseRequest, origin string) (string, error) {
	req = validator.NormalizePurchaseRequest(req)
	if err := validator.ValidatePurchaseRequest(req); err != nil {
		metrics.CheckoutSessionsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		log.WithFields(log.Fields{
			"error": err,
			"email": req.Email,
		}).Warn("Purchase request validation failed")
		return "", fmt.Errorf("%w: %w", ErrValidation, err)
	}

	customerID, err := s.gateway.FindCustomerID(ctx, req.Email)
	if err != nil {
		metrics.CheckoutSessionsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return "", err
	}

	base := strings.TrimRight(strings.TrimSpace(origin), "/")
	if base == "" {
		base = strings.TrimRight(s.baseURL, "/")
	}

	params := payment.CheckoutParams{
		CustomerID:  customerID,
		Description: "License for " + req.OrganizationLabel(),
		Metadata:    req.Metadata(),
		SuccessURL:  base + "/lighthouse?payment=success",
		CancelURL:   base + "/lighthouse?payment=canceled",
	}
	if customerID == "" {
		params.CustomerEmail = req.Email
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		metrics.CheckoutSessionsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return "", err
	}

	metrics.CheckoutSessionsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	log.WithFields(log.Fields{
		"session_id":        sess.ID,
		"existing_customer": customerID != "",
		"organization":      req.OrganizationLabel(),
	}).Info("Checkout session created")
	return sess.URL, nil
}
