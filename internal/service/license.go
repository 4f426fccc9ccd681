package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"lighthouse-checkout/internal/domain"
	"lighthouse-checkout/internal/metrics"
	"lighthouse-checkout/internal/payment"
	"lighthouse-checkout/internal/validator"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrMissingMetadata is returned when a completed checkout lacks the
// purchaser's name or email.
var ErrMissingMetadata = errors.New("missing customer information")

// ExpiryLayout is the calendar-date format sent as the license expiry.
const ExpiryLayout = "2006-01-02"

// LicenseValidity is how long an issued license stays valid.
const LicenseValidity = 365 * 24 * time.Hour

// publishTimeout bounds the wait for a Kafka delivery report inside the
// webhook request.
const publishTimeout = 3 * time.Second

// LicenseDispatcher triggers the external license generation.
type LicenseDispatcher interface {
	Dispatch(ctx context.Context, req domain.LicenseRequest) error
}

// PurchasePublisher announces dispatched licenses to other services.
type PurchasePublisher interface {
	PublishLicensePurchase(ctx context.Context, purchase domain.LicensePurchase) error
}

// DispatchLogRepository records dispatch attempts.
type DispatchLogRepository interface {
	SaveDispatch(ctx context.Context, l domain.DispatchLog) error
}

// EventResult tells the caller what HandleEvent did.
type EventResult struct {
	Handled bool
	License domain.LicenseRequest
}

type licenseService struct {
	dispatcher LicenseDispatcher
	publisher  PurchasePublisher
	logs       DispatchLogRepository
	now        func() time.Time

	publishTimeout time.Duration
}

// NewLicenseService wires the webhook flow. publisher and logs may be nil.
func NewLicenseService(dispatcher LicenseDispatcher, publisher PurchasePublisher, logs DispatchLogRepository) *licenseService {
	return &licenseService{
		dispatcher: dispatcher,
		publisher:  publisher,
		logs:       logs,
		now:        time.Now,

		publishTimeout: publishTimeout,
	}
}

// HandleEvent acts on a verified webhook event. Events are not deduplicated:
// a redelivered completion dispatches the workflow again.
func (s *licenseService) HandleEvent(ctx context.Context, ev payment.Event) (EventResult, error) {
	switch ev.Type {
	case payment.EventCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, ev)
	default:
		log.WithFields(log.Fields{
			"event_id": ev.ID,
			"type":     ev.Type,
		}).Info("Webhook event ignored (unhandled type)")
		return EventResult{}, nil
	}
}

func (s *licenseService) handleCheckoutCompleted(ctx context.Context, ev payment.Event) (EventResult, error) {
	license := domain.LicenseRequest{
		Name:         strings.TrimSpace(ev.Metadata[domain.MetaCustomerName]),
		Email:        strings.TrimSpace(ev.Metadata[domain.MetaCustomerEmail]),
		Organization: ev.Metadata[domain.MetaOrganization],
		Expiry:       s.now().UTC().Add(LicenseValidity).Format(ExpiryLayout),
	}
	if err := validator.ValidateLicenseRequest(license); err != nil {
		log.WithFields(log.Fields{
			"event_id": ev.ID,
			"error":    err,
		}).Error("Missing required customer information in metadata")
		return EventResult{Handled: true}, fmt.Errorf("%w: %w", ErrMissingMetadata, err)
	}

	logCtx := log.WithFields(log.Fields{
		"event_id":     ev.ID,
		"email":        license.Email,
		"organization": license.Organization,
		"expiry":       license.Expiry,
	})
	logCtx.Info("Processing successful payment")

	err := s.dispatcher.Dispatch(ctx, license)
	s.recordDispatch(ctx, ev.ID, license, err)
	if err != nil {
		metrics.LicenseDispatchesTotal.WithLabelValues(metrics.OutcomeError).Inc()
		logCtx.WithError(err).Error("Failed to trigger license workflow")
		return EventResult{Handled: true, License: license}, fmt.Errorf("failed to dispatch license workflow: %w", err)
	}
	metrics.LicenseDispatchesTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	logCtx.Info("Successfully triggered license workflow")

	s.publish(ctx, ev.ID, license)
	return EventResult{Handled: true, License: license}, nil
}

func (s *licenseService) recordDispatch(ctx context.Context, eventID string, license domain.LicenseRequest, dispatchErr error) {
	if s.logs == nil {
		return
	}
	entry := domain.DispatchLog{
		EventID:      eventID,
		Name:         license.Name,
		Email:        license.Email,
		Organization: license.Organization,
		Expiry:       license.Expiry,
		Status:       domain.DispatchSucceeded,
	}
	if dispatchErr != nil {
		entry.Status = domain.DispatchFailed
		entry.ErrorMessage = sql.NullString{String: dispatchErr.Error(), Valid: true}
	}
	if err := s.logs.SaveDispatch(ctx, entry); err != nil {
		log.WithError(err).WithField("event_id", eventID).Error("Failed to save dispatch log")
	}
}

func (s *licenseService) publish(ctx context.Context, eventID string, license domain.LicenseRequest) {
	if s.publisher == nil {
		return
	}
	purchase := domain.LicensePurchase{
		PurchaseID:   uuid.NewString(),
		EventID:      eventID,
		Name:         license.Name,
		Email:        license.Email,
		Organization: license.Organization,
		Expiry:       license.Expiry,
		PurchasedAt:  s.now().UTC(),
	}
	ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	if err := s.publisher.PublishLicensePurchase(ctx, purchase); err != nil {
		log.WithError(err).WithField("event_id", eventID).Error("Failed to publish license purchase")
	}
}
