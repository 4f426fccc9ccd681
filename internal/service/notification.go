package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"lighthouse-checkout/internal/domain"
	"lighthouse-checkout/internal/metrics"
	"lighthouse-checkout/internal/sender"
	"lighthouse-checkout/internal/validator"

	log "github.com/sirupsen/logrus"
)

// EmailRepository defines the interface for email log data access
type EmailRepository interface {
	SaveLog(ctx context.Context, log domain.EmailLog) error
}

type notificationService struct {
	emailSender     sender.EmailSender
	emailRepository EmailRepository
	salesInbox      string
	maxAttempts     int
	initialDelay    time.Duration
}

func NewNotificationService(emailSender sender.EmailSender, emailRepository EmailRepository, salesInbox string) *notificationService {
	return &notificationService{
		emailSender:     emailSender,
		emailRepository: emailRepository,
		salesInbox:      salesInbox,
		maxAttempts:     3,
		initialDelay:    1 * time.Second,
	}
}

// ProcessPurchase tells the sales inbox that a license was dispatched.
func (s *notificationService) ProcessPurchase(ctx context.Context, purchase domain.LicensePurchase) error {
	if err := validator.ValidateLicensePurchase(purchase); err != nil {
		log.WithFields(log.Fields{
			"error":       err,
			"purchase_id": purchase.PurchaseID,
		}).Error("License purchase validation failed")
		return fmt.Errorf("validation error: %w", err)
	}

	organization := purchase.Organization
	if organization == "" {
		organization = domain.DefaultOrganizationLabel
	}
	subject := fmt.Sprintf("New Lighthouse license: %s", organization)
	body := fmt.Sprintf(
		"A Lighthouse premium license was paid and the license workflow was triggered.\n\nName: %s\nEmail: %s\nOrganization: %s\nValid until: %s\nStripe event: %s\nPurchase ID: %s\n",
		purchase.Name,
		purchase.Email,
		organization,
		purchase.Expiry,
		purchase.EventID,
		purchase.PurchaseID,
	)

	msg := sender.Message{
		To:      s.salesInbox,
		ReplyTo: purchase.Email,
		Subject: subject,
		Body:    body,
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Retry sending email up to maxAttempts times with exponential backoff
	delay := s.initialDelay
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = s.emailSender.SendEmail(ctx, msg)
		if err == nil {
			if attempt > 1 {
				log.WithFields(log.Fields{
					"attempt":      attempt,
					"max_attempts": s.maxAttempts,
					"purchase_id":  purchase.PurchaseID,
				}).Info("Email sent successfully after retry")
			}
			break
		}

		if attempt < s.maxAttempts {
			log.WithFields(log.Fields{
				"attempt":      attempt,
				"max_attempts": s.maxAttempts,
				"error":        err,
				"purchase_id":  purchase.PurchaseID,
			}).Warn("Failed to send email, retrying...")

			select {
			case <-ctx.Done():
				err = ctx.Err()
				attempt = s.maxAttempts
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	logEntry := domain.EmailLog{
		PurchaseID:     purchase.PurchaseID,
		RecipientEmail: s.salesInbox,
		Subject:        subject,
	}

	if err != nil {
		metrics.NotificationEmailsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		log.WithError(err).Error("Failed to send sales notification via SMTP")
		logEntry.Status = domain.StatusFailed
		logEntry.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
	} else {
		metrics.NotificationEmailsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
		log.WithField("purchase_id", purchase.PurchaseID).Info("Sales notification sent via SMTP")
		logEntry.Status = domain.StatusSent
	}

	if s.emailRepository == nil {
		return nil
	}
	if err := s.emailRepository.SaveLog(context.WithoutCancel(ctx), logEntry); err != nil {
		log.WithError(err).Error("Failed to save email log to database")
		return err
	}

	return nil
}
