package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"lighthouse-checkout/internal/domain"

	log "github.com/sirupsen/logrus"
)

const writeTimeout = 5 * time.Second

// PostgresRepository stores dispatch attempts and notification emails.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) SaveDispatch(ctx context.Context, l domain.DispatchLog) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	log.WithFields(log.Fields{
		"event_id": l.EventID,
		"email":    l.Email,
		"status":   l.Status,
	}).Debug("Saving dispatch log to database")

	const query = `
        INSERT INTO license_dispatch_logs (event_id, customer_name, customer_email, organization, expiry, status, error_message)
        VALUES ($1, $2, $3, $4, $5, $6, $7);
    `

	if _, err := r.db.ExecContext(ctx, query, l.EventID, l.Name, l.Email, l.Organization, l.Expiry, string(l.Status), nullStringOrNil(l.ErrorMessage)); err != nil {
		return fmt.Errorf("failed to insert dispatch log: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SaveLog(ctx context.Context, l domain.EmailLog) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	log.WithFields(log.Fields{
		"purchase_id":     l.PurchaseID,
		"recipient_email": l.RecipientEmail,
		"status":          l.Status,
	}).Debug("Saving email log to database")

	const query = `
        INSERT INTO email_logs (purchase_id, recipient_email, subject, status, error_message)
        VALUES ($1, $2, $3, $4, $5);
    `

	if _, err := r.db.ExecContext(ctx, query, l.PurchaseID, l.RecipientEmail, l.Subject, string(l.Status), nullStringOrNil(l.ErrorMessage)); err != nil {
		return fmt.Errorf("failed to insert email log: %w", err)
	}
	return nil
}

func nullStringOrNil(ns sql.NullString) interface{} {
	if ns.Valid {
		return ns.String
	}
	return nil
}
