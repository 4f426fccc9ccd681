package domain

import (
	"database/sql"
	"time"
)

// Metadata keys attached to a checkout session and read back by the webhook.
const (
	MetaCustomerName  = "customer_name"
	MetaCustomerEmail = "customer_email"
	MetaOrganization  = "organization"
)

// DefaultOrganizationLabel is shown in the product description when the
// purchaser leaves the organization empty.
const DefaultOrganizationLabel = "Individual"

// PurchaseRequest is the body posted by the purchase form.
type PurchaseRequest struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required"`
	Organization string `json:"organization"`
}

// OrganizationLabel returns the organization or the individual label.
func (p PurchaseRequest) OrganizationLabel() string {
	if p.Organization == "" {
		return DefaultOrganizationLabel
	}
	return p.Organization
}

// Metadata is the bag echoed back by the payment provider on completion.
func (p PurchaseRequest) Metadata() map[string]string {
	return map[string]string{
		MetaCustomerName:  p.Name,
		MetaCustomerEmail: p.Email,
		MetaOrganization:  p.Organization,
	}
}

// LicenseRequest is what the license workflow receives as inputs.
type LicenseRequest struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required"`
	Organization string `json:"organization"`
	Expiry       string `json:"expiry"`
}

// LicensePurchase is published once a license workflow was dispatched.
type LicensePurchase struct {
	PurchaseID   string    `json:"purchase_id" validate:"required"`
	EventID      string    `json:"event_id"`
	Name         string    `json:"name" validate:"required"`
	Email        string    `json:"email" validate:"required"`
	Organization string    `json:"organization"`
	Expiry       string    `json:"expiry" validate:"required"`
	PurchasedAt  time.Time `json:"purchased_at"`
}

type DispatchStatus string

const (
	DispatchSucceeded DispatchStatus = "dispatched"
	DispatchFailed    DispatchStatus = "failed"
)

// DispatchLog is one attempt to trigger the license workflow.
type DispatchLog struct {
	EventID      string
	Name         string
	Email        string
	Organization string
	Expiry       string
	Status       DispatchStatus
	ErrorMessage sql.NullString
}

type EmailStatus string

const (
	StatusSent   EmailStatus = "sent"
	StatusFailed EmailStatus = "failed"
)

type EmailLog struct {
	PurchaseID     string
	RecipientEmail string
	Subject        string
	Status         EmailStatus
	ErrorMessage   sql.NullString
}
