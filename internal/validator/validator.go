package validator

import (
	"errors"
	"strings"

	"lighthouse-checkout/internal/domain"

	playground "github.com/go-playground/validator/v10"
)

var (
	ErrEmptyName          = errors.New("name is empty")
	ErrEmptyEmail         = errors.New("email is empty")
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrEmptyPurchaseID    = errors.New("purchase ID is empty")
	ErrEmptyExpiry        = errors.New("expiry is empty")
)

var structValidator = playground.New(playground.WithRequiredStructEnabled())

// fieldErrors maps a struct field that failed its "required" rule to the
// sentinel callers match on.
var fieldErrors = map[string]error{
	"Name":       ErrEmptyName,
	"Email":      ErrEmptyEmail,
	"PurchaseID": ErrEmptyPurchaseID,
	"Expiry":     ErrEmptyExpiry,
}

func ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return ErrEmptyEmail
	}
	if err := structValidator.Var(email, "email"); err != nil {
		return ErrInvalidEmailFormat
	}
	return nil
}

func validateStruct(v any) error {
	err := structValidator.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	for _, fe := range fieldErrs {
		if sentinel, ok := fieldErrors[fe.StructField()]; ok {
			return sentinel
		}
	}
	return err
}

// NormalizePurchaseRequest trims surrounding whitespace from every field.
func NormalizePurchaseRequest(req domain.PurchaseRequest) domain.PurchaseRequest {
	return domain.PurchaseRequest{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.TrimSpace(req.Email),
		Organization: strings.TrimSpace(req.Organization),
	}
}

// ValidatePurchaseRequest expects a normalized request. Only presence is
// checked; the payment provider validates the address itself.
func ValidatePurchaseRequest(req domain.PurchaseRequest) error {
	return validateStruct(req)
}

func ValidateLicenseRequest(req domain.LicenseRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	return validateStruct(req)
}

func ValidateLicensePurchase(purchase domain.LicensePurchase) error {
	purchase.PurchaseID = strings.TrimSpace(purchase.PurchaseID)
	purchase.Name = strings.TrimSpace(purchase.Name)
	if err := validateStruct(purchase); err != nil {
		return err
	}
	return ValidateEmail(purchase.Email)
}
