package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

var (
	ErrMissingSignature = errors.New("missing signature or webhook secret")
	ErrInvalidSignature = errors.New("webhook signature verification failed")
)

// SignatureError carries the verification failure reported by Stripe. It
// matches ErrInvalidSignature under errors.Is.
type SignatureError struct {
	Err error
}

func (e *SignatureError) Error() string {
	return ErrInvalidSignature.Error() + ": " + e.Err.Error()
}

func (e *SignatureError) Is(target error) bool { return target == ErrInvalidSignature }

func (e *SignatureError) Unwrap() error { return e.Err }

// EventType is the subset of provider event types this service reacts to.
type EventType string

const (
	EventCheckoutCompleted EventType = EventType(stripe.EventTypeCheckoutSessionCompleted)
)

// Event is a verified webhook notification.
type Event struct {
	ID       string
	Type     EventType
	Metadata map[string]string
}

type checkoutSessionObject struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
}

// ParseWebhookEvent verifies the signature header against the raw payload and
// decodes the event. The payload must be the bytes exactly as received.
func ParseWebhookEvent(payload []byte, sigHeader, secret string) (Event, error) {
	if strings.TrimSpace(sigHeader) == "" || strings.TrimSpace(secret) == "" {
		return Event{}, ErrMissingSignature
	}

	ev, err := webhook.ConstructEventWithOptions(payload, sigHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, &SignatureError{Err: err}
	}

	out := Event{ID: ev.ID, Type: EventType(ev.Type)}
	if out.Type == EventCheckoutCompleted && ev.Data != nil && len(ev.Data.Raw) > 0 {
		var sess checkoutSessionObject
		if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
			return Event{}, fmt.Errorf("decode checkout.session: %w", err)
		}
		out.Metadata = sess.Metadata
	}
	return out, nil
}
