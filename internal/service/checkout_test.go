package service

import (
	"context"
	"errors"
	"testing"

	"lighthouse-checkout/internal/domain"
	"lighthouse-checkout/internal/metrics"
	"lighthouse-checkout/internal/payment"
	"lighthouse-checkout/internal/validator"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	customerID  string
	findErr     error
	createErr   error
	findCalls   []string
	createCalls []payment.CheckoutParams
}

func (g *fakeGateway) FindCustomerID(_ context.Context, email string) (string, error) {
	g.findCalls = append(g.findCalls, email)
	return g.customerID, g.findErr
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, p payment.CheckoutParams) (*payment.CheckoutSession, error) {
	g.createCalls = append(g.createCalls, p)
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &payment.CheckoutSession{ID: "cs_test", URL: "https://checkout.stripe.com/c/pay/cs_test"}, nil
}

func TestCreateCheckoutNewCustomer(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewCheckoutService(gw, "https://letpeople.work")

	url, err := svc.CreateCheckout(context.Background(), domain.PurchaseRequest{
		Name:         " Jane Doe ",
		Email:        "jane@example.com",
		Organization: "Acme",
	}, "https://preview.letpeople.work/")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test", url)

	require.Len(t, gw.createCalls, 1)
	p := gw.createCalls[0]
	assert.Empty(t, p.CustomerID)
	assert.Equal(t, "jane@example.com", p.CustomerEmail)
	assert.Equal(t, "License for Acme", p.Description)
	assert.Equal(t, map[string]string{
		"customer_name":  "Jane Doe",
		"customer_email": "jane@example.com",
		"organization":   "Acme",
	}, p.Metadata)
	assert.Equal(t, "https://preview.letpeople.work/lighthouse?payment=success", p.SuccessURL)
	assert.Equal(t, "https://preview.letpeople.work/lighthouse?payment=canceled", p.CancelURL)
}

func TestCreateCheckoutExistingCustomer(t *testing.T) {
	gw := &fakeGateway{customerID: "cus_123"}
	svc := NewCheckoutService(gw, "https://letpeople.work")

	_, err := svc.CreateCheckout(context.Background(), domain.PurchaseRequest{Name: "Jane", Email: "jane@example.com"}, "")
	require.NoError(t, err)

	require.Len(t, gw.createCalls, 1)
	p := gw.createCalls[0]
	assert.Equal(t, "cus_123", p.CustomerID)
	assert.Empty(t, p.CustomerEmail)
	assert.Equal(t, "License for Individual", p.Description)
	assert.Equal(t, "", p.Metadata["organization"])
	assert.Equal(t, "https://letpeople.work/lighthouse?payment=success", p.SuccessURL)
}

func TestCreateCheckoutValidationCreatesNoSession(t *testing.T) {
	for _, req := range []domain.PurchaseRequest{
		{Email: "jane@example.com"},
		{Name: "Jane"},
		{},
	} {
		gw := &fakeGateway{}
		svc := NewCheckoutService(gw, "https://letpeople.work")

		_, err := svc.CreateCheckout(context.Background(), req, "")
		require.ErrorIs(t, err, ErrValidation)
		assert.Empty(t, gw.findCalls)
		assert.Empty(t, gw.createCalls)
	}
}

func TestCreateCheckoutValidationKeepsCause(t *testing.T) {
	svc := NewCheckoutService(&fakeGateway{}, "")
	_, err := svc.CreateCheckout(context.Background(), domain.PurchaseRequest{Name: "Jane"}, "")
	assert.ErrorIs(t, err, validator.ErrEmptyEmail)
}

func TestCreateCheckoutProviderErrors(t *testing.T) {
	boom := errors.New("stripe down")

	gw := &fakeGateway{findErr: boom}
	_, err := NewCheckoutService(gw, "").CreateCheckout(context.Background(), domain.PurchaseRequest{Name: "Jane", Email: "jane@example.com"}, "")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.Empty(t, gw.createCalls)

	gw = &fakeGateway{createErr: boom}
	_, err = NewCheckoutService(gw, "").CreateCheckout(context.Background(), domain.PurchaseRequest{Name: "Jane", Email: "jane@example.com"}, "")
	assert.ErrorIs(t, err, boom)
}

func TestCreateCheckoutRepeatedCallsCreateDistinctSessions(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewCheckoutService(gw, "https://letpeople.work")
	req := domain.PurchaseRequest{Name: "Jane", Email: "jane@example.com"}

	_, err := svc.CreateCheckout(context.Background(), req, "")
	require.NoError(t, err)
	_, err = svc.CreateCheckout(context.Background(), req, "")
	require.NoError(t, err)

	assert.Len(t, gw.createCalls, 2)
}

func TestCreateCheckoutCountsOutcomes(t *testing.T) {
	success := metrics.CheckoutSessionsTotal.WithLabelValues(metrics.OutcomeSuccess)
	invalid := metrics.CheckoutSessionsTotal.WithLabelValues(metrics.OutcomeInvalid)
	successBefore := testutil.ToFloat64(success)
	invalidBefore := testutil.ToFloat64(invalid)

	svc := NewCheckoutService(&fakeGateway{}, "https://letpeople.work")
	_, err := svc.CreateCheckout(context.Background(), domain.PurchaseRequest{Name: "Jane", Email: "jane@example.com"}, "")
	require.NoError(t, err)
	_, err = svc.CreateCheckout(context.Background(), domain.PurchaseRequest{Name: "Jane"}, "")
	require.Error(t, err)

	assert.Equal(t, successBefore+1, testutil.ToFloat64(success))
	assert.Equal(t, invalidBefore+1, testutil.ToFloat64(invalid))
}
