package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"clinic-appointment-service/config"
	"clinic-appointment-service/internal/testdb"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const testWebhookSecret = "whsec_test_secret"

func signPayload(payload []byte, secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", at.Unix(), payload)))
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func newTestGateway() PaymentGateway {
	return NewStripeGateway(config.PaymentConfig{
		StripeSecretKey: "sk_test_unused",
		WebhookSecret:   testWebhookSecret,
		Currency:        "inr",
		Timeout:         time.Second,
	}, testdb.Logger())
}

func checkoutEventPayload(eventType, appointmentID, paymentStatus string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_test_1",
		"object": "event",
		"api_version": "2024-06-20",
		"type": %q,
		"data": {
			"object": {
				"id": "cs_test_123",
				"object": "checkout.session",
				"payment_status": %q,
				"payment_intent": "pi_test_456",
				"client_reference_id": %q,
				"metadata": {"appointmentId": %q}
			}
		}
	}`, eventType, paymentStatus, appointmentID, appointmentID))
}

func TestStripeGateway_ConstructEventDecodesCheckoutSession(t *testing.T) {
	gateway := newTestGateway()
	appointmentID := uuid.NewString()
	payload := checkoutEventPayload(PaymentEventCheckoutCompleted, appointmentID, "paid")

	event, err := gateway.ConstructEvent(payload, signPayload(payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)

	assert.Equal(t, "evt_test_1", event.ID)
	assert.Equal(t, PaymentEventCheckoutCompleted, event.Type)
	require.NotNil(t, event.Session)
	assert.Equal(t, "cs_test_123", event.Session.ID)
	assert.True(t, event.Session.Paid)
	assert.Equal(t, appointmentID, event.Session.AppointmentID)
	assert.Equal(t, "pi_test_456", event.Session.PaymentIntentID)
}

func TestStripeGateway_ConstructEventUnpaidSession(t *testing.T) {
	gateway := newTestGateway()
	payload := checkoutEventPayload(PaymentEventCheckoutCompleted, uuid.NewString(), "unpaid")

	event, err := gateway.ConstructEvent(payload, signPayload(payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)
	require.NotNil(t, event.Session)
	assert.False(t, event.Session.Paid)
}

func TestStripeGateway_ConstructEventRejectsBadSignatures(t *testing.T) {
	gateway := newTestGateway()
	payload := checkoutEventPayload(PaymentEventCheckoutCompleted, uuid.NewString(), "paid")

	tests := []struct {
		name      string
		signature string
		wantErr   error
	}{
		{"missing", "", ErrMissingWebhookSignature},
		{"wrong secret", signPayload(payload, "whsec_other", time.Now()), ErrInvalidSignature},
		{"stale timestamp", signPayload(payload, testWebhookSecret, time.Now().Add(-time.Hour)), ErrInvalidSignature},
		{"garbage", "not-a-signature", ErrInvalidSignature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := gateway.ConstructEvent(payload, tt.signature)
			assert.Nil(t, event)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestStripeGateway_ConstructEventRejectsTamperedPayload(t *testing.T) {
	gateway := newTestGateway()
	payload := checkoutEventPayload(PaymentEventCheckoutCompleted, uuid.NewString(), "unpaid")
	signature := signPayload(payload, testWebhookSecret, time.Now())

	tampered := checkoutEventPayload(PaymentEventCheckoutCompleted, uuid.NewString(), "paid")
	_, err := gateway.ConstructEvent(tampered, signature)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(5000), MinorUnits(decimal.NewFromInt(50)))
	assert.Equal(t, int64(49999), MinorUnits(decimal.RequireFromString("499.99")))
	assert.Equal(t, int64(1235), MinorUnits(decimal.RequireFromString("12.345")))
}

func TestWithSessionPlaceholder(t *testing.T) {
	id := uuid.MustParse("7f3b7c1e-2f7a-4f39-9d0b-6a1f0f7e5d11")

	assert.Equal(t,
		"http://localhost:5173/verify?session_id={CHECKOUT_SESSION_ID}&appointment_id="+id.String(),
		withSessionPlaceholder("http://localhost:5173/verify", id))
	assert.Equal(t,
		"http://localhost:5173/verify?lang=en&session_id={CHECKOUT_SESSION_ID}&appointment_id="+id.String(),
		withSessionPlaceholder("http://localhost:5173/verify?lang=en", id))
}

func TestCheckoutSessionFromRaw(t *testing.T) {
	expanded := gjson.Parse(`{
		"id": "cs_1",
		"payment_status": "paid",
		"payment_intent": {"id": "pi_expanded", "object": "payment_intent"},
		"client_reference_id": "ref-only",
		"metadata": {}
	}`)
	s := checkoutSessionFromRaw(expanded)
	assert.Equal(t, "pi_expanded", s.PaymentIntentID)
	assert.Equal(t, "ref-only", s.AppointmentID)
	assert.True(t, s.Paid)

	bare := checkoutSessionFromRaw(gjson.Parse(`{"id": "cs_2", "payment_status": "no_payment_required", "payment_intent": null}`))
	assert.Empty(t, bare.PaymentIntentID)
	assert.False(t, bare.Paid)
}
