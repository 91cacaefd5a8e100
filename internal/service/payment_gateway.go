package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"clinic-appointment-service/config"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
	"github.com/tidwall/gjson"
)

var (
	ErrInvalidSignature        = errors.New("invalid payment webhook signature")
	ErrUpstream                = errors.New("payment gateway request failed")
	ErrPaymentSessionNotFound  = errors.New("payment session not found")
	ErrMissingWebhookSignature = errors.New("missing payment webhook signature")
)

// Gateway event types we act on.
const (
	PaymentEventCheckoutCompleted     = "checkout.session.completed"
	PaymentEventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
)

// Metadata keys attached to every checkout session.
const (
	metadataAppointmentID = "appointmentId"
	metadataUserID        = "userId"
)

type CheckoutRequest struct {
	AppointmentID uuid.UUID
	PatientID     uuid.UUID
	ProductName   string
	Description   string
	Amount        decimal.Decimal
	Currency      string
	SuccessURL    string
	CancelURL     string
}

type CheckoutSession struct {
	ID              string
	URL             string
	Paid            bool
	PaymentIntentID string
	AppointmentID   string
}

type PaymentEvent struct {
	ID      string
	Type    string
	Session *CheckoutSession
}

// PaymentGateway is the boundary to the card processor. Calls are bounded by
// the caller's context and are never retried here.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	RetrieveCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
	ConstructEvent(payload []byte, signature string) (*PaymentEvent, error)
}

type stripeGateway struct {
	sessions      *session.Client
	webhookSecret string
	log           *logrus.Logger
}

func NewStripeGateway(cfg config.PaymentConfig, log *logrus.Logger) PaymentGateway {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     log,
	})
	return &stripeGateway{
		sessions:      &session.Client{B: backend, Key: cfg.StripeSecretKey},
		webhookSecret: cfg.WebhookSecret,
		log:           log,
	}
}

func (g *stripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(req.ProductName),
						Description: stripe.String(req.Description),
					},
					UnitAmount: stripe.Int64(MinorUnits(req.Amount)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(withSessionPlaceholder(req.SuccessURL, req.AppointmentID)),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.AppointmentID.String()),
	}
	params.Context = ctx
	params.AddMetadata(metadataAppointmentID, req.AppointmentID.String())
	params.AddMetadata(metadataUserID, req.PatientID.String())

	s, err := g.sessions.New(params)
	if err != nil {
		return nil, g.wrapError("create checkout session", err)
	}
	return toCheckoutSession(s), nil
}

func (g *stripeGateway) RetrieveCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := g.sessions.Get(sessionID, params)
	if err != nil {
		return nil, g.wrapError("retrieve checkout session", err)
	}
	return toCheckoutSession(s), nil
}

func (g *stripeGateway) ConstructEvent(payload []byte, signature string) (*PaymentEvent, error) {
	if signature == "" {
		return nil, ErrMissingWebhookSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &PaymentEvent{ID: event.ID, Type: string(event.Type)}
	if strings.HasPrefix(out.Type, "checkout.session.") && event.Data != nil {
		if !gjson.ValidBytes(event.Data.Raw) {
			return nil, fmt.Errorf("decode checkout session from event %s: malformed object", event.ID)
		}
		out.Session = checkoutSessionFromRaw(gjson.ParseBytes(event.Data.Raw))
	}
	return out, nil
}

// checkoutSessionFromRaw reads only the fields the webhook acts on, so newer
// API versions with unknown fields still decode. payment_intent is a bare id
// unless the event was expanded.
func checkoutSessionFromRaw(obj gjson.Result) *CheckoutSession {
	out := &CheckoutSession{
		ID:            obj.Get("id").String(),
		URL:           obj.Get("url").String(),
		Paid:          obj.Get("payment_status").String() == string(stripe.CheckoutSessionPaymentStatusPaid),
		AppointmentID: obj.Get("metadata." + metadataAppointmentID).String(),
	}
	if out.AppointmentID == "" {
		out.AppointmentID = obj.Get("client_reference_id").String()
	}
	if pi := obj.Get("payment_intent"); pi.IsObject() {
		out.PaymentIntentID = pi.Get("id").String()
	} else {
		out.PaymentIntentID = pi.String()
	}
	return out
}

func (g *stripeGateway) wrapError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, ErrPaymentSessionNotFound)
	}
	g.log.Warnf("Payment gateway %s failed: %+v", op, err)
	return fmt.Errorf("%s: %w: %v", op, ErrUpstream, err)
}

func toCheckoutSession(s *stripe.CheckoutSession) *CheckoutSession {
	out := &CheckoutSession{
		ID:            s.ID,
		URL:           s.URL,
		Paid:          s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		AppointmentID: s.Metadata[metadataAppointmentID],
	}
	if out.AppointmentID == "" {
		out.AppointmentID = s.ClientReferenceID
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out
}

// MinorUnits converts an amount to the smallest currency unit (paise, cents).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// withSessionPlaceholder appends the gateway's session id template so the
// frontend can confirm the payment after the redirect.
func withSessionPlaceholder(successURL string, appointmentID uuid.UUID) string {
	sep := "?"
	if strings.Contains(successURL, "?") {
		sep = "&"
	}
	return successURL + sep + "session_id={CHECKOUT_SESSION_ID}&appointment_id=" + appointmentID.String()
}
