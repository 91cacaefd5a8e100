package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/internal/domain/repository"
	"clinic-appointment-service/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrAppointmentNotPayable = errors.New("appointment is cancelled, completed or already paid")
	ErrPaymentMismatch       = errors.New("payment session does not belong to this appointment")
	ErrAppointmentNotPaid    = errors.New("appointment has not been paid")
	ErrUntrustedReturnURL    = errors.New("return URL is not on a trusted origin")
)

// PaymentSettings carries the checkout parameters that come from config.
// SuccessURL and CancelURL are used when the caller sends none; caller
// supplied URLs must sit on one of ReturnOrigins.
type PaymentSettings struct {
	Currency      string
	SuccessURL    string
	CancelURL     string
	ReturnOrigins []string
	Timeout       time.Duration
}

// PaymentUsecase bridges the payment gateway and the appointment lifecycle.
// Both the redirect confirmation and the webhook end in MarkPaid, which is
// idempotent, so either may arrive first or twice.
type PaymentUsecase interface {
	CreateCheckoutSession(ctx context.Context, requester entity.Requester, req *dto.CreateCheckoutSessionRequest) (*dto.CheckoutSessionResponse, error)
	ConfirmPayment(ctx context.Context, requester entity.Requester, req *dto.ConfirmPaymentRequest) (*dto.PaymentConfirmationResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	// GetReceipt renders a PDF receipt for a paid appointment.
	GetReceipt(ctx context.Context, requester entity.Requester, appointmentID uuid.UUID) ([]byte, error)
}

type paymentUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	lifecycle       AppointmentLifecycleUsecase
	gateway         service.PaymentGateway
	receipts        service.ReceiptRenderer
	settings        PaymentSettings
}

func NewPaymentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	lifecycle AppointmentLifecycleUsecase,
	gateway service.PaymentGateway,
	receipts service.ReceiptRenderer,
	settings PaymentSettings,
) PaymentUsecase {
	return &paymentUsecase{
		db:              db,
		log:             log,
		appointmentRepo: appointmentRepo,
		lifecycle:       lifecycle,
		gateway:         gateway,
		receipts:        receipts,
		settings:        settings,
	}
}

func (u *paymentUsecase) CreateCheckoutSession(ctx context.Context, requester entity.Requester, req *dto.CreateCheckoutSessionRequest) (*dto.CheckoutSessionResponse, error) {
	appointmentID, err := uuid.Parse(req.AppointmentID)
	if err != nil {
		return nil, ErrAppointmentNotFound
	}

	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment: %+v", err)
		return nil, err
	}
	// Foreign appointments look the same as missing ones
	if appointment == nil || (!requester.IsAdmin() && appointment.PatientID != requester.UserID) {
		return nil, ErrAppointmentNotFound
	}
	if appointment.IsTerminal() || appointment.Payment {
		return nil, ErrAppointmentNotPayable
	}

	successURL, err := u.returnURL(req.SuccessURL, u.settings.SuccessURL)
	if err != nil {
		return nil, err
	}
	cancelURL, err := u.returnURL(req.CancelURL, u.settings.CancelURL)
	if err != nil {
		return nil, err
	}

	gatewayCtx, cancel := u.withTimeout(ctx)
	defer cancel()

	session, err := u.gateway.CreateCheckoutSession(gatewayCtx, service.CheckoutRequest{
		AppointmentID: appointment.ID,
		PatientID:     appointment.PatientID,
		ProductName:   fmt.Sprintf("Appointment with %s", appointment.DoctorSnapshot.Name),
		Description:   fmt.Sprintf("%s on %s at %s", appointment.DoctorSnapshot.Speciality, appointment.SlotDate, appointment.SlotTime),
		Amount:        appointment.Amount,
		Currency:      u.settings.Currency,
		SuccessURL:    successURL,
		CancelURL:     cancelURL,
	})
	if err != nil {
		return nil, err
	}

	u.log.Infof("Created checkout session %s for appointment %s", session.ID, appointment.ID)

	return &dto.CheckoutSessionResponse{
		AppointmentID: appointment.ID,
		SessionID:     session.ID,
		SessionURL:    session.URL,
	}, nil
}

func (u *paymentUsecase) ConfirmPayment(ctx context.Context, requester entity.Requester, req *dto.ConfirmPaymentRequest) (*dto.PaymentConfirmationResponse, error) {
	gatewayCtx, cancel := u.withTimeout(ctx)
	defer cancel()

	session, err := u.gateway.RetrieveCheckoutSession(gatewayCtx, req.SessionID)
	if err != nil {
		return nil, err
	}

	if req.AppointmentID != "" && req.AppointmentID != session.AppointmentID {
		return nil, ErrPaymentMismatch
	}
	appointmentID, err := uuid.Parse(session.AppointmentID)
	if err != nil {
		return nil, ErrPaymentMismatch
	}

	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment: %+v", err)
		return nil, err
	}
	if appointment == nil || (!requester.IsAdmin() && appointment.PatientID != requester.UserID) {
		return nil, ErrAppointmentNotFound
	}

	if !session.Paid {
		return &dto.PaymentConfirmationResponse{Paid: false}, nil
	}

	confirmed, err := u.lifecycle.MarkPaid(ctx, appointmentID, entity.PaymentReference{
		SessionID:       session.ID,
		PaymentIntentID: session.PaymentIntentID,
	})
	if err != nil {
		return nil, err
	}

	return &dto.PaymentConfirmationResponse{Paid: true, Appointment: confirmed}, nil
}

// HandleWebhook verifies and applies a gateway event. Returning nil
// acknowledges the delivery; only transient failures are returned so the
// gateway retries them.
func (u *paymentUsecase) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := u.gateway.ConstructEvent(payload, signature)
	if err != nil {
		u.log.Warnf("Rejected payment webhook: %+v", err)
		return err
	}

	switch event.Type {
	case service.PaymentEventCheckoutCompleted, service.PaymentEventAsyncPaymentSucceeded:
	default:
		u.log.Debugf("Ignoring payment event %s (%s)", event.ID, event.Type)
		return nil
	}

	if event.Session == nil || !event.Session.Paid {
		u.log.Infof("Payment event %s has no settled session yet", event.ID)
		return nil
	}

	appointmentID, err := uuid.Parse(event.Session.AppointmentID)
	if err != nil {
		u.log.Warnf("Payment event %s carries no usable appointment id %q", event.ID, event.Session.AppointmentID)
		return nil
	}

	_, err = u.lifecycle.MarkPaid(ctx, appointmentID, entity.PaymentReference{
		SessionID:       event.Session.ID,
		PaymentIntentID: event.Session.PaymentIntentID,
	})
	switch {
	case err == nil:
		u.log.Infof("Appointment %s marked paid via event %s", appointmentID, event.ID)
		return nil
	case errors.Is(err, ErrAppointmentNotFound),
		errors.Is(err, ErrAlreadyTerminal),
		errors.Is(err, ErrPaymentReferenceMismatch):
		// Retrying cannot change the outcome
		u.log.Warnf("Payment event %s for appointment %s not applied: %v", event.ID, appointmentID, err)
		return nil
	default:
		return err
	}
}

func (u *paymentUsecase) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if u.settings.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, u.settings.Timeout)
}

func (u *paymentUsecase) GetReceipt(ctx context.Context, requester entity.Requester, appointmentID uuid.UUID) ([]byte, error) {
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment: %+v", err)
		return nil, err
	}
	if appointment == nil || (!requester.IsAdmin() && appointment.PatientID != requester.UserID) {
		return nil, ErrAppointmentNotFound
	}
	if !appointment.Payment || appointment.PaidAt == nil {
		return nil, ErrAppointmentNotPaid
	}

	receipt, err := u.receipts.Render(service.Receipt{
		AppointmentID:   appointment.ID.String(),
		PatientName:     appointment.PatientSnapshot.Name,
		PatientEmail:    appointment.PatientSnapshot.Email,
		DoctorName:      appointment.DoctorSnapshot.Name,
		Speciality:      appointment.DoctorSnapshot.Speciality,
		SlotDate:        appointment.SlotDate,
		SlotTime:        appointment.SlotTime,
		Amount:          appointment.Amount,
		Currency:        u.settings.Currency,
		PaidAt:          *appointment.PaidAt,
		PaymentIntentID: appointment.PaymentIntentID,
	})
	if err != nil {
		u.log.Warnf("Failed to render receipt: %+v", err)
		return nil, err
	}
	return receipt, nil
}

func (u *paymentUsecase) returnURL(requested, fallback string) (string, error) {
	if requested == "" {
		return fallback, nil
	}
	parsed, err := url.Parse(requested)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", ErrUntrustedReturnURL
	}
	origin := parsed.Scheme + "://" + parsed.Host
	for _, allowed := range u.settings.ReturnOrigins {
		if strings.EqualFold(strings.TrimRight(allowed, "/"), origin) {
			return requested, nil
		}
	}
	u.log.Warnf("Rejected checkout return URL on origin %s", origin)
	return "", ErrUntrustedReturnURL
}
