package usecase

import (
	"context"
	"errors"
	"time"

	"clinic-appointment-service/internal/converter"
	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/internal/domain/repository"
	"clinic-appointment-service/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrAppointmentNotFound      = errors.New("appointment not found")
	ErrAlreadyTerminal          = errors.New("appointment is already cancelled or completed")
	ErrForbidden                = errors.New("not allowed to act on this appointment")
	ErrInvalidPaymentReference  = errors.New("payment reference is required")
	ErrPaymentReferenceMismatch = errors.New("appointment was already paid with a different payment reference")
)

const eventPublishTimeout = 5 * time.Second

// AppointmentLifecycleUsecase moves appointments through
// Booked -> Paid -> Completed, with Cancelled reachable from Booked and Paid.
// Every transition is a conditional update, so of two racing transitions out
// of the same state exactly one wins.
type AppointmentLifecycleUsecase interface {
	// MarkPaid is idempotent for the same payment reference.
	MarkPaid(ctx context.Context, appointmentID uuid.UUID, ref entity.PaymentReference) (*dto.AppointmentResponse, error)
	Cancel(ctx context.Context, requester entity.Requester, appointmentID uuid.UUID) (*dto.AppointmentResponse, error)
	Complete(ctx context.Context, requester entity.Requester, appointmentID uuid.UUID) (*dto.AppointmentResponse, error)
}

type appointmentLifecycleUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	slotLedger      service.SlotLedger
	auditService    service.AuditService
	publisher       service.EventPublisher
}

func NewAppointmentLifecycleUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	slotLedger service.SlotLedger,
	auditService service.AuditService,
	publisher service.EventPublisher,
) AppointmentLifecycleUsecase {
	return &appointmentLifecycleUsecase{
		db:              db,
		log:             log,
		appointmentRepo: appointmentRepo,
		slotLedger:      slotLedger,
		auditService:    auditService,
		publisher:       publisher,
	}
}

func (u *appointmentLifecycleUsecase) MarkPaid(ctx context.Context, appointmentID uuid.UUID, ref entity.PaymentReference) (*dto.AppointmentResponse, error) {
	if ref.SessionID == "" {
		return nil, ErrInvalidPaymentReference
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	appointment, err := u.appointmentRepo.FindByID(tx, appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	if appointment.Payment {
		return u.paidReplay(appointment, ref)
	}
	if appointment.IsTerminal() {
		return nil, ErrAlreadyTerminal
	}

	now := time.Now()
	affected, err := u.appointmentRepo.MarkPaid(tx, appointmentID, ref, now)
	if err != nil {
		u.log.Warnf("Failed to mark appointment %s paid: %+v", appointmentID, err)
		return nil, err
	}
	if affected == 0 {
		// Lost a race; the re-read decides between replay and terminal.
		current, err := u.appointmentRepo.FindByID(tx, appointmentID)
		if err != nil {
			u.log.Warnf("Failed to re-read appointment %s: %+v", appointmentID, err)
			return nil, err
		}
		if current != nil && current.Payment {
			return u.paidReplay(current, ref)
		}
		return nil, ErrAlreadyTerminal
	}

	old := converter.AppointmentToResponse(appointment)
	appointment.Payment = true
	appointment.PaymentSessionID = ref.SessionID
	appointment.PaymentIntentID = ref.PaymentIntentID
	appointment.PaidAt = &now

	if err := u.auditService.LogUpdate(ctx, tx, &appointment.PatientID, entity.AuditActionAppointmentPay, "appointment", appointment.ID.String(), old, converter.AppointmentToResponse(appointment)); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
		// Don't fail the transaction for audit log errors
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	publishAppointmentEvent(ctx, u.publisher, u.log, entity.EventAppointmentPaid, appointment)

	return converter.AppointmentToResponse(appointment), nil
}

// paidReplay answers a MarkPaid on an already paid appointment.
func (u *appointmentLifecycleUsecase) paidReplay(appointment *entity.Appointment, ref entity.PaymentReference) (*dto.AppointmentResponse, error) {
	if appointment.PaymentSessionID != ref.SessionID {
		u.log.Warnf("Appointment %s paid with session %s, got %s", appointment.ID, appointment.PaymentSessionID, ref.SessionID)
		return nil, ErrPaymentReferenceMismatch
	}
	u.log.Debugf("Appointment %s already paid with session %s", appointment.ID, ref.SessionID)
	return converter.AppointmentToResponse(appointment), nil
}

func (u *appointmentLifecycleUsecase) Cancel(ctx context.Context, requester entity.Requester, appointmentID uuid.UUID) (*dto.AppointmentResponse, error) {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	appointment, err := u.appointmentRepo.FindByID(tx, appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if !canCancel(requester, appointment) {
		return nil, ErrForbidden
	}
	if appointment.IsTerminal() {
		return nil, ErrAlreadyTerminal
	}

	now := time.Now()
	affected, err := u.appointmentRepo.MarkCancelled(tx, appointmentID, now)
	if err != nil {
		u.log.Warnf("Failed to cancel appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if affected == 0 {
		return nil, ErrAlreadyTerminal
	}

	old := converter.AppointmentToResponse(appointment)
	appointment.Cancelled = true
	appointment.CancelledAt = &now

	if err := u.auditService.LogUpdate(ctx, tx, &requester.UserID, entity.AuditActionAppointmentCancel, "appointment", appointment.ID.String(), old, converter.AppointmentToResponse(appointment)); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
		// Don't fail the transaction for audit log errors
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	// The cancellation stands even if the slot cannot be freed right now;
	// the reconciler or the next booking attempt reclaims it.
	if err := u.slotLedger.ReleaseFor(ctx, u.db, appointment.Slot(), appointment.ID); err != nil {
		u.log.Warnf("Failed to release slot after cancelling appointment %s: %+v", appointment.ID, err)
	}

	publishAppointmentEvent(ctx, u.publisher, u.log, entity.EventAppointmentCancelled, appointment)

	return converter.AppointmentToResponse(appointment), nil
}

func (u *appointmentLifecycleUsecase) Complete(ctx context.Context, requester entity.Requester, appointmentID uuid.UUID) (*dto.AppointmentResponse, error) {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	appointment, err := u.appointmentRepo.FindByID(tx, appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if !requester.IsDoctor() || appointment.DoctorID != requester.UserID {
		return nil, ErrForbidden
	}
	if appointment.IsTerminal() {
		return nil, ErrAlreadyTerminal
	}

	now := time.Now()
	affected, err := u.appointmentRepo.MarkCompleted(tx, appointmentID, now)
	if err != nil {
		u.log.Warnf("Failed to complete appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if affected == 0 {
		return nil, ErrAlreadyTerminal
	}

	old := converter.AppointmentToResponse(appointment)
	appointment.IsCompleted = true
	appointment.CompletedAt = &now

	if err := u.auditService.LogUpdate(ctx, tx, &requester.UserID, entity.AuditActionAppointmentDone, "appointment", appointment.ID.String(), old, converter.AppointmentToResponse(appointment)); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
		// Don't fail the transaction for audit log errors
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	publishAppointmentEvent(ctx, u.publisher, u.log, entity.EventAppointmentCompleted, appointment)

	return converter.AppointmentToResponse(appointment), nil
}

// canCancel: admins cancel anything, patients and doctors only their own.
func canCancel(requester entity.Requester, appointment *entity.Appointment) bool {
	switch {
	case requester.IsAdmin():
		return true
	case requester.IsPatient():
		return appointment.PatientID == requester.UserID
	case requester.IsDoctor():
		return appointment.DoctorID == requester.UserID
	default:
		return false
	}
}

// publishAppointmentEvent is best effort and never fails the caller.
func publishAppointmentEvent(ctx context.Context, publisher service.EventPublisher, log *logrus.Logger, eventType string, appointment *entity.Appointment) {
	if publisher == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()

	event := entity.NewAppointmentEvent(eventType, appointment, time.Now().UTC())
	if err := publisher.Publish(pubCtx, event); err != nil {
		log.Warnf("Failed to publish %s for appointment %s: %+v", eventType, appointment.ID, err)
	}
}
