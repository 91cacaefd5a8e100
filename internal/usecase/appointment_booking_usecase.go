package usecase

import (
	"context"
	"errors"

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
	ErrSlotConflict       = service.ErrSlotConflict
	ErrDoctorUnavailable  = errors.New("doctor is not available for booking")
	ErrPatientNotFound    = errors.New("patient not found")
	ErrPatientIDRequired  = errors.New("patient_id is required when booking on behalf of a patient")
	ErrInvalidAppointment = errors.New("invalid appointment request")
)

const latestAppointmentsLimit = 5

type AppointmentBookingUsecase interface {
	BookAppointment(ctx context.Context, requester entity.Requester, req *dto.BookAppointmentRequest) (*dto.AppointmentResponse, error)
	GetAppointment(ctx context.Context, requester entity.Requester, appointmentID uuid.UUID) (*dto.AppointmentResponse, error)
	GetMyAppointments(ctx context.Context, requester entity.Requester) (*dto.AppointmentListResponse, error)
	GetDoctorAppointments(ctx context.Context, requester entity.Requester) (*dto.AppointmentListResponse, error)
	GetAllAppointments(ctx context.Context, req *dto.AppointmentListRequest) (*dto.AppointmentListResponse, error)
	GetBookedSlots(ctx context.Context, doctorID uuid.UUID) (*dto.BookedSlotsResponse, error)
	CheckSlot(ctx context.Context, slot entity.Slot) (*dto.SlotAvailabilityResponse, error)
	// ReleaseStaleSlot frees a ledger entry no active appointment holds.
	ReleaseStaleSlot(ctx context.Context, requester entity.Requester, slot entity.Slot) error
}

type appointmentBookingUsecase struct {
	db                 *gorm.DB
	log                *logrus.Logger
	appointmentRepo    repository.AppointmentRepository
	doctorProfileRepo  repository.DoctorProfileRepository
	patientProfileRepo repository.PatientProfileRepository
	slotLedger         service.SlotLedger
	auditService       service.AuditService
	publisher          service.EventPublisher
}

func NewAppointmentBookingUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	doctorProfileRepo repository.DoctorProfileRepository,
	patientProfileRepo repository.PatientProfileRepository,
	slotLedger service.SlotLedger,
	auditService service.AuditService,
	publisher service.EventPublisher,
) AppointmentBookingUsecase {
	return &appointmentBookingUsecase{
		db:                 db,
		log:                log,
		appointmentRepo:    appointmentRepo,
		doctorProfileRepo:  doctorProfileRepo,
		patientProfileRepo: patientProfileRepo,
		slotLedger:         slotLedger,
		auditService:       auditService,
		publisher:          publisher,
	}
}

// BookAppointment reserves the slot and persists the appointment in one
// transaction: either both exist afterwards or neither does.
func (u *appointmentBookingUsecase) BookAppointment(ctx context.Context, requester entity.Requester, req *dto.BookAppointmentRequest) (*dto.AppointmentResponse, error) {
	patientID, err := u.resolvePatient(requester, req.PatientID)
	if err != nil {
		return nil, err
	}

	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return nil, ErrInvalidAppointment
	}

	slot := entity.Slot{DoctorID: doctorID, Date: req.SlotDate, Time: req.SlotTime}
	if err := slot.Validate(); err != nil {
		return nil, err
	}

	// Read-only lookups, no transaction needed
	doctor, err := u.doctorProfileRepo.FindByUserID(u.db.WithContext(ctx), doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor profile: %+v", err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}
	if !doctor.Bookable() {
		return nil, ErrDoctorUnavailable
	}

	patient, err := u.patientProfileRepo.FindByUserID(u.db.WithContext(ctx), patientID)
	if err != nil {
		u.log.Warnf("Failed to find patient profile: %+v", err)
		return nil, err
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}

	appointment := entity.NewAppointment(doctor, patient, slot)

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := u.slotLedger.Reserve(ctx, tx, slot, appointment.ID); err != nil {
		if !errors.Is(err, service.ErrSlotConflict) {
			u.log.Warnf("Failed to reserve slot %s: %+v", slot, err)
		}
		return nil, err
	}

	if err := u.appointmentRepo.Create(tx, appointment); err != nil {
		// partial unique index on active appointments backs up the ledger
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSlotConflict
		}
		u.log.Warnf("Failed to create appointment: %+v", err)
		return nil, err
	}

	if err := u.auditService.LogCreate(ctx, tx, &requester.UserID, entity.AuditActionAppointmentBook, "appointment", appointment.ID.String(), converter.AppointmentToResponse(appointment)); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
		// Don't fail the transaction for audit log errors
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	publishAppointmentEvent(ctx, u.publisher, u.log, entity.EventAppointmentBooked, appointment)

	return converter.AppointmentToResponse(appointment), nil
}

// resolvePatient picks whose appointment is being booked.
func (u *appointmentBookingUsecase) resolvePatient(requester entity.Requester, rawPatientID string) (uuid.UUID, error) {
	switch {
	case requester.IsPatient():
		if rawPatientID == "" {
			return requester.UserID, nil
		}
		patientID, err := uuid.Parse(rawPatientID)
		if err != nil {
			return uuid.Nil, ErrInvalidAppointment
		}
		if patientID != requester.UserID {
			return uuid.Nil, ErrForbidden
		}
		return patientID, nil
	case requester.IsAdmin():
		if rawPatientID == "" {
			return uuid.Nil, ErrPatientIDRequired
		}
		patientID, err := uuid.Parse(rawPatientID)
		if err != nil {
			return uuid.Nil, ErrInvalidAppointment
		}
		return patientID, nil
	default:
		return uuid.Nil, ErrForbidden
	}
}

func (u *appointmentBookingUsecase) GetAppointment(ctx context.Context, requester entity.Requester, appointmentID uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment: %+v", err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	allowed := requester.IsAdmin() ||
		(requester.IsPatient() && appointment.PatientID == requester.UserID) ||
		(requester.IsDoctor() && appointment.DoctorID == requester.UserID)
	if !allowed {
		return nil, ErrAppointmentNotFound
	}

	return converter.AppointmentToResponse(appointment), nil
}

func (u *appointmentBookingUsecase) GetMyAppointments(ctx context.Context, requester entity.Requester) (*dto.AppointmentListResponse, error) {
	appointments, total, err := u.appointmentRepo.FindAll(u.db.WithContext(ctx), entity.AppointmentFilter{PatientID: &requester.UserID})
	if err != nil {
		u.log.Warnf("Failed to find patient appointments: %+v", err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        total,
	}, nil
}

func (u *appointmentBookingUsecase) GetDoctorAppointments(ctx context.Context, requester entity.Requester) (*dto.AppointmentListResponse, error) {
	appointments, err := u.appointmentRepo.FindByDoctorID(u.db.WithContext(ctx), requester.UserID)
	if err != nil {
		u.log.Warnf("Failed to find doctor appointments: %+v", err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        int64(len(appointments)),
	}, nil
}

func (u *appointmentBookingUsecase) GetAllAppointments(ctx context.Context, req *dto.AppointmentListRequest) (*dto.AppointmentListResponse, error) {
	appointments, total, err := u.appointmentRepo.FindAll(u.db.WithContext(ctx), entity.AppointmentFilter{
		State: entity.AppointmentState(req.State),
		Page:  req.Page,
		Limit: req.Limit,
	})
	if err != nil {
		u.log.Warnf("Failed to find appointments: %+v", err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        total,
	}, nil
}

func (u *appointmentBookingUsecase) GetBookedSlots(ctx context.Context, doctorID uuid.UUID) (*dto.BookedSlotsResponse, error) {
	doctor, err := u.doctorProfileRepo.FindByUserID(u.db.WithContext(ctx), doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor profile: %+v", err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	booked, err := u.slotLedger.BookedSlots(ctx, u.db, doctorID)
	if err != nil {
		u.log.Warnf("Failed to list booked slots: %+v", err)
		return nil, err
	}

	return &dto.BookedSlotsResponse{DoctorID: doctorID, BookedSlots: booked}, nil
}

func (u *appointmentBookingUsecase) CheckSlot(ctx context.Context, slot entity.Slot) (*dto.SlotAvailabilityResponse, error) {
	if err := slot.Validate(); err != nil {
		return nil, err
	}

	doctor, err := u.doctorProfileRepo.FindByUserID(u.db.WithContext(ctx), slot.DoctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor profile: %+v", err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	booked, err := u.slotLedger.IsBooked(ctx, u.db, slot)
	if err != nil {
		u.log.Warnf("Failed to check slot %s: %+v", slot, err)
		return nil, err
	}

	return &dto.SlotAvailabilityResponse{
		DoctorID: slot.DoctorID,
		SlotDate: slot.Date,
		SlotTime: slot.Time,
		Booked:   booked,
	}, nil
}

func (u *appointmentBookingUsecase) ReleaseStaleSlot(ctx context.Context, requester entity.Requester, slot entity.Slot) error {
	if !requester.IsAdmin() {
		return ErrForbidden
	}
	if err := slot.Validate(); err != nil {
		return err
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	held, err := u.appointmentRepo.ExistsActiveForSlot(tx, slot)
	if err != nil {
		u.log.Warnf("Failed to check slot holder %s: %+v", slot, err)
		return err
	}
	if held {
		return ErrSlotConflict
	}

	if err := u.slotLedger.Release(ctx, tx, slot); err != nil {
		u.log.Warnf("Failed to release slot %s: %+v", slot, err)
		return err
	}

	if err := u.auditService.LogEvent(ctx, tx, &requester.UserID, entity.AuditActionSlotRelease, map[string]interface{}{
		"doctor_id": slot.DoctorID,
		"slot_date": slot.Date,
		"slot_time": slot.Time,
	}); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return err
	}

	return nil
}
