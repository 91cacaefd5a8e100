package usecase

import (
	"context"
	"sync"
	"testing"

	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/internal/repository"
	"clinic-appointment-service/internal/service"
	"clinic-appointment-service/internal/testdb"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.AppointmentEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event entity.AppointmentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func (p *recordingPublisher) count(eventType string) int {
	n := 0
	for _, t := range p.types() {
		if t == eventType {
			n++
		}
	}
	return n
}

// appointmentSuite wires the appointment usecases against a private database.
type appointmentSuite struct {
	db        *gorm.DB
	log       *logrus.Logger
	ledger    service.SlotLedger
	publisher *recordingPublisher
	booking   AppointmentBookingUsecase
	lifecycle AppointmentLifecycleUsecase
}

func newAppointmentSuite(t *testing.T) *appointmentSuite {
	t.Helper()

	db := testdb.New(t)
	log := testdb.Logger()
	appointmentRepo := repository.NewAppointmentRepository()
	ledger := service.NewSlotLedger(log, repository.NewBookedSlotRepository(), appointmentRepo)
	auditService := service.NewAuditService(log, repository.NewAuditLogRepository())
	publisher := &recordingPublisher{}

	return &appointmentSuite{
		db:        db,
		log:       log,
		ledger:    ledger,
		publisher: publisher,
		booking: NewAppointmentBookingUsecase(db, log, appointmentRepo, repository.NewDoctorProfileRepository(),
			repository.NewPatientProfileRepository(), ledger, auditService, publisher),
		lifecycle: NewAppointmentLifecycleUsecase(db, log, appointmentRepo, ledger, auditService, publisher),
	}
}

func patientRequester(p *entity.PatientProfile) entity.Requester {
	return entity.Requester{UserID: p.UserID, RoleID: entity.RoleIDPatient}
}

func doctorRequester(d *entity.DoctorProfile) entity.Requester {
	return entity.Requester{UserID: d.UserID, RoleID: entity.RoleIDDoctor}
}

func adminRequester(u *entity.User) entity.Requester {
	return entity.Requester{UserID: u.ID, RoleID: entity.RoleIDAdmin}
}
