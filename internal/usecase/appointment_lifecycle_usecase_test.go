package usecase

import (
	"context"
	"errors"
	"testing"

	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/internal/repository"
	"clinic-appointment-service/internal/service"
	"clinic-appointment-service/internal/testdb"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type lifecycleFixture struct {
	*appointmentSuite
	doctor      *entity.DoctorProfile
	patient     *entity.PatientProfile
	appointment *dto.AppointmentResponse
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()

	s := newAppointmentSuite(t)
	doctor := testdb.CreateDoctor(t, s.db, "D1", 50)
	patient := testdb.CreatePatient(t, s.db, "P1")
	appointment, err := s.booking.BookAppointment(context.Background(), patientRequester(patient), bookRequest(doctor, "5_6_2025", "10:00 AM"))
	require.NoError(t, err)

	return &lifecycleFixture{appointmentSuite: s, doctor: doctor, patient: patient, appointment: appointment}
}

func (f *lifecycleFixture) auditCount(t *testing.T, action string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&entity.AuditLog{}).Where("action = ?", action).Count(&n).Error)
	return n
}

func TestCancel_Permissions(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	stranger := testdb.CreatePatient(t, f.db, "P2")
	otherDoctor := testdb.CreateDoctor(t, f.db, "D2", 10)

	_, err := f.lifecycle.Cancel(ctx, patientRequester(stranger), f.appointment.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.lifecycle.Cancel(ctx, doctorRequester(otherDoctor), f.appointment.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.lifecycle.Cancel(ctx, patientRequester(f.patient), uuid.New())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	booked, err := f.ledger.IsBooked(ctx, f.db, entity.Slot{DoctorID: f.doctor.UserID, Date: "5_6_2025", Time: "10:00 AM"})
	require.NoError(t, err)
	assert.True(t, booked)
}

func TestCancel_ByDoctorAndAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("doctor", func(t *testing.T) {
		f := newLifecycleFixture(t)
		cancelled, err := f.lifecycle.Cancel(ctx, doctorRequester(f.doctor), f.appointment.ID)
		require.NoError(t, err)
		assert.True(t, cancelled.Cancelled)
		assert.NotNil(t, cancelled.CancelledAt)
		assert.Equal(t, string(entity.AppointmentStateCancelled), cancelled.State)
	})

	t.Run("admin", func(t *testing.T) {
		f := newLifecycleFixture(t)
		admin := testdb.CreateAdmin(t, f.db)
		_, err := f.lifecycle.Cancel(ctx, adminRequester(admin), f.appointment.ID)
		require.NoError(t, err)

		booked, err := f.ledger.IsBooked(ctx, f.db, entity.Slot{DoctorID: f.doctor.UserID, Date: "5_6_2025", Time: "10:00 AM"})
		require.NoError(t, err)
		assert.False(t, booked)
		assert.Equal(t, int64(1), f.auditCount(t, entity.AuditActionAppointmentCancel))
	})
}

// failingReleaseLedger reserves normally but cannot release.
type failingReleaseLedger struct {
	service.SlotLedger
}

func (l failingReleaseLedger) ReleaseFor(ctx context.Context, db *gorm.DB, slot entity.Slot, appointmentID uuid.UUID) error {
	return errors.New("ledger unavailable")
}

func TestCancel_LedgerReleaseFailureKeepsCancellation(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	slot := entity.Slot{DoctorID: f.doctor.UserID, Date: "5_6_2025", Time: "10:00 AM"}

	lifecycle := NewAppointmentLifecycleUsecase(f.db, f.log, repository.NewAppointmentRepository(),
		failingReleaseLedger{SlotLedger: f.ledger},
		service.NewAuditService(f.log, repository.NewAuditLogRepository()), f.publisher)

	cancelled, err := lifecycle.Cancel(ctx, patientRequester(f.patient), f.appointment.ID)
	require.NoError(t, err)
	assert.True(t, cancelled.Cancelled)

	var stored entity.Appointment
	require.NoError(t, f.db.First(&stored, "id = ?", f.appointment.ID).Error)
	assert.True(t, stored.Cancelled)

	booked, err := f.ledger.IsBooked(ctx, f.db, slot)
	require.NoError(t, err)
	assert.True(t, booked, "the stale entry stays until the slot is booked again")

	other := testdb.CreatePatient(t, f.db, "P2")
	rebooked, err := f.booking.BookAppointment(ctx, patientRequester(other), bookRequest(f.doctor, "5_6_2025", "10:00 AM"))
	require.NoError(t, err)

	var entry entity.BookedSlot
	require.NoError(t, f.db.First(&entry, "doctor_id = ? AND slot_date = ? AND slot_time = ?", slot.DoctorID, slot.Date, slot.Time).Error)
	assert.Equal(t, rebooked.ID, entry.AppointmentID)
}

func TestCancel_Twice(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	_, err := f.lifecycle.Cancel(ctx, patientRequester(f.patient), f.appointment.ID)
	require.NoError(t, err)
	_, err = f.lifecycle.Cancel(ctx, patientRequester(f.patient), f.appointment.ID)
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
	assert.Equal(t, 1, f.publisher.count(entity.EventAppointmentCancelled))
}

func TestComplete_ThenCancelIsRejected(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	completed, err := f.lifecycle.Complete(ctx, doctorRequester(f.doctor), f.appointment.ID)
	require.NoError(t, err)
	assert.True(t, completed.IsCompleted)
	assert.Equal(t, string(entity.AppointmentStateCompleted), completed.State)

	_, err = f.lifecycle.Cancel(ctx, patientRequester(f.patient), f.appointment.ID)
	assert.ErrorIs(t, err, ErrAlreadyTerminal)

	var stored entity.Appointment
	require.NoError(t, f.db.First(&stored, "id = ?", f.appointment.ID).Error)
	assert.True(t, stored.IsCompleted)
	assert.False(t, stored.Cancelled)

	// completed appointments keep their slot
	booked, err := f.ledger.IsBooked(ctx, f.db, stored.Slot())
	require.NoError(t, err)
	assert.True(t, booked)
}

func TestComplete_Rules(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	otherDoctor := testdb.CreateDoctor(t, f.db, "D2", 10)
	admin := testdb.CreateAdmin(t, f.db)

	_, err := f.lifecycle.Complete(ctx, patientRequester(f.patient), f.appointment.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.lifecycle.Complete(ctx, adminRequester(admin), f.appointment.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.lifecycle.Complete(ctx, doctorRequester(otherDoctor), f.appointment.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.lifecycle.Cancel(ctx, patientRequester(f.patient), f.appointment.ID)
	require.NoError(t, err)
	_, err = f.lifecycle.Complete(ctx, doctorRequester(f.doctor), f.appointment.ID)
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
}

func TestMarkPaid_Idempotent(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	ref := entity.PaymentReference{SessionID: "cs_test_1", PaymentIntentID: "pi_test_1"}

	paid, err := f.lifecycle.MarkPaid(ctx, f.appointment.ID, ref)
	require.NoError(t, err)
	assert.True(t, paid.Payment)
	assert.NotNil(t, paid.PaidAt)
	assert.Equal(t, string(entity.AppointmentStatePaid), paid.State)

	again, err := f.lifecycle.MarkPaid(ctx, f.appointment.ID, ref)
	require.NoError(t, err)
	assert.True(t, again.Payment)

	assert.Equal(t, 1, f.publisher.count(entity.EventAppointmentPaid))
	assert.Equal(t, int64(1), f.auditCount(t, entity.AuditActionAppointmentPay))

	var stored entity.Appointment
	require.NoError(t, f.db.First(&stored, "id = ?", f.appointment.ID).Error)
	assert.Equal(t, "cs_test_1", stored.PaymentSessionID)
	assert.Equal(t, "pi_test_1", stored.PaymentIntentID)
}

func TestMarkPaid_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("different session", func(t *testing.T) {
		f := newLifecycleFixture(t)
		_, err := f.lifecycle.MarkPaid(ctx, f.appointment.ID, entity.PaymentReference{SessionID: "cs_a"})
		require.NoError(t, err)
		_, err = f.lifecycle.MarkPaid(ctx, f.appointment.ID, entity.PaymentReference{SessionID: "cs_b"})
		assert.ErrorIs(t, err, ErrPaymentReferenceMismatch)
	})

	t.Run("cancelled", func(t *testing.T) {
		f := newLifecycleFixture(t)
		_, err := f.lifecycle.Cancel(ctx, patientRequester(f.patient), f.appointment.ID)
		require.NoError(t, err)
		_, err = f.lifecycle.MarkPaid(ctx, f.appointment.ID, entity.PaymentReference{SessionID: "cs_a"})
		assert.ErrorIs(t, err, ErrAlreadyTerminal)
	})

	t.Run("missing reference", func(t *testing.T) {
		f := newLifecycleFixture(t)
		_, err := f.lifecycle.MarkPaid(ctx, f.appointment.ID, entity.PaymentReference{})
		assert.ErrorIs(t, err, ErrInvalidPaymentReference)
	})

	t.Run("unknown appointment", func(t *testing.T) {
		f := newLifecycleFixture(t)
		_, err := f.lifecycle.MarkPaid(ctx, uuid.New(), entity.PaymentReference{SessionID: "cs_a"})
		assert.ErrorIs(t, err, ErrAppointmentNotFound)
	})
}

func TestPaidAppointment_CanStillBeCancelledAndCompleted(t *testing.T) {
	ctx := context.Background()

	f := newLifecycleFixture(t)
	_, err := f.lifecycle.MarkPaid(ctx, f.appointment.ID, entity.PaymentReference{SessionID: "cs_a"})
	require.NoError(t, err)
	done, err := f.lifecycle.Complete(ctx, doctorRequester(f.doctor), f.appointment.ID)
	require.NoError(t, err)
	assert.True(t, done.Payment)
	assert.Equal(t, string(entity.AppointmentStateCompleted), done.State)

	g := newLifecycleFixture(t)
	_, err = g.lifecycle.MarkPaid(ctx, g.appointment.ID, entity.PaymentReference{SessionID: "cs_b"})
	require.NoError(t, err)
	cancelled, err := g.lifecycle.Cancel(ctx, patientRequester(g.patient), g.appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.AppointmentStateCancelled), cancelled.State)
}
