package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/internal/testdb"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bookRequest(doctor *entity.DoctorProfile, date, at string) *dto.BookAppointmentRequest {
	return &dto.BookAppointmentRequest{
		DoctorID: doctor.UserID.String(),
		SlotDate: date,
		SlotTime: at,
	}
}

func TestBookAppointment_ConflictCancelRebook(t *testing.T) {
	s := newAppointmentSuite(t)
	ctx := context.Background()
	d1 := testdb.CreateDoctor(t, s.db, "D1", 50)
	p1 := testdb.CreatePatient(t, s.db, "P1")
	p2 := testdb.CreatePatient(t, s.db, "P2")

	first, err := s.booking.BookAppointment(ctx, patientRequester(p1), bookRequest(d1, "5_6_2025", "10:00 AM"))
	require.NoError(t, err)
	assert.True(t, first.Amount.Equal(decimal.NewFromInt(50)))
	assert.False(t, first.Cancelled)
	assert.False(t, first.IsCompleted)
	assert.False(t, first.Payment)
	assert.Equal(t, string(entity.AppointmentStateBooked), first.State)
	assert.Equal(t, "D1", first.Doctor.Name)
	assert.Equal(t, "P1", first.Patient.Name)

	_, err = s.booking.BookAppointment(ctx, patientRequester(p2), bookRequest(d1, "5_6_2025", "10:00 AM"))
	assert.ErrorIs(t, err, ErrSlotConflict)

	_, err = s.lifecycle.Cancel(ctx, patientRequester(p1), first.ID)
	require.NoError(t, err)

	slots, err := s.booking.GetBookedSlots(ctx, d1.UserID)
	require.NoError(t, err)
	assert.NotContains(t, slots.BookedSlots, "5_6_2025")

	second, err := s.booking.BookAppointment(ctx, patientRequester(p2), bookRequest(d1, "5_6_2025", "10:00 AM"))
	require.NoError(t, err)
	assert.Equal(t, p2.UserID, second.PatientID)

	slots, err = s.booking.GetBookedSlots(ctx, d1.UserID)
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00 AM"}, slots.BookedSlots["5_6_2025"])

	assert.Equal(t, []string{entity.EventAppointmentBooked, entity.EventAppointmentCancelled, entity.EventAppointmentBooked}, s.publisher.types())
}

// On the single-connection test database the attempts queue up instead of
// interleaving; what is checked is that every loser sees ErrSlotConflict.
func TestBookAppointment_ConcurrentAttemptsHaveOneWinner(t *testing.T) {
	s := newAppointmentSuite(t)
	doctor := testdb.CreateDoctor(t, s.db, "Popular", 40)

	const attempts = 8
	patients := make([]*entity.PatientProfile, attempts)
	for i := range patients {
		patients[i] = testdb.CreatePatient(t, s.db, fmt.Sprintf("patient%d", i))
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
		others    []error
	)
	start := make(chan struct{})
	for _, p := range patients {
		wg.Add(1)
		go func(p *entity.PatientProfile) {
			defer wg.Done()
			<-start
			_, err := s.booking.BookAppointment(context.Background(), patientRequester(p), bookRequest(doctor, "1_8_2025", "11:30 AM"))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrSlotConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}(p)
	}
	close(start)
	wg.Wait()

	assert.Empty(t, others)
	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)

	var active int64
	require.NoError(t, s.db.Model(&entity.Appointment{}).
		Where("doctor_id = ? AND slot_date = ? AND slot_time = ? AND cancelled = ?", doctor.UserID, "1_8_2025", "11:30 AM", false).
		Count(&active).Error)
	assert.Equal(t, int64(1), active)
}

func TestBookAppointment_UnavailableDoctorLeavesNoTrace(t *testing.T) {
	s := newAppointmentSuite(t)
	ctx := context.Background()
	doctor := testdb.CreateDoctor(t, s.db, "Away", 40)
	patient := testdb.CreatePatient(t, s.db, "Jane")
	require.NoError(t, s.db.Model(&entity.DoctorProfile{}).Where("user_id = ?", doctor.UserID).Update("available", false).Error)

	_, err := s.booking.BookAppointment(ctx, patientRequester(patient), bookRequest(doctor, "5_6_2025", "10:00 AM"))
	assert.ErrorIs(t, err, ErrDoctorUnavailable)

	var appointments, ledger int64
	require.NoError(t, s.db.Model(&entity.Appointment{}).Count(&appointments).Error)
	require.NoError(t, s.db.Model(&entity.BookedSlot{}).Count(&ledger).Error)
	assert.Zero(t, appointments)
	assert.Zero(t, ledger)
	assert.Empty(t, s.publisher.types())
}

func TestBookAppointment_InactiveDoctorIsUnavailable(t *testing.T) {
	s := newAppointmentSuite(t)
	doctor := testdb.CreateDoctor(t, s.db, "Gone", 40)
	patient := testdb.CreatePatient(t, s.db, "Jane")
	require.NoError(t, s.db.Model(&entity.User{}).Where("id = ?", doctor.UserID).Update("is_active", false).Error)

	_, err := s.booking.BookAppointment(context.Background(), patientRequester(patient), bookRequest(doctor, "5_6_2025", "10:00 AM"))
	assert.ErrorIs(t, err, ErrDoctorUnavailable)
}

func TestBookAppointment_Validation(t *testing.T) {
	s := newAppointmentSuite(t)
	doctor := testdb.CreateDoctor(t, s.db, "D1", 50)
	patient := testdb.CreatePatient(t, s.db, "P1")
	other := testdb.CreatePatient(t, s.db, "P2")
	admin := testdb.CreateAdmin(t, s.db)

	tests := []struct {
		name      string
		requester entity.Requester
		req       *dto.BookAppointmentRequest
		wantErr   error
	}{
		{
			name:      "impossible date",
			requester: patientRequester(patient),
			req:       bookRequest(doctor, "31_2_2025", "10:00 AM"),
			wantErr:   entity.ErrInvalidSlot,
		},
		{
			name:      "24h time",
			requester: patientRequester(patient),
			req:       bookRequest(doctor, "5_6_2025", "14:00"),
			wantErr:   entity.ErrInvalidSlot,
		},
		{
			name:      "unknown doctor",
			requester: patientRequester(patient),
			req:       &dto.BookAppointmentRequest{DoctorID: other.UserID.String(), SlotDate: "5_6_2025", SlotTime: "10:00 AM"},
			wantErr:   ErrDoctorNotFound,
		},
		{
			name:      "patient booking for someone else",
			requester: patientRequester(patient),
			req:       &dto.BookAppointmentRequest{PatientID: other.UserID.String(), DoctorID: doctor.UserID.String(), SlotDate: "5_6_2025", SlotTime: "10:00 AM"},
			wantErr:   ErrForbidden,
		},
		{
			name:      "doctor cannot book",
			requester: doctorRequester(doctor),
			req:       bookRequest(doctor, "5_6_2025", "10:00 AM"),
			wantErr:   ErrForbidden,
		},
		{
			name:      "admin must name the patient",
			requester: adminRequester(admin),
			req:       bookRequest(doctor, "5_6_2025", "10:00 AM"),
			wantErr:   ErrPatientIDRequired,
		},
		{
			name:      "admin naming a non-patient",
			requester: adminRequester(admin),
			req:       &dto.BookAppointmentRequest{PatientID: doctor.UserID.String(), DoctorID: doctor.UserID.String(), SlotDate: "5_6_2025", SlotTime: "10:00 AM"},
			wantErr:   ErrPatientNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.booking.BookAppointment(context.Background(), tt.requester, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBookAppointment_AdminOnBehalfOfPatient(t *testing.T) {
	s := newAppointmentSuite(t)
	doctor := testdb.CreateDoctor(t, s.db, "D1", 75)
	patient := testdb.CreatePatient(t, s.db, "P1")
	admin := testdb.CreateAdmin(t, s.db)

	req := bookRequest(doctor, "5_6_2025", "10:00 AM")
	req.PatientID = patient.UserID.String()

	appointment, err := s.booking.BookAppointment(context.Background(), adminRequester(admin), req)
	require.NoError(t, err)
	assert.Equal(t, patient.UserID, appointment.PatientID)
	assert.True(t, appointment.Amount.Equal(decimal.NewFromInt(75)))
}

func TestBookAppointment_SnapshotSurvivesProfileEdits(t *testing.T) {
	s := newAppointmentSuite(t)
	ctx := context.Background()
	doctor := testdb.CreateDoctor(t, s.db, "D1", 50)
	patient := testdb.CreatePatient(t, s.db, "P1")

	booked, err := s.booking.BookAppointment(ctx, patientRequester(patient), bookRequest(doctor, "5_6_2025", "10:00 AM"))
	require.NoError(t, err)

	require.NoError(t, s.db.Model(&entity.DoctorProfile{}).Where("user_id = ?", doctor.UserID).Update("fees", decimal.NewFromInt(90)).Error)
	require.NoError(t, s.db.Model(&entity.User{}).Where("id = ?", doctor.UserID).Update("full_name", "Renamed").Error)

	got, err := s.booking.GetAppointment(ctx, patientRequester(patient), booked.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "D1", got.Doctor.Name)
	assert.True(t, got.Doctor.Fees.Equal(decimal.NewFromInt(50)))
}

func TestGetAppointment_HiddenFromOtherUsers(t *testing.T) {
	s := newAppointmentSuite(t)
	ctx := context.Background()
	doctor := testdb.CreateDoctor(t, s.db, "D1", 50)
	otherDoctor := testdb.CreateDoctor(t, s.db, "D2", 50)
	patient := testdb.CreatePatient(t, s.db, "P1")
	other := testdb.CreatePatient(t, s.db, "P2")
	admin := testdb.CreateAdmin(t, s.db)

	booked, err := s.booking.BookAppointment(ctx, patientRequester(patient), bookRequest(doctor, "5_6_2025", "10:00 AM"))
	require.NoError(t, err)

	_, err = s.booking.GetAppointment(ctx, patientRequester(other), booked.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	_, err = s.booking.GetAppointment(ctx, doctorRequester(otherDoctor), booked.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	_, err = s.booking.GetAppointment(ctx, doctorRequester(doctor), booked.ID)
	assert.NoError(t, err)
	_, err = s.booking.GetAppointment(ctx, adminRequester(admin), booked.ID)
	assert.NoError(t, err)
}

func TestAppointmentListings(t *testing.T) {
	s := newAppointmentSuite(t)
	ctx := context.Background()
	doctor := testdb.CreateDoctor(t, s.db, "D1", 50)
	p1 := testdb.CreatePatient(t, s.db, "P1")
	p2 := testdb.CreatePatient(t, s.db, "P2")

	a1, err := s.booking.BookAppointment(ctx, patientRequester(p1), bookRequest(doctor, "5_6_2025", "10:00 AM"))
	require.NoError(t, err)
	_, err = s.booking.BookAppointment(ctx, patientRequester(p1), bookRequest(doctor, "5_6_2025", "11:00 AM"))
	require.NoError(t, err)
	_, err = s.booking.BookAppointment(ctx, patientRequester(p2), bookRequest(doctor, "6_6_2025", "10:00 AM"))
	require.NoError(t, err)
	_, err = s.lifecycle.Cancel(ctx, patientRequester(p1), a1.ID)
	require.NoError(t, err)

	mine, err := s.booking.GetMyAppointments(ctx, patientRequester(p1))
	require.NoError(t, err)
	assert.Equal(t, int64(2), mine.Total)

	doctorList, err := s.booking.GetDoctorAppointments(ctx, doctorRequester(doctor))
	require.NoError(t, err)
	assert.Len(t, doctorList.Appointments, 3)

	cancelled, err := s.booking.GetAllAppointments(ctx, &dto.AppointmentListRequest{State: "cancelled", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), cancelled.Total)
	require.Len(t, cancelled.Appointments, 1)
	assert.Equal(t, a1.ID, cancelled.Appointments[0].ID)

	page, err := s.booking.GetAllAppointments(ctx, &dto.AppointmentListRequest{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Appointments, 1)
}

func TestCheckSlot(t *testing.T) {
	s := newAppointmentSuite(t)
	ctx := context.Background()
	doctor := testdb.CreateDoctor(t, s.db, "D1", 50)
	patient := testdb.CreatePatient(t, s.db, "P1")
	slot := entity.Slot{DoctorID: doctor.UserID, Date: "5_6_2025", Time: "10:00 AM"}

	got, err := s.booking.CheckSlot(ctx, slot)
	require.NoError(t, err)
	assert.False(t, got.Booked)

	_, err = s.booking.BookAppointment(ctx, patientRequester(patient), bookRequest(doctor, slot.Date, slot.Time))
	require.NoError(t, err)

	got, err = s.booking.CheckSlot(ctx, slot)
	require.NoError(t, err)
	assert.True(t, got.Booked)

	_, err = s.booking.CheckSlot(ctx, entity.Slot{DoctorID: doctor.UserID, Date: "0_6_2025", Time: "10:00 AM"})
	assert.ErrorIs(t, err, entity.ErrInvalidSlot)
}

func TestReleaseStaleSlot(t *testing.T) {
	s := newAppointmentSuite(t)
	ctx := context.Background()
	doctor := testdb.CreateDoctor(t, s.db, "D1", 50)
	patient := testdb.CreatePatient(t, s.db, "P1")
	admin := testdb.CreateAdmin(t, s.db)

	held, err := s.booking.BookAppointment(ctx, patientRequester(patient), bookRequest(doctor, "5_6_2025", "10:00 AM"))
	require.NoError(t, err)

	err = s.booking.ReleaseStaleSlot(ctx, adminRequester(admin), entity.Slot{DoctorID: doctor.UserID, Date: "5_6_2025", Time: "10:00 AM"})
	assert.ErrorIs(t, err, ErrSlotConflict)
	err = s.booking.ReleaseStaleSlot(ctx, patientRequester(patient), entity.Slot{DoctorID: doctor.UserID, Date: "5_6_2025", Time: "10:00 AM"})
	assert.ErrorIs(t, err, ErrForbidden)

	// an entry whose cancellation never freed it
	stale := entity.Slot{DoctorID: doctor.UserID, Date: "6_6_2025", Time: "10:00 AM"}
	require.NoError(t, s.db.Create(&entity.BookedSlot{DoctorID: stale.DoctorID, SlotDate: stale.Date, SlotTime: stale.Time, AppointmentID: held.ID}).Error)

	require.NoError(t, s.booking.ReleaseStaleSlot(ctx, adminRequester(admin), stale))
	booked, err := s.ledger.IsBooked(ctx, s.db, stale)
	require.NoError(t, err)
	assert.False(t, booked)

	// releasing nothing is fine
	require.NoError(t, s.booking.ReleaseStaleSlot(ctx, adminRequester(admin), stale))
}
