package usecase

import (
	"context"
	"testing"

	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/internal/repository"
	"clinic-appointment-service/internal/testdb"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboards(t *testing.T) {
	s := newAppointmentSuite(t)
	ctx := context.Background()
	dashboards := NewDashboardUsecase(s.db, s.log, repository.NewUserRepository(), repository.NewAppointmentRepository())

	doctor := testdb.CreateDoctor(t, s.db, "D1", 50)
	testdb.CreateDoctor(t, s.db, "D2", 80)
	p1 := testdb.CreatePatient(t, s.db, "P1")
	p2 := testdb.CreatePatient(t, s.db, "P2")

	paid, err := s.booking.BookAppointment(ctx, patientRequester(p1), bookRequest(doctor, "5_6_2025", "10:00 AM"))
	require.NoError(t, err)
	_, err = s.lifecycle.MarkPaid(ctx, paid.ID, entity.PaymentReference{SessionID: "cs_1"})
	require.NoError(t, err)

	done, err := s.booking.BookAppointment(ctx, patientRequester(p2), bookRequest(doctor, "5_6_2025", "11:00 AM"))
	require.NoError(t, err)
	_, err = s.lifecycle.Complete(ctx, doctorRequester(doctor), done.ID)
	require.NoError(t, err)

	// unpaid and open: not earned
	_, err = s.booking.BookAppointment(ctx, patientRequester(p1), bookRequest(doctor, "6_6_2025", "10:00 AM"))
	require.NoError(t, err)

	doc, err := dashboards.DoctorDashboard(ctx, doctorRequester(doctor))
	require.NoError(t, err)
	assert.True(t, doc.Earnings.Equal(decimal.NewFromInt(100)), doc.Earnings.String())
	assert.Equal(t, 3, doc.Appointments)
	assert.Equal(t, 2, doc.Patients)
	assert.Len(t, doc.LatestAppointments, 3)

	admin, err := dashboards.AdminDashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), admin.Doctors)
	assert.Equal(t, int64(2), admin.Patients)
	assert.Equal(t, int64(3), admin.Appointments)
	assert.Len(t, admin.LatestAppointments, 3)
}
