package usecase

import (
	"context"

	"clinic-appointment-service/internal/converter"
	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type DashboardUsecase interface {
	AdminDashboard(ctx context.Context) (*dto.AdminDashboardResponse, error)
	DoctorDashboard(ctx context.Context, requester entity.Requester) (*dto.DoctorDashboardResponse, error)
}

type dashboardUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	userRepo        repository.UserRepository
	appointmentRepo repository.AppointmentRepository
}

func NewDashboardUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	userRepo repository.UserRepository,
	appointmentRepo repository.AppointmentRepository,
) DashboardUsecase {
	return &dashboardUsecase{
		db:              db,
		log:             log,
		userRepo:        userRepo,
		appointmentRepo: appointmentRepo,
	}
}

// AdminDashboard runs the independent counts concurrently.
func (u *dashboardUsecase) AdminDashboard(ctx context.Context) (*dto.AdminDashboardResponse, error) {
	var (
		doctors, patients, appointments int64
		latest                          []entity.Appointment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		doctors, err = u.userRepo.CountByRole(u.db.WithContext(gctx), entity.RoleIDDoctor)
		return err
	})
	g.Go(func() error {
		var err error
		patients, err = u.userRepo.CountByRole(u.db.WithContext(gctx), entity.RoleIDPatient)
		return err
	})
	g.Go(func() error {
		var err error
		appointments, err = u.appointmentRepo.Count(u.db.WithContext(gctx))
		return err
	})
	g.Go(func() error {
		var err error
		latest, err = u.appointmentRepo.FindLatest(u.db.WithContext(gctx), nil, latestAppointmentsLimit)
		return err
	})

	if err := g.Wait(); err != nil {
		u.log.Warnf("Failed to build admin dashboard: %+v", err)
		return nil, err
	}

	return &dto.AdminDashboardResponse{
		Doctors:            doctors,
		Patients:           patients,
		Appointments:       appointments,
		LatestAppointments: converter.AppointmentsToResponses(latest),
	}, nil
}

// DoctorDashboard sums earnings over appointments that were completed or paid.
func (u *dashboardUsecase) DoctorDashboard(ctx context.Context, requester entity.Requester) (*dto.DoctorDashboardResponse, error) {
	appointments, err := u.appointmentRepo.FindByDoctorID(u.db.WithContext(ctx), requester.UserID)
	if err != nil {
		u.log.Warnf("Failed to find doctor appointments: %+v", err)
		return nil, err
	}

	earnings := decimal.Zero
	patients := make(map[uuid.UUID]struct{})
	for _, a := range appointments {
		if a.IsCompleted || a.Payment {
			earnings = earnings.Add(a.Amount)
		}
		patients[a.PatientID] = struct{}{}
	}

	// FindByDoctorID is newest first
	latest := appointments
	if len(latest) > latestAppointmentsLimit {
		latest = latest[:latestAppointmentsLimit]
	}

	return &dto.DoctorDashboardResponse{
		Earnings:           earnings,
		Appointments:       len(appointments),
		Patients:           len(patients),
		LatestAppointments: converter.AppointmentsToResponses(latest),
	}, nil
}
