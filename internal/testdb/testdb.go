// Package testdb opens throwaway in-memory databases for package tests.
package testdb

import (
	"fmt"
	"io"
	"testing"

	"clinic-appointment-service/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Password is the plain-text password of every fixture account.
const Password = "password123"

// New returns a migrated SQLite database private to the test.
//
// The pool is capped at one connection, so transactions never overlap: two
// bookings for one slot reach the booked_slots primary key one after the
// other, never as a true race. The losing insert still goes through the
// duplicate-key path, but interleaving is only exercised against Postgres.
func New(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	err = db.AutoMigrate(
		&entity.Role{},
		&entity.User{},
		&entity.DoctorProfile{},
		&entity.PatientProfile{},
		&entity.Appointment{},
		&entity.BookedSlot{},
		&entity.AuditLog{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	roles := entity.DefaultRoles()
	if err := db.Create(&roles).Error; err != nil {
		t.Fatalf("seed roles: %v", err)
	}

	return db
}

// Logger discards output.
func Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func hash(t *testing.T) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hashed)
}

// CreateDoctor inserts an available doctor charging fees.
func CreateDoctor(t *testing.T, db *gorm.DB, name string, fees int64) *entity.DoctorProfile {
	t.Helper()
	profile := &entity.DoctorProfile{
		Speciality: "General physician",
		Degree:     "MBBS",
		Experience: "4 Years",
		About:      "Primary care",
		Fees:       decimal.NewFromInt(fees),
		Available:  true,
		User: entity.User{
			RoleID:   entity.RoleIDDoctor,
			Email:    fmt.Sprintf("%s-%s@clinic.test", name, uuid.NewString()[:8]),
			Password: hash(t),
			FullName: name,
		},
	}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("create doctor: %v", err)
	}
	return profile
}

// CreatePatient inserts a patient with a profile.
func CreatePatient(t *testing.T, db *gorm.DB, name string) *entity.PatientProfile {
	t.Helper()
	profile := &entity.PatientProfile{
		Phone:  "0000000000",
		Gender: entity.GenderNotSelected,
		User: entity.User{
			RoleID:   entity.RoleIDPatient,
			Email:    fmt.Sprintf("%s-%s@clinic.test", name, uuid.NewString()[:8]),
			Password: hash(t),
			FullName: name,
		},
	}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("create patient: %v", err)
	}
	return profile
}

// CreateAdmin inserts an admin account.
func CreateAdmin(t *testing.T, db *gorm.DB) *entity.User {
	t.Helper()
	user := &entity.User{
		RoleID:   entity.RoleIDAdmin,
		Email:    fmt.Sprintf("admin-%s@clinic.test", uuid.NewString()[:8]),
		Password: hash(t),
		FullName: "Admin",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return user
}
