package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/internal/domain/repository"
	"clinic-appointment-service/pkg/validator"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrSlotConflict is returned when the slot is already held by an active appointment.
var ErrSlotConflict = errors.New("slot is already booked")

// SlotLedger tracks which (doctor, date, time) slots are taken.
//
// The ledger lives in the booked_slots table whose primary key is the slot
// itself, so a reservation is a plain INSERT and the database decides the
// winner when two bookings race for the same slot.
type SlotLedger interface {
	IsBooked(ctx context.Context, db *gorm.DB, slot entity.Slot) (bool, error)
	// Reserve must run inside the transaction that persists the appointment.
	Reserve(ctx context.Context, tx *gorm.DB, slot entity.Slot, appointmentID uuid.UUID) error
	// Release is idempotent.
	Release(ctx context.Context, db *gorm.DB, slot entity.Slot) error
	// ReleaseFor removes the entry only while appointmentID still holds it.
	ReleaseFor(ctx context.Context, db *gorm.DB, slot entity.Slot, appointmentID uuid.UUID) error
	// BookedSlots groups a doctor's taken times by date. Dates without times are omitted.
	BookedSlots(ctx context.Context, db *gorm.DB, doctorID uuid.UUID) (map[string][]string, error)
}

type slotLedger struct {
	log             *logrus.Logger
	slotRepo        repository.BookedSlotRepository
	appointmentRepo repository.AppointmentRepository
}

func NewSlotLedger(log *logrus.Logger, slotRepo repository.BookedSlotRepository, appointmentRepo repository.AppointmentRepository) SlotLedger {
	return &slotLedger{
		log:             log,
		slotRepo:        slotRepo,
		appointmentRepo: appointmentRepo,
	}
}

func (l *slotLedger) IsBooked(ctx context.Context, db *gorm.DB, slot entity.Slot) (bool, error) {
	booked, err := l.slotRepo.Find(db.WithContext(ctx), slot)
	if err != nil {
		return false, fmt.Errorf("lookup slot %s: %w", slot, err)
	}
	return booked != nil, nil
}

func (l *slotLedger) Reserve(ctx context.Context, tx *gorm.DB, slot entity.Slot, appointmentID uuid.UUID) error {
	err := l.insert(ctx, tx, slot, appointmentID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("reserve slot %s: %w", slot, err)
	}

	// The slot is taken. It is only really held if an active appointment
	// sits on it; otherwise the entry was left behind by a cancellation
	// whose release failed and can be reclaimed.
	held, err := l.appointmentRepo.ExistsActiveForSlot(tx.WithContext(ctx), slot)
	if err != nil {
		return fmt.Errorf("check slot holder %s: %w", slot, err)
	}
	if held {
		return ErrSlotConflict
	}

	stale, err := l.slotRepo.Find(tx.WithContext(ctx), slot)
	if err != nil {
		return fmt.Errorf("lookup stale slot %s: %w", slot, err)
	}
	if stale != nil {
		if _, err := l.slotRepo.DeleteHeldBy(tx.WithContext(ctx), slot, stale.AppointmentID); err != nil {
			return fmt.Errorf("reclaim slot %s: %w", slot, err)
		}
		l.log.Warnf("Reclaimed stale ledger entry %s held by appointment %s", slot, stale.AppointmentID)
	}

	if err := l.insert(ctx, tx, slot, appointmentID); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrSlotConflict
		}
		return fmt.Errorf("reserve slot %s: %w", slot, err)
	}
	return nil
}

// insert runs in a savepoint so a duplicate key leaves the outer transaction usable.
func (l *slotLedger) insert(ctx context.Context, tx *gorm.DB, slot entity.Slot, appointmentID uuid.UUID) error {
	return tx.WithContext(ctx).Transaction(func(sp *gorm.DB) error {
		return l.slotRepo.Create(sp, &entity.BookedSlot{
			DoctorID:      slot.DoctorID,
			SlotDate:      slot.Date,
			SlotTime:      slot.Time,
			AppointmentID: appointmentID,
		})
	})
}

func (l *slotLedger) Release(ctx context.Context, db *gorm.DB, slot entity.Slot) error {
	if _, err := l.slotRepo.Delete(db.WithContext(ctx), slot); err != nil {
		return fmt.Errorf("release slot %s: %w", slot, err)
	}
	return nil
}

func (l *slotLedger) ReleaseFor(ctx context.Context, db *gorm.DB, slot entity.Slot, appointmentID uuid.UUID) error {
	affected, err := l.slotRepo.DeleteHeldBy(db.WithContext(ctx), slot, appointmentID)
	if err != nil {
		return fmt.Errorf("release slot %s: %w", slot, err)
	}
	if affected == 0 {
		l.log.Debugf("Slot %s was not held by appointment %s, nothing to release", slot, appointmentID)
	}
	return nil
}

func (l *slotLedger) BookedSlots(ctx context.Context, db *gorm.DB, doctorID uuid.UUID) (map[string][]string, error) {
	rows, err := l.slotRepo.FindByDoctor(db.WithContext(ctx), doctorID)
	if err != nil {
		return nil, fmt.Errorf("list booked slots for doctor %s: %w", doctorID, err)
	}

	booked := make(map[string][]string)
	for _, row := range rows {
		booked[row.SlotDate] = append(booked[row.SlotDate], row.SlotTime)
	}
	for date := range booked {
		sortSlotTimes(booked[date])
	}
	return booked, nil
}

// sortSlotTimes orders 12-hour clock times chronologically.
func sortSlotTimes(times []string) {
	sort.Slice(times, func(i, j int) bool {
		a, errA := time.Parse(validator.SlotTimeLayout, times[i])
		b, errB := time.Parse(validator.SlotTimeLayout, times[j])
		if errA != nil || errB != nil {
			return times[i] < times[j]
		}
		return a.Before(b)
	})
}
