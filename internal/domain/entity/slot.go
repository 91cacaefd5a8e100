package entity

import (
	"errors"
	"fmt"
	"time"

	"clinic-appointment-service/pkg/validator"

	"github.com/google/uuid"
)

var ErrInvalidSlot = errors.New("invalid slot")

// Slot is a bookable (doctor, date, time) triple.
// Date uses the D_M_YYYY form ("15_7_2025") and Time the 12-hour clock ("10:00 AM").
type Slot struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Date     string    `json:"slot_date"`
	Time     string    `json:"slot_time"`
}

func (s Slot) String() string {
	return fmt.Sprintf("%s@%s %s", s.DoctorID, s.Date, s.Time)
}

func (s Slot) Validate() error {
	if s.DoctorID == uuid.Nil {
		return fmt.Errorf("%w: doctor is required", ErrInvalidSlot)
	}
	if !validator.IsSlotDate(s.Date) {
		return fmt.Errorf("%w: date %q", ErrInvalidSlot, s.Date)
	}
	if !validator.IsSlotTime(s.Time) {
		return fmt.Errorf("%w: time %q", ErrInvalidSlot, s.Time)
	}
	return nil
}

// StartsAt resolves the slot to a wall-clock instant in loc.
func (s Slot) StartsAt(loc *time.Location) (time.Time, error) {
	day, err := validator.ParseSlotDate(s.Date)
	if err != nil {
		return time.Time{}, err
	}
	clock, err := time.Parse(validator.SlotTimeLayout, s.Time)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc), nil
}

// BookedSlot is one row of the slot ledger. The composite primary key is
// what makes two concurrent reservations of the same slot impossible.
type BookedSlot struct {
	DoctorID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"doctor_id"`
	SlotDate      string    `gorm:"type:varchar(16);primaryKey" json:"slot_date"`
	SlotTime      string    `gorm:"type:varchar(16);primaryKey" json:"slot_time"`
	AppointmentID uuid.UUID `gorm:"type:uuid;not null;index" json:"appointment_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (BookedSlot) TableName() string {
	return "booked_slots"
}

func (b *BookedSlot) Slot() Slot {
	return Slot{DoctorID: b.DoctorID, Date: b.SlotDate, Time: b.SlotTime}
}
