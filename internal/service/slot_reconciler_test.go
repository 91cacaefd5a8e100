package service

import (
	"context"
	"testing"
	"time"

	"clinic-appointment-service/config"
	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/internal/repository"
	"clinic-appointment-service/internal/testdb"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotReconciler_ReleasesOnlyOrphanedEntriesPastGrace(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	active := f.book(t, f.slot("15_7_2025", "10:00 AM"))
	require.NoError(t, f.db.Model(&entity.BookedSlot{}).
		Where("appointment_id = ?", active.ID).
		Update("created_at", now.Add(-time.Hour)).Error)

	oldOrphan := &entity.BookedSlot{DoctorID: f.doctor.UserID, SlotDate: "15_7_2025", SlotTime: "11:00 AM", AppointmentID: uuid.New(), CreatedAt: now.Add(-time.Hour)}
	freshOrphan := &entity.BookedSlot{DoctorID: f.doctor.UserID, SlotDate: "15_7_2025", SlotTime: "12:00 PM", AppointmentID: uuid.New(), CreatedAt: now}
	require.NoError(t, f.db.Create(oldOrphan).Error)
	require.NoError(t, f.db.Create(freshOrphan).Error)

	reconciler := NewSlotReconciler(f.db, nil, testdb.Logger(), repository.NewBookedSlotRepository(), config.ReconcilerConfig{
		GracePeriod: 5 * time.Minute,
		BatchSize:   1,
	})
	reconciler.now = func() time.Time { return now }

	released, err := reconciler.ReconcileOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	booked, err := f.ledger.BookedSlots(ctx, f.db, f.doctor.UserID)
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00 AM", "12:00 PM"}, booked["15_7_2025"])

	reconciler.now = func() time.Time { return now.Add(10 * time.Minute) }
	released, err = reconciler.ReconcileOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	booked, err = f.ledger.BookedSlots(ctx, f.db, f.doctor.UserID)
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00 AM"}, booked["15_7_2025"])
}

func TestSlotReconciler_ReleasesEntryOfCancelledAppointment(t *testing.T) {
	f := newLedgerFixture(t)
	now := time.Now().UTC()

	appointment := f.book(t, f.slot("15_7_2025", "10:00 AM"))
	require.NoError(t, f.db.Model(&entity.Appointment{}).Where("id = ?", appointment.ID).Update("cancelled", true).Error)
	require.NoError(t, f.db.Model(&entity.BookedSlot{}).Where("appointment_id = ?", appointment.ID).Update("created_at", now.Add(-time.Hour)).Error)

	reconciler := NewSlotReconciler(f.db, nil, testdb.Logger(), repository.NewBookedSlotRepository(), config.ReconcilerConfig{GracePeriod: time.Minute})
	reconciler.now = func() time.Time { return now }

	released, err := reconciler.ReconcileOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, released)
}

func TestSlotReconciler_SkipsWhenLockIsHeld(t *testing.T) {
	f := newLedgerFixture(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	now := time.Now().UTC()

	orphan := &entity.BookedSlot{DoctorID: f.doctor.UserID, SlotDate: "15_7_2025", SlotTime: "11:00 AM", AppointmentID: uuid.New(), CreatedAt: now.Add(-time.Hour)}
	require.NoError(t, f.db.Create(orphan).Error)

	reconciler := NewSlotReconciler(f.db, client, testdb.Logger(), repository.NewBookedSlotRepository(), config.ReconcilerConfig{
		Interval:    time.Minute,
		GracePeriod: time.Minute,
	})
	reconciler.now = func() time.Time { return now }

	require.NoError(t, mr.Set(reconcilerLockKey, "other-instance"))
	require.NoError(t, reconciler.runLocked(context.Background()))

	booked, err := f.ledger.IsBooked(context.Background(), f.db, orphan.Slot())
	require.NoError(t, err)
	assert.True(t, booked, "another instance owns the lock")

	mr.Del(reconcilerLockKey)
	require.NoError(t, reconciler.runLocked(context.Background()))

	booked, err = f.ledger.IsBooked(context.Background(), f.db, orphan.Slot())
	require.NoError(t, err)
	assert.False(t, booked)
	assert.False(t, mr.Exists(reconcilerLockKey), "lock is released after the pass")
}

func TestSlotReconciler_StopIsIdempotent(t *testing.T) {
	db := testdb.New(t)
	reconciler := NewSlotReconciler(db, nil, testdb.Logger(), repository.NewBookedSlotRepository(), config.ReconcilerConfig{
		Interval: time.Hour,
	})

	reconciler.Start()
	reconciler.Start()
	reconciler.Stop()
	reconciler.Stop()
}

func TestSlotReconciler_Schedule(t *testing.T) {
	db := testdb.New(t)
	repo := repository.NewBookedSlotRepository()

	tests := []struct {
		name string
		cfg  config.ReconcilerConfig
		want string
	}{
		{"interval", config.ReconcilerConfig{Interval: 5 * time.Minute}, "@every 5m0s"},
		{"cron spec wins", config.ReconcilerConfig{CronSpec: "*/10 * * * *", Interval: time.Minute}, "*/10 * * * *"},
		{"disabled", config.ReconcilerConfig{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewSlotReconciler(db, nil, testdb.Logger(), repo, tt.cfg)
			assert.Equal(t, tt.want, r.schedule)
		})
	}

	bad := NewSlotReconciler(db, nil, testdb.Logger(), repo, config.ReconcilerConfig{CronSpec: "not a spec"})
	bad.Start()
	assert.Nil(t, bad.cron)
	bad.Stop()
}
