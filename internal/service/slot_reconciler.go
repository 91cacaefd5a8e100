package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"clinic-appointment-service/config"
	"clinic-appointment-service/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// Only one instance reconciles at a time across the fleet
	reconcilerLockKey = "slot_reconciler:lock"

	// Timeout for a single reconcile pass
	reconcileTimeout = 30 * time.Second
	lockTTL          = 2 * reconcileTimeout

	defaultReconcileBatchSize = 500
)

// unlockScript deletes the lock only if we still own it.
var unlockScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// =============================================================================
// Types
// =============================================================================

// SlotReconciler removes ledger entries whose appointment was cancelled or
// never committed. Cancellation releases its slot after commit and only logs
// a failure, so without this pass such slots would stay blocked until someone
// tried to book them again.
type SlotReconciler struct {
	db          *gorm.DB
	redisClient *redis.Client
	log         *logrus.Logger
	slotRepo    repository.BookedSlotRepository

	schedule    string
	gracePeriod time.Duration
	batchSize   int
	now         func() time.Time

	cron    *cron.Cron
	runCtx  context.Context
	cancel  context.CancelFunc
	started atomic.Bool
	stopped atomic.Bool
}

// =============================================================================
// Constructor
// =============================================================================

func NewSlotReconciler(db *gorm.DB, redisClient *redis.Client, log *logrus.Logger, slotRepo repository.BookedSlotRepository, cfg config.ReconcilerConfig) *SlotReconciler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultReconcileBatchSize
	}

	schedule := cfg.CronSpec
	if schedule == "" && cfg.Interval > 0 {
		schedule = "@every " + cfg.Interval.String()
	}

	runCtx, cancel := context.WithCancel(context.Background())
	return &SlotReconciler{
		db:          db,
		redisClient: redisClient,
		log:         log,
		slotRepo:    slotRepo,
		schedule:    schedule,
		gracePeriod: cfg.GracePeriod,
		batchSize:   batchSize,
		now:         time.Now,
		runCtx:      runCtx,
		cancel:      cancel,
	}
}

// =============================================================================
// Lifecycle Methods
// =============================================================================

// Start schedules the reconcile pass. An empty schedule disables it.
func (s *SlotReconciler) Start() {
	if s.schedule == "" {
		s.log.Info("SlotReconciler disabled")
		return
	}
	if !s.started.CompareAndSwap(false, true) {
		return
	}

	cronLog := cron.PrintfLogger(s.log)
	c := cron.New(cron.WithLogger(cronLog), cron.WithChain(cron.SkipIfStillRunning(cronLog)))
	if _, err := c.AddFunc(s.schedule, s.tick); err != nil {
		s.log.Warnf("SlotReconciler not started, bad schedule %q: %+v", s.schedule, err)
		return
	}
	c.Start()
	s.cron = c
	s.log.Infof("SlotReconciler started, schedule=%q grace=%v", s.schedule, s.gracePeriod)
}

// Stop cancels an in-flight pass and waits for it to return.
// Safe to call multiple times.
func (s *SlotReconciler) Stop() {
	if !s.stopped.CompareAndSwap(false, true) {
		return
	}
	s.cancel()
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.log.Info("SlotReconciler stopped")
	}
}

func (s *SlotReconciler) tick() {
	ctx, cancel := context.WithTimeout(s.runCtx, reconcileTimeout)
	defer cancel()

	if err := s.runLocked(ctx); err != nil {
		s.log.Warnf("Slot reconcile failed: %+v", err)
	}
}

// runLocked takes the fleet-wide lock before reconciling. Without Redis every
// instance reconciles on its own, which is still safe because deletes are
// conditioned on the holding appointment.
func (s *SlotReconciler) runLocked(ctx context.Context) error {
	if s.redisClient == nil {
		_, err := s.ReconcileOnce(ctx)
		return err
	}

	token := uuid.NewString()
	ok, err := s.redisClient.SetNX(ctx, reconcilerLockKey, token, lockTTL).Result()
	if err != nil {
		return fmt.Errorf("acquire reconciler lock: %w", err)
	}
	if !ok {
		s.log.Debug("Another instance holds the reconciler lock, skipping")
		return nil
	}
	defer func() {
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := unlockScript.Run(unlockCtx, s.redisClient, []string{reconcilerLockKey}, token).Err(); err != nil {
			s.log.Warnf("Failed to release reconciler lock: %+v", err)
		}
	}()

	_, err = s.ReconcileOnce(ctx)
	return err
}

// =============================================================================
// Public Methods
// =============================================================================

// ReconcileOnce releases orphaned ledger entries older than the grace period,
// batch by batch, and returns how many were removed.
func (s *SlotReconciler) ReconcileOnce(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.gracePeriod)
	total := 0

	for {
		orphans, err := s.slotRepo.FindOrphaned(s.db.WithContext(ctx), cutoff, s.batchSize)
		if err != nil {
			return total, fmt.Errorf("find orphaned slots: %w", err)
		}
		if len(orphans) == 0 {
			break
		}

		released := 0
		for _, orphan := range orphans {
			affected, err := s.slotRepo.DeleteHeldBy(s.db.WithContext(ctx), orphan.Slot(), orphan.AppointmentID)
			if err != nil {
				return total, fmt.Errorf("release orphaned slot %s: %w", orphan.Slot(), err)
			}
			released += int(affected)
		}
		total += released

		// Nothing moved, the next query would return the same rows
		if released == 0 || len(orphans) < s.batchSize {
			break
		}

		select {
		case <-ctx.Done():
			return total, ctx.Err()
		default:
		}
	}

	if total > 0 {
		s.log.Infof("Released %d orphaned slot(s)", total)
	}
	return total, nil
}
