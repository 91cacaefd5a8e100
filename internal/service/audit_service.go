package service

import (
	"context"

	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AuditService interface {
	LogCreate(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, action string, entityName string, entityID string, newValue interface{}) error
	LogUpdate(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, action string, entityName string, entityID string, oldValue, newValue interface{}) error
	LogEvent(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, action string, details map[string]interface{}) error
}

type auditService struct {
	log       *logrus.Logger
	auditRepo repository.AuditLogRepository
}

func NewAuditService(log *logrus.Logger, auditRepo repository.AuditLogRepository) AuditService {
	return &auditService{
		log:       log,
		auditRepo: auditRepo,
	}
}

func (s *auditService) LogCreate(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, action string, entityName string, entityID string, newValue interface{}) error {
	return s.write(ctx, tx, &entity.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityType: entityName,
		EntityID:   entityID,
		Metadata:   entity.JSON{"new_value": newValue},
	})
}

// LogUpdate records both sides of a change. A nil oldValue is kept as null.
func (s *auditService) LogUpdate(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, action string, entityName string, entityID string, oldValue, newValue interface{}) error {
	return s.write(ctx, tx, &entity.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityType: entityName,
		EntityID:   entityID,
		Metadata:   entity.JSON{"old_value": oldValue, "new_value": newValue},
	})
}

// LogEvent is for actions without a single target record (login, logout, slot release).
func (s *auditService) LogEvent(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, action string, details map[string]interface{}) error {
	return s.write(ctx, tx, &entity.AuditLog{
		UserID:   userID,
		Action:   action,
		Metadata: entity.JSON(details),
	})
}

// write runs inside a savepoint so a failed insert leaves the caller's transaction usable.
func (s *auditService) write(ctx context.Context, tx *gorm.DB, auditLog *entity.AuditLog) error {
	err := tx.WithContext(ctx).Transaction(func(sp *gorm.DB) error {
		return s.auditRepo.Create(sp, auditLog)
	})
	if err != nil {
		s.log.Warnf("Failed to create audit log %s: %+v", auditLog.Action, err)
		return err
	}

	return nil
}
