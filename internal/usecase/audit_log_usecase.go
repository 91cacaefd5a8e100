package usecase

import (
	"context"
	"errors"

	"clinic-appointment-service/internal/converter"
	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrAuditLogNotFound = errors.New("audit log not found")
)

// appointmentEntity is the entity_type booking and lifecycle entries are written under.
const appointmentEntity = "appointment"

type AuditLogUsecase interface {
	GetAllAuditLogs(ctx context.Context, req *dto.AuditLogListRequest) (*dto.AuditLogListResponse, error)
	GetAuditLog(ctx context.Context, id int64) (*dto.AuditLogResponse, error)
	// GetAppointmentHistory lists an appointment's entries oldest first.
	GetAppointmentHistory(ctx context.Context, appointmentID uuid.UUID) (*dto.AuditLogListResponse, error)
}

type auditLogUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	auditLogRepo    repository.AuditLogRepository
	appointmentRepo repository.AppointmentRepository
}

func NewAuditLogUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	auditLogRepo repository.AuditLogRepository,
	appointmentRepo repository.AppointmentRepository,
) AuditLogUsecase {
	return &auditLogUsecase{
		db:              db,
		log:             log,
		auditLogRepo:    auditLogRepo,
		appointmentRepo: appointmentRepo,
	}
}

func (u *auditLogUsecase) GetAllAuditLogs(ctx context.Context, req *dto.AuditLogListRequest) (*dto.AuditLogListResponse, error) {
	filter := entity.AuditLogFilter{
		Action:     req.Action,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Page:       req.Page,
		Limit:      req.Limit,
	}
	if req.UserID != "" {
		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			return nil, ErrUserNotFound
		}
		filter.UserID = &userID
	}

	logs, total, err := u.auditLogRepo.FindAll(u.db.WithContext(ctx), filter)
	if err != nil {
		u.log.Warnf("Failed to find audit logs: %+v", err)
		return nil, err
	}

	return &dto.AuditLogListResponse{
		Logs:  converter.AuditLogsToResponses(logs),
		Total: total,
	}, nil
}

func (u *auditLogUsecase) GetAuditLog(ctx context.Context, id int64) (*dto.AuditLogResponse, error) {
	auditLog, err := u.auditLogRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find audit log: %+v", err)
		return nil, err
	}
	if auditLog == nil {
		return nil, ErrAuditLogNotFound
	}

	return converter.AuditLogToResponse(auditLog), nil
}

func (u *auditLogUsecase) GetAppointmentHistory(ctx context.Context, appointmentID uuid.UUID) (*dto.AuditLogListResponse, error) {
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment: %+v", err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	logs, total, err := u.auditLogRepo.FindAll(u.db.WithContext(ctx), entity.AuditLogFilter{
		EntityType: appointmentEntity,
		EntityID:   appointmentID.String(),
	})
	if err != nil {
		u.log.Warnf("Failed to find appointment history: %+v", err)
		return nil, err
	}

	// repository order is newest first
	for i, j := 0, len(logs)-1; i < j; i, j = i+1, j-1 {
		logs[i], logs[j] = logs[j], logs[i]
	}

	return &dto.AuditLogListResponse{
		Logs:  converter.AuditLogsToResponses(logs),
		Total: total,
	}, nil
}
