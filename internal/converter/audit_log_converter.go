package converter

import (
	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"
)

func AuditLogToResponse(auditLog *entity.AuditLog) *dto.AuditLogResponse {
	if auditLog == nil {
		return nil
	}

	return &dto.AuditLogResponse{
		ID:         auditLog.ID,
		User:       UserToResponse(auditLog.User),
		Action:     auditLog.Action,
		EntityType: auditLog.EntityType,
		EntityID:   auditLog.EntityID,
		Metadata:   auditLog.Metadata,
		CreatedAt:  auditLog.CreatedAt,
	}
}

func AuditLogsToResponses(auditLogs []entity.AuditLog) []dto.AuditLogResponse {
	responses := make([]dto.AuditLogResponse, 0, len(auditLogs))
	for i := range auditLogs {
		responses = append(responses, *AuditLogToResponse(&auditLogs[i]))
	}
	return responses
}
