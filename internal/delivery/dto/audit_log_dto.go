package dto

import (
	"time"

	"clinic-appointment-service/internal/domain/entity"
)

// AuditLogListRequest is built from the query string of the admin listing.
type AuditLogListRequest struct {
	Action     string `validate:"omitempty,max=100"`
	UserID     string `validate:"omitempty,uuid"`
	EntityType string `validate:"omitempty,oneof=appointment doctor_profile patient_profile user"`
	EntityID   string `validate:"omitempty,max=64"`
	Page       int    `validate:"gte=1"`
	Limit      int    `validate:"gte=1,lte=100"`
}

// Response DTOs

type AuditLogResponse struct {
	ID         int64         `json:"id"`
	User       *UserResponse `json:"user,omitempty"`
	Action     string        `json:"action"`
	EntityType string        `json:"entity_type,omitempty"`
	EntityID   string        `json:"entity_id,omitempty"`
	Metadata   entity.JSON   `json:"metadata"`
	CreatedAt  time.Time     `json:"created_at"`
}

type AuditLogListResponse struct {
	Logs  []AuditLogResponse `json:"logs"`
	Total int64              `json:"total"`
}
