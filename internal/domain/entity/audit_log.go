package entity

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// AuditLog is one entry of the audit trail. EntityType and EntityID are
// empty for events such as login that touch no single record.
type AuditLog struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Action     string     `gorm:"type:varchar(100);not null;index" json:"action"`
	EntityType string     `gorm:"type:varchar(50);index:idx_audit_logs_entity" json:"entity_type,omitempty"`
	EntityID   string     `gorm:"type:varchar(64);index:idx_audit_logs_entity" json:"entity_id,omitempty"`
	Metadata   JSON       `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index" json:"created_at"`

	// Relationships
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// AuditLogFilter narrows the audit trail. Zero values match everything.
type AuditLogFilter struct {
	Action     string
	UserID     *uuid.UUID
	EntityType string
	EntityID   string
	Page       int
	Limit      int
}

// JSON is a free-form JSONB column.
type JSON map[string]interface{}

// Value returns json value, implement driver.Valuer interface
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan scan value into Jsonb, implements sql.Scanner interface
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	result := map[string]interface{}{}
	if err := scanJSON(value, &result); err != nil {
		return err
	}
	*j = JSON(result)
	return nil
}

func scanJSON(value interface{}, dest interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New(fmt.Sprint("Failed to unmarshal JSONB value:", value))
	}
	return json.Unmarshal(bytes, dest)
}

// Common audit actions
const (
	AuditActionUserLogin          = "user.login"
	AuditActionUserLogout         = "user.logout"
	AuditActionUserRegister       = "user.register"
	AuditActionAdminSeed          = "admin.seed"
	AuditActionAppointmentBook    = "appointment.book"
	AuditActionAppointmentPay     = "appointment.pay"
	AuditActionAppointmentCancel  = "appointment.cancel"
	AuditActionAppointmentDone    = "appointment.complete"
	AuditActionProfileUpdate      = "profile.update"
	AuditActionDoctorCreate       = "doctor.create"
	AuditActionDoctorUpdate       = "doctor.update"
	AuditActionDoctorAvailability = "doctor.availability"
	AuditActionImageUpload        = "user.image"
	AuditActionSlotRelease        = "slot.release"
)
