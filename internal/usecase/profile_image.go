package usecase

import (
	"context"
	"io"

	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/internal/domain/repository"
	"clinic-appointment-service/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// uploadProfileImage stores the file and points the user's image_url at it.
// Appointment snapshots keep the URL they were booked with.
func uploadProfileImage(
	ctx context.Context,
	db *gorm.DB,
	log *logrus.Logger,
	storage service.ImageStorage,
	userRepo repository.UserRepository,
	auditService service.AuditService,
	requester entity.Requester,
	userID uuid.UUID,
	file io.Reader,
	size int64,
	contentType string,
) (string, error) {
	imageURL, err := storage.UploadImage(ctx, userID, file, size, contentType)
	if err != nil {
		return "", err
	}

	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	affected, err := userRepo.UpdateImageURL(tx, userID, imageURL)
	if err != nil {
		log.Warnf("Failed to update image url: %+v", err)
		return "", err
	}
	if affected == 0 {
		return "", ErrUserNotFound
	}

	if err := auditService.LogUpdate(ctx, tx, &requester.UserID, entity.AuditActionImageUpload, "user", userID.String(), nil, map[string]interface{}{"image_url": imageURL}); err != nil {
		log.Warnf("Failed to create audit log: %+v", err)
	}

	if err := tx.Commit().Error; err != nil {
		log.Warnf("Failed commit transaction: %+v", err)
		return "", err
	}

	return imageURL, nil
}
