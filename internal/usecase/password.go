package usecase

import (
	"errors"
	"fmt"

	"clinic-appointment-service/internal/domain/entity"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidOldPassword = errors.New("invalid old password")

func hashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// changePassword swaps in next only when current matches the stored hash.
func changePassword(user *entity.User, current, next string) error {
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)) != nil {
		return ErrInvalidOldPassword
	}
	hashed, err := hashPassword(next)
	if err != nil {
		return err
	}
	user.Password = hashed
	return nil
}
