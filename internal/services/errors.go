package services

import (
	"errors"

	"github.com/joshua-takyi/greenwich/internal/models"
)

// storeError passes classified errors through and turns anything raw coming
// out of a backend into a ServerError carrying msg.
func storeError(msg string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewServerError(msg, err)
}
