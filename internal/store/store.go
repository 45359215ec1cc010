package store

import (
	"context"
	"errors"

	"slackgate-backend/internal/models"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists is returned when inserting a record whose partition key
// (the access token) is already present. Installation records are append-only;
// nothing in this system updates or deletes them.
var ErrAlreadyExists = errors.New("record already exists")

// Store defines the interface for installation-record persistence.
// This allows for mocking in tests and potential DB backend switching.
type Store interface {
	// CreateInstallationRecord persists a new installation keyed by its access
	// token. Returns ErrAlreadyExists on key collision.
	CreateInstallationRecord(ctx context.Context, rec *models.InstallationRecord) error

	// ListInstallationRecords returns all persisted installations, newest first.
	ListInstallationRecords(ctx context.Context) ([]models.InstallationRecord, error)
}
