package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"slackgate-backend/internal/models"
	"slackgate-backend/internal/store"
)

// Compile-time check to ensure PostgresStore implements store.Store
var _ store.Store = (*PostgresStore)(nil)

// PostgresStore persists installation records in a single table:
//
//	CREATE TABLE slack_installations (
//	    access_token text PRIMARY KEY,
//	    request_utc  text NOT NULL,
//	    attributes   jsonb NOT NULL,
//	    created_at   timestamptz NOT NULL DEFAULT now()
//	);
//
// The table name is configurable to match whatever the deployment provisioned.
type PostgresStore struct {
	db    *pgxpool.Pool
	table string
}

func NewPostgresStore(db *pgxpool.Pool, table string) *PostgresStore {
	return &PostgresStore{
		db:    db,
		table: pgx.Identifier{table}.Sanitize(),
	}
}

// CreateInstallationRecord inserts a new installation record keyed by access token.
func (s *PostgresStore) CreateInstallationRecord(ctx context.Context, rec *models.InstallationRecord) error {
	log.Printf("[PostgresStore] CreateInstallationRecord called for token prefix %.8s", rec.AccessToken)

	attrBytes, err := json.Marshal(rec.Attributes)
	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateInstallationRecord: Failed to marshal attributes: %v", err)
		return fmt.Errorf("failed to prepare installation attributes for storage: %w", err)
	}

	query := fmt.Sprintf(`
        INSERT INTO %s (access_token, request_utc, attributes)
        VALUES ($1, $2, $3)`, s.table)

	_, err = s.db.Exec(ctx, query, rec.AccessToken, rec.RequestUTC, attrBytes)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			log.Printf("WARN [PostgresStore] CreateInstallationRecord: Duplicate access token (prefix %.8s)", rec.AccessToken)
			return store.ErrAlreadyExists
		}
		log.Printf("ERROR [PostgresStore] CreateInstallationRecord: Insert failed: %v", err)
		return fmt.Errorf("database error creating installation record: %w", err)
	}

	log.Printf("[PostgresStore] CreateInstallationRecord: Successfully inserted record for token prefix %.8s", rec.AccessToken)
	return nil
}

// ListInstallationRecords returns all installation records, newest first.
func (s *PostgresStore) ListInstallationRecords(ctx context.Context) ([]models.InstallationRecord, error) {
	query := fmt.Sprintf(`
        SELECT access_token, request_utc, attributes, created_at
        FROM %s
        ORDER BY created_at DESC`, s.table)

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListInstallationRecords: Query failed: %v", err)
		return nil, fmt.Errorf("database error listing installation records: %w", err)
	}
	defer rows.Close()

	var records []models.InstallationRecord
	for rows.Next() {
		var rec models.InstallationRecord
		var attrBytes []byte
		if err := rows.Scan(&rec.AccessToken, &rec.RequestUTC, &attrBytes, &rec.CreatedAt); err != nil {
			log.Printf("ERROR [PostgresStore] ListInstallationRecords: Scan failed: %v", err)
			return nil, fmt.Errorf("database error scanning installation record: %w", err)
		}
		if err := json.Unmarshal(attrBytes, &rec.Attributes); err != nil {
			log.Printf("ERROR [PostgresStore] ListInstallationRecords: Failed to unmarshal attributes: %v", err)
			return nil, fmt.Errorf("failed to decode stored installation attributes: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating installation records: %w", err)
	}

	return records, nil
}
