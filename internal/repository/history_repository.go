package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akylbek/payment-system/x402-pay/internal/models"
)

var ErrNotFound = errors.New("history entry not found")

type PostgresHistoryRepository struct {
	db *sql.DB
}

func NewPostgresHistoryRepository(db *sql.DB) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{db: db}
}

func (r *PostgresHistoryRepository) InitDB() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS payment_history (
			txid VARCHAR(128) PRIMARY KEY,
			payer VARCHAR(128) NOT NULL,
			service_id VARCHAR(64) NOT NULL,
			amount BIGINT NOT NULL,
			confirmation JSONB NOT NULL,
			transfer JSONB NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payment_history_payer ON payment_history(payer, created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := r.db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

func (r *PostgresHistoryRepository) Save(ctx context.Context, entry *models.HistoryEntry) error {
	confirmation, transfer, err := encodeEntry(entry)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO payment_history (txid, payer, service_id, amount, confirmation, transfer, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (txid) DO NOTHING
	`, entry.Confirmation.TxID, entry.Payer, entry.Confirmation.Service.ID, entry.Confirmation.Amount,
		confirmation, transfer, entry.Confirmation.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to save history entry %s: %w", entry.Confirmation.TxID, err)
	}
	return nil
}

func (r *PostgresHistoryRepository) GetByTxID(ctx context.Context, txID string) (*models.HistoryEntry, error) {
	var (
		payer                  string
		confirmation, transfer []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT payer, confirmation, transfer
		FROM payment_history WHERE txid = $1
	`, txID).Scan(&payer, &confirmation, &transfer)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeEntry(payer, confirmation, transfer)
}

func (r *PostgresHistoryRepository) ListByPayer(ctx context.Context, payer string) ([]models.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT payer, confirmation, transfer
		FROM payment_history WHERE payer = $1
		ORDER BY created_at DESC
	`, payer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var (
			p                      string
			confirmation, transfer []byte
		)
		if err := rows.Scan(&p, &confirmation, &transfer); err != nil {
			return nil, err
		}
		entry, err := decodeEntry(p, confirmation, transfer)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}
