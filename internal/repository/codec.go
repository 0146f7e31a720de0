package repository

import (
	"encoding/json"
	"fmt"

	"github.com/akylbek/payment-system/x402-pay/internal/models"
)

func encodeEntry(entry *models.HistoryEntry) (confirmation, transfer []byte, err error) {
	confirmation, err = json.Marshal(entry.Confirmation)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode confirmation: %w", err)
	}
	transfer, err = json.Marshal(entry.Transfer)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode transfer: %w", err)
	}
	return confirmation, transfer, nil
}

func decodeEntry(payer string, confirmation, transfer []byte) (*models.HistoryEntry, error) {
	entry := &models.HistoryEntry{Payer: payer}
	if err := json.Unmarshal(confirmation, &entry.Confirmation); err != nil {
		return nil, fmt.Errorf("failed to decode confirmation: %w", err)
	}
	if err := json.Unmarshal(transfer, &entry.Transfer); err != nil {
		return nil, fmt.Errorf("failed to decode transfer: %w", err)
	}
	return entry, nil
}
