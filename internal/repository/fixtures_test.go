package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/akylbek/payment-system/x402-pay/internal/models"
)

func testEntry(txID, payer string, at time.Time) *models.HistoryEntry {
	svc := models.Service{
		ID:           "water",
		Type:         models.ServiceTypeWater,
		Category:     models.CategoryPublicServices,
		Name:         models.Translated{ES: "Factura de Agua", EN: "Water Bill"},
		Description:  models.Translated{ES: "Pago de agua", EN: "Water payment"},
		Price:        25000,
		PriceEUR:     decimal.RequireFromString("12.75"),
		RequiresAuth: true,
		Metadata:     &models.ServiceMetadata{Period: "Bimestral"},
	}
	return &models.HistoryEntry{
		Payer: payer,
		Confirmation: models.PaymentConfirmation{
			TxID:          txID,
			Service:       svc,
			Amount:        svc.Price,
			Timestamp:     at,
			Confirmations: 2,
			Receipt:       &models.Receipt{ID: "REC-1-ABC", URL: "/receipts/REC-1-ABC"},
			Accessibility: models.AccessibilityMetadata{
				PlainLanguage: "Your payment has been processed successfully.",
				StepByStep:    []string{"1. Transaction signed and validated"},
				HelpContext:   "You can view the receipt in the \"My Payments\" section",
			},
		},
		Transfer: models.TransferRecord{
			TxID:    txID,
			RawTx:   "01000000abcdef",
			Inputs:  []models.TransferInput{{TxID: "aa", Vout: 0, Satoshis: 100000}},
			Outputs: []models.TransferOutput{{Satoshis: 25000, Script: "1Dest"}},
			Fee:     50,
		},
	}
}
