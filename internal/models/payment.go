package models

import "time"

type PaymentState string

const (
	StateIdle            PaymentState = "idle"
	StateRequesting      PaymentState = "requesting"
	StatePaymentRequired PaymentState = "payment-required"
	StateSigning         PaymentState = "signing"
	StateBroadcasting    PaymentState = "broadcasting"
	StateConfirming      PaymentState = "confirming"
	StateConfirmed       PaymentState = "confirmed"
	StateFailed          PaymentState = "failed"
)

// Terminal reports whether no further transition happens without a reset.
func (s PaymentState) Terminal() bool {
	return s == StateConfirmed || s == StateFailed
}

// InFlight reports whether a payment attempt is running.
func (s PaymentState) InFlight() bool {
	return s != StateIdle && !s.Terminal()
}

type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
)

// Wallet is the read-only view of a wallet connection.
type Wallet struct {
	Connected bool    `json:"connected"`
	Address   string  `json:"address,omitempty"`
	Balance   *int64  `json:"balance,omitempty"`
	Network   Network `json:"network"`
}

type TransferInput struct {
	TxID     string `json:"txid"`
	Vout     uint32 `json:"vout"`
	Satoshis int64  `json:"satoshis"`
}

type TransferOutput struct {
	Satoshis int64  `json:"satoshis"`
	Script   string `json:"script"`
}

// TransferDraft is the partial transfer handed to the wallet for signing.
type TransferDraft struct {
	Inputs  []TransferInput
	Outputs []TransferOutput
	Fee     int64
}

// TransferRecord is a signed transfer. It is never modified after signing.
type TransferRecord struct {
	TxID    string           `json:"txid"`
	RawTx   string           `json:"rawtx"`
	Inputs  []TransferInput  `json:"inputs"`
	Outputs []TransferOutput `json:"outputs"`
	Fee     int64            `json:"fee"`
}

func (t *TransferRecord) TotalOutput() int64 {
	var total int64
	for _, out := range t.Outputs {
		total += out.Satoshis
	}
	return total
}

// Protocol headers of a payment challenge.
const (
	HeaderPaymentAmount      = "X-PAYMENT-AMOUNT"
	HeaderPaymentAddress     = "X-PAYMENT-ADDRESS"
	HeaderPaymentNetwork     = "X-PAYMENT-NETWORK"
	HeaderAccessibilityLevel = "X-ACCESSIBILITY-LEVEL"
	HeaderLanguage           = "X-LANGUAGE"
	HeaderPaymentProof       = "X-PAYMENT-PROOF"
)

// Challenge is the resource server answer to a resource request. A 402
// status asks for payment; other statuses are reported as they are.
type Challenge struct {
	Status        int                    `json:"status"`
	Headers       map[string]string      `json:"headers"`
	Body          any                    `json:"body,omitempty"`
	Accessibility *AccessibilityMetadata `json:"accessibility,omitempty"`
}

func (c *Challenge) Header(name string) string {
	if c.Headers == nil {
		return ""
	}
	return c.Headers[name]
}

type PaymentRequest struct {
	Service        Service `json:"service"`
	Amount         int64   `json:"amount" validate:"gte=0"`
	PaymentAddress string  `json:"payment_address" validate:"required"`
	Network        Network `json:"network" validate:"required,oneof=mainnet testnet"`
	Payer          string  `json:"payer" validate:"required"`
	Reference      string  `json:"reference,omitempty"`
}

type Receipt struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type PaymentConfirmation struct {
	TxID          string                `json:"txid"`
	Service       Service               `json:"service"`
	Amount        int64                 `json:"amount"`
	Timestamp     time.Time             `json:"timestamp"`
	Confirmations int                   `json:"confirmations"`
	Receipt       *Receipt              `json:"receipt,omitempty"`
	Accessibility AccessibilityMetadata `json:"accessibility"`
}

type TransferStatus struct {
	TxID          string `json:"txid"`
	Confirmations int    `json:"confirmations"`
	Confirmed     bool   `json:"confirmed"`
}

// HistoryEntry is what the facilitator persists for every settled payment.
type HistoryEntry struct {
	Payer        string              `json:"payer"`
	Confirmation PaymentConfirmation `json:"confirmation"`
	Transfer     TransferRecord      `json:"transfer"`
}

// SessionEvent is emitted to announcers on every announced transition.
type SessionEvent struct {
	SessionID     string                 `json:"session_id"`
	State         PaymentState           `json:"state"`
	PreviousState PaymentState           `json:"previous_state"`
	Phrase        string                 `json:"phrase"`
	Locale        Locale                 `json:"locale"`
	Accessibility *AccessibilityMetadata `json:"accessibility,omitempty"`
	ServiceID     string                 `json:"service_id,omitempty"`
	TxID          string                 `json:"txid,omitempty"`
	Error         string                 `json:"error,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
}

// SessionSnapshot is a point-in-time copy of a payment session.
type SessionSnapshot struct {
	ID           string               `json:"id"`
	State        PaymentState         `json:"state"`
	Service      *Service             `json:"service,omitempty"`
	Error        string               `json:"error,omitempty"`
	Transfer     *TransferRecord      `json:"transfer,omitempty"`
	Confirmation *PaymentConfirmation `json:"confirmation,omitempty"`
	StartedAt    time.Time            `json:"started_at,omitempty"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// RestoreState is the last known wallet connection, kept by collaborators so
// a restarted process can reconnect.
type RestoreState struct {
	Connected bool   `json:"connected"`
	Address   string `json:"address,omitempty"`
}
