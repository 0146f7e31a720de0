package facilitator

import (
	"fmt"

	"github.com/akylbek/payment-system/x402-pay/internal/models"
)

const supportContact = "soporte@ayuntamiento.es"

type messageKey string

const (
	msgPaymentRequired   messageKey = "payment_required"
	msgPaymentSuccess    messageKey = "payment_success"
	msgPaymentError      messageKey = "payment_error"
	msgNotFound          messageKey = "not_found"
	msgNotAuthorized     messageKey = "not_authorized"
	msgAlreadyAuthorized messageKey = "already_authorized"
	msgServerError       messageKey = "server_error"
)

var plainLanguage = map[messageKey]models.Translated{
	msgPaymentRequired: {
		ES: "Necesitas realizar un pago para acceder a este servicio.",
		EN: "You need to make a payment to access this service.",
	},
	msgPaymentSuccess: {
		ES: "Tu pago se ha procesado correctamente.",
		EN: "Your payment has been processed successfully.",
	},
	msgPaymentError: {
		ES: "Error al procesar el pago. Por favor, intenta de nuevo.",
		EN: "Error processing payment. Please try again.",
	},
	msgNotFound: {
		ES: "El servicio solicitado no existe.",
		EN: "The requested service does not exist.",
	},
	msgNotAuthorized: {
		ES: "Necesitas un comprobante de pago válido para acceder a este servicio.",
		EN: "You need a valid payment proof to access this service.",
	},
	msgAlreadyAuthorized: {
		ES: "Ya tienes acceso a este servicio.",
		EN: "You already have access to this service.",
	},
	msgServerError: {
		ES: "El servicio no está disponible en este momento.",
		EN: "The service is not available right now.",
	},
}

var stepByStep = map[messageKey]map[models.Locale][]string{
	msgPaymentRequired: {
		models.LocaleES: {
			"1. Conecta tu wallet BSV",
			"2. Verifica el monto a pagar",
			"3. Confirma la transacción en tu wallet",
			"4. Espera la confirmación",
		},
		models.LocaleEN: {
			"1. Connect your BSV wallet",
			"2. Verify the payment amount",
			"3. Confirm the transaction in your wallet",
			"4. Wait for confirmation",
		},
	},
	msgPaymentSuccess: {
		models.LocaleES: {
			"1. Transacción firmada y validada",
			"2. Pago transmitido a la blockchain BSV",
			"3. Confirmación recibida",
			"4. Recibo generado",
		},
		models.LocaleEN: {
			"1. Transaction signed and validated",
			"2. Payment broadcast to BSV blockchain",
			"3. Confirmation received",
			"4. Receipt generated",
		},
	},
	msgPaymentError: {
		models.LocaleES: {
			"1. Verificar que la wallet esté conectada",
			"2. Verificar que hay fondos suficientes",
			"3. Contactar soporte si el problema persiste",
		},
		models.LocaleEN: {
			"1. Check that wallet is connected",
			"2. Check that there are sufficient funds",
			"3. Contact support if problem persists",
		},
	},
}

// metadataBuilder shapes accessibility metadata for one locale and level.
type metadataBuilder struct {
	locale models.Locale
	level  models.DetailLevel
}

func (b metadataBuilder) build(key messageKey, screenReader, help, technical string) *models.AccessibilityMetadata {
	meta := &models.AccessibilityMetadata{
		PlainLanguage: plainLanguage[key].In(b.locale),
	}
	if steps := stepByStep[key][b.locale]; len(steps) > 0 {
		meta.StepByStep = append([]string(nil), steps...)
	}
	if b.level == models.DetailSimple {
		return meta
	}
	meta.ScreenReaderText = screenReader
	meta.HelpContext = help
	if b.level == models.DetailTechnical {
		meta.TechnicalDetails = technical
	}
	return meta
}

func (b metadataBuilder) text(es, en string) string {
	if b.locale == models.LocaleEN {
		return en
	}
	return es
}

func (b metadataBuilder) paymentRequired(amount int64, address string, network models.Network) *models.AccessibilityMetadata {
	return b.build(msgPaymentRequired,
		b.text(
			fmt.Sprintf("Se requiere un pago de %d satoshis para acceder a este servicio", amount),
			fmt.Sprintf("A payment of %d satoshis is required to access this service", amount),
		),
		"",
		fmt.Sprintf("HTTP 402; %s=%d; %s=%s; %s=%s",
			models.HeaderPaymentAmount, amount,
			models.HeaderPaymentAddress, address,
			models.HeaderPaymentNetwork, network),
	)
}

func (b metadataBuilder) paymentSuccess(txID, receiptID string) *models.AccessibilityMetadata {
	short := txID
	if len(short) > 8 {
		short = short[:8]
	}
	return b.build(msgPaymentSuccess,
		b.text(
			fmt.Sprintf("Pago completado exitosamente. ID de transacción: %s...", short),
			fmt.Sprintf("Payment completed successfully. Transaction ID: %s...", short),
		),
		b.text(
			"Puedes ver el recibo en la sección \"Mis Pagos\"",
			"You can view the receipt in the \"My Payments\" section",
		),
		fmt.Sprintf("txid=%s; receipt=%s; confirmations=0", txID, receiptID),
	)
}

func (b metadataBuilder) failure(key messageKey, cause string) *models.AccessibilityMetadata {
	meta := b.build(msgPaymentError,
		b.text(
			fmt.Sprintf("Ocurrió un error al procesar el pago: %s", cause),
			fmt.Sprintf("An error occurred while processing the payment: %s", cause),
		),
		b.text(
			fmt.Sprintf("Si el problema persiste escribe a %s", supportContact),
			fmt.Sprintf("If the problem persists write to %s", supportContact),
		),
		cause,
	)
	meta.PlainLanguage = plainLanguage[key].In(b.locale)
	return meta
}

func (b metadataBuilder) status(key messageKey, status int) *models.AccessibilityMetadata {
	return b.build(key, plainLanguage[key].In(b.locale), "", fmt.Sprintf("HTTP %d", status))
}
