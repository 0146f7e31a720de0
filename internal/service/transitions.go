package service

import "github.com/akylbek/payment-system/x402-pay/internal/models"

var allowedTransitions = map[models.PaymentState][]models.PaymentState{
	models.StateIdle:            {models.StateRequesting},
	models.StateRequesting:      {models.StatePaymentRequired, models.StateFailed},
	models.StatePaymentRequired: {models.StateSigning, models.StateFailed},
	models.StateSigning:         {models.StateBroadcasting, models.StateFailed},
	models.StateBroadcasting:    {models.StateConfirming, models.StateFailed},
	models.StateConfirming:      {models.StateConfirmed, models.StateFailed},
	models.StateConfirmed:       {models.StateIdle},
	models.StateFailed:          {models.StateIdle},
}

func canTransition(from, to models.PaymentState) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

var phrases = map[models.PaymentState]models.Translated{
	models.StateRequesting: {
		ES: "Solicitando acceso al servicio",
		EN: "Requesting access to the service",
	},
	models.StatePaymentRequired: {
		ES: "Se requiere un pago para este servicio",
		EN: "A payment is required for this service",
	},
	models.StateSigning: {
		ES: "Confirma la transacción en tu wallet",
		EN: "Confirm the transaction in your wallet",
	},
	models.StateBroadcasting: {
		ES: "Enviando el pago",
		EN: "Sending the payment",
	},
	models.StateConfirming: {
		ES: "Esperando la confirmación del pago",
		EN: "Waiting for payment confirmation",
	},
	models.StateConfirmed: {
		ES: "Pago confirmado",
		EN: "Payment confirmed",
	},
	models.StateFailed: {
		ES: "El pago no se ha podido completar",
		EN: "The payment could not be completed",
	},
}

// Phrase is the announcement for entering state in locale.
func Phrase(state models.PaymentState, locale models.Locale) string {
	return phrases[state].In(locale)
}
