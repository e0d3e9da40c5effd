package models

import "strings"

// PaymentMethod accepted by the checkout endpoint
type PaymentMethod string

const (
	PaymentMethodUPI        PaymentMethod = "UPI"
	PaymentMethodCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard  PaymentMethod = "DEBIT_CARD"
	PaymentMethodNetBanking PaymentMethod = "NET_BANKING"
	PaymentMethodWallet     PaymentMethod = "WALLET"
	PaymentMethodCash       PaymentMethod = "CASH"
)

// ParsePaymentMethod upper-cases and checks the value
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	switch m {
	case PaymentMethodUPI, PaymentMethodCreditCard, PaymentMethodDebitCard,
		PaymentMethodNetBanking, PaymentMethodWallet, PaymentMethodCash:
		return m, true
	}
	return m, false
}

// PaymentGateway names the processor recorded with a payment
type PaymentGateway string

const (
	PaymentGatewayInternal PaymentGateway = "INTERNAL"
	PaymentGatewayStripe   PaymentGateway = "STRIPE"
	PaymentGatewayPaypal   PaymentGateway = "PAYPAL"
	PaymentGatewayRazorpay PaymentGateway = "RAZORPAY"
)

// ParsePaymentGateway upper-cases and checks the value
func ParsePaymentGateway(s string) (PaymentGateway, bool) {
	g := PaymentGateway(strings.ToUpper(strings.TrimSpace(s)))
	switch g {
	case PaymentGatewayInternal, PaymentGatewayStripe, PaymentGatewayPaypal, PaymentGatewayRazorpay:
		return g, true
	}
	return g, false
}

// PaymentRequest is the body of POST /payments/checkout
type PaymentRequest struct {
	BookingID      ID             `json:"bookingId"`
	PaymentMethod  PaymentMethod  `json:"paymentMethod"`
	Amount         float64        `json:"amount"`
	TransactionID  string         `json:"transactionId"`
	PaymentGateway PaymentGateway `json:"paymentGateway"`
}

// Payment is a recorded payment
type Payment struct {
	ID             ID             `json:"id"`
	BookingID      ID             `json:"bookingId,omitempty"`
	Booking        *Booking       `json:"booking,omitempty"`
	PaymentMethod  PaymentMethod  `json:"paymentMethod,omitempty"`
	PaymentGateway PaymentGateway `json:"paymentGateway,omitempty"`
	TransactionID  string         `json:"transactionId,omitempty"`
	Amount         float64        `json:"amount"`
	Status         string         `json:"status,omitempty"`
	PaidAt         *Timestamp     `json:"paymentDate,omitempty"`
}

// RefundRequest is the body of POST /payments/{id}/refund
type RefundRequest struct {
	Amount float64 `json:"amount,omitempty"`
	Reason string  `json:"reason,omitempty"`
}
