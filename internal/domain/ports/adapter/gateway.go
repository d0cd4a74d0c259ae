package adapter

import (
	"context"

	"github.com/shopspring/decimal"
)

// CreatedPayment is the result of initiating a gateway payment: an opaque
// gateway transaction identifier (stored as the payment's transaction
// reference) and the URL the payer is redirected to for approval.
type CreatedPayment struct {
	GatewayID   string
	ApprovalURL string
}

// PaymentGateway is the port for external payment providers. The core's whole
// contract with a gateway: initiate a payment and execute it after the payer
// approves. Authentication, signatures and network retries live behind the
// implementation; callers bound the wait with the request context.
type PaymentGateway interface {
	Name() string

	CreatePayment(ctx context.Context, amount decimal.Decimal, currency, description, returnURL, cancelURL string) (*CreatedPayment, error)
	ExecutePayment(ctx context.Context, gatewayID, payerID string) error
}
