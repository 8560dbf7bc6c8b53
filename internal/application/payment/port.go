package payment

import (
	"context"

	dompay "github.com/Zhima-Mochi/minishop-orchestrator/internal/domain/payment"
)

// Processor captures one charge against the payment collaborator. Implementations
// wrap dompay.ErrDeclined for refusals and dompay.ErrUnavailable for everything
// that says nothing about the card; the capture use case classifies on those two.
// Capture is not retried: a second call could charge twice.
type Processor interface {
	Capture(ctx context.Context, charge dompay.Charge) (*dompay.Receipt, error)
}
