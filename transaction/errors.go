package transaction

import (
	"fmt"

	"github.com/zero-day-ai/ogm/types"
)

// Transaction error codes
const (
	ErrCodeTxNested       types.ErrorCode = "TRANSACTION_NESTED"
	ErrCodeTxInvalidState types.ErrorCode = "TRANSACTION_INVALID_STATE"
	ErrCodeTxClosed       types.ErrorCode = "TRANSACTION_CLOSED"
)

func stateError(op string, status Status) error {
	code := ErrCodeTxInvalidState
	if status == StatusClosed {
		code = ErrCodeTxClosed
	}
	return types.NewError(code, fmt.Sprintf("cannot %s transaction in status %s", op, status))
}
