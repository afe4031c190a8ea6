package core

import "strconv"

// ErrorCode int
type ErrorCode int

// ErrorKind groups error codes by how an operation failed
type ErrorKind string

const (
	ErrorKindUnknown        ErrorKind = "unknown"
	ErrorKindInvalidInput   ErrorKind = "invalid_input"
	ErrorKindInvariant      ErrorKind = "invariant"
	ErrorKindStale          ErrorKind = "stale"
	ErrorKindUnauthorized   ErrorKind = "unauthorized"
	ErrorKindReconciliation ErrorKind = "reconciliation"
)

const (
	// ErrUnknown unkown
	ErrUnknown ErrorCode = 100000
	// ErrOperationForbidden operation forbidden
	ErrOperationForbidden ErrorCode = 100001

	// ErrInvalidAmount invalid amount
	ErrInvalidAmount ErrorCode = 100101
	// ErrInvalidRate rate or ratio out of range
	ErrInvalidRate ErrorCode = 100102
	// ErrInvalidArgument invalid argument
	ErrInvalidArgument ErrorCode = 100103
	// ErrInvalidResource bucket of an unexpected asset
	ErrInvalidResource ErrorCode = 100104
	// ErrPoolNotFound no pool listed for the asset
	ErrPoolNotFound ErrorCode = 100105
	// ErrPoolExists asset already listed
	ErrPoolExists ErrorCode = 100106
	// ErrCDPNotFound no cdp
	ErrCDPNotFound ErrorCode = 100107
	// ErrInvalidMetadata cdp metadata rejected
	ErrInvalidMetadata ErrorCode = 100108
	// ErrEventNotFound no event with the trace id
	ErrEventNotFound ErrorCode = 100109

	// ErrInvariantViolated internal accounting invariant broken
	ErrInvariantViolated ErrorCode = 100201
	// ErrInsufficientLiquidity insufficient liquidity
	ErrInsufficientLiquidity ErrorCode = 100202
	// ErrInsufficientCollateral ltv above 1
	ErrInsufficientCollateral ErrorCode = 100203
	// ErrPositionLimitExceeded too many collateral and loan entries
	ErrPositionLimitExceeded ErrorCode = 100204
	// ErrDepositLimitExceeded deposit limit reached
	ErrDepositLimitExceeded ErrorCode = 100205
	// ErrBorrowLimitExceeded borrow limit reached
	ErrBorrowLimitExceeded ErrorCode = 100206
	// ErrUtilizationLimitExceeded utilization limit reached
	ErrUtilizationLimitExceeded ErrorCode = 100207
	// ErrInsufficientPosition cdp holds fewer units than requested
	ErrInsufficientPosition ErrorCode = 100208
	// ErrNotLiquidatable cdp is healthy
	ErrNotLiquidatable ErrorCode = 100209
	// ErrNothingToLiquidate no collateral could be seized
	ErrNothingToLiquidate ErrorCode = 100210
	// ErrDelegationDisabled delegation feature flag off
	ErrDelegationDisabled ErrorCode = 100211
	// ErrInvalidDelegation delegation topology rejected
	ErrInvalidDelegation ErrorCode = 100212
	// ErrDelegateeLimitExceeded delegatee borrowed above its cap
	ErrDelegateeLimitExceeded ErrorCode = 100213
	// ErrServiceDisabled operating status gate closed
	ErrServiceDisabled ErrorCode = 100214
	// ErrRefinanceNotAllowed cdp not eligible for refinance
	ErrRefinanceNotAllowed ErrorCode = 100215

	// ErrPriceNotFound oracle has no price
	ErrPriceNotFound ErrorCode = 100301
	// ErrPriceExpired oracle price too old
	ErrPriceExpired ErrorCode = 100302
	// ErrInvalidPrice invalid price
	ErrInvalidPrice ErrorCode = 100303

	// ErrUnauthorized caller lacks the required role or ownership
	ErrUnauthorized ErrorCode = 100401
	// ErrInvalidReceipt receipt unknown to this transaction
	ErrInvalidReceipt ErrorCode = 100402
	// ErrReceiptBurned receipt already consumed
	ErrReceiptBurned ErrorCode = 100403

	// ErrFlashloanNotRepaid flash loan term left unpaid
	ErrFlashloanNotRepaid ErrorCode = 100501
	// ErrLiquidationValueMismatch repaid value differs from receipt
	ErrLiquidationValueMismatch ErrorCode = 100502
	// ErrReceiptOutstanding receipt still open at transaction end
	ErrReceiptOutstanding ErrorCode = 100503
	// ErrRefinanceIncomplete refinance payments left debt behind
	ErrRefinanceIncomplete ErrorCode = 100504
)

func (e ErrorCode) String() string {
	return strconv.Itoa(int(e))
}

func (e ErrorCode) Error() string {
	return e.String()
}

// Kind classify the error code
func (e ErrorCode) Kind() ErrorKind {
	switch int(e) / 100 {
	case 1001:
		return ErrorKindInvalidInput
	case 1002:
		return ErrorKindInvariant
	case 1003:
		return ErrorKindStale
	case 1004:
		return ErrorKindUnauthorized
	case 1005:
		return ErrorKindReconciliation
	default:
		if e == ErrOperationForbidden {
			return ErrorKindUnauthorized
		}
		return ErrorKindUnknown
	}
}
