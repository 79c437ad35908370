package program

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a failure category. Codes are stable strings and
// safe to match on in scripts and golden traces.
type ErrorCode string

const (
	// ErrCodeEmptyCodeHash indicates a zero-length code hash.
	ErrCodeEmptyCodeHash ErrorCode = "EMPTY_CODE_HASH"

	// ErrCodeCodeHashTooLong indicates a code hash over MaxCodeHashLen bytes.
	ErrCodeCodeHashTooLong ErrorCode = "CODE_HASH_TOO_LONG"

	// ErrCodeInstructionDidNotDeserialize indicates instruction arguments
	// that do not decode, such as a code hash that is not valid UTF-8.
	ErrCodeInstructionDidNotDeserialize ErrorCode = "INSTRUCTION_DID_NOT_DESERIALIZE"

	// ErrCodeAuthorityMismatch indicates the signer is not the stored authority.
	ErrCodeAuthorityMismatch ErrorCode = "AUTHORITY_MISMATCH"

	// ErrCodeAlreadyInitialized indicates the log slot already holds data.
	ErrCodeAlreadyInitialized ErrorCode = "ALREADY_INITIALIZED"

	// ErrCodeInsufficientFunds indicates the payer cannot fund the required
	// capacity, or the growth exceeds a platform resource limit.
	ErrCodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"

	// ErrCodeCorruptLayout indicates the slot bytes do not decode.
	ErrCodeCorruptLayout ErrorCode = "CORRUPT_LAYOUT"

	// ErrCodeNotInitialized indicates the log slot does not exist yet.
	ErrCodeNotInitialized ErrorCode = "NOT_INITIALIZED"

	// ErrCodeInvalidSignature indicates a transaction signature did not verify.
	ErrCodeInvalidSignature ErrorCode = "INVALID_SIGNATURE"
)

// Numeric error codes as reported on the wire. Custom program errors start
// at 6000; account constraint errors and system errors keep the numbers
// the runtime assigns them.
const (
	NumberAlreadyInUse                 uint32 = 0
	NumberInsufficientFunds            uint32 = 1
	NumberInstructionDidNotDeserialize uint32 = 102
	NumberConstraintHasOne             uint32 = 2001
	NumberDidNotDeserialize            uint32 = 3003
	NumberNotInitialized               uint32 = 3012
	NumberEmptyCodeHash                uint32 = 6000
	NumberCodeHashTooLong              uint32 = 6001
)

// Error is a failed instruction. Every Error aborts the enclosing
// transaction with no observable state change.
type Error struct {
	Code    ErrorCode `json:"code"`
	Number  uint32    `json:"number"`
	Message string    `json:"message"`

	// Cause is the underlying error, if any.
	Cause error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%d): %s: %v", e.Code, e.Number, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Number, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// CodeOf returns the ErrorCode of err, or "" if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

func hasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// IsEmptyCodeHash reports whether err is an EMPTY_CODE_HASH failure.
func IsEmptyCodeHash(err error) bool { return hasCode(err, ErrCodeEmptyCodeHash) }

// IsCodeHashTooLong reports whether err is a CODE_HASH_TOO_LONG failure.
func IsCodeHashTooLong(err error) bool { return hasCode(err, ErrCodeCodeHashTooLong) }

// IsInstructionDidNotDeserialize reports whether err is an
// INSTRUCTION_DID_NOT_DESERIALIZE failure.
func IsInstructionDidNotDeserialize(err error) bool {
	return hasCode(err, ErrCodeInstructionDidNotDeserialize)
}

// IsAuthorityMismatch reports whether err is an AUTHORITY_MISMATCH failure.
func IsAuthorityMismatch(err error) bool { return hasCode(err, ErrCodeAuthorityMismatch) }

// IsAlreadyInitialized reports whether err is an ALREADY_INITIALIZED failure.
func IsAlreadyInitialized(err error) bool { return hasCode(err, ErrCodeAlreadyInitialized) }

// IsInsufficientFunds reports whether err is an INSUFFICIENT_FUNDS failure.
func IsInsufficientFunds(err error) bool { return hasCode(err, ErrCodeInsufficientFunds) }

// IsCorruptLayout reports whether err is a CORRUPT_LAYOUT failure.
func IsCorruptLayout(err error) bool { return hasCode(err, ErrCodeCorruptLayout) }

// IsNotInitialized reports whether err is a NOT_INITIALIZED failure.
func IsNotInitialized(err error) bool { return hasCode(err, ErrCodeNotInitialized) }

// IsInvalidSignature reports whether err is an INVALID_SIGNATURE failure.
func IsInvalidSignature(err error) bool { return hasCode(err, ErrCodeInvalidSignature) }

// NewEmptyCodeHashError creates an EMPTY_CODE_HASH error.
func NewEmptyCodeHashError() *Error {
	return &Error{
		Code:    ErrCodeEmptyCodeHash,
		Number:  NumberEmptyCodeHash,
		Message: "The provided code hash cannot be empty.",
	}
}

// NewCodeHashTooLongError creates a CODE_HASH_TOO_LONG error.
func NewCodeHashTooLongError() *Error {
	return &Error{
		Code:    ErrCodeCodeHashTooLong,
		Number:  NumberCodeHashTooLong,
		Message: "The provided code hash is too long. Max 64 characters.",
	}
}

// NewInstructionDidNotDeserializeError creates an
// INSTRUCTION_DID_NOT_DESERIALIZE error.
func NewInstructionDidNotDeserializeError(reason string) *Error {
	return &Error{
		Code:    ErrCodeInstructionDidNotDeserialize,
		Number:  NumberInstructionDidNotDeserialize,
		Message: "The program could not deserialize the given instruction: " + reason,
	}
}

// NewAuthorityMismatchError creates an AUTHORITY_MISMATCH error.
func NewAuthorityMismatchError(stored, signer fmt.Stringer) *Error {
	return &Error{
		Code:    ErrCodeAuthorityMismatch,
		Number:  NumberConstraintHasOne,
		Message: fmt.Sprintf("A has one constraint was violated: authority is %s, signer is %s", stored, signer),
	}
}

// NewAlreadyInitializedError creates an ALREADY_INITIALIZED error.
func NewAlreadyInitializedError(addr fmt.Stringer) *Error {
	return &Error{
		Code:    ErrCodeAlreadyInitialized,
		Number:  NumberAlreadyInUse,
		Message: fmt.Sprintf("Allocate: account %s already in use", addr),
	}
}

// NewInsufficientFundsError creates an INSUFFICIENT_FUNDS error.
func NewInsufficientFundsError(format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeInsufficientFunds,
		Number:  NumberInsufficientFunds,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewCorruptLayoutError creates a CORRUPT_LAYOUT error wrapping cause.
func NewCorruptLayoutError(cause error) *Error {
	return &Error{
		Code:    ErrCodeCorruptLayout,
		Number:  NumberDidNotDeserialize,
		Message: "Failed to deserialize the account",
		Cause:   cause,
	}
}

// NewNotInitializedError creates a NOT_INITIALIZED error.
func NewNotInitializedError(addr fmt.Stringer) *Error {
	return &Error{
		Code:    ErrCodeNotInitialized,
		Number:  NumberNotInitialized,
		Message: fmt.Sprintf("The program expected account %s to be already initialized", addr),
	}
}

// NewInvalidSignatureError creates an INVALID_SIGNATURE error. Signature
// failures are rejected before execution and carry no program number.
func NewInvalidSignatureError(signer fmt.Stringer) *Error {
	return &Error{
		Code:    ErrCodeInvalidSignature,
		Message: fmt.Sprintf("signature verification failed for %s", signer),
	}
}
