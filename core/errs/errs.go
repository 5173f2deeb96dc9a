// Package errs defines the discriminated error kinds shared by the
// stored-transaction service, the chunked event scanner and the holder
// balance ledger. Each kind is its own sentinel so callers can discriminate
// with errors.Is, per the error kinds enumerated in the system design.
package errs

import "errors"

// Configuration errors: fatal at entry to any operation needing the
// missing input.
var (
	ErrNoNodeConfigured = errors.New("no chain node configured")
	ErrNeedPrivateKey   = errors.New("signing private key not configured")
	ErrInvalidAddress   = errors.New("invalid address")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrNoSuchContract   = errors.New("no such contract in ABI bundle")
)

// Consistency errors: surfaced to the caller, no automatic recovery.
var (
	ErrNonceDesync      = errors.New("nonce desync between store and chain")
	ErrDuplicateEvent   = errors.New("duplicate holder delta for this event")
	ErrAlreadyDistributed = errors.New("tokens already distributed for this external id")
	ErrAddressMismatch  = errors.New("transaction does not belong to this account")
)

// Chain errors: diagnostic, the operator decides whether to retry.
var (
	ErrNodeNotSynced = errors.New("chain node is not synced")
	ErrNodeRejected  = errors.New("chain node rejected the transaction")
	ErrNeedMoney     = errors.New("signing account has zero balance")
)

// Scanner errors. RPCTransient kinds are caller-retryable; the already
// committed prefix is always a valid resume point.
var (
	ErrUnexpectedPendingBlock = errors.New("log event references a pending block")
	ErrRPCTransient           = errors.New("transient RPC failure")
)

// Verification errors: non-fatal to the pipeline, only affect the
// verified terminal state of a PreparedTransaction.
var (
	ErrCouldNotVerify    = errors.New("source verification failed")
	ErrDeploymentNotFound = errors.New("deployment transaction not found")
	ErrNeedAPIKey        = errors.New("verification API key not configured")
)
