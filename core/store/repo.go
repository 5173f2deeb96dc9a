package store

import "context"

// AccountStore manages BroadcastAccount rows and the nonce counter they own.
type AccountStore interface {
	// GetOrCreateAccount returns the account for (network, address),
	// creating it with current_nonce = 0 if it does not yet exist.
	GetOrCreateAccount(ctx context.Context, network string, addr Address) (*BroadcastAccount, error)

	// AllocateNonce atomically reads current_nonce, increments it, and
	// returns the nonce that was just allocated. Linearisable against the
	// store: concurrent callers against the same account never observe
	// the same nonce twice.
	AllocateNonce(ctx context.Context, accountID int64) (uint64, error)

	// SetNonce forcibly re-anchors current_nonce, used by restart_nonce.
	SetNonce(ctx context.Context, accountID int64, nonce uint64) error
}

// TransactionStore manages PreparedTransaction rows.
type TransactionStore interface {
	InsertTransaction(ctx context.Context, tx *PreparedTransaction) error
	UpdateTransaction(ctx context.Context, tx *PreparedTransaction) error

	// GetByNonce looks up the transaction at a specific (account, nonce).
	GetByNonce(ctx context.Context, accountID int64, nonce uint64) (*PreparedTransaction, error)

	// GetByExternalID looks up a transaction by (external_id, contract_address).
	GetByExternalID(ctx context.Context, externalID string, contractAddress Address) (*PreparedTransaction, error)

	// PendingBroadcasts returns not-yet-broadcast transactions for the
	// account in ascending nonce order.
	PendingBroadcasts(ctx context.Context, accountID int64) ([]*PreparedTransaction, error)

	// Unmined returns broadcasted transactions with no recorded result.
	Unmined(ctx context.Context, accountID int64) ([]*PreparedTransaction, error)

	// Recent returns the most recently created transactions for the
	// account, newest first, capped at limit.
	Recent(ctx context.Context, accountID int64, limit int) ([]*PreparedTransaction, error)

	// QueuedForAccount returns every not-yet-broadcast transaction for the
	// account in ascending nonce order, used by restart_nonce to rewrite
	// the queued range.
	QueuedForAccount(ctx context.Context, accountID int64) ([]*PreparedTransaction, error)
}

// ScanStore manages TokenScanStatus rows.
type ScanStore interface {
	GetOrCreateScan(ctx context.Context, network string, token Address) (*TokenScanStatus, error)
	UpdateScan(ctx context.Context, scan *TokenScanStatus) error

	// PurgeForkedSuffix deletes every HolderDelta for this scan with
	// block_num >= fromBlock and marks the affected HolderAccounts dirty,
	// returning their IDs so the caller can recompute them.
	PurgeForkedSuffix(ctx context.Context, scanID int64, fromBlock uint64) ([]int64, error)
}

// HolderStore manages HolderAccount and HolderDelta rows.
type HolderStore interface {
	GetOrCreateHolder(ctx context.Context, scanID int64, addr Address) (*HolderAccount, error)

	// InsertDeltasAndAdvance atomically inserts the given deltas and
	// advances the owning scan's window to [scan.StartBlock, endBlock] in
	// one commit, per spec §4.2 step 3d.
	InsertDeltasAndAdvance(ctx context.Context, scan *TokenScanStatus, endBlock uint64, deltas []*HolderDelta) error

	// DeltasFor returns every delta for a holder ordered by
	// (block_num, tx_internal_order), the order update_denormalised_balance
	// must sum in.
	DeltasFor(ctx context.Context, accountID int64) ([]*HolderDelta, error)

	// UpdateDenormalisedBalance persists the recomputed denormalised
	// fields for a holder.
	UpdateDenormalisedBalance(ctx context.Context, h *HolderAccount) error

	// DirtyHolders returns every holder for a scan whose
	// balance_calculated_at is null.
	DirtyHolders(ctx context.Context, scanID int64) ([]*HolderAccount, error)

	// Holders returns every holder for a scan in insertion order,
	// optionally excluding empty accounts.
	Holders(ctx context.Context, scanID int64, includeEmpty bool) ([]*HolderAccount, error)
}

// Store aggregates the four repositories behind a single handle, plus a
// WithTx helper for operations that must commit atomically across them.
type Store interface {
	AccountStore
	TransactionStore
	ScanStore
	HolderStore

	// WithTx runs fn inside a single transaction. Implementations that are
	// not inherently transactional (e.g. memstore) may run fn directly
	// under their own lock.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
