// Package ledger implements the Holder Balance Ledger: a delta-sourced
// account model that denormalises uint256 running balances from an
// append-only event stream, with lazy recomputation (spec §4.3).
package ledger

import (
	"context"
	"math"
	"math/big"

	"github.com/sirupsen/logrus"

	"github.com/synnergy-network/sto-engine/core/store"
)

// Ledger answers balance queries for holders of a single token scan by
// summing their signed deltas, and maintains a denormalised sortable
// balance for cap-table rendering.
type Ledger struct {
	st  store.HolderStore
	log *logrus.Logger
}

// New returns a Ledger bound to the given holder repository.
func New(st store.HolderStore, log *logrus.Logger) *Ledger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Ledger{st: st, log: log}
}

// GetOrCreate returns the holder account for (scan, address), creating it
// on first touch.
func (l *Ledger) GetOrCreate(ctx context.Context, scanID int64, addr store.Address) (*store.HolderAccount, error) {
	return l.st.GetOrCreateHolder(ctx, scanID, addr)
}

// UpdateDenormalisedBalance recomputes a holder's balance from its delta
// stream ordered by (block_num, tx_internal_order), and stamps
// balance_calculated_at. empty is kept in lockstep with balance == 0, per
// the invariant in spec §4.3. Negative balances are permitted and surfaced
// unmodified — some non-standard mints make them possible and the ledger
// must not hide them.
func (l *Ledger) UpdateDenormalisedBalance(ctx context.Context, h *store.HolderAccount) error {
	deltas, err := l.st.DeltasFor(ctx, h.ID)
	if err != nil {
		return err
	}

	sum := new(big.Int)
	var lastBlock uint64
	var lastBlockAt = h.LastBlockAt
	for _, d := range deltas {
		mag := new(big.Int)
		if d.RawDelta != nil {
			mag = d.RawDelta.ToBig()
		}
		if d.Sign < 0 {
			sum.Sub(sum, mag)
		} else {
			sum.Add(sum, mag)
		}
		if d.BlockNum >= lastBlock {
			lastBlock = d.BlockNum
			ts := d.BlockTimestamp
			lastBlockAt = &ts
		}
	}

	signed, err := store.SignedFromBig(sum)
	if err != nil {
		l.log.WithError(err).WithField("holder", h.ID).Error("balance overflowed uint256 range")
		return err
	}

	now := nowFunc()
	h.Balance = signed
	h.Empty = signed.IsZero()
	h.BalanceCalculatedAt = &now
	h.LastBlock = lastBlock
	h.LastBlockAt = lastBlockAt

	return l.st.UpdateDenormalisedBalance(ctx, h)
}

// SortableBalance truncates a signed 256-bit balance into a native int64 for
// ORDER BY queries where full precision is unnecessary, clamping at the
// int64 bounds rather than wrapping.
func SortableBalance(s *store.SignedUint256) int64 {
	if s.IsZero() {
		return 0
	}
	b := s.Big()
	if b.IsInt64() {
		return b.Int64()
	}
	if b.Sign() < 0 {
		return math.MinInt64
	}
	return math.MaxInt64
}

// GetAccounts returns every holder for a scan in insertion order; callers
// sort and paginate for reporting.
func (l *Ledger) GetAccounts(ctx context.Context, scanID int64, includeEmpty bool) ([]*store.HolderAccount, error) {
	return l.st.Holders(ctx, scanID, includeEmpty)
}

// RecomputeDirty recomputes every holder in a scan whose
// balance_calculated_at is stale, returning the refreshed set.
func (l *Ledger) RecomputeDirty(ctx context.Context, scanID int64) ([]*store.HolderAccount, error) {
	dirty, err := l.st.DirtyHolders(ctx, scanID)
	if err != nil {
		return nil, err
	}
	for _, h := range dirty {
		if err := l.UpdateDenormalisedBalance(ctx, h); err != nil {
			return nil, err
		}
	}
	return dirty, nil
}

// GetTotalTokenHolderCount reports how many addresses currently hold a
// position in the scan, optionally including zero balances.
func (l *Ledger) GetTotalTokenHolderCount(ctx context.Context, scanID int64, includeEmpty bool) (int, error) {
	holders, err := l.st.Holders(ctx, scanID, includeEmpty)
	if err != nil {
		return 0, err
	}
	return len(holders), nil
}
