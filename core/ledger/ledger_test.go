package ledger

import (
	"context"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/holiman/uint256"

	"github.com/synnergy-network/sto-engine/core/store"
	"github.com/synnergy-network/sto-engine/core/store/memstore"
)

func addr(b byte) store.Address {
	var a store.Address
	a[19] = b
	return a
}

func newScan(t *testing.T, st *memstore.Store) *store.TokenScanStatus {
	t.Helper()
	sc, err := st.GetOrCreateScan(context.Background(), "testnet", addr(0xAA))
	if err != nil {
		t.Fatalf("GetOrCreateScan: %v", err)
	}
	return sc
}

func TestUpdateDenormalisedBalance_SumsInOrder(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	sc := newScan(t, st)
	lg := New(st, nil)

	holder, err := lg.GetOrCreate(ctx, sc.ID, addr(1))
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	one := uint256.NewInt(100)
	two := uint256.NewInt(30)
	deltas := []*store.HolderDelta{
		{AccountID: holder.ID, BlockNum: 5, TxInternalOrder: 1, RawDelta: one, Sign: 1, BlockTimestamp: time.Unix(100, 0)},
		{AccountID: holder.ID, BlockNum: 6, TxInternalOrder: 0, RawDelta: two, Sign: -1, BlockTimestamp: time.Unix(200, 0)},
	}
	sb := uint64(0)
	if err := st.InsertDeltasAndAdvance(ctx, &store.TokenScanStatus{ID: sc.ID, StartBlock: &sb}, 10, deltas); err != nil {
		t.Fatalf("InsertDeltasAndAdvance: %v", err)
	}

	if err := lg.UpdateDenormalisedBalance(ctx, holder); err != nil {
		t.Fatalf("UpdateDenormalisedBalance: %v", err)
	}
	want := big.NewInt(70)
	if holder.Balance.Big().Cmp(want) != 0 {
		t.Fatalf("balance = %s, want %s", holder.Balance.Big(), want)
	}
	if holder.Empty {
		t.Fatalf("holder should not be empty")
	}
	if holder.LastBlock != 6 {
		t.Fatalf("LastBlock = %d, want 6", holder.LastBlock)
	}
	if holder.BalanceCalculatedAt == nil {
		t.Fatalf("BalanceCalculatedAt not stamped")
	}
}

func TestUpdateDenormalisedBalance_EmptyWhenZero(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	sc := newScan(t, st)
	lg := New(st, nil)

	holder, _ := lg.GetOrCreate(ctx, sc.ID, addr(2))
	amt := uint256.NewInt(50)
	deltas := []*store.HolderDelta{
		{AccountID: holder.ID, BlockNum: 1, TxInternalOrder: 0, RawDelta: amt, Sign: 1, BlockTimestamp: time.Unix(1, 0)},
		{AccountID: holder.ID, BlockNum: 1, TxInternalOrder: 1, RawDelta: amt, Sign: -1, BlockTimestamp: time.Unix(1, 0)},
	}
	sb := uint64(0)
	if err := st.InsertDeltasAndAdvance(ctx, &store.TokenScanStatus{ID: sc.ID, StartBlock: &sb}, 1, deltas); err != nil {
		t.Fatalf("InsertDeltasAndAdvance: %v", err)
	}
	if err := lg.UpdateDenormalisedBalance(ctx, holder); err != nil {
		t.Fatalf("UpdateDenormalisedBalance: %v", err)
	}
	if !holder.Empty {
		t.Fatalf("holder should be empty after equal credit/debit")
	}
}

func TestUpdateDenormalisedBalance_NegativeBalancePermitted(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	sc := newScan(t, st)
	lg := New(st, nil)

	holder, _ := lg.GetOrCreate(ctx, sc.ID, addr(3))
	amt := uint256.NewInt(10)
	deltas := []*store.HolderDelta{
		{AccountID: holder.ID, BlockNum: 1, TxInternalOrder: 0, RawDelta: amt, Sign: -1, BlockTimestamp: time.Unix(1, 0)},
	}
	sb := uint64(0)
	if err := st.InsertDeltasAndAdvance(ctx, &store.TokenScanStatus{ID: sc.ID, StartBlock: &sb}, 1, deltas); err != nil {
		t.Fatalf("InsertDeltasAndAdvance: %v", err)
	}
	if err := lg.UpdateDenormalisedBalance(ctx, holder); err != nil {
		t.Fatalf("UpdateDenormalisedBalance: %v", err)
	}
	if !holder.Balance.Neg {
		t.Fatalf("expected negative balance to surface, got %s", holder.Balance.Big())
	}
	if holder.Empty {
		t.Fatalf("non-zero (even if negative) balance must not be empty")
	}
}

func TestUpdateDenormalisedBalance_MaxUint256RoundTrips(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	sc := newScan(t, st)
	lg := New(st, nil)

	holder, _ := lg.GetOrCreate(ctx, sc.ID, addr(4))
	max := new(uint256.Int).SetAllOne() // 2^256 - 1
	deltas := []*store.HolderDelta{
		{AccountID: holder.ID, BlockNum: 1, TxInternalOrder: 0, RawDelta: max, Sign: 1, BlockTimestamp: time.Unix(1, 0)},
	}
	sb := uint64(0)
	if err := st.InsertDeltasAndAdvance(ctx, &store.TokenScanStatus{ID: sc.ID, StartBlock: &sb}, 1, deltas); err != nil {
		t.Fatalf("InsertDeltasAndAdvance: %v", err)
	}
	if err := lg.UpdateDenormalisedBalance(ctx, holder); err != nil {
		t.Fatalf("UpdateDenormalisedBalance: %v", err)
	}
	if holder.Balance.Big().Cmp(max.ToBig()) != 0 {
		t.Fatalf("max uint256 did not round-trip: got %s", holder.Balance.Big())
	}
}

func TestSortableBalance_ClampsOverflow(t *testing.T) {
	huge := new(uint256.Int).SetAllOne()
	s := &store.SignedUint256{Mag: huge, Neg: false}
	if got := SortableBalance(s); got != math.MaxInt64 {
		t.Fatalf("SortableBalance = %d, want clamp to MaxInt64", got)
	}
	s.Neg = true
	if got := SortableBalance(s); got != math.MinInt64 {
		t.Fatalf("SortableBalance = %d, want clamp to MinInt64", got)
	}
}

func TestGetTotalTokenHolderCount_ExcludesEmpty(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	sc := newScan(t, st)
	lg := New(st, nil)

	a1, _ := lg.GetOrCreate(ctx, sc.ID, addr(5))
	a2, _ := lg.GetOrCreate(ctx, sc.ID, addr(6))
	amt := uint256.NewInt(1)
	sb := uint64(0)
	deltas := []*store.HolderDelta{
		{AccountID: a1.ID, BlockNum: 1, TxInternalOrder: 0, RawDelta: amt, Sign: 1, BlockTimestamp: time.Unix(1, 0)},
		{AccountID: a1.ID, BlockNum: 2, TxInternalOrder: 0, RawDelta: amt, Sign: -1, BlockTimestamp: time.Unix(1, 0)},
		{AccountID: a2.ID, BlockNum: 1, TxInternalOrder: 0, RawDelta: amt, Sign: 1, BlockTimestamp: time.Unix(1, 0)},
	}
	if err := st.InsertDeltasAndAdvance(ctx, &store.TokenScanStatus{ID: sc.ID, StartBlock: &sb}, 2, deltas); err != nil {
		t.Fatalf("InsertDeltasAndAdvance: %v", err)
	}
	if _, err := lg.RecomputeDirty(ctx, sc.ID); err != nil {
		t.Fatalf("RecomputeDirty: %v", err)
	}
	n, err := lg.GetTotalTokenHolderCount(ctx, sc.ID, false)
	if err != nil {
		t.Fatalf("GetTotalTokenHolderCount: %v", err)
	}
	if n != 1 {
		t.Fatalf("holder count excluding empty = %d, want 1", n)
	}
}
