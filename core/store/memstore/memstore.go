// Package memstore is an in-memory store.Store used by unit tests across the
// stored-transaction service, the chunked event scanner and the holder
// balance ledger. It mirrors the teacher's habit of keeping a lightweight,
// lock-guarded map structure alongside the durable path (core/store/pg).
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/synnergy-network/sto-engine/core/errs"
	"github.com/synnergy-network/sto-engine/core/store"
)

// errDuplicateEvent mirrors errs.ErrDuplicateEvent for an
// (block_num, tx_internal_order, account, sign) collision — it indicates a
// missing fork-guard purge before a re-scan.
var errDuplicateEvent = errs.ErrDuplicateEvent

type accountKey struct {
	network string
	address store.Address
}

// Store is a plain-map implementation of store.Store guarded by a single
// mutex. It is not meant for production use: durability and multi-process
// concurrency are explicitly out of scope (see core/store/pg for that).
type Store struct {
	mu sync.Mutex

	accounts   map[int64]*store.BroadcastAccount
	accountIdx map[accountKey]int64
	nextAcctID int64

	txs       map[int64]*store.PreparedTransaction
	nextTxID  int64

	scans      map[int64]*store.TokenScanStatus
	scanIdx    map[accountKey]int64
	nextScanID int64

	holders      map[int64]*store.HolderAccount
	holderIdx    map[int64]map[store.Address]int64 // scanID -> addr -> holderID
	nextHolderID int64

	deltas        map[int64][]*store.HolderDelta // accountID -> deltas
	seenDeltaKeys map[int64]map[deltaKey]bool     // scanID -> seen (block,order,addr,sign)
	nextDeltaID   int64
}

type deltaKey struct {
	block     uint64
	order     uint32
	accountID int64
	sign      int8
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		accounts:      make(map[int64]*store.BroadcastAccount),
		accountIdx:    make(map[accountKey]int64),
		txs:           make(map[int64]*store.PreparedTransaction),
		scans:         make(map[int64]*store.TokenScanStatus),
		scanIdx:       make(map[accountKey]int64),
		holders:       make(map[int64]*store.HolderAccount),
		holderIdx:     make(map[int64]map[store.Address]int64),
		deltas:        make(map[int64][]*store.HolderDelta),
		seenDeltaKeys: make(map[int64]map[deltaKey]bool),
	}
}

// WithTx runs fn directly against the store without taking its lock; each
// store method locks for itself, and memstore has no separate transaction
// concept.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	return fn(ctx, s)
}

func (s *Store) GetOrCreateAccount(ctx context.Context, network string, addr store.Address) (*store.BroadcastAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := accountKey{network, addr}
	if id, ok := s.accountIdx[key]; ok {
		a := *s.accounts[id]
		return &a, nil
	}
	s.nextAcctID++
	acct := &store.BroadcastAccount{
		ID:        s.nextAcctID,
		Network:   network,
		Address:   addr,
		CreatedAt: time.Now(),
	}
	s.accounts[acct.ID] = acct
	s.accountIdx[key] = acct.ID
	out := *acct
	return &out, nil
}

func (s *Store) AllocateNonce(ctx context.Context, accountID int64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return 0, store.ErrNotFound
	}
	n := a.CurrentNonce
	a.CurrentNonce++
	return n, nil
}

func (s *Store) SetNonce(ctx context.Context, accountID int64, nonce uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return store.ErrNotFound
	}
	a.CurrentNonce = nonce
	return nil
}

func (s *Store) InsertTransaction(ctx context.Context, tx *store.PreparedTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTxID++
	cp := *tx
	cp.ID = s.nextTxID
	cp.CreatedAt = time.Now()
	s.txs[cp.ID] = &cp
	tx.ID = cp.ID
	tx.CreatedAt = cp.CreatedAt
	return nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *store.PreparedTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.txs[tx.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *tx
	s.txs[tx.ID] = &cp
	return nil
}

func (s *Store) GetByNonce(ctx context.Context, accountID int64, nonce uint64) (*store.PreparedTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.txs {
		if t.AccountID == accountID && t.Nonce == nonce {
			cp := *t
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetByExternalID(ctx context.Context, externalID string, contractAddress store.Address) (*store.PreparedTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.txs {
		if t.ExternalID != nil && *t.ExternalID == externalID &&
			t.ContractAddress != nil && *t.ContractAddress == contractAddress {
			cp := *t
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) PendingBroadcasts(ctx context.Context, accountID int64) ([]*store.PreparedTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*store.PreparedTransaction
	for _, t := range s.txs {
		if t.AccountID == accountID && t.BroadcastedAt == nil {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nonce < out[j].Nonce })
	return out, nil
}

func (s *Store) Unmined(ctx context.Context, accountID int64) ([]*store.PreparedTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*store.PreparedTransaction
	for _, t := range s.txs {
		if t.AccountID == accountID && t.BroadcastedAt != nil && t.ResultSuccess == nil {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nonce < out[j].Nonce })
	return out, nil
}

func (s *Store) Recent(ctx context.Context, accountID int64, limit int) ([]*store.PreparedTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*store.PreparedTransaction
	for _, t := range s.txs {
		if t.AccountID == accountID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nonce > out[j].Nonce })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) QueuedForAccount(ctx context.Context, accountID int64) ([]*store.PreparedTransaction, error) {
	return s.PendingBroadcasts(ctx, accountID)
}

func (s *Store) GetOrCreateScan(ctx context.Context, network string, token store.Address) (*store.TokenScanStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := accountKey{network, token}
	if id, ok := s.scanIdx[key]; ok {
		cp := *s.scans[id]
		return &cp, nil
	}
	s.nextScanID++
	sc := &store.TokenScanStatus{ID: s.nextScanID, Network: network, TokenAddress: token}
	s.scans[sc.ID] = sc
	s.scanIdx[key] = sc.ID
	cp := *sc
	return &cp, nil
}

func (s *Store) UpdateScan(ctx context.Context, scan *store.TokenScanStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scans[scan.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *scan
	s.scans[scan.ID] = &cp
	return nil
}

func (s *Store) PurgeForkedSuffix(ctx context.Context, scanID int64, fromBlock uint64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dirty := make(map[int64]bool)
	for acctID, ds := range s.deltas {
		h, ok := s.holders[acctID]
		if !ok || h.ScanID != scanID {
			continue
		}
		kept := ds[:0:0]
		for _, d := range ds {
			if d.BlockNum >= fromBlock {
				dirty[acctID] = true
				continue
			}
			kept = append(kept, d)
		}
		s.deltas[acctID] = kept
	}
	if seen, ok := s.seenDeltaKeys[scanID]; ok {
		for k := range seen {
			if k.block >= fromBlock {
				delete(seen, k)
			}
		}
	}
	out := make([]int64, 0, len(dirty))
	for id := range dirty {
		h := s.holders[id]
		h.BalanceCalculatedAt = nil
		out = append(out, id)
	}
	return out, nil
}

func (s *Store) GetOrCreateHolder(ctx context.Context, scanID int64, addr store.Address) (*store.HolderAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateHolderLocked(scanID, addr)
}

func (s *Store) getOrCreateHolderLocked(scanID int64, addr store.Address) (*store.HolderAccount, error) {
	if s.holderIdx[scanID] == nil {
		s.holderIdx[scanID] = make(map[store.Address]int64)
	}
	if id, ok := s.holderIdx[scanID][addr]; ok {
		cp := *s.holders[id]
		return &cp, nil
	}
	s.nextHolderID++
	h := &store.HolderAccount{
		ID:      s.nextHolderID,
		ScanID:  scanID,
		Address: addr,
		Balance: store.ZeroSigned(),
		Empty:   true,
	}
	s.holders[h.ID] = h
	s.holderIdx[scanID][addr] = h.ID
	cp := *h
	return &cp, nil
}

func (s *Store) InsertDeltasAndAdvance(ctx context.Context, scan *store.TokenScanStatus, endBlock uint64, deltas []*store.HolderDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seenDeltaKeys[scan.ID] == nil {
		s.seenDeltaKeys[scan.ID] = make(map[deltaKey]bool)
	}
	seen := s.seenDeltaKeys[scan.ID]

	for _, d := range deltas {
		if _, ok := s.holders[d.AccountID]; !ok {
			return store.ErrNotFound
		}
		k := deltaKey{block: d.BlockNum, order: d.TxInternalOrder, accountID: d.AccountID, sign: d.Sign}
		if seen[k] {
			return errDuplicateEvent
		}
		seen[k] = true

		s.nextDeltaID++
		cp := *d
		cp.ID = s.nextDeltaID
		s.deltas[d.AccountID] = append(s.deltas[d.AccountID], &cp)

		if h, ok := s.holders[d.AccountID]; ok {
			h.BalanceCalculatedAt = nil
		}
	}

	if sc, ok := s.scans[scan.ID]; ok {
		if scan.StartBlock != nil {
			sb := *scan.StartBlock
			sc.StartBlock = &sb
		}
		eb := endBlock
		sc.EndBlock = &eb
		sc.Name, sc.Symbol, sc.Decimals, sc.TotalSupply = scan.Name, scan.Symbol, scan.Decimals, scan.TotalSupply
	}
	return nil
}

func (s *Store) DeltasFor(ctx context.Context, accountID int64) ([]*store.HolderDelta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds := append([]*store.HolderDelta(nil), s.deltas[accountID]...)
	sort.Slice(ds, func(i, j int) bool {
		if ds[i].BlockNum != ds[j].BlockNum {
			return ds[i].BlockNum < ds[j].BlockNum
		}
		return ds[i].TxInternalOrder < ds[j].TxInternalOrder
	})
	return ds, nil
}

func (s *Store) UpdateDenormalisedBalance(ctx context.Context, h *store.HolderAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.holders[h.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *h
	s.holders[h.ID] = &cp
	return nil
}

func (s *Store) DirtyHolders(ctx context.Context, scanID int64) ([]*store.HolderAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*store.HolderAccount
	for _, h := range s.holders {
		if h.ScanID == scanID && h.BalanceCalculatedAt == nil {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) Holders(ctx context.Context, scanID int64, includeEmpty bool) ([]*store.HolderAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*store.HolderAccount
	for id := 1; id <= int(s.nextHolderID); id++ {
		h, ok := s.holders[int64(id)]
		if !ok || h.ScanID != scanID {
			continue
		}
		if !includeEmpty && h.Empty {
			continue
		}
		cp := *h
		out = append(out, &cp)
	}
	return out, nil
}
