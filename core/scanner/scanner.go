// Package scanner implements the chunked event scanner: it incrementally
// brings a token's local holder-delta ledger up to a target block by
// retrieving Transfer and Issued log events over adaptively sized block
// windows, tolerating re-orgs within a fixed look-back depth (spec §4.2).
package scanner

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/synnergy-network/sto-engine/core/abi"
	"github.com/synnergy-network/sto-engine/core/chain"
	"github.com/synnergy-network/sto-engine/core/errs"
	"github.com/synnergy-network/sto-engine/core/ledger"
	"github.com/synnergy-network/sto-engine/core/store"
)

// ProgressFunc is invoked after each committed window, mirroring the
// progress_callback hook in spec §4.2 step 3e.
type ProgressFunc func(startBlock, endBlock, currentEnd, chunk uint64)

// Scanner is bound to one ABI bundle and chain adapter; callers pass the
// (network, token) pair per call, since a single process may scan many
// tokens against the same node.
type Scanner struct {
	store   store.Store
	adapter chain.Adapter
	bundle  abi.Bundle
	ledger  *ledger.Ledger
	cfg     Config
	log     *logrus.Logger
}

// New returns a Scanner reading logs through adapter and persisting through
// st.
func New(st store.Store, ad chain.Adapter, bundle abi.Bundle, cfg Config, log *logrus.Logger) *Scanner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scanner{
		store:   st,
		adapter: ad,
		bundle:  bundle,
		ledger:  ledger.New(st, log),
		cfg:     cfg,
		log:     log,
	}
}

// GetSuggestedScanStartBlock returns max(1, last_end_block - ReorgDepth), or
// 1 if the token has no prior scan.
func (s *Scanner) GetSuggestedScanStartBlock(ctx context.Context, network string, token store.Address) (uint64, error) {
	scan, err := s.store.GetOrCreateScan(ctx, network, token)
	if err != nil {
		return 0, err
	}
	if scan.EndBlock == nil {
		return 1, nil
	}
	depth := s.cfg.reorgDepth()
	if *scan.EndBlock <= depth {
		return 1, nil
	}
	return *scan.EndBlock - depth, nil
}

// GetSuggestedScanEndBlock returns the chain's current head.
func (s *Scanner) GetSuggestedScanEndBlock(ctx context.Context) (uint64, error) {
	return s.adapter.HeadBlockNumber(ctx)
}

// Scan brings the [startBlock, endBlock] window of token's holder ledger up
// to date and returns the final raw balances of every address touched
// during the scan. Calling it again over an overlapping range is idempotent:
// the overlapping suffix is purged and replayed.
func (s *Scanner) Scan(ctx context.Context, network string, token store.Address, startBlock, endBlock, startChunkSize uint64, progress ProgressFunc) (map[store.Address]*big.Int, error) {
	if startChunkSize == 0 {
		startChunkSize = DefaultStartChunkSize
	}

	scan, err := s.store.GetOrCreateScan(ctx, network, token)
	if err != nil {
		return nil, err
	}

	dirtyIDs, err := s.store.PurgeForkedSuffix(ctx, scan.ID, startBlock)
	if err != nil {
		return nil, fmt.Errorf("fork-guard purge: %w", err)
	}

	art, err := s.bundle.Get(s.cfg.tokenContractName())
	if err != nil {
		return nil, err
	}
	if err := s.refreshTokenMetadata(ctx, art, token, scan); err != nil {
		return nil, fmt.Errorf("refresh token metadata: %w", err)
	}

	transferSig, issuedSig, hasIssued := eventSignatures(art)
	_ = dirtyIDs // re-derived from the store by RecomputeDirty below

	blockTimes := make(map[uint64]int64)
	touched := make(map[store.Address]bool)

	sb := startBlock
	scan.StartBlock = &sb

	current := startBlock
	chunk := startChunkSize
	for current <= endBlock {
		currentEnd := current + chunk - 1
		if currentEnd > endBlock {
			currentEnd = endBlock
		}

		logs, err := s.fetchWindowLogs(ctx, token, current, currentEnd, transferSig, issuedSig, hasIssued)
		if err != nil {
			return nil, err
		}

		deltas, err := s.buildDeltas(ctx, scan.ID, logs, transferSig, blockTimes, touched)
		if err != nil {
			return nil, err
		}

		if err := s.store.InsertDeltasAndAdvance(ctx, scan, currentEnd, deltas); err != nil {
			return nil, fmt.Errorf("commit window [%d,%d]: %w", current, currentEnd, err)
		}

		if progress != nil {
			progress(startBlock, endBlock, currentEnd, chunk)
		}

		chunk = s.cfg.nextChunkSize(chunk, len(logs))
		current = currentEnd + 1
	}

	if _, err := s.ledger.RecomputeDirty(ctx, scan.ID); err != nil {
		return nil, fmt.Errorf("recompute dirty holders: %w", err)
	}

	result := make(map[store.Address]*big.Int, len(touched))
	for addr := range touched {
		h, err := s.store.GetOrCreateHolder(ctx, scan.ID, addr)
		if err != nil {
			return nil, err
		}
		if h.BalanceCalculatedAt == nil {
			if err := s.ledger.UpdateDenormalisedBalance(ctx, h); err != nil {
				return nil, err
			}
		}
		result[addr] = h.Balance.Big()
	}
	return result, nil
}

func (s *Scanner) fetchWindowLogs(ctx context.Context, token store.Address, from, to uint64, transferSig, issuedSig common.Hash, hasIssued bool) ([]chain.Log, error) {
	transferLogs, err := s.adapter.FilterLogs(ctx, chain.FilterQuery{
		Address:   common.Address(token),
		FromBlock: from,
		ToBlock:   to,
		Topics:    [][]common.Hash{{transferSig}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: fetch transfer logs", err)
	}

	all := transferLogs
	if hasIssued {
		issuedLogs, err := s.adapter.FilterLogs(ctx, chain.FilterQuery{
			Address:   common.Address(token),
			FromBlock: from,
			ToBlock:   to,
			Topics:    [][]common.Hash{{issuedSig}},
		})
		if err != nil {
			return nil, fmt.Errorf("%w: fetch issued logs", err)
		}
		all = append(all, issuedLogs...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].BlockNumber != all[j].BlockNumber {
			return all[i].BlockNumber < all[j].BlockNumber
		}
		return logIndexOf(all[i]) < logIndexOf(all[j])
	})
	return all, nil
}

func logIndexOf(l chain.Log) uint32 {
	if l.LogIndex == nil {
		return 0
	}
	return *l.LogIndex
}

func (s *Scanner) buildDeltas(ctx context.Context, scanID int64, logs []chain.Log, transferSig common.Hash, blockTimes map[uint64]int64, touched map[store.Address]bool) ([]*store.HolderDelta, error) {
	var out []*store.HolderDelta
	for _, l := range logs {
		if l.LogIndex == nil {
			return nil, errs.ErrUnexpectedPendingBlock
		}
		ts, err := s.blockTimestamp(ctx, l.BlockNumber, blockTimes)
		if err != nil {
			return nil, err
		}

		var from, to common.Address
		var value *uint256.Int
		isTransfer := len(l.Topics) > 0 && l.Topics[0] == transferSig
		if isTransfer {
			if len(l.Topics) < 3 {
				return nil, fmt.Errorf("transfer log at block %d missing indexed topics", l.BlockNumber)
			}
			from = common.BytesToAddress(l.Topics[1].Bytes())
			to = common.BytesToAddress(l.Topics[2].Bytes())
		} else {
			if len(l.Topics) < 2 {
				return nil, fmt.Errorf("issued log at block %d missing indexed topic", l.BlockNumber)
			}
			to = common.BytesToAddress(l.Topics[1].Bytes())
		}
		value = new(uint256.Int).SetBytes(l.Data)

		creditHolder, err := s.store.GetOrCreateHolder(ctx, scanID, store.Address(to))
		if err != nil {
			return nil, err
		}
		touched[store.Address(to)] = true
		out = append(out, &store.HolderDelta{
			AccountID:       creditHolder.ID,
			BlockNum:        l.BlockNumber,
			BlockTimestamp:  ts,
			TxID:            store.Hash(l.TxHash),
			TxInternalOrder: *l.LogIndex,
			RawDelta:        value,
			Sign:            1,
		})

		mint := !isTransfer || from == (common.Address{})
		if !mint {
			debitHolder, err := s.store.GetOrCreateHolder(ctx, scanID, store.Address(from))
			if err != nil {
				return nil, err
			}
			touched[store.Address(from)] = true
			out = append(out, &store.HolderDelta{
				AccountID:       debitHolder.ID,
				BlockNum:        l.BlockNumber,
				BlockTimestamp:  ts,
				TxID:            store.Hash(l.TxHash),
				TxInternalOrder: *l.LogIndex,
				RawDelta:        value,
				Sign:            -1,
			})
		}
	}
	return out, nil
}

// blockTimestamp resolves a block's timestamp via a per-scan memoised map,
// avoiding a repeated eth_getBlockByNumber for every log in the same block.
func (s *Scanner) blockTimestamp(ctx context.Context, blockNum uint64, cache map[uint64]int64) (time.Time, error) {
	if ts, ok := cache[blockNum]; ok {
		return time.Unix(ts, 0).UTC(), nil
	}
	ts, err := s.adapter.BlockTimestamp(ctx, blockNum)
	if err != nil {
		return time.Time{}, fmt.Errorf("fetch block %d timestamp: %w", blockNum, err)
	}
	cache[blockNum] = ts
	return time.Unix(ts, 0).UTC(), nil
}

func (s *Scanner) refreshTokenMetadata(ctx context.Context, art *abi.Artifact, token store.Address, scan *store.TokenScanStatus) error {
	builder := abi.NewBuilder(art)
	name, err := s.callString(ctx, builder, art, token, "name")
	if err != nil {
		return err
	}
	symbol, err := s.callString(ctx, builder, art, token, "symbol")
	if err != nil {
		return err
	}
	decimals, err := s.callUint8(ctx, builder, art, token, "decimals")
	if err != nil {
		return err
	}
	supply, err := s.callUint256(ctx, builder, art, token, "totalSupply")
	if err != nil {
		return err
	}
	scan.Name, scan.Symbol, scan.Decimals, scan.TotalSupply = name, symbol, decimals, supply
	return nil
}

func (s *Scanner) call(ctx context.Context, builder *abi.Builder, art *abi.Artifact, token store.Address, method string) ([]any, error) {
	data, err := builder.EncodeCall(method)
	if err != nil {
		return nil, err
	}
	out, err := s.adapter.CallContract(ctx, chain.CallMsg{To: common.Address(token), Data: data})
	if err != nil {
		return nil, err
	}
	return art.ABI.Unpack(method, out)
}

func (s *Scanner) callString(ctx context.Context, builder *abi.Builder, art *abi.Artifact, token store.Address, method string) (string, error) {
	res, err := s.call(ctx, builder, art, token, method)
	if err != nil || len(res) != 1 {
		return "", err
	}
	v, _ := res[0].(string)
	return v, nil
}

func (s *Scanner) callUint8(ctx context.Context, builder *abi.Builder, art *abi.Artifact, token store.Address, method string) (uint8, error) {
	res, err := s.call(ctx, builder, art, token, method)
	if err != nil || len(res) != 1 {
		return 0, err
	}
	v, _ := res[0].(uint8)
	return v, nil
}

func (s *Scanner) callUint256(ctx context.Context, builder *abi.Builder, art *abi.Artifact, token store.Address, method string) (*uint256.Int, error) {
	res, err := s.call(ctx, builder, art, token, method)
	if err != nil || len(res) != 1 {
		return nil, err
	}
	b, ok := res[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected result type %T", method, res[0])
	}
	u, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("%s: result overflows uint256", method)
	}
	return u, nil
}

func eventSignatures(art *abi.Artifact) (transfer, issued common.Hash, hasIssued bool) {
	transfer = art.ABI.Events["Transfer"].ID
	if ev, ok := art.ABI.Events["Issued"]; ok {
		issued = ev.ID
		hasIssued = true
	}
	return
}
