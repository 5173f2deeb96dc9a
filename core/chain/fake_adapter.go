package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// FakeAdapter is an in-memory Adapter double used by txservice and scanner
// unit tests; it is not a _test.go file so other packages can import it
// directly.
type FakeAdapter struct {
	mu sync.Mutex

	NonceByAddr map[common.Address]uint64
	Receipts    map[common.Hash]Receipt
	BlockTimes  map[uint64]int64
	Head        uint64
	Logs        []Log
	GasPrice    *big.Int
	Chain       *big.Int
	CallResults map[common.Address][]byte
	// CallResultsBySelector lets a test return different payloads for
	// different 4-byte function selectors against the same address; it
	// takes precedence over CallResults when a selector match is found.
	CallResultsBySelector map[common.Address]map[[4]byte][]byte

	SentTxs [][]byte
	NextErr error // if set, every call returns this error once then clears
}

var _ Adapter = (*FakeAdapter)(nil)

// NewFakeAdapter returns an empty FakeAdapter with sane defaults.
func NewFakeAdapter() *FakeAdapter {
	return &FakeAdapter{
		NonceByAddr: make(map[common.Address]uint64),
		Receipts:    make(map[common.Hash]Receipt),
		BlockTimes:  make(map[uint64]int64),
		GasPrice:    big.NewInt(1_000_000_000),
		Chain:       big.NewInt(1337),
		CallResults: make(map[common.Address][]byte),
	}
}

func (f *FakeAdapter) takeErr() error {
	if f.NextErr == nil {
		return nil
	}
	err := f.NextErr
	f.NextErr = nil
	return err
}

func (f *FakeAdapter) SendRawTransaction(ctx context.Context, signed []byte) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return common.Hash{}, err
	}
	f.SentTxs = append(f.SentTxs, signed)
	h := common.BytesToHash([]byte(fmt.Sprintf("tx-%d", len(f.SentTxs))))
	return h, nil
}

func (f *FakeAdapter) TransactionCount(ctx context.Context, addr common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return 0, err
	}
	return f.NonceByAddr[addr], nil
}

func (f *FakeAdapter) TransactionReceipt(ctx context.Context, txHash common.Hash) (Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return Receipt{}, err
	}
	r, ok := f.Receipts[txHash]
	if !ok {
		return Receipt{Found: false}, nil
	}
	return r, nil
}

func (f *FakeAdapter) BlockTimestamp(ctx context.Context, blockNum uint64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return 0, err
	}
	return f.BlockTimes[blockNum], nil
}

func (f *FakeAdapter) HeadBlockNumber(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return 0, err
	}
	return f.Head, nil
}

func (f *FakeAdapter) FilterLogs(ctx context.Context, q FilterQuery) ([]Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return nil, err
	}
	var out []Log
	for _, l := range f.Logs {
		if l.Address != q.Address {
			continue
		}
		if l.BlockNumber < q.FromBlock || l.BlockNumber > q.ToBlock {
			continue
		}
		if !topicsMatch(l.Topics, q.Topics) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func topicsMatch(logTopics []common.Hash, want [][]common.Hash) bool {
	if len(want) == 0 {
		return true
	}
	if len(logTopics) == 0 {
		return false
	}
	for _, candidate := range want[0] {
		if logTopics[0] == candidate {
			return true
		}
	}
	return false
}

func (f *FakeAdapter) CallContract(ctx context.Context, msg CallMsg) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return nil, err
	}
	if bySelector, ok := f.CallResultsBySelector[msg.To]; ok && len(msg.Data) >= 4 {
		var sel [4]byte
		copy(sel[:], msg.Data[:4])
		if out, ok := bySelector[sel]; ok {
			return out, nil
		}
	}
	return f.CallResults[msg.To], nil
}

func (f *FakeAdapter) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return nil, err
	}
	return new(big.Int).Set(f.GasPrice), nil
}

func (f *FakeAdapter) ChainID(ctx context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return nil, err
	}
	return new(big.Int).Set(f.Chain), nil
}
