package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/synnergy-network/sto-engine/core/errs"
)

var _ Adapter = (*EthAdapter)(nil)

// EthAdapter is the reference Adapter implementation: a thin wrapper over
// go-ethereum's ethclient, adding a per-call timeout and mapping transient
// network failures to errs.ErrRPCTransient. It never validates block
// headers, so PoA extra-data fields pass through untouched.
type EthAdapter struct {
	client  *ethclient.Client
	timeout time.Duration
}

// DialContext connects to a JSON-RPC endpoint (http(s):// or ws(s)://) and
// returns a ready-to-use EthAdapter. timeout bounds every subsequent RPC
// call; pass 0 to fall back to 30 seconds.
func DialContext(ctx context.Context, rawurl string, timeout time.Duration) (*EthAdapter, error) {
	if rawurl == "" {
		return nil, errs.ErrNoNodeConfigured
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client, err := ethclient.DialContext(ctx, rawurl)
	if err != nil {
		return nil, err
	}
	return &EthAdapter{client: client, timeout: timeout}, nil
}

func (a *EthAdapter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.timeout)
}

func (a *EthAdapter) SendRawTransaction(ctx context.Context, signed []byte) (common.Hash, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	tx, err := decodeSignedTx(signed)
	if err != nil {
		return common.Hash{}, err
	}
	if err := a.client.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, wrapTransient(err)
	}
	return tx.Hash(), nil
}

func (a *EthAdapter) TransactionCount(ctx context.Context, addr common.Address) (uint64, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	n, err := a.client.PendingNonceAt(ctx, addr)
	if err != nil {
		return 0, wrapTransient(err)
	}
	return n, nil
}

func (a *EthAdapter) TransactionReceipt(ctx context.Context, txHash common.Hash) (Receipt, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	rcpt, err := a.client.TransactionReceipt(ctx, txHash)
	if err == ethereum.NotFound {
		return Receipt{Found: false}, nil
	}
	if err != nil {
		return Receipt{}, wrapTransient(err)
	}
	return Receipt{
		BlockNumber: rcpt.BlockNumber.Uint64(),
		Success:     rcpt.Status == 1,
		Found:       true,
	}, nil
}

func (a *EthAdapter) BlockTimestamp(ctx context.Context, blockNum uint64) (int64, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	hdr, err := a.client.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNum))
	if err != nil {
		return 0, wrapTransient(err)
	}
	return int64(hdr.Time), nil
}

func (a *EthAdapter) HeadBlockNumber(ctx context.Context) (uint64, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	n, err := a.client.BlockNumber(ctx)
	if err != nil {
		return 0, wrapTransient(err)
	}
	return n, nil
}

func (a *EthAdapter) FilterLogs(ctx context.Context, q FilterQuery) ([]Log, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(q.FromBlock),
		ToBlock:   new(big.Int).SetUint64(q.ToBlock),
		Addresses: []common.Address{q.Address},
		Topics:    q.Topics,
	}
	raw, err := a.client.FilterLogs(ctx, query)
	if err != nil {
		return nil, wrapTransient(err)
	}
	out := make([]Log, 0, len(raw))
	for _, l := range raw {
		logIdx := l.Index
		var idxPtr *uint32
		if !l.Removed {
			v := uint32(logIdx)
			idxPtr = &v
		}
		out = append(out, Log{
			Address:     l.Address,
			Topics:      l.Topics,
			Data:        l.Data,
			BlockNumber: l.BlockNumber,
			TxHash:      l.TxHash,
			LogIndex:    idxPtr,
		})
	}
	return out, nil
}

func (a *EthAdapter) CallContract(ctx context.Context, msg CallMsg) ([]byte, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	out, err := a.client.CallContract(ctx, ethereum.CallMsg{To: &msg.To, Data: msg.Data}, nil)
	if err != nil {
		return nil, wrapTransient(err)
	}
	return out, nil
}

func (a *EthAdapter) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	p, err := a.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, wrapTransient(err)
	}
	return p, nil
}

func (a *EthAdapter) ChainID(ctx context.Context) (*big.Int, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	id, err := a.client.ChainID(ctx)
	if err != nil {
		return nil, wrapTransient(err)
	}
	return id, nil
}

func wrapTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{cause: err}
}

type transientError struct{ cause error }

func (e *transientError) Error() string { return "rpc transient: " + e.cause.Error() }
func (e *transientError) Unwrap() error { return e.cause }
func (e *transientError) Is(target error) bool {
	return target == errs.ErrRPCTransient
}
