// Package chain defines the RPC adapter the stored-transaction service and
// the chunked event scanner consume from an EVM JSON-RPC endpoint (spec §6),
// and ships a reference implementation backed by go-ethereum's client
// libraries.
package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Receipt is the subset of a transaction receipt the core needs.
type Receipt struct {
	BlockNumber uint64
	Success     bool
	Found       bool
}

// Log is the subset of an eth_getLogs entry the scanner needs. LogIndex is
// a pointer so a pending-block log (logIndex == null) can be distinguished
// from log index zero.
type Log struct {
	Address     common.Address
	Topics      []common.Hash
	Data        []byte
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    *uint32
}

// FilterQuery mirrors go-ethereum's ethereum.FilterQuery, narrowed to what
// the scanner needs: a contract address, a block range, and topics.
type FilterQuery struct {
	Address   common.Address
	FromBlock uint64
	ToBlock   uint64
	Topics    [][]common.Hash
}

// CallMsg is the subset of ethereum.CallMsg needed for read-only eth_call.
type CallMsg struct {
	To   common.Address
	Data []byte
}

// Adapter is every capability the core requires from an EVM JSON-RPC
// endpoint (spec §6). Implementations MUST tolerate PoA-style extra-data
// blocks — this interface never inspects block headers.
type Adapter interface {
	// SendRawTransaction broadcasts a signed transaction and returns its
	// hash.
	SendRawTransaction(ctx context.Context, signed []byte) (common.Hash, error)

	// TransactionCount returns the chain-reported nonce count for addr,
	// i.e. the next free nonce as observed by the node.
	TransactionCount(ctx context.Context, addr common.Address) (uint64, error)

	// TransactionReceipt returns the receipt for txHash. Receipt.Found is
	// false, with no error, if the transaction has not yet mined.
	TransactionReceipt(ctx context.Context, txHash common.Hash) (Receipt, error)

	// BlockTimestamp returns the unix timestamp of blockNum.
	BlockTimestamp(ctx context.Context, blockNum uint64) (int64, error)

	// HeadBlockNumber returns the current chain head.
	HeadBlockNumber(ctx context.Context) (uint64, error)

	// FilterLogs returns every log matching q, in node-returned order.
	FilterLogs(ctx context.Context, q FilterQuery) ([]Log, error)

	// CallContract performs a read-only eth_call.
	CallContract(ctx context.Context, msg CallMsg) ([]byte, error)

	// SuggestGasPrice lets a caller omit an explicit gas price and let the
	// node decide (spec §4.1 "Gas policy").
	SuggestGasPrice(ctx context.Context) (*big.Int, error)

	// ChainID returns the network's chain id, needed to sign EIP-155
	// transactions.
	ChainID(ctx context.Context) (*big.Int, error)
}
