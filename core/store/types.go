// Package store defines the persisted entities of the stored-transaction
// service, the chunked event scanner and the holder balance ledger, plus the
// repository interfaces a concrete backend must satisfy. Two backends are
// shipped: pg (Postgres via pgx, the durable reference) and memstore (plain
// maps, used by unit tests).
package store

import (
	"math/big"
	"time"

	"github.com/holiman/uint256"
)

// NullAddress is the well-known sentinel meaning "mint source" when an
// issuance event does not name a from-address.
var NullAddress = [20]byte{}

// Address is a 20-byte EVM account address.
type Address = [20]byte

// Hash is a 32-byte transaction or block hash.
type Hash = [32]byte

// BroadcastAccount is the (network, address) pair under which this system
// issues outbound transactions. current_nonce is the next free nonce.
type BroadcastAccount struct {
	ID           int64
	Network      string
	Address      Address
	CurrentNonce uint64
	CreatedAt    time.Time
}

// PreparedTransaction captures the full lifecycle of one outbound
// transaction from allocation to receipt, and optionally to source-code
// verification.
type PreparedTransaction struct {
	ID                int64
	AccountID         int64
	Nonce             uint64
	ContractDeployment bool
	Receiver          *Address
	ContractAddress   *Address
	UnsignedPayload   []byte
	ExternalID        *string
	TxID              *Hash
	BroadcastedAt     *time.Time
	ResultBlock       *uint64
	ResultSuccess     *bool
	ResultFetchedAt   *time.Time
	VerifiedAt        *time.Time
	OtherData         OtherData
	CreatedAt         time.Time
}

// OtherData is the free-form payload attached to a PreparedTransaction.
// ExtraData.ContractAddress records an upstream contract address this
// transaction's payload embedded, so restart_nonce can patch it when the
// upstream deployment is renumbered.
type OtherData struct {
	Note      string         `json:"note,omitempty"`
	FuncName  string         `json:"func_name,omitempty"`
	ExtraData ExtraData      `json:"extra_data,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// ExtraData holds cross-transaction bookkeeping that isn't part of the
// on-chain payload itself.
type ExtraData struct {
	ContractAddress *Address `json:"contract_address,omitempty"`
}

// TxStatus is the observational state of a PreparedTransaction, derived from
// its fields rather than stored directly.
type TxStatus string

const (
	TxWaiting     TxStatus = "waiting"
	TxBroadcasted TxStatus = "broadcasted"
	TxMining      TxStatus = "mining"
	TxSuccess     TxStatus = "success"
	TxFailed      TxStatus = "failed"
	TxVerified    TxStatus = "verified"
)

// Status derives the current lifecycle state of the transaction.
func (p *PreparedTransaction) Status() TxStatus {
	switch {
	case p.VerifiedAt != nil:
		return TxVerified
	case p.ResultSuccess != nil && !*p.ResultSuccess:
		return TxFailed
	case p.ResultSuccess != nil && *p.ResultSuccess:
		return TxSuccess
	case p.BroadcastedAt != nil && p.ResultFetchedAt != nil:
		return TxMining
	case p.BroadcastedAt != nil:
		return TxBroadcasted
	default:
		return TxWaiting
	}
}

// TokenScanStatus is the per-token scan cursor and cached contract metadata.
type TokenScanStatus struct {
	ID                int64
	Network           string
	TokenAddress      Address
	StartBlock        *uint64
	EndBlock          *uint64
	EndBlockTimestamp *time.Time
	Name              string
	Symbol            string
	Decimals          uint8
	TotalSupply       *uint256.Int
}

// HolderAccount is one address's denormalised position within a token scan.
type HolderAccount struct {
	ID                  int64
	ScanID              int64
	Address             Address
	Balance             *SignedUint256
	Empty               bool
	BalanceCalculatedAt *time.Time
	LastBlock           uint64
	LastBlockAt         *time.Time
}

// HolderDelta is a signed balance change for one address attributable to
// one log event.
type HolderDelta struct {
	ID              int64
	AccountID       int64
	BlockNum        uint64
	BlockTimestamp  time.Time
	TxID            Hash
	TxInternalOrder uint32 // log index
	RawDelta        *uint256.Int
	Sign            int8 // +1 or -1
}

// SignedUint256 is a uint256 magnitude with a separate sign bit, the
// reference storage layout for balances that must preserve the full 256-bit
// range while still allowing negative values (spec §4.3).
type SignedUint256 struct {
	Mag *uint256.Int
	Neg bool
}

// ZeroSigned returns the zero value.
func ZeroSigned() *SignedUint256 {
	return &SignedUint256{Mag: new(uint256.Int)}
}

// IsZero reports whether the magnitude is zero (sign is irrelevant at zero).
func (s *SignedUint256) IsZero() bool {
	return s == nil || s.Mag == nil || s.Mag.IsZero()
}

// Big converts to a signed math/big.Int, the natural type for summing a
// mixed-sign delta stream without overflow surprises.
func (s *SignedUint256) Big() *big.Int {
	if s == nil || s.Mag == nil {
		return new(big.Int)
	}
	b := s.Mag.ToBig()
	if s.Neg {
		b.Neg(b)
	}
	return b
}

// SignedFromBig decomposes a signed math/big.Int back into a magnitude and
// sign bit, erroring if the magnitude does not fit in 256 bits.
func SignedFromBig(b *big.Int) (*SignedUint256, error) {
	mag := new(big.Int).Abs(b)
	u, overflow := uint256.FromBig(mag)
	if overflow {
		return nil, errOverflow
	}
	return &SignedUint256{Mag: u, Neg: b.Sign() < 0}, nil
}
