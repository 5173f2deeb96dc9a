// Package txservice implements the stored-transaction service (spec §4.1):
// the single writer for one (network, signing address) pair that allocates
// nonces, persists unsigned payloads, and later signs and broadcasts them.
package txservice

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/synnergy-network/sto-engine/core/abi"
	"github.com/synnergy-network/sto-engine/core/chain"
	"github.com/synnergy-network/sto-engine/core/errs"
	"github.com/synnergy-network/sto-engine/core/store"
)

// Service is the stored-transaction service bound to one signing key. All
// its methods are safe for concurrent use; the underlying Store is the
// actual serialization point (spec §5 "single writer" invariant).
type Service struct {
	store   store.Store
	adapter chain.Adapter
	bundle  abi.Bundle
	signer  *ecdsa.PrivateKey
	address common.Address
	cfg     Config
	log     *logrus.Logger
}

// New returns a Service that signs with key and persists through st. log may
// be nil, in which case a disabled logger is used.
func New(st store.Store, ad chain.Adapter, bundle abi.Bundle, key *ecdsa.PrivateKey, cfg Config, log *logrus.Logger) (*Service, error) {
	if key == nil {
		return nil, errs.ErrNeedPrivateKey
	}
	if log == nil {
		log = logrus.New()
		log.SetOutput(logrusDiscard{})
	}
	pub, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("derive public key: %w", errs.ErrNeedPrivateKey)
	}
	return &Service{
		store:   st,
		adapter: ad,
		bundle:  bundle,
		signer:  key,
		address: common.PubkeyToAddress(*pub),
		cfg:     cfg,
		log:     log,
	}, nil
}

// Address returns the account this service signs for.
func (s *Service) Address() store.Address { return store.Address(s.address) }

func (s *Service) account(ctx context.Context) (*store.BroadcastAccount, error) {
	return s.store.GetOrCreateAccount(ctx, s.cfg.Network, store.Address(s.address))
}

// allocateNonce checks the account is in sync with the chain and then
// allocates the next nonce. A chain transaction count ahead of the stored
// counter is surfaced as errs.ErrNonceDesync, not silently logged; a count
// behind it is normal while allocated transactions await broadcast.
func (s *Service) allocateNonce(ctx context.Context, acct *store.BroadcastAccount) (uint64, error) {
	chainCount, err := s.adapter.TransactionCount(ctx, s.address)
	if err != nil {
		return 0, fmt.Errorf("check chain nonce: %w", err)
	}
	if chainCount > acct.CurrentNonce {
		s.log.WithFields(logrus.Fields{
			"network":      s.cfg.Network,
			"address":      s.address.Hex(),
			"store_nonce":  acct.CurrentNonce,
			"chain_nonce":  chainCount,
		}).Error("nonce desync detected")
		return 0, errs.ErrNonceDesync
	}
	return s.store.AllocateNonce(ctx, acct.ID)
}

// DeployContract allocates a nonce and persists the unsigned deployment
// payload for contractName's constructor(args...). It does not broadcast.
func (s *Service) DeployContract(ctx context.Context, contractName string, args []any, note string) (*store.PreparedTransaction, error) {
	return s.allocateAndPersist(ctx, contractName, "", args, note, true, nil, nil)
}

// InteractWithContract allocates a nonce and persists the unsigned calldata
// for funcName against the already-deployed contract at address.
func (s *Service) InteractWithContract(ctx context.Context, contractName string, address store.Address, funcName string, args []any, note string, receiver *store.Address) (*store.PreparedTransaction, error) {
	return s.allocateAndPersist(ctx, contractName, funcName, args, note, false, &address, receiver)
}

// DistributeTokens is a convenience wrapper over InteractWithContract for a
// standard ERC-20-shaped transfer, tagged with externalID so a caller can
// safely retry without double-spending: IsDistributed lets it check first.
func (s *Service) DistributeTokens(ctx context.Context, externalID string, tokenAddress store.Address, receiver store.Address, rawAmount *uint256.Int, note string) (*store.PreparedTransaction, error) {
	if rawAmount == nil || rawAmount.IsZero() {
		return nil, errs.ErrInvalidAmount
	}
	if existing, err := s.store.GetByExternalID(ctx, externalID, tokenAddress); err != nil && err != store.ErrNotFound {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("%w: external id %s", errs.ErrAlreadyDistributed, externalID)
	}

	tx, err := s.allocateAndPersist(ctx, s.cfg.tokenContractName(), "transfer",
		[]any{common.Address(receiver), rawAmount.ToBig()}, note, false, &tokenAddress, &receiver)
	if err != nil {
		return nil, err
	}
	tx.ExternalID = &externalID
	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// IsDistributed reports whether externalID already has a recorded
// transaction against contractAddress.
func (s *Service) IsDistributed(ctx context.Context, externalID string, contractAddress store.Address) (bool, error) {
	_, err := s.store.GetByExternalID(ctx, externalID, contractAddress)
	if err == store.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) allocateAndPersist(ctx context.Context, contractName, funcName string, args []any, note string, isDeploy bool, contractAddr, receiver *store.Address) (*store.PreparedTransaction, error) {
	art, err := s.bundle.Get(contractName)
	if err != nil {
		return nil, err
	}
	builder := abi.NewBuilder(art)

	acct, err := s.account(ctx)
	if err != nil {
		return nil, err
	}
	nonce, err := s.allocateNonce(ctx, acct)
	if err != nil {
		return nil, err
	}

	pt := &store.PreparedTransaction{
		AccountID:          acct.ID,
		Nonce:              nonce,
		ContractDeployment: isDeploy,
		Receiver:           receiver,
		OtherData: store.OtherData{
			Note:     note,
			FuncName: funcName,
			Fields:   map[string]any{"contract_name": contractName},
		},
		CreatedAt: nowFunc(),
	}

	if isDeploy {
		payload, err := builder.EncodeDeploy(args...)
		if err != nil {
			return nil, err
		}
		derived, err := abi.DeriveContractAddress(s.address, nonce)
		if err != nil {
			return nil, err
		}
		derivedAddr := store.Address(derived)
		pt.ContractAddress = &derivedAddr
		pt.UnsignedPayload = payload
		pt.OtherData.Fields["gas_limit"] = s.cfg.deployGasLimit()
	} else {
		payload, err := builder.EncodeCall(funcName, args...)
		if err != nil {
			return nil, err
		}
		pt.ContractAddress = contractAddr
		pt.UnsignedPayload = payload
		pt.OtherData.Fields["gas_limit"] = s.cfg.interactionGasLimit()
	}

	if err := s.store.InsertTransaction(ctx, pt); err != nil {
		return nil, err
	}
	return pt, nil
}

// GetPendingBroadcasts returns this account's not-yet-broadcast transactions
// in ascending nonce order.
func (s *Service) GetPendingBroadcasts(ctx context.Context) ([]*store.PreparedTransaction, error) {
	acct, err := s.account(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.PendingBroadcasts(ctx, acct.ID)
}

// GetUnminedTxs returns broadcasted transactions with no recorded receipt.
func (s *Service) GetUnminedTxs(ctx context.Context) ([]*store.PreparedTransaction, error) {
	acct, err := s.account(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.Unmined(ctx, acct.ID)
}

// GetLastTransactions returns the account's most recently created
// transactions, newest first.
func (s *Service) GetLastTransactions(ctx context.Context, limit int) ([]*store.PreparedTransaction, error) {
	acct, err := s.account(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.Recent(ctx, acct.ID, limit)
}

// Broadcast signs tx's unsigned payload and sends it to the chain, then
// stamps BroadcastedAt and the resulting hash.
func (s *Service) Broadcast(ctx context.Context, tx *store.PreparedTransaction) error {
	if tx.BroadcastedAt != nil {
		return fmt.Errorf("transaction %d already broadcast", tx.ID)
	}
	raw, hash, err := s.sign(ctx, tx)
	if err != nil {
		return err
	}
	sentHash, err := s.adapter.SendRawTransaction(ctx, raw)
	if err != nil {
		return fmt.Errorf("broadcast: %w", err)
	}
	if sentHash != hash {
		hash = sentHash
	}
	h := store.Hash(hash)
	now := nowFunc()
	tx.TxID = &h
	tx.BroadcastedAt = &now
	return s.store.UpdateTransaction(ctx, tx)
}

// UpdateStatus polls the chain for tx's receipt and, once mined, records the
// result block and success flag.
func (s *Service) UpdateStatus(ctx context.Context, tx *store.PreparedTransaction) error {
	if tx.TxID == nil {
		return fmt.Errorf("transaction %d has not been broadcast", tx.ID)
	}
	rcpt, err := s.adapter.TransactionReceipt(ctx, common.Hash(*tx.TxID))
	if err != nil {
		return fmt.Errorf("fetch receipt: %w", err)
	}
	now := nowFunc()
	if !rcpt.Found {
		tx.ResultFetchedAt = &now
		return s.store.UpdateTransaction(ctx, tx)
	}
	block := rcpt.BlockNumber
	success := rcpt.Success
	tx.ResultBlock = &block
	tx.ResultSuccess = &success
	tx.ResultFetchedAt = &now
	return s.store.UpdateTransaction(ctx, tx)
}

// EnsureAccountsInSync compares the store's current_nonce against the
// chain-reported transaction count for this service's account and returns
// errs.ErrNonceDesync on mismatch, rather than only logging it (open
// question resolved in favour of a hard failure: a caller that ignores the
// return value is exactly the caller that would otherwise allocate a
// doomed nonce).
func (s *Service) EnsureAccountsInSync(ctx context.Context) error {
	acct, err := s.account(ctx)
	if err != nil {
		return err
	}
	chainCount, err := s.adapter.TransactionCount(ctx, s.address)
	if err != nil {
		return fmt.Errorf("check chain nonce: %w", err)
	}
	if chainCount != acct.CurrentNonce {
		return fmt.Errorf("%w: store=%d chain=%d", errs.ErrNonceDesync, acct.CurrentNonce, chainCount)
	}
	return nil
}

// GetRawTokenBalance performs a read-only balanceOf call against token for
// address, using the service's configured standard token ABI.
func (s *Service) GetRawTokenBalance(ctx context.Context, token store.Address, address store.Address) (*uint256.Int, error) {
	art, err := s.bundle.Get(s.cfg.tokenContractName())
	if err != nil {
		return nil, err
	}
	builder := abi.NewBuilder(art)
	data, err := builder.EncodeCall("balanceOf", common.Address(address))
	if err != nil {
		return nil, err
	}
	out, err := s.adapter.CallContract(ctx, chain.CallMsg{To: common.Address(token), Data: data})
	if err != nil {
		return nil, err
	}
	results, err := art.ABI.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("unpack balanceOf result: %w", err)
	}
	if len(results) != 1 {
		return nil, fmt.Errorf("balanceOf: unexpected result shape")
	}
	amount, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf: unexpected result type %T", results[0])
	}
	u, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, fmt.Errorf("balanceOf: result overflows uint256")
	}
	return u, nil
}

var nowFunc = time.Now

type logrusDiscard struct{}

func (logrusDiscard) Write(p []byte) (int, error) { return len(p), nil }
