package txservice

import (
	"context"
	"math/big"
	"strings"
	"testing"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/synnergy-network/sto-engine/core/abi"
	"github.com/synnergy-network/sto-engine/core/chain"
	"github.com/synnergy-network/sto-engine/core/errs"
	"github.com/synnergy-network/sto-engine/core/store"
	"github.com/synnergy-network/sto-engine/core/store/memstore"
)

const tokenABI = `[
	{"type":"constructor","inputs":[{"name":"initialSupply","type":"uint256"}]},
	{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"type":"bool"}]},
	{"type":"function","name":"balanceOf","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

func testBundle(t *testing.T) abi.Bundle {
	t.Helper()
	parsed, err := gethabi.JSON(strings.NewReader(tokenABI))
	if err != nil {
		t.Fatalf("parse test abi: %v", err)
	}
	return abi.Bundle{
		"SecurityToken": {Name: "SecurityToken", ABI: parsed, Bytecode: []byte{0x60, 0x80, 0x60, 0x40}},
	}
}

func testService(t *testing.T) (*Service, *chain.FakeAdapter, store.Store) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	st := memstore.New()
	ad := chain.NewFakeAdapter()
	svc, err := New(st, ad, testBundle(t), key, Config{Network: "sepolia"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc, ad, st
}

func TestDeployContract_PersistsPayloadAndDerivesAddress(t *testing.T) {
	svc, _, _ := testService(t)
	ctx := context.Background()

	tx, err := svc.DeployContract(ctx, "SecurityToken", []any{bigAmount(1_000_000)}, "initial issuance")
	if err != nil {
		t.Fatalf("DeployContract: %v", err)
	}
	if tx.Nonce != 0 {
		t.Fatalf("nonce = %d, want 0", tx.Nonce)
	}
	if tx.ContractAddress == nil {
		t.Fatalf("expected derived contract address")
	}
	if len(tx.UnsignedPayload) == 0 {
		t.Fatalf("expected non-empty unsigned payload")
	}
	if tx.OtherData.Fields["gas_limit"] != DefaultDeployGasLimit {
		t.Fatalf("gas_limit = %v, want %d", tx.OtherData.Fields["gas_limit"], DefaultDeployGasLimit)
	}

	tx2, err := svc.DeployContract(ctx, "SecurityToken", []any{bigAmount(1)}, "second deploy")
	if err != nil {
		t.Fatalf("second DeployContract: %v", err)
	}
	if tx2.Nonce != 1 {
		t.Fatalf("second nonce = %d, want 1", tx2.Nonce)
	}
	if *tx2.ContractAddress == *tx.ContractAddress {
		t.Fatalf("expected distinct derived addresses for distinct nonces")
	}
}

func TestAllocateNonce_DetectsDesync(t *testing.T) {
	svc, ad, _ := testService(t)
	ctx := context.Background()

	ad.NonceByAddr[svc.address] = 5 // chain disagrees with the fresh store's nonce of 0

	_, err := svc.DeployContract(ctx, "SecurityToken", []any{bigAmount(1)}, "")
	if err == nil || !errorIs(err, errs.ErrNonceDesync) {
		t.Fatalf("DeployContract err = %v, want ErrNonceDesync", err)
	}
}

func TestDistributeTokens_RejectsDuplicateExternalID(t *testing.T) {
	svc, _, _ := testService(t)
	ctx := context.Background()

	token := store.Address{0xAA}
	receiver := store.Address{0xBB}
	amount := uint256.NewInt(500)

	if _, err := svc.DistributeTokens(ctx, "payroll-2026-07", token, receiver, amount, "payout"); err != nil {
		t.Fatalf("first DistributeTokens: %v", err)
	}
	if _, err := svc.DistributeTokens(ctx, "payroll-2026-07", token, receiver, amount, "payout"); err == nil || !errorIs(err, errs.ErrAlreadyDistributed) {
		t.Fatalf("second DistributeTokens err = %v, want ErrAlreadyDistributed", err)
	}

	distributed, err := svc.IsDistributed(ctx, "payroll-2026-07", token)
	if err != nil || !distributed {
		t.Fatalf("IsDistributed = %v, %v, want true, nil", distributed, err)
	}
}

func TestBroadcast_SignsAndRecordsHash(t *testing.T) {
	svc, ad, _ := testService(t)
	ctx := context.Background()

	tx, err := svc.DeployContract(ctx, "SecurityToken", []any{bigAmount(1)}, "")
	if err != nil {
		t.Fatalf("DeployContract: %v", err)
	}
	if err := svc.Broadcast(ctx, tx); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if tx.TxID == nil {
		t.Fatalf("expected TxID to be set after broadcast")
	}
	if tx.BroadcastedAt == nil {
		t.Fatalf("expected BroadcastedAt to be set")
	}
	if len(ad.SentTxs) != 1 {
		t.Fatalf("SentTxs = %d, want 1", len(ad.SentTxs))
	}
	var decoded types.Transaction
	if err := decoded.UnmarshalBinary(ad.SentTxs[0]); err != nil {
		t.Fatalf("decode sent raw tx: %v", err)
	}
	if decoded.Nonce() != tx.Nonce {
		t.Fatalf("sent nonce = %d, want %d", decoded.Nonce(), tx.Nonce)
	}
}

func TestRestartNonce_RewritesQueuedNonces(t *testing.T) {
	svc, ad, st := testService(t)
	ctx := context.Background()

	tx1, err := svc.DeployContract(ctx, "SecurityToken", []any{bigAmount(1)}, "")
	if err != nil {
		t.Fatalf("DeployContract 1: %v", err)
	}
	tx2, err := svc.DeployContract(ctx, "SecurityToken", []any{bigAmount(2)}, "")
	if err != nil {
		t.Fatalf("DeployContract 2: %v", err)
	}
	if tx1.Nonce != 0 || tx2.Nonce != 1 {
		t.Fatalf("expected nonces 0,1, got %d,%d", tx1.Nonce, tx2.Nonce)
	}

	// Simulate three transactions having actually landed on chain that this
	// store never learned about.
	ad.NonceByAddr[svc.address] = 3

	if err := svc.RestartNonce(ctx); err != nil {
		t.Fatalf("RestartNonce: %v", err)
	}

	acct, err := st.GetOrCreateAccount(ctx, "sepolia", store.Address(svc.address))
	if err != nil {
		t.Fatalf("GetOrCreateAccount: %v", err)
	}
	if acct.CurrentNonce != 5 {
		t.Fatalf("CurrentNonce = %d, want 5", acct.CurrentNonce)
	}

	rewritten, err := st.GetByNonce(ctx, acct.ID, 3)
	if err != nil {
		t.Fatalf("GetByNonce(3): %v", err)
	}
	if rewritten.ID != tx1.ID {
		t.Fatalf("expected first queued tx to land on nonce 3")
	}
	if *rewritten.ContractAddress == *tx1.ContractAddress {
		t.Fatalf("expected derived address to change along with the nonce")
	}

	second, err := st.GetByNonce(ctx, acct.ID, 4)
	if err != nil {
		t.Fatalf("GetByNonce(4): %v", err)
	}
	if second.ID != tx2.ID {
		t.Fatalf("expected second queued tx to land on nonce 4")
	}
}

func errorIs(err, target error) bool {
	for err != nil {
		if err == target {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func bigAmount(n int64) *big.Int { return big.NewInt(n) }
