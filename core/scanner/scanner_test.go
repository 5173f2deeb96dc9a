package scanner

import (
	"context"
	"math/big"
	"strings"
	"testing"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/synnergy-network/sto-engine/core/abi"
	"github.com/synnergy-network/sto-engine/core/chain"
	"github.com/synnergy-network/sto-engine/core/store"
	"github.com/synnergy-network/sto-engine/core/store/memstore"
)

const tokenABI = `[
	{"type":"function","name":"name","inputs":[],"outputs":[{"type":"string"}]},
	{"type":"function","name":"symbol","inputs":[],"outputs":[{"type":"string"}]},
	{"type":"function","name":"decimals","inputs":[],"outputs":[{"type":"uint8"}]},
	{"type":"function","name":"totalSupply","inputs":[],"outputs":[{"type":"uint256"}]},
	{"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]}
]`

func testBundle(t *testing.T) (abi.Bundle, *abi.Artifact) {
	t.Helper()
	parsed, err := gethabi.JSON(strings.NewReader(tokenABI))
	if err != nil {
		t.Fatalf("parse test abi: %v", err)
	}
	art := &abi.Artifact{Name: "SecurityToken", ABI: parsed}
	return abi.Bundle{"SecurityToken": art}, art
}

func selectorFor(t *testing.T, art *abi.Artifact, method string) [4]byte {
	t.Helper()
	data, err := abi.NewBuilder(art).EncodeCall(method)
	if err != nil {
		t.Fatalf("encode %s: %v", method, err)
	}
	var sel [4]byte
	copy(sel[:], data[:4])
	return sel
}

func packReturn(t *testing.T, art *abi.Artifact, method string, values ...any) []byte {
	t.Helper()
	m := art.ABI.Methods[method]
	out, err := m.Outputs.Pack(values...)
	if err != nil {
		t.Fatalf("pack %s return: %v", method, err)
	}
	return out
}

func setupMetadata(t *testing.T, ad *chain.FakeAdapter, art *abi.Artifact, token common.Address) {
	t.Helper()
	ad.CallResultsBySelector = map[common.Address]map[[4]byte][]byte{
		token: {
			selectorFor(t, art, "name"):        packReturn(t, art, "name", "Moo Corp"),
			selectorFor(t, art, "symbol"):      packReturn(t, art, "symbol", "MOO"),
			selectorFor(t, art, "decimals"):    packReturn(t, art, "decimals", uint8(18)),
			selectorFor(t, art, "totalSupply"): packReturn(t, art, "totalSupply", big.NewInt(9999)),
		},
	}
}

func transferValue(v int64) []byte {
	word := make([]byte, 32)
	big.NewInt(v).FillBytes(word)
	return word
}

func logIdx(i uint32) *uint32 { return &i }

func TestScan_MintCreatesCreditOnlyNoDebit(t *testing.T) {
	ctx := context.Background()
	bundle, art := testBundle(t)
	ad := chain.NewFakeAdapter()
	st := memstore.New()

	token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	deployer := common.HexToAddress("0x2222222222222222222222222222222222222222")
	setupMetadata(t, ad, art, token)

	transferSig := art.ABI.Events["Transfer"].ID
	ad.Logs = []chain.Log{
		{
			Address:     token,
			BlockNumber: 5,
			TxHash:      common.HexToHash("0x01"),
			LogIndex:    logIdx(0),
			Topics:      []common.Hash{transferSig, common.Hash{}, common.BytesToHash(deployer.Bytes())},
			Data:        transferValue(9999),
		},
	}
	ad.BlockTimes[5] = 1_700_000_000

	sc := New(st, ad, bundle, Config{}, nil)
	balances, err := sc.Scan(ctx, "sepolia", store.Address(token), 1, 10, 0, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	got := balances[store.Address(deployer)]
	if got == nil || got.Cmp(big.NewInt(9999)) != 0 {
		t.Fatalf("deployer balance = %v, want 9999", got)
	}
	if _, ok := balances[store.Address(common.Address{})]; ok {
		t.Fatalf("did not expect a debit delta against the null address")
	}
}

func TestScan_TransferMovesBalanceBetweenHolders(t *testing.T) {
	ctx := context.Background()
	bundle, art := testBundle(t)
	ad := chain.NewFakeAdapter()
	st := memstore.New()

	token := common.HexToAddress("0x3333333333333333333333333333333333333333")
	a := common.HexToAddress("0x4444444444444444444444444444444444444444")
	b := common.HexToAddress("0x5555555555555555555555555555555555555555")
	setupMetadata(t, ad, art, token)
	transferSig := art.ABI.Events["Transfer"].ID

	ad.Logs = []chain.Log{
		{Address: token, BlockNumber: 1, TxHash: common.HexToHash("0x01"), LogIndex: logIdx(0),
			Topics: []common.Hash{transferSig, common.Hash{}, common.BytesToHash(a.Bytes())}, Data: transferValue(1000)},
		{Address: token, BlockNumber: 2, TxHash: common.HexToHash("0x02"), LogIndex: logIdx(0),
			Topics: []common.Hash{transferSig, common.BytesToHash(a.Bytes()), common.BytesToHash(b.Bytes())}, Data: transferValue(400)},
	}
	ad.BlockTimes[1] = 1_700_000_000
	ad.BlockTimes[2] = 1_700_000_100

	sc := New(st, ad, bundle, Config{}, nil)
	balances, err := sc.Scan(ctx, "sepolia", store.Address(token), 1, 10, 0, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if got := balances[store.Address(a)]; got == nil || got.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("a balance = %v, want 600", got)
	}
	if got := balances[store.Address(b)]; got == nil || got.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("b balance = %v, want 400", got)
	}
}

func TestScan_RescanOverlappingRangeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	bundle, art := testBundle(t)
	ad := chain.NewFakeAdapter()
	st := memstore.New()

	token := common.HexToAddress("0x6666666666666666666666666666666666666666")
	a := common.HexToAddress("0x7777777777777777777777777777777777777777")
	setupMetadata(t, ad, art, token)
	transferSig := art.ABI.Events["Transfer"].ID

	ad.Logs = []chain.Log{
		{Address: token, BlockNumber: 3, TxHash: common.HexToHash("0x01"), LogIndex: logIdx(0),
			Topics: []common.Hash{transferSig, common.Hash{}, common.BytesToHash(a.Bytes())}, Data: transferValue(500)},
	}
	ad.BlockTimes[3] = 1_700_000_000

	sc := New(st, ad, bundle, Config{}, nil)
	if _, err := sc.Scan(ctx, "sepolia", store.Address(token), 1, 10, 0, nil); err != nil {
		t.Fatalf("first scan: %v", err)
	}
	balances, err := sc.Scan(ctx, "sepolia", store.Address(token), 1, 10, 0, nil)
	if err != nil {
		t.Fatalf("rescan: %v", err)
	}
	if got := balances[store.Address(a)]; got == nil || got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("a balance after rescan = %v, want 500 (not doubled)", got)
	}
}

func TestNextChunkSize_ResetsOnEventsGrowsOnEmpty(t *testing.T) {
	cfg := Config{MinChunk: 10, MaxChunk: 1000, IncreaseFactor: 5}
	if got := cfg.nextChunkSize(20, 3); got != 10 {
		t.Fatalf("with events, next = %d, want min_chunk 10", got)
	}
	if got := cfg.nextChunkSize(20, 0); got != 100 {
		t.Fatalf("with no events, next = %d, want 100", got)
	}
	if got := cfg.nextChunkSize(500, 0); got != 1000 {
		t.Fatalf("growth must clamp to max_chunk, got %d", got)
	}
}

func TestGetSuggestedScanStartBlock_ClampsToOne(t *testing.T) {
	ctx := context.Background()
	bundle, _ := testBundle(t)
	ad := chain.NewFakeAdapter()
	st := memstore.New()
	sc := New(st, ad, bundle, Config{}, nil)

	token := store.Address(common.HexToAddress("0x8888888888888888888888888888888888888888"))
	start, err := sc.GetSuggestedScanStartBlock(ctx, "sepolia", token)
	if err != nil {
		t.Fatalf("GetSuggestedScanStartBlock: %v", err)
	}
	if start != 1 {
		t.Fatalf("start = %d, want 1 for a token with no prior scan", start)
	}
}
