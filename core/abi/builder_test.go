package abi

import (
	"math/big"
	"strings"
	"testing"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

func TestDeriveContractAddress_MatchesStandardRule(t *testing.T) {
	sender := common.HexToAddress("0x6ac7ea33f8831ea9dcc53393aaa88b25a785dbf0")
	cases := []struct {
		nonce uint64
		want  string
	}{
		{0, "0xcd234a471b72ba2f1ccf0a70fcaba648a5eecd8d"},
		{1, "0x343c43a37d37dff08ae8c4a11544c718abb4fcf8"},
		{2, "0xf778b86fa74e846c4f0a1fbd1335fe81c00a0c91"},
	}
	for _, c := range cases {
		got, err := DeriveContractAddress(sender, c.nonce)
		if err != nil {
			t.Fatalf("DeriveContractAddress(nonce=%d): %v", c.nonce, err)
		}
		if !strings.EqualFold(got.Hex(), c.want) {
			t.Fatalf("nonce=%d: got %s, want %s", c.nonce, got.Hex(), c.want)
		}
	}
}

const erc20ABI = `[
	{"type":"constructor","inputs":[{"name":"initialSupply","type":"uint256"}]},
	{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"type":"bool"}]},
	{"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]}
]`

func testArtifact(t *testing.T) *Artifact {
	t.Helper()
	parsed, err := gethabi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		t.Fatalf("parse test abi: %v", err)
	}
	return &Artifact{Name: "TestToken", ABI: parsed, Bytecode: []byte{0x60, 0x80, 0x60, 0x40}}
}

func TestBuilder_ResolveUnknownFunction(t *testing.T) {
	b := NewBuilder(testArtifact(t))
	if _, err := b.Resolve("doesNotExist"); err == nil {
		t.Fatalf("expected error resolving unknown function")
	}
}

func TestBuilder_EncodeCall(t *testing.T) {
	b := NewBuilder(testArtifact(t))
	to := common.HexToAddress("0x0bdcC4c42cFF80036B33b97Cea0e0406A24592a6")
	payload, err := b.EncodeCall("transfer", to, bigAmount(300))
	if err != nil {
		t.Fatalf("EncodeCall: %v", err)
	}
	// 4-byte selector + 2 * 32-byte encoded args.
	if len(payload) != 4+32+32 {
		t.Fatalf("payload length = %d, want %d", len(payload), 4+32+32)
	}
}

func TestBuilder_EncodeDeploy(t *testing.T) {
	b := NewBuilder(testArtifact(t))
	payload, err := b.EncodeDeploy(bigAmount(9999))
	if err != nil {
		t.Fatalf("EncodeDeploy: %v", err)
	}
	if len(payload) != 4+32 { // bytecode (4 bytes here) + packed constructor arg
		t.Fatalf("payload length = %d, want %d", len(payload), 4+32)
	}
}

func bigAmount(n int64) *big.Int {
	return big.NewInt(n)
}
