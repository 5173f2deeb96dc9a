package pg

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/synnergy-network/sto-engine/core/store"
)

func TestAddrRoundTrip(t *testing.T) {
	var a store.Address
	copy(a[:], []byte{1, 2, 3, 4, 5})

	got := addrFromBytes(addrBytes(a))
	if got != a {
		t.Fatalf("round trip mismatch: got %x, want %x", got, a)
	}
}

func TestAddrPtrNil(t *testing.T) {
	if addrPtrBytes(nil) != nil {
		t.Fatalf("expected nil bytes for nil address pointer")
	}
	if addrPtrFromBytes(nil) != nil {
		t.Fatalf("expected nil pointer for nil bytes")
	}
}

func TestHashRoundTrip(t *testing.T) {
	var h store.Hash
	copy(h[:], []byte("some-tx-hash-bytes"))

	got := hashFromBytes(hashBytes(h))
	if got != h {
		t.Fatalf("round trip mismatch: got %x, want %x", got, h)
	}
}

func TestUint256TextRoundTrip(t *testing.T) {
	u := uint256.NewInt(123456789)
	text := uint256ToText(u)

	got, err := uint256FromText(text)
	if err != nil {
		t.Fatalf("uint256FromText failed: %v", err)
	}
	if got.Cmp(u) != 0 {
		t.Fatalf("round trip mismatch: got %s, want %s", got.Dec(), u.Dec())
	}
}

func TestUint256ToTextNil(t *testing.T) {
	if got := uint256ToText(nil); got != "0" {
		t.Fatalf("expected \"0\" for nil magnitude, got %q", got)
	}
}
