package pg

import (
	"github.com/holiman/uint256"

	"github.com/synnergy-network/sto-engine/core/store"
)

func addrBytes(a store.Address) []byte { return a[:] }

func addrFromBytes(b []byte) store.Address {
	var a store.Address
	copy(a[:], b)
	return a
}

func addrPtrBytes(a *store.Address) []byte {
	if a == nil {
		return nil
	}
	return a[:]
}

func addrPtrFromBytes(b []byte) *store.Address {
	if b == nil {
		return nil
	}
	a := addrFromBytes(b)
	return &a
}

func hashBytes(h store.Hash) []byte { return h[:] }

func hashFromBytes(b []byte) store.Hash {
	var h store.Hash
	copy(h[:], b)
	return h
}

func hashPtrBytes(h *store.Hash) []byte {
	if h == nil {
		return nil
	}
	return h[:]
}

func hashPtrFromBytes(b []byte) *store.Hash {
	if b == nil {
		return nil
	}
	var h store.Hash
	copy(h[:], b)
	return &h
}

func uint256ToText(u *uint256.Int) string {
	if u == nil {
		return "0"
	}
	return u.Dec()
}

func uint256FromText(s string) (*uint256.Int, error) {
	u, err := uint256.FromDecimal(s)
	if err != nil {
		return new(uint256.Int), err
	}
	return u, nil
}
