package txservice

import (
	"bytes"
	"context"
	"fmt"

	"github.com/synnergy-network/sto-engine/core/abi"
	"github.com/synnergy-network/sto-engine/core/store"
)

// RestartNonce re-anchors the account's nonce counter to the chain-reported
// transaction count and rewrites every not-yet-broadcast transaction to
// occupy the new contiguous nonce range, in the order they were originally
// queued. Contract-creation transactions get their derived contract address
// recomputed for the new nonce, and every queued payload that referenced an
// old derived address (via OtherData.ExtraData.ContractAddress) has that
// reference patched in place, both in the stored field and in the raw
// ABI-encoded payload bytes.
func (s *Service) RestartNonce(ctx context.Context) error {
	acct, err := s.account(ctx)
	if err != nil {
		return err
	}
	chainCount, err := s.adapter.TransactionCount(ctx, s.address)
	if err != nil {
		return fmt.Errorf("check chain nonce: %w", err)
	}

	queued, err := s.store.QueuedForAccount(ctx, acct.ID)
	if err != nil {
		return err
	}

	addrRewrite := make(map[store.Address]store.Address)
	nonce := chainCount
	for _, tx := range queued {
		oldAddr := tx.ContractAddress
		tx.Nonce = nonce
		if tx.ContractDeployment {
			derived, err := abi.DeriveContractAddress(s.address, nonce)
			if err != nil {
				return fmt.Errorf("rederive contract address for tx %d: %w", tx.ID, err)
			}
			newAddr := store.Address(derived)
			tx.ContractAddress = &newAddr
			if oldAddr != nil {
				addrRewrite[*oldAddr] = newAddr
			}
		}
		nonce++
	}

	for _, tx := range queued {
		if tx.OtherData.ExtraData.ContractAddress == nil {
			continue
		}
		oldRef := *tx.OtherData.ExtraData.ContractAddress
		newRef, rewritten := addrRewrite[oldRef]
		if !rewritten {
			continue
		}
		tx.UnsignedPayload = patchAddressReference(tx.UnsignedPayload, oldRef, newRef)
		tx.OtherData.ExtraData.ContractAddress = &newRef
	}

	for _, tx := range queued {
		if err := s.store.UpdateTransaction(ctx, tx); err != nil {
			return fmt.Errorf("persist rewritten tx %d: %w", tx.ID, err)
		}
	}

	return s.store.SetNonce(ctx, acct.ID, nonce)
}

// patchAddressReference replaces every ABI-encoded occurrence of oldAddr (a
// 20-byte address left-padded to a 32-byte word, the standard static
// encoding) with newAddr, similarly padded.
func patchAddressReference(payload []byte, oldAddr, newAddr store.Address) []byte {
	oldWord := make([]byte, 32)
	copy(oldWord[12:], oldAddr[:])
	newWord := make([]byte, 32)
	copy(newWord[12:], newAddr[:])
	return bytes.ReplaceAll(payload, oldWord, newWord)
}
