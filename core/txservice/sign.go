package txservice

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/synnergy-network/sto-engine/core/store"
)

// sign builds and signs the legacy EIP-155 transaction for tx, resolving a
// gas price at the last possible moment (spec §4.1: an operator may have
// configured an explicit price, otherwise the node is asked to suggest one
// right before broadcast, never at allocation time).
func (s *Service) sign(ctx context.Context, tx *store.PreparedTransaction) ([]byte, common.Hash, error) {
	chainID, err := s.adapter.ChainID(ctx)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("fetch chain id: %w", err)
	}
	gasPrice, err := s.resolveGasPrice(ctx)
	if err != nil {
		return nil, common.Hash{}, err
	}
	gasLimit := gasLimitOf(tx)

	var to *common.Address
	if !tx.ContractDeployment {
		if tx.ContractAddress == nil {
			return nil, common.Hash{}, fmt.Errorf("interaction transaction %d has no target address", tx.ID)
		}
		addr := common.Address(*tx.ContractAddress)
		to = &addr
	}

	unsigned := types.NewTx(&types.LegacyTx{
		Nonce:    tx.Nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       to,
		Value:    big.NewInt(0),
		Data:     tx.UnsignedPayload,
	})

	signed, err := types.SignTx(unsigned, types.NewEIP155Signer(chainID), s.signer)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("marshal signed transaction: %w", err)
	}
	return raw, signed.Hash(), nil
}

func (s *Service) resolveGasPrice(ctx context.Context) (*big.Int, error) {
	if s.cfg.ExplicitGasPrice != nil {
		p, ok := new(big.Int).SetString(*s.cfg.ExplicitGasPrice, 10)
		if !ok {
			return nil, fmt.Errorf("invalid configured gas price %q", *s.cfg.ExplicitGasPrice)
		}
		return p, nil
	}
	return s.adapter.SuggestGasPrice(ctx)
}

func gasLimitOf(tx *store.PreparedTransaction) uint64 {
	raw, ok := tx.OtherData.Fields["gas_limit"]
	if !ok {
		if tx.ContractDeployment {
			return DefaultDeployGasLimit
		}
		return DefaultInteractionGasLimit
	}
	switch v := raw.(type) {
	case uint64:
		return v
	case int64:
		return uint64(v)
	case int:
		return uint64(v)
	case float64:
		return uint64(v)
	default:
		if tx.ContractDeployment {
			return DefaultDeployGasLimit
		}
		return DefaultInteractionGasLimit
	}
}
