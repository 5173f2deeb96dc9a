package chain

import (
	"github.com/ethereum/go-ethereum/core/types"
)

// decodeSignedTx decodes the RLP-encoded signed transaction payload that
// txservice produces into a go-ethereum transaction so it can be handed to
// ethclient.SendTransaction.
func decodeSignedTx(raw []byte) (*types.Transaction, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, err
	}
	return tx, nil
}
