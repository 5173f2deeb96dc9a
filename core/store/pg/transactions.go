package pg

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/synnergy-network/sto-engine/core/store"
)

const txColumns = `id, account_id, nonce, contract_deployment, receiver, contract_address,
	unsigned_payload, external_id, txid, broadcasted_at, result_block, result_success,
	result_fetched_at, verified_at, other_data, created_at`

func scanTx(row pgx.Row) (*store.PreparedTransaction, error) {
	var t store.PreparedTransaction
	var receiver, contractAddr, txid []byte
	var otherData []byte

	if err := row.Scan(
		&t.ID, &t.AccountID, &t.Nonce, &t.ContractDeployment, &receiver, &contractAddr,
		&t.UnsignedPayload, &t.ExternalID, &txid, &t.BroadcastedAt, &t.ResultBlock, &t.ResultSuccess,
		&t.ResultFetchedAt, &t.VerifiedAt, &otherData, &t.CreatedAt,
	); err != nil {
		return nil, err
	}
	t.Receiver = addrPtrFromBytes(receiver)
	t.ContractAddress = addrPtrFromBytes(contractAddr)
	t.TxID = hashPtrFromBytes(txid)
	if len(otherData) > 0 {
		if err := json.Unmarshal(otherData, &t.OtherData); err != nil {
			return nil, fmt.Errorf("decode other_data: %w", err)
		}
	}
	return &t, nil
}

func (s *Store) InsertTransaction(ctx context.Context, tx *store.PreparedTransaction) error {
	other, err := json.Marshal(tx.OtherData)
	if err != nil {
		return fmt.Errorf("encode other_data: %w", err)
	}
	row := s.q(ctx).QueryRow(ctx, `
		INSERT INTO prepared_transactions
			(account_id, nonce, contract_deployment, receiver, contract_address, unsigned_payload, external_id, other_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, tx.AccountID, tx.Nonce, tx.ContractDeployment, addrPtrBytes(tx.Receiver), addrPtrBytes(tx.ContractAddress),
		tx.UnsignedPayload, tx.ExternalID, other)

	if err := row.Scan(&tx.ID, &tx.CreatedAt); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *store.PreparedTransaction) error {
	other, err := json.Marshal(tx.OtherData)
	if err != nil {
		return fmt.Errorf("encode other_data: %w", err)
	}
	tag, err := s.q(ctx).Exec(ctx, `
		UPDATE prepared_transactions SET
			nonce = $2, contract_deployment = $3, receiver = $4, contract_address = $5,
			unsigned_payload = $6, external_id = $7, txid = $8, broadcasted_at = $9,
			result_block = $10, result_success = $11, result_fetched_at = $12,
			verified_at = $13, other_data = $14
		WHERE id = $1
	`, tx.ID, tx.Nonce, tx.ContractDeployment, addrPtrBytes(tx.Receiver), addrPtrBytes(tx.ContractAddress),
		tx.UnsignedPayload, tx.ExternalID, hashPtrBytes(tx.TxID), tx.BroadcastedAt,
		tx.ResultBlock, tx.ResultSuccess, tx.ResultFetchedAt, tx.VerifiedAt, other)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetByNonce(ctx context.Context, accountID int64, nonce uint64) (*store.PreparedTransaction, error) {
	row := s.q(ctx).QueryRow(ctx, `SELECT `+txColumns+` FROM prepared_transactions WHERE account_id = $1 AND nonce = $2`, accountID, nonce)
	t, err := scanTx(row)
	if err == pgx.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get by nonce: %w", err)
	}
	return t, nil
}

func (s *Store) GetByExternalID(ctx context.Context, externalID string, contractAddress store.Address) (*store.PreparedTransaction, error) {
	row := s.q(ctx).QueryRow(ctx, `SELECT `+txColumns+` FROM prepared_transactions WHERE external_id = $1 AND contract_address = $2`,
		externalID, addrBytes(contractAddress))
	t, err := scanTx(row)
	if err == pgx.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get by external id: %w", err)
	}
	return t, nil
}

func (s *Store) queryTxList(ctx context.Context, sql string, args ...any) ([]*store.PreparedTransaction, error) {
	rows, err := s.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*store.PreparedTransaction
	for rows.Next() {
		t, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) PendingBroadcasts(ctx context.Context, accountID int64) ([]*store.PreparedTransaction, error) {
	return s.queryTxList(ctx, `SELECT `+txColumns+` FROM prepared_transactions
		WHERE account_id = $1 AND broadcasted_at IS NULL ORDER BY nonce ASC`, accountID)
}

func (s *Store) Unmined(ctx context.Context, accountID int64) ([]*store.PreparedTransaction, error) {
	return s.queryTxList(ctx, `SELECT `+txColumns+` FROM prepared_transactions
		WHERE account_id = $1 AND broadcasted_at IS NOT NULL AND result_success IS NULL ORDER BY nonce ASC`, accountID)
}

func (s *Store) Recent(ctx context.Context, accountID int64, limit int) ([]*store.PreparedTransaction, error) {
	return s.queryTxList(ctx, `SELECT `+txColumns+` FROM prepared_transactions
		WHERE account_id = $1 ORDER BY created_at DESC, nonce DESC LIMIT $2`, accountID, limit)
}

func (s *Store) QueuedForAccount(ctx context.Context, accountID int64) ([]*store.PreparedTransaction, error) {
	return s.PendingBroadcasts(ctx, accountID)
}
