package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/synnergy-network/sto-engine/core/store"
)

func (s *Store) GetOrCreateAccount(ctx context.Context, network string, addr store.Address) (*store.BroadcastAccount, error) {
	q := s.q(ctx)
	row := q.QueryRow(ctx, `
		INSERT INTO broadcast_accounts (network, address)
		VALUES ($1, $2)
		ON CONFLICT (network, address) DO UPDATE SET network = EXCLUDED.network
		RETURNING id, network, address, current_nonce, created_at
	`, network, addrBytes(addr))

	var a store.BroadcastAccount
	var addrRaw []byte
	if err := row.Scan(&a.ID, &a.Network, &addrRaw, &a.CurrentNonce, &a.CreatedAt); err != nil {
		return nil, fmt.Errorf("get or create account: %w", err)
	}
	a.Address = addrFromBytes(addrRaw)
	return &a, nil
}

func (s *Store) AllocateNonce(ctx context.Context, accountID int64) (uint64, error) {
	q := s.q(ctx)
	row := q.QueryRow(ctx, `
		UPDATE broadcast_accounts SET current_nonce = current_nonce + 1
		WHERE id = $1
		RETURNING current_nonce - 1
	`, accountID)

	var nonce int64
	if err := row.Scan(&nonce); err != nil {
		if err == pgx.ErrNoRows {
			return 0, store.ErrNotFound
		}
		return 0, fmt.Errorf("allocate nonce: %w", err)
	}
	return uint64(nonce), nil
}

func (s *Store) SetNonce(ctx context.Context, accountID int64, nonce uint64) error {
	tag, err := s.q(ctx).Exec(ctx, `UPDATE broadcast_accounts SET current_nonce = $1 WHERE id = $2`, nonce, accountID)
	if err != nil {
		return fmt.Errorf("set nonce: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
