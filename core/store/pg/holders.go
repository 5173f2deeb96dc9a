package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/synnergy-network/sto-engine/core/errs"
	"github.com/synnergy-network/sto-engine/core/store"
)

const holderColumns = `id, scan_id, address, balance_magnitude, balance_negative, empty, balance_calculated_at, last_block, last_block_at`

func scanHolder(row pgx.Row) (*store.HolderAccount, error) {
	var h store.HolderAccount
	var addr []byte
	var mag string
	var neg bool
	if err := row.Scan(&h.ID, &h.ScanID, &addr, &mag, &neg, &h.Empty, &h.BalanceCalculatedAt, &h.LastBlock, &h.LastBlockAt); err != nil {
		return nil, err
	}
	h.Address = addrFromBytes(addr)
	u, err := uint256FromText(mag)
	if err != nil {
		return nil, fmt.Errorf("decode balance_magnitude: %w", err)
	}
	h.Balance = &store.SignedUint256{Mag: u, Neg: neg}
	return &h, nil
}

func (s *Store) GetOrCreateHolder(ctx context.Context, scanID int64, addr store.Address) (*store.HolderAccount, error) {
	row := s.q(ctx).QueryRow(ctx, `
		INSERT INTO holder_accounts (scan_id, address)
		VALUES ($1, $2)
		ON CONFLICT (scan_id, address) DO UPDATE SET scan_id = EXCLUDED.scan_id
		RETURNING `+holderColumns, scanID, addrBytes(addr))
	h, err := scanHolder(row)
	if err != nil {
		return nil, fmt.Errorf("get or create holder: %w", err)
	}
	return h, nil
}

// InsertDeltasAndAdvance runs inside WithTx: it joins the caller's
// transaction when one is open and otherwise opens its own, so the
// insert-then-advance pair commits or rolls back together.
func (s *Store) InsertDeltasAndAdvance(ctx context.Context, scan *store.TokenScanStatus, endBlock uint64, deltas []*store.HolderDelta) error {
	return s.WithTx(ctx, func(ctx context.Context, txStore store.Store) error {
		q := s.q(ctx)
		for _, d := range deltas {
			_, err := q.Exec(ctx, `
				INSERT INTO holder_deltas (account_id, block_num, block_timestamp, txid, tx_internal_order, raw_delta, sign)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, d.AccountID, d.BlockNum, d.BlockTimestamp, hashBytes(d.TxID), d.TxInternalOrder, uint256ToText(d.RawDelta), d.Sign)
			if err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == "23505" {
					return errs.ErrDuplicateEvent
				}
				return fmt.Errorf("insert holder delta: %w", err)
			}

			if _, err := q.Exec(ctx, `UPDATE holder_accounts SET balance_calculated_at = NULL WHERE id = $1`, d.AccountID); err != nil {
				return fmt.Errorf("mark holder dirty: %w", err)
			}
		}

		tag, err := q.Exec(ctx, `
			UPDATE token_scan_statuses SET
				start_block = COALESCE($2, start_block), end_block = $3,
				name = $4, symbol = $5, decimals = $6, total_supply = $7
			WHERE id = $1
		`, scan.ID, scan.StartBlock, endBlock, scan.Name, scan.Symbol, scan.Decimals, uint256ToText(scan.TotalSupply))
		if err != nil {
			return fmt.Errorf("advance scan window: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

func (s *Store) DeltasFor(ctx context.Context, accountID int64) ([]*store.HolderDelta, error) {
	rows, err := s.q(ctx).Query(ctx, `
		SELECT id, account_id, block_num, block_timestamp, txid, tx_internal_order, raw_delta, sign
		FROM holder_deltas
		WHERE account_id = $1
		ORDER BY block_num ASC, tx_internal_order ASC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("deltas for: %w", err)
	}
	defer rows.Close()

	var out []*store.HolderDelta
	for rows.Next() {
		var d store.HolderDelta
		var txid []byte
		var raw string
		if err := rows.Scan(&d.ID, &d.AccountID, &d.BlockNum, &d.BlockTimestamp, &txid, &d.TxInternalOrder, &raw, &d.Sign); err != nil {
			return nil, err
		}
		d.TxID = hashFromBytes(txid)
		u, err := uint256FromText(raw)
		if err != nil {
			return nil, fmt.Errorf("decode raw_delta: %w", err)
		}
		d.RawDelta = u
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (s *Store) UpdateDenormalisedBalance(ctx context.Context, h *store.HolderAccount) error {
	tag, err := s.q(ctx).Exec(ctx, `
		UPDATE holder_accounts SET
			balance_magnitude = $2, balance_negative = $3, empty = $4,
			balance_calculated_at = $5, last_block = $6, last_block_at = $7
		WHERE id = $1
	`, h.ID, uint256ToText(h.Balance.Mag), h.Balance.Neg, h.Empty, h.BalanceCalculatedAt, h.LastBlock, h.LastBlockAt)
	if err != nil {
		return fmt.Errorf("update denormalised balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DirtyHolders(ctx context.Context, scanID int64) ([]*store.HolderAccount, error) {
	rows, err := s.q(ctx).Query(ctx, `SELECT `+holderColumns+` FROM holder_accounts WHERE scan_id = $1 AND balance_calculated_at IS NULL ORDER BY id ASC`, scanID)
	if err != nil {
		return nil, fmt.Errorf("dirty holders: %w", err)
	}
	defer rows.Close()

	var out []*store.HolderAccount
	for rows.Next() {
		h, err := scanHolder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) Holders(ctx context.Context, scanID int64, includeEmpty bool) ([]*store.HolderAccount, error) {
	sql := `SELECT ` + holderColumns + ` FROM holder_accounts WHERE scan_id = $1`
	if !includeEmpty {
		sql += ` AND empty = false`
	}
	sql += ` ORDER BY id ASC`

	rows, err := s.q(ctx).Query(ctx, sql, scanID)
	if err != nil {
		return nil, fmt.Errorf("holders: %w", err)
	}
	defer rows.Close()

	var out []*store.HolderAccount
	for rows.Next() {
		h, err := scanHolder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
