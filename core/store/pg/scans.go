package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/synnergy-network/sto-engine/core/store"
)

func scanScanStatus(row pgx.Row) (*store.TokenScanStatus, error) {
	var sc store.TokenScanStatus
	var tokenAddr []byte
	var totalSupply string
	if err := row.Scan(&sc.ID, &sc.Network, &tokenAddr, &sc.StartBlock, &sc.EndBlock, &sc.EndBlockTimestamp,
		&sc.Name, &sc.Symbol, &sc.Decimals, &totalSupply); err != nil {
		return nil, err
	}
	sc.TokenAddress = addrFromBytes(tokenAddr)
	u, err := uint256FromText(totalSupply)
	if err != nil {
		return nil, fmt.Errorf("decode total_supply: %w", err)
	}
	sc.TotalSupply = u
	return &sc, nil
}

const scanColumns = `id, network, token_address, start_block, end_block, end_block_timestamp, name, symbol, decimals, total_supply`

func (s *Store) GetOrCreateScan(ctx context.Context, network string, token store.Address) (*store.TokenScanStatus, error) {
	row := s.q(ctx).QueryRow(ctx, `
		INSERT INTO token_scan_statuses (network, token_address)
		VALUES ($1, $2)
		ON CONFLICT (network, token_address) DO UPDATE SET network = EXCLUDED.network
		RETURNING `+scanColumns, network, addrBytes(token))
	sc, err := scanScanStatus(row)
	if err != nil {
		return nil, fmt.Errorf("get or create scan: %w", err)
	}
	return sc, nil
}

func (s *Store) UpdateScan(ctx context.Context, scan *store.TokenScanStatus) error {
	tag, err := s.q(ctx).Exec(ctx, `
		UPDATE token_scan_statuses SET
			start_block = $2, end_block = $3, end_block_timestamp = $4,
			name = $5, symbol = $6, decimals = $7, total_supply = $8
		WHERE id = $1
	`, scan.ID, scan.StartBlock, scan.EndBlock, scan.EndBlockTimestamp,
		scan.Name, scan.Symbol, scan.Decimals, uint256ToText(scan.TotalSupply))
	if err != nil {
		return fmt.Errorf("update scan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// PurgeForkedSuffix deletes every delta at or after fromBlock for this scan
// and marks the affected holders dirty, all inside one transaction (the
// caller's, or one of its own) so the fork-guard purge is atomic with itself.
func (s *Store) PurgeForkedSuffix(ctx context.Context, scanID int64, fromBlock uint64) ([]int64, error) {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); !ok {
		var affected []int64
		err := s.WithTx(ctx, func(ctx context.Context, _ store.Store) error {
			var err error
			affected, err = s.PurgeForkedSuffix(ctx, scanID, fromBlock)
			return err
		})
		return affected, err
	}

	rows, err := s.q(ctx).Query(ctx, `
		SELECT DISTINCT ha.id
		FROM holder_deltas hd
		JOIN holder_accounts ha ON ha.id = hd.account_id
		WHERE ha.scan_id = $1 AND hd.block_num >= $2
	`, scanID, fromBlock)
	if err != nil {
		return nil, fmt.Errorf("find affected holders: %w", err)
	}
	var affected []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		affected = append(affected, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := s.q(ctx).Exec(ctx, `
		DELETE FROM holder_deltas
		WHERE block_num >= $2 AND account_id IN (SELECT id FROM holder_accounts WHERE scan_id = $1)
	`, scanID, fromBlock); err != nil {
		return nil, fmt.Errorf("purge forked deltas: %w", err)
	}

	if len(affected) > 0 {
		if _, err := s.q(ctx).Exec(ctx, `
			UPDATE holder_accounts SET balance_calculated_at = NULL WHERE id = ANY($1)
		`, affected); err != nil {
			return nil, fmt.Errorf("mark holders dirty: %w", err)
		}
	}
	return affected, nil
}
