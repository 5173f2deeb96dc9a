package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/synnergy-network/sto-engine/core/store"
)

func capTableCmd() *cobra.Command {
	var includeEmpty bool
	cmd := &cobra.Command{
		Use:   "captable <token-address>",
		Short: "print every holder's denormalised balance for a token, refreshing stale entries first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("invalid token address %q", args[0])
			}
			token := store.Address(common.HexToAddress(args[0]))
			ctx := cmd.Context()

			sc, err := theApp.store.GetOrCreateScan(ctx, theApp.cfg.Network, token)
			if err != nil {
				return err
			}
			if _, err := theApp.ledger.RecomputeDirty(ctx, sc.ID); err != nil {
				return err
			}
			holders, err := theApp.ledger.GetAccounts(ctx, sc.ID, includeEmpty)
			if err != nil {
				return err
			}
			for _, h := range holders {
				fmt.Printf("%s %s\n", common.Address(h.Address).Hex(), h.Balance.Big().String())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&includeEmpty, "include-empty", false, "include zero-balance holders")
	return cmd
}
