package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/synnergy-network/sto-engine/core/scanner"
	"github.com/synnergy-network/sto-engine/core/store"
)

func scanRunCmd() *cobra.Command {
	var startBlock, endBlock uint64
	cmd := &cobra.Command{
		Use:   "run <token-address>",
		Short: "scan one token's Transfer/Issued log range and update holder balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("invalid token address %q", args[0])
			}
			token := store.Address(common.HexToAddress(args[0]))
			ctx := cmd.Context()

			from := startBlock
			if from == 0 {
				var err error
				from, err = theApp.scan.GetSuggestedScanStartBlock(ctx, theApp.cfg.Network, token)
				if err != nil {
					return err
				}
			}
			to := endBlock
			if to == 0 {
				var err error
				to, err = theApp.scan.GetSuggestedScanEndBlock(ctx)
				if err != nil {
					return err
				}
			}

			progress := func(startBlock, endBlock, currentEnd, chunk uint64) {
				fmt.Printf("scanning [%d,%d] currently at %d chunk=%d\n", startBlock, endBlock, currentEnd, chunk)
			}
			touched, err := theApp.scan.Scan(ctx, theApp.cfg.Network, token, from, to, scanner.DefaultStartChunkSize, progress)
			if err != nil {
				return err
			}
			fmt.Printf("done: %d addresses touched\n", len(touched))
			return nil
		},
	}
	cmd.Flags().Uint64Var(&startBlock, "from", 0, "start block (defaults to the suggested resume point)")
	cmd.Flags().Uint64Var(&endBlock, "to", 0, "end block (defaults to the chain head)")
	return cmd
}

func scanStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <token-address>",
		Short: "show the scan cursor and cached metadata for a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("invalid token address %q", args[0])
			}
			token := store.Address(common.HexToAddress(args[0]))
			sc, err := theApp.store.GetOrCreateScan(cmd.Context(), theApp.cfg.Network, token)
			if err != nil {
				return err
			}
			fmt.Printf("network=%s token=%s name=%s symbol=%s decimals=%d total_supply=%s\n",
				sc.Network, common.Address(sc.TokenAddress).Hex(), sc.Name, sc.Symbol, sc.Decimals, sc.TotalSupply.Dec())
			if sc.StartBlock != nil {
				fmt.Printf("start_block=%d\n", *sc.StartBlock)
			}
			if sc.EndBlock != nil {
				fmt.Printf("end_block=%d\n", *sc.EndBlock)
			}
			return nil
		},
	}
}

func scanRootCmd() *cobra.Command {
	root := &cobra.Command{Use: "scan", Short: "chunked event scanner operations"}
	root.AddCommand(scanRunCmd(), scanStatusCmd())
	return root
}
