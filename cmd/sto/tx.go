package main

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/synnergy-network/sto-engine/core/store"
)

func parseArgs(raw []string) []any {
	out := make([]any, 0, len(raw))
	for _, r := range raw {
		if n, err := strconv.ParseInt(r, 10, 64); err == nil {
			out = append(out, n)
			continue
		}
		if common.IsHexAddress(r) {
			out = append(out, common.HexToAddress(r))
			continue
		}
		out = append(out, r)
	}
	return out
}

func printTx(tx *store.PreparedTransaction) {
	fmt.Printf("id=%d nonce=%d status=%s\n", tx.ID, tx.Nonce, tx.Status())
	if tx.ContractAddress != nil {
		fmt.Printf("  contract_address=%s\n", common.Address(*tx.ContractAddress).Hex())
	}
	if tx.TxID != nil {
		fmt.Printf("  txid=%s\n", common.Hash(*tx.TxID).Hex())
	}
}

func txDeployCmd() *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "deploy <contract-name> [constructor-args...]",
		Short: "allocate a nonce and store an unsigned deployment payload",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := theApp.txsvc.DeployContract(cmd.Context(), args[0], parseArgs(args[1:]), note)
			if err != nil {
				return err
			}
			printTx(tx)
			return nil
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "free-form note to attach")
	return cmd
}

func txInteractCmd() *cobra.Command {
	var note, receiverHex string
	cmd := &cobra.Command{
		Use:   "interact <contract-name> <contract-address> <function> [args...]",
		Short: "allocate a nonce and store an unsigned contract call payload",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[1]) {
				return fmt.Errorf("invalid contract address %q", args[1])
			}
			addr := store.Address(common.HexToAddress(args[1]))

			var receiver *store.Address
			if receiverHex != "" {
				if !common.IsHexAddress(receiverHex) {
					return fmt.Errorf("invalid receiver address %q", receiverHex)
				}
				r := store.Address(common.HexToAddress(receiverHex))
				receiver = &r
			}

			tx, err := theApp.txsvc.InteractWithContract(cmd.Context(), args[0], addr, args[2], parseArgs(args[3:]), note, receiver)
			if err != nil {
				return err
			}
			printTx(tx)
			return nil
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "free-form note to attach")
	cmd.Flags().StringVar(&receiverHex, "receiver", "", "optional receiver address to record")
	return cmd
}

func txDistributeCmd() *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "distribute <external-id> <token-address> <receiver-address> <raw-amount>",
		Short: "idempotently allocate a transfer for one off-chain distribution record",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[1]) {
				return fmt.Errorf("invalid token address %q", args[1])
			}
			if !common.IsHexAddress(args[2]) {
				return fmt.Errorf("invalid receiver address %q", args[2])
			}
			amount, err := uint256.FromDecimal(args[3])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[3], err)
			}
			tx, err := theApp.txsvc.DistributeTokens(cmd.Context(), args[0],
				store.Address(common.HexToAddress(args[1])), store.Address(common.HexToAddress(args[2])), amount, note)
			if err != nil {
				return err
			}
			printTx(tx)
			return nil
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "free-form note to attach")
	return cmd
}

func txBroadcastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "broadcast <nonce>",
		Short: "sign and broadcast the pending transaction at this nonce",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nonce, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid nonce %q: %w", args[0], err)
			}
			acct, err := theApp.store.GetOrCreateAccount(cmd.Context(), theApp.cfg.Network, theApp.txsvc.Address())
			if err != nil {
				return err
			}
			tx, err := theApp.store.GetByNonce(cmd.Context(), acct.ID, nonce)
			if err != nil {
				return err
			}
			if err := theApp.txsvc.Broadcast(cmd.Context(), tx); err != nil {
				return err
			}
			printTx(tx)
			return nil
		},
	}
}

func txStatusCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "status",
		Short: "list the most recent prepared transactions and refresh their receipts",
		RunE: func(cmd *cobra.Command, args []string) error {
			acct, err := theApp.store.GetOrCreateAccount(cmd.Context(), theApp.cfg.Network, theApp.txsvc.Address())
			if err != nil {
				return err
			}
			txs, err := theApp.store.Recent(cmd.Context(), acct.ID, limit)
			if err != nil {
				return err
			}
			for _, tx := range txs {
				if tx.BroadcastedAt != nil && tx.ResultSuccess == nil {
					if err := theApp.txsvc.UpdateStatus(cmd.Context(), tx); err != nil {
						return err
					}
				}
				printTx(tx)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "how many transactions to list")
	return cmd
}

func txRootCmd() *cobra.Command {
	root := &cobra.Command{Use: "tx", Short: "stored-transaction service operations"}
	root.AddCommand(txDeployCmd(), txInteractCmd(), txDistributeCmd(), txBroadcastCmd(), txStatusCmd())
	return root
}
