package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

func accountStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "show this service's signing account and nonce cursor",
		RunE: func(cmd *cobra.Command, args []string) error {
			acct, err := theApp.store.GetOrCreateAccount(cmd.Context(), theApp.cfg.Network, theApp.txsvc.Address())
			if err != nil {
				return err
			}
			fmt.Printf("network=%s address=%s current_nonce=%d\n",
				acct.Network, common.Address(acct.Address).Hex(), acct.CurrentNonce)
			return nil
		},
	}
}

func accountSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-sync",
		Short: "verify the stored nonce cursor matches the chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := theApp.txsvc.EnsureAccountsInSync(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("in sync")
			return nil
		},
	}
}

func accountRestartNonceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart-nonce",
		Short: "re-anchor the nonce cursor to the chain and renumber queued transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return theApp.txsvc.RestartNonce(cmd.Context())
		},
	}
}

func accountRootCmd() *cobra.Command {
	root := &cobra.Command{Use: "account", Short: "broadcast account operations"}
	root.AddCommand(accountStatusCmd(), accountSyncCmd(), accountRestartNonceCmd())
	return root
}
