package main

import (
	"github.com/spf13/cobra"

	"github.com/synnergy-network/sto-engine/internal/diagserver"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the read-only diagnostic HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := diagserver.New(diagserver.Config{Port: theApp.cfg.Diag.Port}, theApp.store, theApp.ledger, theApp.log)
			return srv.ListenAndServe()
		},
	}
}
