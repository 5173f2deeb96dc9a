// Command sto is the operator CLI for the stored-transaction service, the
// chunked event scanner and the holder balance ledger: allocate and
// broadcast equity-token transactions, run scans, and inspect cap tables.
package main

import (
	"context"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	theApp     *app
	appOnce    sync.Once
	appInitErr error
)

// initApp wires the store, chain adapter, ABI bundle and services exactly
// once per process, on first use by any subcommand.
func initApp(cmd *cobra.Command, _ []string) error {
	appOnce.Do(func() {
		cfg, err := loadAppConfig()
		if err != nil {
			appInitErr = err
			return
		}
		theApp, appInitErr = newApp(context.Background(), cfg)
	})
	return appInitErr
}

func main() {
	root := &cobra.Command{
		Use:               "sto",
		Short:             "equity-token issuance, scanning and cap-table CLI",
		PersistentPreRunE: initApp,
	}

	root.AddCommand(
		accountRootCmd(),
		txRootCmd(),
		scanRootCmd(),
		capTableCmd(),
		serveCmd(),
	)

	if err := root.Execute(); err != nil {
		logrus.StandardLogger().WithError(err).Error("command failed")
		os.Exit(1)
	}
}
