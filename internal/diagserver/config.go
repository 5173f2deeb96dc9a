// Package diagserver exposes an HTTP view over the stored transaction
// service, scan cursors and holder ledger, for operators diagnosing a
// running issuance pipeline. No endpoint signs, allocates or broadcasts;
// looking up an unknown account or token creates its empty row, and the
// cap table endpoint refreshes stale denormalised balances first.
package diagserver

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
}

func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("loading env: %w", err)
	}
	port := os.Getenv("DIAG_PORT")
	if port == "" {
		port = "8082"
	}
	return Config{Port: port}, nil
}
