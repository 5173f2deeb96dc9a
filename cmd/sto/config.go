package main

import (
	"crypto/ecdsa"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"

	pkgconfig "github.com/synnergy-network/sto-engine/pkg/config"
	"github.com/synnergy-network/sto-engine/pkg/utils"
)

// appConfig bundles the structural settings loaded from cmd/config/*.yaml
// via pkg/config with the one secret this process needs, which never lives
// in the YAML: the signing key, loaded straight from the environment the
// way cmd/cli/distribution.go treats LEDGER_PATH.
type appConfig struct {
	pkgconfig.Config
	SigningKeyHex string
}

func loadAppConfig() (appConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return appConfig{}, fmt.Errorf("loading env: %w", err)
	}

	cfg, err := pkgconfig.LoadFromEnv()
	if err != nil {
		return appConfig{}, err
	}

	return appConfig{
		Config:        *cfg,
		SigningKeyHex: utils.EnvOrDefault("STO_SIGNING_KEY", ""),
	}, nil
}

func (c appConfig) signingKey() (*ecdsa.PrivateKey, error) {
	if c.SigningKeyHex == "" {
		return nil, fmt.Errorf("STO_SIGNING_KEY not set")
	}
	return crypto.HexToECDSA(trimHexPrefix(c.SigningKeyHex))
}

func trimHexPrefix(s string) string {
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
