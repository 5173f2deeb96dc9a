package config

// Package config provides a reusable loader for the sto engine's
// configuration files and environment variables. It is versioned so that
// applications can depend on a stable API contract.
//
// Version: v0.2.0

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/synnergy-network/sto-engine/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.2.0"

// Config is the unified configuration for the sto engine: the stored
// transaction service, the chunked event scanner and the holder balance
// ledger, plus their ambient store, chain and diagnostics settings. It
// mirrors the structure of the YAML files under cmd/config.
type Config struct {
	Network string `mapstructure:"network" json:"network"`

	Chain struct {
		RPCURL            string `mapstructure:"rpc_url" json:"rpc_url"`
		RequestTimeoutMS  int    `mapstructure:"request_timeout_ms" json:"request_timeout_ms"`
	} `mapstructure:"chain" json:"chain"`

	Store struct {
		DSN string `mapstructure:"dsn" json:"dsn"`
	} `mapstructure:"store" json:"store"`

	ABI struct {
		BundleDir         string `mapstructure:"bundle_dir" json:"bundle_dir"`
		TokenContractName string `mapstructure:"token_contract_name" json:"token_contract_name"`
	} `mapstructure:"abi" json:"abi"`

	Gas struct {
		DeployLimit      uint64 `mapstructure:"deploy_limit" json:"deploy_limit"`
		InteractionLimit uint64 `mapstructure:"interaction_limit" json:"interaction_limit"`
		ExplicitPriceWei string `mapstructure:"explicit_price_wei" json:"explicit_price_wei"`
	} `mapstructure:"gas" json:"gas"`

	Scan struct {
		MinChunk       uint64  `mapstructure:"min_chunk" json:"min_chunk"`
		MaxChunk       uint64  `mapstructure:"max_chunk" json:"max_chunk"`
		StartChunkSize uint64  `mapstructure:"start_chunk_size" json:"start_chunk_size"`
		IncreaseFactor float64 `mapstructure:"increase_factor" json:"increase_factor"`
		ReorgDepth     uint64  `mapstructure:"reorg_depth" json:"reorg_depth"`
	} `mapstructure:"scan" json:"scan"`

	Diag struct {
		Port string `mapstructure:"port" json:"port"`
	} `mapstructure:"diag" json:"diag"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads cmd/config/default.yaml and merges any environment-specific
// overrides (cmd/config/<env>.yaml). The resulting configuration is stored
// in AppConfig and returned. Secrets (the signing key) are never part of
// this file; they are loaded separately from the process environment, the
// way cmd/cli/distribution.go treats LEDGER_PATH.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.SetEnvPrefix("STO")
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the STO_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("STO_ENV", ""))
}
