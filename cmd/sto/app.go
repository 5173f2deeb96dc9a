package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/synnergy-network/sto-engine/core/abi"
	"github.com/synnergy-network/sto-engine/core/chain"
	"github.com/synnergy-network/sto-engine/core/ledger"
	"github.com/synnergy-network/sto-engine/core/scanner"
	"github.com/synnergy-network/sto-engine/core/store"
	"github.com/synnergy-network/sto-engine/core/store/memstore"
	"github.com/synnergy-network/sto-engine/core/store/pg"
	"github.com/synnergy-network/sto-engine/core/txservice"
)

// app bundles the fully wired collaborators one process needs, built once
// from appConfig and shared by every subcommand.
type app struct {
	cfg     appConfig
	log     *logrus.Logger
	store   store.Store
	adapter chain.Adapter
	bundle  abi.Bundle
	ledger  *ledger.Ledger
	txsvc   *txservice.Service
	scan    *scanner.Scanner
}

func newApp(ctx context.Context, cfg appConfig) (*app, error) {
	log := logrus.StandardLogger()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	timeout := time.Duration(cfg.Chain.RequestTimeoutMS) * time.Millisecond
	adapter, err := chain.DialContext(ctx, cfg.Chain.RPCURL, timeout)
	if err != nil {
		return nil, fmt.Errorf("dial chain node: %w", err)
	}

	bundle, err := abi.LoadDir(cfg.ABI.BundleDir)
	if err != nil {
		return nil, fmt.Errorf("load abi bundle: %w", err)
	}

	lg := ledger.New(st, log)

	key, err := cfg.signingKey()
	if err != nil {
		return nil, fmt.Errorf("load signing key: %w", err)
	}

	txCfg := txservice.Config{
		Network:             cfg.Network,
		TokenContractName:   cfg.ABI.TokenContractName,
		DeployGasLimit:      cfg.Gas.DeployLimit,
		InteractionGasLimit: cfg.Gas.InteractionLimit,
	}
	if cfg.Gas.ExplicitPriceWei != "" {
		txCfg.ExplicitGasPrice = &cfg.Gas.ExplicitPriceWei
	}
	txsvc, err := txservice.New(st, adapter, bundle, key, txCfg, log)
	if err != nil {
		return nil, fmt.Errorf("build tx service: %w", err)
	}

	scanCfg := scanner.Config{
		TokenContractName: cfg.ABI.TokenContractName,
		MinChunk:          cfg.Scan.MinChunk,
		MaxChunk:          cfg.Scan.MaxChunk,
		IncreaseFactor:    cfg.Scan.IncreaseFactor,
		ReorgDepth:        cfg.Scan.ReorgDepth,
	}
	sc := scanner.New(st, adapter, bundle, scanCfg, log)

	return &app{
		cfg:     cfg,
		log:     log,
		store:   st,
		adapter: adapter,
		bundle:  bundle,
		ledger:  lg,
		txsvc:   txsvc,
		scan:    sc,
	}, nil
}

func openStore(ctx context.Context, cfg appConfig) (store.Store, error) {
	if cfg.Store.DSN == "" {
		return memstore.New(), nil
	}
	st, err := pg.Open(ctx, cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return st, nil
}
