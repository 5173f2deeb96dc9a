package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"

	"github.com/synnergy-network/sto-engine/internal/testutil"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	viper.Reset()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
}

func TestLoadDefault(t *testing.T) {
	chdir(t, "../..")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Network != "mainnet" {
		t.Fatalf("unexpected network: %s", cfg.Network)
	}
	if cfg.Scan.MaxChunk != 10000 {
		t.Fatalf("unexpected scan.max_chunk: %d", cfg.Scan.MaxChunk)
	}
}

func TestLoadOverride(t *testing.T) {
	chdir(t, "../..")

	cfg, err := Load("testnet")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Network != "testnet" {
		t.Fatalf("expected testnet override, got %s", cfg.Network)
	}
	if cfg.Scan.MaxChunk != 500000 {
		t.Fatalf("expected overridden max_chunk 500000, got %d", cfg.Scan.MaxChunk)
	}
	// start_chunk_size is untouched by the override and must still come
	// from default.yaml via viper's merge.
	if cfg.Scan.StartChunkSize != 20 {
		t.Fatalf("expected inherited start_chunk_size 20, got %d", cfg.Scan.StartChunkSize)
	}
}

func TestLoadSandboxed(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox failed: %v", err)
	}
	defer sb.Cleanup()

	if err := os.Mkdir(sb.Path("config"), 0700); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}
	data := []byte("network: sandbox\nscan:\n  min_chunk: 7\n")
	if err := sb.WriteFile("config/default.yaml", data, 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	chdir(t, sb.Root)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Network != "sandbox" {
		t.Fatalf("expected network sandbox, got %s", cfg.Network)
	}
	if cfg.Scan.MinChunk != 7 {
		t.Fatalf("expected min_chunk 7, got %d", cfg.Scan.MinChunk)
	}
}
