// Package abi loads the contract ABI bundle consumed by the stored
// transaction service (spec §6) and resolves function names against it into
// opaque encoded payloads, replacing the source's runtime attribute lookup
// with a typed, string-keyed builder (spec §9 "Dynamic dispatch").
package abi

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/synnergy-network/sto-engine/core/errs"
)

// Artifact is one compiled contract's metadata, keyed by contract name in a
// Bundle. Source and Metadata are only required by the off-chain
// verification collaborator; their absence is not fatal here.
type Artifact struct {
	Name            string
	ABI             gethabi.ABI
	Bytecode        []byte
	BytecodeRuntime []byte
	Source          string
	Metadata        string
}

// Bundle is the keyed mapping name -> artifact described in spec §6.
type Bundle map[string]*Artifact

// rawArtifact mirrors the on-disk Hardhat/Truffle-style JSON shape.
type rawArtifact struct {
	ABI             json.RawMessage `json:"abi"`
	Bytecode        string          `json:"bytecode"`
	DeployedBytecode string         `json:"deployedBytecode"`
	Metadata        string          `json:"metadata"`
	Source          string          `json:"source"`
}

// LoadDir loads every *.json file in dir as a contract artifact named after
// its base filename (minus extension).
func LoadDir(dir string) (Bundle, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read abi bundle dir: %w", err)
	}
	b := make(Bundle)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		art, err := loadArtifact(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("load artifact %s: %w", name, err)
		}
		art.Name = name
		b[name] = art
	}
	return b, nil
}

func loadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw rawArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	parsed, err := gethabi.JSON(jsonReader(raw.ABI))
	if err != nil {
		return nil, fmt.Errorf("parse abi json: %w", err)
	}
	bytecode, err := decodeHexMaybe0x(raw.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("decode bytecode: %w", err)
	}
	runtime, err := decodeHexMaybe0x(raw.DeployedBytecode)
	if err != nil {
		return nil, fmt.Errorf("decode deployed bytecode: %w", err)
	}
	return &Artifact{
		ABI:             parsed,
		Bytecode:        bytecode,
		BytecodeRuntime: runtime,
		Source:          raw.Source,
		Metadata:        raw.Metadata,
	}, nil
}

// Get resolves a contract by name, returning errs.ErrNoSuchContract when
// absent from the bundle.
func (b Bundle) Get(name string) (*Artifact, error) {
	art, ok := b[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrNoSuchContract, name)
	}
	return art, nil
}
