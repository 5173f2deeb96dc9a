package abi

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// FunctionDescriptor is a resolved ABI method's name and input type names,
// returned by Builder.Resolve so a caller can encode arguments without
// ever touching a runtime-dispatched contract object (spec §9).
type FunctionDescriptor struct {
	Name   string
	Inputs []string // argument type names, for diagnostics only
}

// Builder encodes calls and constructors against one contract's ABI into
// opaque payloads that the stored-transaction service stores verbatim.
type Builder struct {
	art *Artifact
}

// NewBuilder returns a Builder bound to a single contract artifact.
func NewBuilder(art *Artifact) *Builder {
	return &Builder{art: art}
}

// Resolve looks up a function name against the ABI, failing if it is not
// defined. It exists mainly so callers can validate a name before spending
// effort assembling arguments.
func (b *Builder) Resolve(funcName string) (*FunctionDescriptor, error) {
	m, ok := b.art.ABI.Methods[funcName]
	if !ok {
		return nil, fmt.Errorf("function %q not found in contract %s", funcName, b.art.Name)
	}
	inputs := make([]string, len(m.Inputs))
	for i, in := range m.Inputs {
		inputs[i] = in.Type.String()
	}
	return &FunctionDescriptor{Name: funcName, Inputs: inputs}, nil
}

// EncodeCall resolves funcName and packs args into the calldata payload
// for a contract interaction.
func (b *Builder) EncodeCall(funcName string, args ...any) ([]byte, error) {
	if _, err := b.Resolve(funcName); err != nil {
		return nil, err
	}
	return b.art.ABI.Pack(funcName, args...)
}

// EncodeDeploy packs the constructor arguments (if any) and appends them to
// the contract's creation bytecode, the standard EVM deployment payload.
func (b *Builder) EncodeDeploy(args ...any) ([]byte, error) {
	if len(b.art.Bytecode) == 0 {
		return nil, fmt.Errorf("contract %s has no deployable bytecode", b.art.Name)
	}
	packedArgs, err := b.art.ABI.Pack("", args...)
	if err != nil {
		return nil, fmt.Errorf("pack constructor args: %w", err)
	}
	out := make([]byte, 0, len(b.art.Bytecode)+len(packedArgs))
	out = append(out, b.art.Bytecode...)
	out = append(out, packedArgs...)
	return out, nil
}

// DeriveContractAddress implements the standard deterministic rule for the
// address of a contract created by (sender, nonce):
// keccak256(rlp([sender, nonce]))[12:].
func DeriveContractAddress(sender common.Address, nonce uint64) (common.Address, error) {
	data, err := rlp.EncodeToBytes([]any{sender, nonce})
	if err != nil {
		return common.Address{}, fmt.Errorf("rlp encode (sender, nonce): %w", err)
	}
	hash := crypto.Keccak256(data)
	var out common.Address
	copy(out[:], hash[12:])
	return out, nil
}
