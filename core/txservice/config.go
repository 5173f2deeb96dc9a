package txservice

// Gas policy constants (spec §4.1): a hand-tuned ceiling for each
// transaction shape, because some chains systematically mis-estimate
// deployment costs and a generous hardcoded limit avoids reverted
// deployments. Callers may override either with an explicit gas limit.
const (
	DefaultDeployGasLimit      uint64 = 4_700_000
	DefaultInteractionGasLimit uint64 = 300_000
)

// Config carries the per-instance settings of a Service. One Service
// instance owns exactly one (Network, signer address) pair, per the
// one-writer invariant in spec §5.
type Config struct {
	Network string

	// TokenContractName is the ABI bundle key used by DistributeTokens and
	// GetRawTokenBalance, since those operations are only ever given a
	// token address, not a contract name.
	TokenContractName string

	DeployGasLimit      uint64
	InteractionGasLimit uint64

	// ExplicitGasPrice, if set, is used for every allocated transaction
	// instead of asking the node to suggest one at broadcast time.
	ExplicitGasPrice *string // decimal wei, to avoid float/JSON precision loss
}

func (c Config) deployGasLimit() uint64 {
	if c.DeployGasLimit != 0 {
		return c.DeployGasLimit
	}
	return DefaultDeployGasLimit
}

func (c Config) interactionGasLimit() uint64 {
	if c.InteractionGasLimit != 0 {
		return c.InteractionGasLimit
	}
	return DefaultInteractionGasLimit
}

func (c Config) tokenContractName() string {
	if c.TokenContractName != "" {
		return c.TokenContractName
	}
	return "SecurityToken"
}
