package scanner

// Adaptive window sizing bounds (spec §4.2). RPC providers cap response
// sizes and timeouts; empty regions can be skipped in large strides while
// active regions demand small strides.
const (
	DefaultMinChunk       uint64  = 10
	DefaultMaxChunk       uint64  = 10_000
	DefaultIncreaseFactor float64 = 5.0
	DefaultStartChunkSize uint64  = 20

	// ReorgDepth bounds how far back get_suggested_scan_start_block rewinds
	// to tolerate a re-org, and how far the fork-guard purge reaches back.
	ReorgDepth uint64 = 10
)

// Config tunes one Scanner instance. Zero values fall back to the defaults
// above.
type Config struct {
	TokenContractName string
	MinChunk          uint64
	MaxChunk          uint64
	IncreaseFactor    float64
	ReorgDepth        uint64
}

func (c Config) minChunk() uint64 {
	if c.MinChunk != 0 {
		return c.MinChunk
	}
	return DefaultMinChunk
}

func (c Config) maxChunk() uint64 {
	if c.MaxChunk != 0 {
		return c.MaxChunk
	}
	return DefaultMaxChunk
}

func (c Config) increaseFactor() float64 {
	if c.IncreaseFactor != 0 {
		return c.IncreaseFactor
	}
	return DefaultIncreaseFactor
}

func (c Config) reorgDepth() uint64 {
	if c.ReorgDepth != 0 {
		return c.ReorgDepth
	}
	return ReorgDepth
}

func (c Config) tokenContractName() string {
	if c.TokenContractName != "" {
		return c.TokenContractName
	}
	return "SecurityToken"
}

// nextChunkSize applies the adaptive sizing rule: reset to the floor after
// any chunk with events, otherwise grow geometrically, always clamped.
func (c Config) nextChunkSize(current uint64, eventsInChunk int) uint64 {
	var next uint64
	if eventsInChunk > 0 {
		next = c.minChunk()
	} else {
		next = uint64(float64(current) * c.increaseFactor())
	}
	if next < c.minChunk() {
		next = c.minChunk()
	}
	if next > c.maxChunk() {
		next = c.maxChunk()
	}
	return next
}
