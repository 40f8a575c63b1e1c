package core

// WSVConfig carries the limits and policy knobs of the world state view
// (spec.md §3, §5). Values are loaded through pkg/config (viper +
// mapstructure) and passed to NewWSV; the core itself never reads
// configuration files directly. The name-length and metadata limits are
// enforced by the executor. MaxInstructionsPerTx and EventBufferSize are
// stored but not read by the core: transactions are not checked against an
// instruction count, and subscriber channels always use
// DefaultEventBufferSize.
type WSVConfig struct {
	NameMinLength      int            `mapstructure:"name_min_length"`
	NameMaxLength      int            `mapstructure:"name_max_length"`
	MetadataLimits     MetadataLimits `mapstructure:"metadata_limits"`
	MaxInstructionsPerTx uint32       `mapstructure:"max_instructions_per_tx"`
	EventBufferSize    int            `mapstructure:"event_buffer_size"`
}

// DefaultWSVConfig mirrors the teacher's pattern of exposing a conservative
// zero-config default alongside the viper-loaded one (pkg/config/config.go).
var DefaultWSVConfig = WSVConfig{
	NameMinLength:        DefaultMinNameLength,
	NameMaxLength:        DefaultMaxNameLength,
	MetadataLimits:       DefaultMetadataLimits,
	MaxInstructionsPerTx: 4096,
	EventBufferSize:      DefaultEventBufferSize,
}
