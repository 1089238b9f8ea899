package config

// Config holds app configuration.
type Config struct {
	// InputFile is the asset to decode: an .ipf archive, .ies table,
	// .xac mesh, or .xsm animation. Format is detected from extension
	// unless Format overrides it.
	InputFile string `mapstructure:"input"`
	// Format forces the decoder to use when the input extension is
	// ambiguous or absent. One of: ipf, ies, xac, xsm.
	Format string `mapstructure:"format"`

	OutputFile string `mapstructure:"output"`
	// OutputMode selects how decoded results are rendered: json or hex.
	OutputMode string `mapstructure:"output_mode"`

	// ExtractIndex selects a single IPF entry to extract instead of
	// listing the whole archive. -1 means "list only".
	ExtractIndex int `mapstructure:"extract_index"`

	DryRun       bool   `mapstructure:"dry_run"`
	LogLevel     string `mapstructure:"log_level"`
	LogOutputDir string `mapstructure:"log_output_dir"`
}
