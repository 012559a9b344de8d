// Package utils exposes reusable helpers consumed by multiple git-ensembl commands.
//
// ConfigurationLoader layers the embedded defaults, an optional user file, and
// GITENSEMBL_* environment overrides through Viper. LoggerFactory builds the
// zap loggers used for diagnostics, and CommandContextAccessor carries
// per-invocation settings through cobra command contexts.
package utils
