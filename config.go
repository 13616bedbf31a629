package agrocms

import "github.com/goliatone/go-agrocms/internal/runtimeconfig"

var (
	ErrStorageDriverRequired    = runtimeconfig.ErrStorageDriverRequired
	ErrStorageDriverUnknown     = runtimeconfig.ErrStorageDriverUnknown
	ErrStorageDSNRequired       = runtimeconfig.ErrStorageDSNRequired
	ErrCacheTTLInvalid          = runtimeconfig.ErrCacheTTLInvalid
	ErrDefaultLocaleUnsupported = runtimeconfig.ErrDefaultLocaleUnsupported
	ErrLocaleUnsupported        = runtimeconfig.ErrLocaleUnsupported
	ErrUnknownIDPolicyInvalid   = runtimeconfig.ErrUnknownIDPolicyInvalid
	ErrCommandTimeoutInvalid    = runtimeconfig.ErrCommandTimeoutInvalid
	ErrImportDirRequired        = runtimeconfig.ErrImportDirRequired
	ErrLoggingProviderRequired  = runtimeconfig.ErrLoggingProviderRequired
	ErrLoggingProviderUnknown   = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid      = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid     = runtimeconfig.ErrLoggingFormatInvalid
	ErrLoggingRotationInvalid   = runtimeconfig.ErrLoggingRotationInvalid
	ErrConfigFormatUnknown      = runtimeconfig.ErrConfigFormatUnknown
)

const (
	DriverSQLite         = runtimeconfig.DriverSQLite
	DriverPostgres       = runtimeconfig.DriverPostgres
	UnknownIDsReject     = runtimeconfig.UnknownIDsReject
	UnknownIDsTreatAsNew = runtimeconfig.UnknownIDsTreatAsNew
)

type (
	Config          = runtimeconfig.Config
	StorageConfig   = runtimeconfig.StorageConfig
	CacheConfig     = runtimeconfig.CacheConfig
	I18NConfig      = runtimeconfig.I18NConfig
	ReconcileConfig = runtimeconfig.ReconcileConfig
	CommandsConfig  = runtimeconfig.CommandsConfig
	MarkdownConfig  = runtimeconfig.MarkdownConfig
	ImportConfig    = runtimeconfig.ImportConfig
	Features        = runtimeconfig.Features
	LoggingConfig   = runtimeconfig.LoggingConfig
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// LoadConfig reads a YAML or TOML file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	return runtimeconfig.Load(path)
}
