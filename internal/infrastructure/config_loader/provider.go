package loader

import (
	obswire "github.com/bionicotaku/lingo-utils/observability"
	outboxcfg "github.com/bionicotaku/lingo-utils/outbox/config"
	txconfig "github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/google/wire"
)

// ProviderSet exposes configuration-derived dependencies for Wire graphs.
var ProviderSet = wire.NewSet(
	ProvideServiceMetadata,
	ProvideBootstrap,
	ProvideServerConfig,
	ProvideDataConfig,
	ProvideSocialConfig,
	ProvideStorageConfig,
	ProvideMessagingConfig,
	ProvideObservabilityConfig,
	ProvideTxConfig,
	ProvideOutboxConfig,
)

// ProvideServiceMetadata returns the resolved ServiceMetadata from the bundle.
func ProvideServiceMetadata(b *Bundle) ServiceMetadata {
	if b == nil {
		return ServiceMetadata{}
	}
	return b.Service
}

// ProvideBootstrap exposes the strongly typed bootstrap configuration.
func ProvideBootstrap(b *Bundle) *Bootstrap {
	if b == nil || b.Bootstrap == nil {
		return &Bootstrap{}
	}
	return b.Bootstrap
}

// ProvideServerConfig returns the server section of the bootstrap configuration.
func ProvideServerConfig(bc *Bootstrap) *Server {
	return &bc.Server
}

// ProvideDataConfig returns the data section of the bootstrap configuration.
func ProvideDataConfig(bc *Bootstrap) *Data {
	return &bc.Data
}

// ProvideSocialConfig returns the business section of the bootstrap configuration.
func ProvideSocialConfig(bc *Bootstrap) *Social {
	return &bc.Social
}

// ProvideStorageConfig returns the object storage section.
func ProvideStorageConfig(bc *Bootstrap) *Storage {
	return &bc.Storage
}

// ProvideMessagingConfig returns the Pub/Sub and outbox section.
func ProvideMessagingConfig(bc *Bootstrap) *Messaging {
	return &bc.Messaging
}

// ProvideObservabilityConfig exposes the normalized observability configuration.
func ProvideObservabilityConfig(b *Bundle) obswire.ObservabilityConfig {
	if b == nil {
		return obswire.ObservabilityConfig{}
	}
	return b.ObsConfig
}

// ProvideTxConfig exposes the txmanager defaults.
func ProvideTxConfig(b *Bundle) txconfig.Config {
	if b == nil {
		return txconfig.Config{}
	}
	return b.TxConfig
}

// ProvideOutboxConfig exposes the shared outbox settings (schema + publisher).
func ProvideOutboxConfig(b *Bundle) outboxcfg.Config {
	if b == nil {
		return outboxcfg.Config{Schema: defaultSchema}
	}
	return b.OutboxConfig
}
