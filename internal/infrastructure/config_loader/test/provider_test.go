package loader_test

import (
	"testing"

	loader "github.com/bionicotaku/lingo-services-social/internal/infrastructure/config_loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviders(t *testing.T) {
	clearEnv(t)
	dir := writeConfig(t, minimalConfig)
	bundle, err := loader.Build(loader.Params{ConfPath: dir})
	require.NoError(t, err)

	bc := loader.ProvideBootstrap(bundle)
	require.Same(t, bundle.Bootstrap, bc)
	assert.Same(t, &bc.Server, loader.ProvideServerConfig(bc))
	assert.Same(t, &bc.Data, loader.ProvideDataConfig(bc))
	assert.Same(t, &bc.Social, loader.ProvideSocialConfig(bc))
	assert.Same(t, &bc.Storage, loader.ProvideStorageConfig(bc))
	assert.Same(t, &bc.Messaging, loader.ProvideMessagingConfig(bc))
	assert.Equal(t, bundle.Service, loader.ProvideServiceMetadata(bundle))
	assert.Equal(t, bundle.TxConfig, loader.ProvideTxConfig(bundle))
	assert.Equal(t, bundle.OutboxConfig, loader.ProvideOutboxConfig(bundle))
}

func TestProviders_NilBundle(t *testing.T) {
	assert.NotNil(t, loader.ProvideBootstrap(nil))
	assert.Equal(t, loader.ServiceMetadata{}, loader.ProvideServiceMetadata(nil))
	assert.Nil(t, loader.ProvideObservabilityConfig(nil).Tracing)
	assert.Equal(t, "social", loader.ProvideOutboxConfig(nil).Schema)
}
