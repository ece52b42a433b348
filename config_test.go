package metagraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())

	assert.Equal(t, "graph_nodes", config.Database.TableNames.Nodes)
	assert.Equal(t, "graph_edges", config.Database.TableNames.Edges)
	assert.Equal(t, "://", config.Path.SchemeDelimiter)
	assert.Equal(t, "/", config.Path.Separator)
	assert.NotEmpty(t, config.Removal.OwnershipEdgeKinds)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "zero max connections",
			mutate:    func(c *Config) { c.Database.MaxConnections = 0 },
			wantField: "database.maxConnections",
		},
		{
			name:      "empty nodes table",
			mutate:    func(c *Config) { c.Database.TableNames.Nodes = "" },
			wantField: "database.tableNames.nodes",
		},
		{
			name:      "empty edges table",
			mutate:    func(c *Config) { c.Database.TableNames.Edges = "" },
			wantField: "database.tableNames.edges",
		},
		{
			name:      "empty separator",
			mutate:    func(c *Config) { c.Path.Separator = "" },
			wantField: "path.separator",
		},
		{
			name:      "empty scheme delimiter",
			mutate:    func(c *Config) { c.Path.SchemeDelimiter = "" },
			wantField: "path.schemeDelimiter",
		},
		{
			name:      "zero max segments",
			mutate:    func(c *Config) { c.Path.MaxSegments = 0 },
			wantField: "path.maxSegments",
		},
		{
			name:      "zero list page size",
			mutate:    func(c *Config) { c.Sync.ListPageSize = 0 },
			wantField: "sync.listPageSize",
		},
		{
			name:      "negative tree depth",
			mutate:    func(c *Config) { c.Sync.MaxTreeDepth = -1 },
			wantField: "sync.maxTreeDepth",
		},
		{
			name:      "zero probe page size",
			mutate:    func(c *Config) { c.Removal.ProbePageSize = 0 },
			wantField: "removal.probePageSize",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)

			err := config.Validate()
			require.Error(t, err)

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantField, cfgErr.Field)
			assert.Contains(t, err.Error(), tt.wantField)
		})
	}
}
