package metagraph

import (
	"time"
)

// Config consolidates settings for the reconciliation core
type Config struct {
	Database DatabaseConfig `json:"database"`
	Path     PathConfig     `json:"path"`
	Sync     SyncConfig     `json:"sync"`
	Removal  RemovalConfig  `json:"removal"`
	Logging  LoggingConfig  `json:"logging"`
}

// TableNames names the backing tables of the PostgreSQL graph store
type TableNames struct {
	Nodes string `json:"nodes"`
	Edges string `json:"edges"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Database        string        `json:"database"`
	Username        string        `json:"username"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"sslMode"`
	MaxConnections  int           `json:"maxConnections"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime"`
	Timeout         time.Duration `json:"timeout"`
	TableNames      TableNames    `json:"tableNames"`
}

// PathConfig controls how path strings are decomposed into chains
type PathConfig struct {
	SchemeDelimiter string `json:"schemeDelimiter"`
	Separator       string `json:"separator"`
	MaxSegments     int    `json:"maxSegments"`
}

// SyncConfig contains composite synchronizer settings
type SyncConfig struct {
	ListPageSize  int `json:"listPageSize"`
	MaxTreeDepth  int `json:"maxTreeDepth"`
	MaxListLength int `json:"maxListLength"`
}

// RemovalConfig contains reference-counted removal settings.
// OwnershipEdgeKinds is the default set consulted before deleting a
// shared leaf; callers may pass a narrower set per call.
type RemovalConfig struct {
	OwnershipEdgeKinds []EdgeKind `json:"ownershipEdgeKinds"`
	ProbePageSize      int        `json:"probePageSize"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level            string `json:"level"`
	Format           string `json:"format"`
	EnableStructured bool   `json:"enableStructured"`
	LogStoreCalls    bool   `json:"logStoreCalls"`
	LogErrors        bool   `json:"logErrors"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			SSLMode:         "disable",
			MaxConnections:  25,
			ConnMaxLifetime: 5 * time.Minute,
			Timeout:         30 * time.Second,
			TableNames: TableNames{
				Nodes: "graph_nodes",
				Edges: "graph_edges",
			},
		},
		Path: PathConfig{
			SchemeDelimiter: "://",
			Separator:       "/",
			MaxSegments:     64,
		},
		Sync: SyncConfig{
			ListPageSize:  100,
			MaxTreeDepth:  32,
			MaxListLength: 1000,
		},
		Removal: RemovalConfig{
			OwnershipEdgeKinds: []EdgeKind{
				EdgeKindConnectionEndpoint,
				EdgeKindConnectionConnectorType,
				EdgeKindEmbeddedConnection,
				EdgeKindCapabilityFolder,
				EdgeKindFolderHierarchy,
				EdgeKindNestedFile,
				EdgeKindCapabilityAsset,
				EdgeKindAssetSchemaType,
				EdgeKindSchemaTypeAttribute,
				EdgeKindNestedSchemaAttribute,
				EdgeKindAttributeType,
				EdgeKindMapFromSchemaType,
				EdgeKindMapToSchemaType,
				EdgeKindSchemaTypeOption,
			},
			ProbePageSize: 1,
		},
		Logging: LoggingConfig{
			Level:            "info",
			Format:           "json",
			EnableStructured: true,
			LogStoreCalls:    false,
			LogErrors:        true,
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.MaxConnections <= 0 {
		return &ConfigError{Field: "database.maxConnections", Message: "must be greater than 0"}
	}
	if c.Database.TableNames.Nodes == "" {
		return &ConfigError{Field: "database.tableNames.nodes", Message: "must not be empty"}
	}
	if c.Database.TableNames.Edges == "" {
		return &ConfigError{Field: "database.tableNames.edges", Message: "must not be empty"}
	}
	if c.Path.Separator == "" {
		return &ConfigError{Field: "path.separator", Message: "must not be empty"}
	}
	if c.Path.SchemeDelimiter == "" {
		return &ConfigError{Field: "path.schemeDelimiter", Message: "must not be empty"}
	}
	if c.Path.MaxSegments <= 0 {
		return &ConfigError{Field: "path.maxSegments", Message: "must be greater than 0"}
	}
	if c.Sync.ListPageSize <= 0 {
		return &ConfigError{Field: "sync.listPageSize", Message: "must be greater than 0"}
	}
	if c.Sync.MaxTreeDepth <= 0 {
		return &ConfigError{Field: "sync.maxTreeDepth", Message: "must be greater than 0"}
	}
	if c.Removal.ProbePageSize <= 0 {
		return &ConfigError{Field: "removal.probePageSize", Message: "must be greater than 0"}
	}
	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}
