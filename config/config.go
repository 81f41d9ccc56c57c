// Package config defines the driver configuration shared by the session
// factory and the transport drivers.
//
// Configuration is a plain comparable struct: the session factory uses value
// equality as the cache key that decides whether an already-registered driver
// connection can be reused or has to be re-established.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/ogm/types"
)

// Configuration describes how to reach a graph backend.
//
// All fields are comparable so two Configuration values can be checked for
// equality with ==.
type Configuration struct {
	// Driver selects the transport backend by its registered name,
	// e.g. "embedded", "http" or "bolt".
	Driver string `yaml:"driver"`

	// URI is the backend address. Ignored by the embedded driver.
	// For bolt use "bolt://host:port" (or "neo4j://" for routing),
	// for http the base URL of the transactional endpoint.
	URI string `yaml:"uri"`

	// Username and Password authenticate against the backend.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Database selects a named database. Empty uses the backend default.
	Database string `yaml:"database"`

	// MaxConnectionPoolSize limits pooled connections. Zero uses the
	// transport default.
	MaxConnectionPoolSize int `yaml:"max_connection_pool_size"`

	// ConnectionTimeout is the maximum time to wait for a connection.
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`

	// AutoIndex enables index creation at session factory construction.
	AutoIndex bool `yaml:"auto_index"`
}

// DefaultConfiguration returns a Configuration with sensible defaults for a
// local embedded backend.
func DefaultConfiguration() Configuration {
	return Configuration{
		Driver:                "embedded",
		MaxConnectionPoolSize: 50,
		ConnectionTimeout:     30 * time.Second,
	}
}

// Validate checks if the configuration is valid.
func (c Configuration) Validate() error {
	if c.Driver == "" {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "Driver cannot be empty")
	}
	if c.Driver != "embedded" && c.URI == "" {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "URI cannot be empty for remote drivers")
	}
	if c.ConnectionTimeout < 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "ConnectionTimeout cannot be negative")
	}
	if c.MaxConnectionPoolSize < 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "MaxConnectionPoolSize cannot be negative")
	}
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler. It exists because yaml.v3 does
// not decode duration strings like "30s" into time.Duration on its own.
func (c *Configuration) UnmarshalYAML(value *yaml.Node) error {
	type raw struct {
		Driver                string `yaml:"driver"`
		URI                   string `yaml:"uri"`
		Username              string `yaml:"username"`
		Password              string `yaml:"password"`
		Database              string `yaml:"database"`
		MaxConnectionPoolSize *int   `yaml:"max_connection_pool_size"`
		ConnectionTimeout     string `yaml:"connection_timeout"`
		AutoIndex             *bool  `yaml:"auto_index"`
	}

	var r raw
	if err := value.Decode(&r); err != nil {
		return err
	}

	if r.Driver != "" {
		c.Driver = r.Driver
	}
	if r.URI != "" {
		c.URI = r.URI
	}
	if r.Username != "" {
		c.Username = r.Username
	}
	if r.Password != "" {
		c.Password = r.Password
	}
	if r.Database != "" {
		c.Database = r.Database
	}
	if r.MaxConnectionPoolSize != nil {
		c.MaxConnectionPoolSize = *r.MaxConnectionPoolSize
	}
	if r.AutoIndex != nil {
		c.AutoIndex = *r.AutoIndex
	}
	if r.ConnectionTimeout != "" {
		d, err := time.ParseDuration(r.ConnectionTimeout)
		if err != nil {
			return err
		}
		c.ConnectionTimeout = d
	}
	return nil
}

// Load parses a Configuration from YAML bytes and validates it.
// Fields absent from the document keep their DefaultConfiguration values.
func Load(data []byte) (Configuration, error) {
	conf := DefaultConfiguration()
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return Configuration{}, types.WrapError(types.CONFIG_PARSE_FAILED, "cannot parse configuration", err)
	}
	if err := conf.Validate(); err != nil {
		return Configuration{}, err
	}
	return conf, nil
}

// LoadFile reads and parses a Configuration from a YAML file.
func LoadFile(path string) (Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Configuration{}, types.WrapError(types.CONFIG_LOAD_FAILED, "cannot read configuration file", err)
	}
	return Load(data)
}
