// Package config resolves the settings of a generation run from a gqlfunc.yaml
// file, the environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"

	"github.com/samwightt/gqlfunc/pkg/codegen"
	"github.com/samwightt/gqlfunc/pkg/operations"
	"github.com/samwightt/gqlfunc/pkg/registry"
	"github.com/samwightt/gqlfunc/pkg/schema"
)

const (
	DefaultOperationsPath = "netlify/netligraph/operations.graphql"
	DefaultOutputPath     = "netlify/functions/netligraph/netligraph.go"

	// EnvPrefix prefixes every environment variable read by Load.
	EnvPrefix = "GQLFUNC"
)

// Config represents the settings of one generation run.
type Config struct {
	// AppID identifies the application whose schema is fetched. It defaults
	// to SiteID.
	AppID     string   `mapstructure:"app_id"`
	SiteID    string   `mapstructure:"site_id"`
	AuthToken string   `mapstructure:"auth_token"`
	Services  []string `mapstructure:"services"`
	// SchemaFile, when set, replaces the schema service with a local SDL file.
	SchemaFile string `mapstructure:"schema_file"`

	OperationsPath string `mapstructure:"operations_path"`
	OutputPath     string `mapstructure:"output_path"`
	Package        string `mapstructure:"package"`

	ServeURL    string `mapstructure:"serve_url"`
	RegistryURL string `mapstructure:"registry_url"`

	EmptyOperations string            `mapstructure:"empty_operations"`
	Validation      string            `mapstructure:"validation"`
	Scalars         map[string]string `mapstructure:"scalars"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		OperationsPath:  DefaultOperationsPath,
		OutputPath:      DefaultOutputPath,
		Package:         codegen.DefaultPackage,
		ServeURL:        schema.DefaultServeURL,
		RegistryURL:     registry.DefaultURL,
		EmptyOperations: string(operations.EmptyPlaceholder),
		Validation:      string(codegen.StrictnessWarn),
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// SetDefaults registers the defaults on v so that environment variables for
// every key are picked up by AutomaticEnv.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("app_id", "")
	v.SetDefault("site_id", "")
	v.SetDefault("auth_token", "")
	v.SetDefault("services", []string{})
	v.SetDefault("schema_file", "")
	v.SetDefault("operations_path", d.OperationsPath)
	v.SetDefault("output_path", d.OutputPath)
	v.SetDefault("package", d.Package)
	v.SetDefault("serve_url", d.ServeURL)
	v.SetDefault("registry_url", d.RegistryURL)
	v.SetDefault("empty_operations", d.EmptyOperations)
	v.SetDefault("validation", d.Validation)
	v.SetDefault("scalars", map[string]string{})
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
}

// Load reads the configuration into a Config. When path is empty, gqlfunc.yaml
// in the working directory is used if it exists. Flags bound to v take
// precedence over the environment, which takes precedence over the file.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("gqlfunc")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// The build environment exposes these without the prefix.
	_ = v.BindEnv("site_id", EnvPrefix+"_SITE_ID", "SITE_ID")
	_ = v.BindEnv("auth_token", EnvPrefix+"_AUTH_TOKEN", "NETLIFY_API_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()

	return &cfg, nil
}

func (c *Config) normalize() {
	if c.AppID == "" {
		c.AppID = c.SiteID
	}
	services := c.Services[:0]
	for _, s := range c.Services {
		if s = strings.TrimSpace(s); s != "" {
			services = append(services, s)
		}
	}
	c.Services = services
	c.ServeURL = strings.TrimRight(c.ServeURL, "/")
}

// Validate reports settings that cannot produce a run.
func (c *Config) Validate() error {
	if c.SchemaFile == "" && c.AppID == "" {
		return errors.New("no application: set app_id or site_id, or point schema_file at an SDL file")
	}
	if c.OperationsPath == "" {
		return errors.New("operations_path must not be empty")
	}
	if c.OutputPath == "" {
		return errors.New("output_path must not be empty")
	}
	if _, err := c.EmptyPolicy(); err != nil {
		return err
	}
	if _, err := c.Strictness(); err != nil {
		return err
	}
	if c.SchemaFile == "" {
		if _, err := url.Parse(c.ServeURL); err != nil {
			return fmt.Errorf("serve_url is not a valid URL: %w", err)
		}
	}
	return nil
}

func (c *Config) EmptyPolicy() (operations.EmptyPolicy, error) {
	return operations.ParseEmptyPolicy(c.EmptyOperations)
}

func (c *Config) Strictness() (codegen.Strictness, error) {
	return codegen.ParseStrictness(c.Validation)
}

// Endpoint is the GraphQL endpoint the generated functions call.
func (c *Config) Endpoint() string {
	return c.ServeURL + "/graphql?app_id=" + url.QueryEscape(c.AppID)
}
