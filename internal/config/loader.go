package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every generic environment override, e.g.
// BOUNTYCATCH_INGEST_BULK_THRESHOLD.
const EnvPrefix = "BOUNTYCATCH"

// configName is the base name looked up in each search directory.
const configName = "config"

// libpqEnv maps config keys to the standard libpq environment variables.
var libpqEnv = map[string]string{
	"postgresql.host":     "PGHOST",
	"postgresql.port":     "PGPORT",
	"postgresql.database": "PGDATABASE",
	"postgresql.user":     "PGUSER",
	"postgresql.password": "PGPASSWORD",
}

// pgSizeRegex matches PostgreSQL memory settings such as 64MB or 1GB.
var pgSizeRegex = regexp.MustCompile(`^[0-9]+(kB|MB|GB|TB)?$`)

// searchPaths returns the directories scanned for a config file when none is given.
// It is a variable so tests can point discovery at a temp dir.
var searchPaths = func() []string {
	var dirs []string
	if dir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(dir, "bountycatch"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".bountycatch"))
	}
	dirs = append(dirs, "/etc/bountycatch")
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	return append(dirs, ".")
}

// setDefaults registers every key with viper. Keys must be known for
// AutomaticEnv to apply during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("postgresql.host", "localhost")
	v.SetDefault("postgresql.port", 5432)
	v.SetDefault("postgresql.database", "bountycatch")
	v.SetDefault("postgresql.user", "postgres")
	v.SetDefault("postgresql.password", "")
	v.SetDefault("postgresql.max_connections", 10)
	v.SetDefault("postgresql.min_connections", 0)
	v.SetDefault("postgresql.max_conn_lifetime", "1h")
	v.SetDefault("postgresql.max_conn_idle_time", "30m")

	v.SetDefault("ingest.bulk_threshold", 100_000)
	v.SetDefault("ingest.insert_batch_size", 10_000)
	v.SetDefault("ingest.copy_chunk_size", 5_000_000)
	v.SetDefault("ingest.remove_batch_size", 10_000)
	v.SetDefault("ingest.read_buffer_size", 1024*1024)
	v.SetDefault("ingest.work_mem", "256MB")
	v.SetDefault("ingest.maintenance_work_mem", "512MB")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.api_keys", []string{})
	v.SetDefault("server.trusted_proxies", []string{})
}

// Load reads configuration from the file at path, or from the first config
// file found in the search paths when path is empty, then applies environment
// overrides and validates the result.
// A missing file is only an error when path was given explicitly.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range libpqEnv {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("config load: bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config load: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName(configName)
		for _, dir := range searchPaths() {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config load: parse %s: %w", v.ConfigFileUsed(), err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	cfg.Source = v.ConfigFileUsed()
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// newValidator returns a validator with the custom pgsize rule registered.
func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("pgsize", func(fl validator.FieldLevel) bool {
		return pgSizeRegex.MatchString(fl.Field().String())
	})
	return validate
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	err := newValidator().Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	errs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, describeFieldError(fe))
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
}

// describeFieldError renders a single validator failure for operators.
func describeFieldError(fe validator.FieldError) string {
	rule := fe.Tag()
	if fe.Param() != "" {
		rule += "=" + fe.Param()
	}
	return fmt.Sprintf("%s (%v) must satisfy %s", fe.Namespace(), fe.Value(), rule)
}

// String returns a safe string representation of the config for logging.
// The database password is masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Database: {Host: %q, Port: %d, Name: %q, User: %q, Password: [MASKED], MaxConns: %d}, ",
		c.Database.Host, c.Database.Port, c.Database.Name, c.Database.User, c.Database.MaxConns))
	b.WriteString(fmt.Sprintf("Ingest: {BulkThreshold: %d, InsertBatchSize: %d, CopyChunkSize: %d}, ",
		c.Ingest.BulkThreshold, c.Ingest.InsertBatchSize, c.Ingest.CopyChunkSize))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}, ",
		c.Logging.Level, c.Logging.Format))
	b.WriteString(fmt.Sprintf("Server: {Addr: %q, APIKeys: %d configured, TrustedProxies: %v}",
		c.Server.Addr, len(c.Server.APIKeys), c.Server.TrustedProxies))
	b.WriteString("}")
	return b.String()
}
