package config

import (
	"os"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/turtacn/grantsync/pkg/errors"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "GRANTSYNC"

var envKeyReplacer = strings.NewReplacer(".", "_")

// legacyEnv maps config keys to the unprefixed variable names older
// deployments export.  The prefixed name wins when both are set.
var legacyEnv = map[string]string{
	"database.host":        "DB_HOST",
	"database.port":        "DB_PORT",
	"database.db_name":     "DB_NAME",
	"database.user":        "DB_USER",
	"database.password":    "DB_PASS",
	"uspto.cert_file_path": "USPTO_CERT_FILE_PATH",
}

// newViper builds a Viper instance with YAML file type, the GRANTSYNC_ env
// prefix and every key of Config bound to its environment variable, so that
// nested keys like "database.host" resolve to "GRANTSYNC_DATABASE_HOST" even
// without a config file.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	v.SetDefault("database.auto_create_schema", true)

	for _, key := range configKeys(reflect.TypeOf(Config{}), "") {
		names := []string{EnvName(key)}
		if legacy, ok := legacyEnv[key]; ok {
			names = append(names, legacy)
		}
		_ = v.BindEnv(append([]string{key}, names...)...)
	}
	return v
}

// EnvName returns the prefixed environment variable for a config key.
func EnvName(key string) string {
	return envPrefix + "_" + strings.ToUpper(envKeyReplacer.Replace(key))
}

// configKeys walks the mapstructure tags of t and returns the dotted key of
// every leaf field.
func configKeys(t reflect.Type, prefix string) []string {
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		if f.Type.Kind() == reflect.Struct {
			keys = append(keys, configKeys(f.Type, key)...)
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// LoadDotEnv exports the variables of a .env file into the process
// environment.  Variables that are already set are not overridden, and a
// missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeValidation, "failed to load "+path)
	}
	return nil
}

// Load reads the optional YAML file at configPath, merges GRANTSYNC_* and
// legacy environment overrides, applies defaults and validates the result.
// An empty configPath loads from the environment alone.
func Load(configPath string) (*Config, error) {
	v := newViper()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.New(errors.ErrCodeValidation, "failed to read config file").
				WithDetail(configPath).
				WithCause(err)
		}
	}
	return unmarshalAndFinalize(v)
}

// unmarshalAndFinalize unmarshals viper state into a Config, applies defaults
// and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "failed to unmarshal configuration")
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
