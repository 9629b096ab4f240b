package asyncevents

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golobby/cast"
	"gopkg.in/yaml.v3"

	"github.com/davestimpert/polyn-async-events/wildcard"
)

// TopicConfig describes how to construct a Topic from a config file. Field
// tags follow the teacher's convention of one struct serving toml, yaml, and
// environment-variable overrides simultaneously.
type TopicConfig struct {
	Name       string        `toml:"name" yaml:"name" env:"NAME"`
	AckTimeout time.Duration `toml:"ack_timeout" yaml:"ack_timeout" env:"ACK_TIMEOUT"`
}

// LoadTopicConfig reads path (by extension, .toml or .yaml/.yml) into a
// TopicConfig, then applies any ASYNCEVENTS_<prefix>_<FIELD> environment
// overrides on top of the file values.
func LoadTopicConfig(path, envPrefix string) (TopicConfig, error) {
	var cfg TopicConfig
	if err := decodeConfigFile(path, &cfg); err != nil {
		return cfg, err
	}
	if err := applyEnvOverrides(&cfg, envPrefix); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// WildcardConfig describes how to construct a wildcard Emitter from a config
// file.
type WildcardConfig struct {
	Delimiter      string `toml:"delimiter" yaml:"delimiter" env:"DELIMITER"`
	Wildcard       string `toml:"wildcard" yaml:"wildcard" env:"WILDCARD"`
	NoSubscription string `toml:"no_subscription_event" yaml:"no_subscription_event" env:"NO_SUBSCRIPTION_EVENT"`
}

// LoadWildcardConfig reads path into a WildcardConfig and applies environment
// overrides, the same way LoadTopicConfig does.
func LoadWildcardConfig(path, envPrefix string) (WildcardConfig, error) {
	var cfg WildcardConfig
	if err := decodeConfigFile(path, &cfg); err != nil {
		return cfg, err
	}
	if err := applyEnvOverrides(&cfg, envPrefix); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// NewEmitter builds a wildcard.Emitter from a loaded WildcardConfig.
func (c WildcardConfig) NewEmitter() *wildcard.Emitter {
	return wildcard.NewEmitter(wildcard.Config{
		Delimiter:           c.Delimiter,
		Wildcard:            c.Wildcard,
		NoSubscriptionEvent: c.NoSubscription,
	})
}

// LoadWildcardEmitter loads path into a WildcardConfig and constructs the
// wildcard.Emitter it describes in one call.
func LoadWildcardEmitter(path, envPrefix string) (*wildcard.Emitter, error) {
	cfg, err := LoadWildcardConfig(path, envPrefix)
	if err != nil {
		return nil, err
	}
	return cfg.NewEmitter(), nil
}

func decodeConfigFile(path string, v any) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		_, err := toml.DecodeFile(path, v)
		return err
	case ".yaml", ".yml":
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return yaml.Unmarshal(b, v)
	default:
		return fmt.Errorf("asyncevents: unsupported config extension %q", ext)
	}
}

// applyEnvOverrides walks the exported fields of v's underlying struct and,
// for each one tagged env:"X", overrides it from ASYNCEVENTS_<prefix>_X if
// that environment variable is set. Values are cast from their string form to
// the field's declared type via golobby/cast, mirroring the teacher's
// affixed-env feeder, except time.Duration fields, which golobby/cast cannot
// convert and which are parsed with time.ParseDuration instead.
func applyEnvOverrides(v any, prefix string) error {
	rv := reflect.ValueOf(v).Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		tag := field.Tag.Get("env")
		if tag == "" {
			continue
		}
		name := envVarName(prefix, tag)
		raw, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		if field.Type == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return fmt.Errorf("asyncevents: env override %s: %w", name, err)
			}
			rv.Field(i).Set(reflect.ValueOf(d))
			continue
		}
		converted, err := cast.FromType(raw, field.Type)
		if err != nil {
			return fmt.Errorf("asyncevents: env override %s: %w", name, err)
		}
		rv.Field(i).Set(reflect.ValueOf(converted))
	}
	return nil
}

func envVarName(prefix, field string) string {
	if prefix == "" {
		return "ASYNCEVENTS_" + strings.ToUpper(field)
	}
	return "ASYNCEVENTS_" + strings.ToUpper(prefix) + "_" + strings.ToUpper(field)
}
