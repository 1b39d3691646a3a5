// Package config loads settings for the xmppcert command from defaults, an
// optional config file and XMPPCERT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/mcpherrinm/xmppcert"
	"github.com/mcpherrinm/xmppcert/decoder"
)

// Keys understood by Load.
const (
	KeyDecoder   = "decoder"
	KeyLogLevel  = "log.level"
	KeyLogFormat = "log.format"
	KeySRVType   = "srv_type"
	KeyDomains   = "domains"
)

const EnvPrefix = "XMPPCERT"

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Decoder decoder.Kind `mapstructure:"decoder"`
	Log     Log          `mapstructure:"log"`
	// SRVType is the service checked against SRVName alternative names. Empty
	// disables SRVName matching.
	SRVType string `mapstructure:"srv_type"`
	// Domains restricts the domains client certificates are accepted for. Nil
	// accepts any domain.
	Domains []string `mapstructure:"domains"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyDecoder, string(decoder.KindDER))
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeySRVType, xmppcert.DefaultSRVType)
}

// Load reads the configuration held by v. If a config file was set with
// v.SetConfigFile it is read first; environment variables override it.
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// domains has no default, so AutomaticEnv alone would not surface it.
	if err := v.BindEnv(KeyDomains); err != nil {
		return nil, err
	}

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToSliceHookFunc(","),
		decoderKindHook(),
	)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	if strings.ContainsAny(c.SRVType, "._") {
		return fmt.Errorf("srv_type: %q must be a bare service name such as %q", c.SRVType, xmppcert.DefaultSRVType)
	}

	var domains []string
	for i, d := range c.Domains {
		d = strings.TrimSpace(d)
		if d == "" {
			return fmt.Errorf("domains: entry %d is blank", i+1)
		}
		if !xmppcert.DomainsEqual(d, d) {
			return fmt.Errorf("domains: %q is not a domain", d)
		}
		domains = append(domains, d)
	}
	c.Domains = domains
	return nil
}

// decoderKindHook rejects decoder names that decoder.New does not know.
func decoderKindHook() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(decoder.Kind("")) {
			return data, nil
		}
		kind := decoder.Kind(strings.ToLower(data.(string)))
		switch kind {
		case decoder.KindDER, decoder.KindPlatform:
			return kind, nil
		}
		return nil, fmt.Errorf("decoder: unknown decoder %q", data)
	}
}
