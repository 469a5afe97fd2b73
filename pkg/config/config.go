// Package config loads this plugin's operator-facing defaults: which
// technique to register, the force_all_chunks shape, and an optional
// override for the native library search path — everything the host would
// otherwise only be able to set through the per-instance profile map handed
// to factory() (spec §6 "init"). Ported from the teacher's viper-based
// cluster config loader, restructured around the codec's own settings.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config is this plugin's own configuration, independent of any one
// codec instance's profile.
type Config struct {
	Codec struct {
		// Technique selects which Core factory PluginInit registers by
		// default: "sizeceph" or "simple_xor".
		Technique string `mapstructure:"technique"`
		// ForceAllChunks mirrors the profile key of the same name (spec §3
		// profile table): when true, SizeCeph expects k=9, m=0 instead of
		// the standard k=4, m=5.
		ForceAllChunks bool `mapstructure:"force_all_chunks"`
	} `mapstructure:"codec"`

	Native struct {
		// LibraryPath, when set, takes priority over
		// binding.EnvOverride/binding.DefaultSearchPaths (spec §6
		// "Library-search order").
		LibraryPath string `mapstructure:"library_path"`
	} `mapstructure:"native"`

	Diagnostics struct {
		// LedgerPath, when non-empty, enables the bolt-backed diagnostics
		// ledger (pkg/storage). cmd/plugind records its self-check decode
		// refusals there; nothing in this module records ref-count
		// transitions into it.
		LedgerPath string `mapstructure:"ledger_path"`
	} `mapstructure:"diagnostics"`

	Metrics struct {
		ListenAddr string `mapstructure:"listen_addr"`
	} `mapstructure:"metrics"`
}

// Load reads path (if non-empty) as a YAML config file, applies
// SIZECEPH_-prefixed environment overrides (e.g. SIZECEPH_CODEC_TECHNIQUE),
// and fills in hard defaults. Priority, highest first: environment, file,
// defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix("SIZECEPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("codec.technique", "sizeceph")
	v.SetDefault("codec.force_all_chunks", false)
	v.SetDefault("native.library_path", "")
	v.SetDefault("diagnostics.ledger_path", "")
	v.SetDefault("metrics.listen_addr", ":9102")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
