package config

import (
	"cdplend/core"

	configUtil "github.com/fox-one/pkg/config"
)

const (
	defaultAddr          = ":9000"
	defaultOracleTimeout = 10
	defaultOracleTTL     = 30
	defaultLocation      = "UTC"
)

// Load load config file, env vars prefixed with CDPLEND override file values
func Load(configFile string, config *core.Config) error {
	configUtil.AutomaticLoadEnv("CDPLEND")
	if err := configUtil.LoadYaml(configFile, config); err != nil {
		return err
	}

	withDefaults(config)
	return nil
}

func withDefaults(cfg *core.Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}

	if cfg.Oracle.Timeout <= 0 {
		cfg.Oracle.Timeout = defaultOracleTimeout
	}

	if cfg.Oracle.CacheTTL <= 0 {
		cfg.Oracle.CacheTTL = defaultOracleTTL
	}

	if cfg.App.Location == "" {
		cfg.App.Location = defaultLocation
	}
}
