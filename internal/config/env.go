package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "LIVETUNE"

// applyEnv overlays LIVETUNE_* environment variables onto cfg.
func applyEnv(cfg *Config) ([]Warning, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	strs := []struct {
		key    string
		target *string
		lower  bool
	}{
		{key: "store.backend", target: &cfg.Store.Backend, lower: true},
		{key: "store.path", target: &cfg.Store.Path},
		{key: "store.redis.addr", target: &cfg.Store.Redis.Addr},
		{key: "store.redis.password", target: &cfg.Store.Redis.Password},
		{key: "log.level", target: &cfg.Log.Level, lower: true},
	}

	warnings := make([]Warning, 0)
	for _, s := range strs {
		if err := v.BindEnv(s.key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", s.key, err)
		}
		if !v.IsSet(s.key) {
			continue
		}
		value := strings.TrimSpace(v.GetString(s.key))
		if s.lower {
			value = strings.ToLower(value)
		}
		*s.target = value
		warnings = append(warnings, envWarning(s.key))
	}

	const dbKey = "store.redis.db"
	if err := v.BindEnv(dbKey); err != nil {
		return nil, fmt.Errorf("bind env %s: %w", dbKey, err)
	}
	if v.IsSet(dbKey) {
		db, err := parseEnvInt(v.GetString(dbKey))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", envName(dbKey), err)
		}
		cfg.Store.Redis.DB = db
		warnings = append(warnings, envWarning(dbKey))
	}

	return warnings, nil
}

func parseEnvInt(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("expected integer (got %q)", raw)
	}
	return n, nil
}

func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func envWarning(key string) Warning {
	return Warning{Message: fmt.Sprintf("%s overrides %s", envName(key), key)}
}
