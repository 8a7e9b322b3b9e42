package config

import (
	"fmt"
	"os"
	"strconv"
)

const EnvPrefix = "WINTIMER_"

// LoadFromEnv overrides conf with WINTIMER_* variables, e.g.
// WINTIMER_ROLE=client or WINTIMER_USE_SYSTEM_CLOCK=false.
func LoadFromEnv(conf *AppConfig) error {
	strs := map[string]*string{
		"LOG_PATH":          &conf.LogPath,
		"LOG_NAME":          &conf.LogName,
		"LOG_LEVEL":         &conf.LogLevel,
		"TICK_DRIVER":       &conf.TickDriver,
		"ROLE":              &conf.Role,
		"SHARED_BACKEND":    &conf.SharedBackend,
		"SHM_PATH":          &conf.ShmPath,
		"REDIS_KEY":         &conf.RedisKey,
		"REDIS_MODE":        &conf.RedisMode,
		"REDIS_ADDR":        &conf.RedisAddr,
		"REDIS_MASTER_NAME": &conf.RedisMasterName,
		"REDIS_PASSWORD":    &conf.RedisPassword,
	}
	for name, p := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*p = v
		}
	}

	bools := map[string]*bool{
		"IS_DEBUG":         &conf.IsDebug,
		"LOG_STD_OUT":      &conf.LogStdOut,
		"LOG_ZAP":          &conf.LogZap,
		"USE_SYSTEM_CLOCK": &conf.UseSystemClock,
		"MULTI_PROCESS":    &conf.MultiProcess,
	}
	for name, p := range bools {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("env %s%s: %w", EnvPrefix, name, err)
			}
			*p = b
		}
	}

	ints := map[string]*int{
		"SERVER_ID":     &conf.ServerId,
		"REDIS_DB":      &conf.RedisDB,
		"REDIS_SYNC_MS": &conf.RedisSyncMs,
		"LOCK_TTL_MS":   &conf.LockTTLMs,
	}
	for name, p := range ints {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("env %s%s: %w", EnvPrefix, name, err)
			}
			*p = n
		}
	}
	return nil
}
