package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

var Config *AppConfig

type AppConfig struct {
	ServerId    int    `json:"server_id" toml:"server_id"`
	AppVersion  string `json:"app_version" toml:"app_version"`
	IsDebug     bool   `json:"is_debug" toml:"is_debug"`
	LogConfig   `json:",inline" toml:"log"`
	TimerConfig `json:",inline" toml:"timer"`
	RedisConfig `json:",inline" toml:"redis"`
}

type LogConfig struct {
	LogPath   string `json:"log_path" toml:"log_path"`
	LogName   string `json:"log_name" toml:"log_name"`
	LogLevel  string `json:"log_level" toml:"log_level"` // fatal..trace
	LogStdOut bool   `json:"log_std_out" toml:"log_std_out"`
	LogZap    bool   `json:"log_zap" toml:"log_zap"` // 使用zap输出
}

const (
	RoleServer = "server"
	RoleClient = "client"

	BackendShm   = "shm"
	BackendRedis = "redis"
)

type TimerConfig struct {
	UseSystemClock bool   `json:"use_system_clock" toml:"use_system_clock"` // false: 按墙上时间拉取tick
	TickDriver     string `json:"tick_driver" toml:"tick_driver"`           // interrupt | ticker
	MultiProcess   bool   `json:"multi_process" toml:"multi_process"`
	Role           string `json:"role" toml:"role"`                     // server 写tick, client 只读
	SharedBackend  string `json:"shared_backend" toml:"shared_backend"` // shm | redis
	ShmPath        string `json:"shm_path" toml:"shm_path"`
	RedisKey       string `json:"redis_key" toml:"redis_key"`
	RedisSyncMs    int    `json:"redis_sync_ms" toml:"redis_sync_ms"`
	LockTTLMs      int    `json:"lock_ttl_ms" toml:"lock_ttl_ms"`
}

type RedisConfig struct {
	RedisMode       string `json:"redis_mode" toml:"redis_mode"`
	RedisAddr       string `json:"redis_addr" toml:"redis_addr"` // 多个地址用,隔开
	RedisMasterName string `json:"redis_master_name" toml:"redis_master_name"`
	RedisPassword   string `json:"redis_password" toml:"redis_password"`
	RedisDB         int    `json:"redis_db" toml:"redis_db"`
}

// IsClient reports whether this process only reads a shared tick counter.
func (c *TimerConfig) IsClient() bool {
	return c.MultiProcess && c.Role == RoleClient
}

func Default() *AppConfig {
	return &AppConfig{
		LogConfig: LogConfig{
			LogPath:   "./logs",
			LogName:   "wintimer",
			LogLevel:  "info",
			LogStdOut: true,
		},
		TimerConfig: TimerConfig{
			UseSystemClock: true,
			TickDriver:     "interrupt",
			Role:           RoleServer,
			SharedBackend:  BackendShm,
			ShmPath:        filepath.Join(os.TempDir(), "wintimer.tick"),
			RedisKey:       "wintimer:tick",
			RedisSyncMs:    10,
			LockTTLMs:      3000,
		},
		RedisConfig: RedisConfig{
			RedisMode: "single",
			RedisAddr: "127.0.0.1:6379",
		},
	}
}

// LoadConfig 读取配置文件(.json/.toml), 再用环境变量覆盖
func LoadConfig(configFile string, loadConfigFromEnv func(*AppConfig) error) error {
	conf := Default()
	if len(configFile) != 0 {
		if err := loadConfigFromFile(configFile, conf); err != nil {
			return err
		}
	}
	if loadConfigFromEnv != nil {
		if err := loadConfigFromEnv(conf); err != nil {
			return err
		}
	}
	Config = conf
	return nil
}

func loadConfigFromFile(configFile string, conf *AppConfig) error {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return err
	}
	if strings.EqualFold(filepath.Ext(configFile), ".toml") {
		return toml.Unmarshal(data, conf)
	}
	return json.Unmarshal(data, conf)
}

func (conf *AppConfig) JsonFormat() string {
	if conf == nil {
		return "{}"
	}
	data, err := json.MarshalIndent(conf, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}
