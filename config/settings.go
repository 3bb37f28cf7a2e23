package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/unitrec/pkg/logging"
	"github.com/rushteam/unitrec/store"
)

// 配置文件查找：显式路径 > $UNITREC_CONFIG > ./unitrec.yaml
const (
	ConfigPathEnvVar  = "UNITREC_CONFIG"
	DefaultConfigFile = "unitrec.yaml"
	EnvPrefix         = "UNITREC_"
)

// Settings 是服务进程的全部配置。
type Settings struct {
	Server    ServerSettings    `koanf:"server"`
	Log       LogSettings       `koanf:"log"`
	Store     StoreSettings     `koanf:"store"`
	Recommend RecommendSettings `koanf:"recommend"`
}

type ServerSettings struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
}

type LogSettings struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

type StoreSettings struct {
	Driver      string          `koanf:"driver" validate:"oneof=memory csv sqlite redis badger"`
	Dir         string          `koanf:"dir"`
	SQLitePath  string          `koanf:"sqlite_path"`
	RedisAddr   string          `koanf:"redis_addr"`
	RedisDB     int             `koanf:"redis_db" validate:"gte=0"`
	RedisPrefix string          `koanf:"redis_prefix"`
	BadgerPath  string          `koanf:"badger_path"`
	Breaker     BreakerSettings `koanf:"breaker"`
}

type BreakerSettings struct {
	Enabled          bool          `koanf:"enabled"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
	Timeout          time.Duration `koanf:"timeout" validate:"gte=0"`
}

// RecommendSettings 是协同过滤与流水线参数。
type RecommendSettings struct {
	Neighbors      int     `koanf:"neighbors" validate:"gt=0"`
	MinCommonItems int     `koanf:"min_common_items" validate:"gt=0"`
	Metric         string  `koanf:"metric" validate:"oneof=cosine jaccard"`
	Aggregation    string  `koanf:"aggregation" validate:"oneof=weighted_average weighted_sum"`
	NeutralScore   float64 `koanf:"neutral_score" validate:"gt=0"`
	DefaultTopN    int     `koanf:"default_top_n" validate:"gt=0"`
	MaxTopN        int     `koanf:"max_top_n" validate:"gtefield=DefaultTopN"`
	Workers        int     `koanf:"workers" validate:"gte=0"`

	// PipelineFile 非空时从 YAML / JSON 加载流水线，否则使用内置的默认流水线
	PipelineFile string `koanf:"pipeline_file"`
}

// Defaults 返回内置默认配置。
func Defaults() Settings {
	return Settings{
		Server: ServerSettings{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Log: LogSettings{Level: "info", Format: "json"},
		Store: StoreSettings{
			Driver:      store.DriverCSV,
			Dir:         ".",
			SQLitePath:  "unitrec.db",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "unitrec",
			BadgerPath:  "data/badger",
			Breaker: BreakerSettings{
				FailureThreshold: 5,
				Timeout:          30 * time.Second,
			},
		},
		Recommend: RecommendSettings{
			Neighbors:      40,
			MinCommonItems: 1,
			Metric:         "cosine",
			Aggregation:    "weighted_average",
			NeutralScore:   0.5,
			DefaultTopN:    5,
			MaxTopN:        100,
		},
	}
}

// Load 按 默认值 -> YAML 文件 -> 环境变量 的顺序叠加配置并校验。
// path 为空时依次尝试 $UNITREC_CONFIG 与 ./unitrec.yaml，都不存在则只用默认值和环境变量。
func Load(path string) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// UNITREC_STORE_BREAKER_FAILURE_THRESHOLD -> store.breaker.failure_threshold
	known := envKeyIndex(k.Keys())
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return known[strings.ToLower(strings.TrimPrefix(s, EnvPrefix))]
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// envKeyIndex 把 "a.b_c" 映射为 "a_b_c"，环境变量名不在表中时被忽略。
func envKeyIndex(keys []string) map[string]string {
	idx := make(map[string]string, len(keys))
	for _, key := range keys {
		idx[strings.ReplaceAll(key, ".", "_")] = key
	}
	return idx
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile
	}
	return ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate 校验配置；各驱动所需的路径/地址在选中该驱动时必须非空。
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	var missing string
	switch s.Store.Driver {
	case store.DriverCSV:
		if s.Store.Dir == "" {
			missing = "store.dir"
		}
	case store.DriverSQLite:
		if s.Store.SQLitePath == "" {
			missing = "store.sqlite_path"
		}
	case store.DriverRedis:
		if s.Store.RedisAddr == "" {
			missing = "store.redis_addr"
		}
	}
	if missing != "" {
		return errors.New("invalid config: " + missing + " is required for driver " + s.Store.Driver)
	}
	return nil
}

// StoreOptions 转换为 store.Open 的参数。
func (s *Settings) StoreOptions() store.Options {
	opts := store.Options{
		Driver:      s.Store.Driver,
		Dir:         s.Store.Dir,
		SQLitePath:  s.Store.SQLitePath,
		RedisAddr:   s.Store.RedisAddr,
		RedisDB:     s.Store.RedisDB,
		RedisPrefix: s.Store.RedisPrefix,
		BadgerPath:  s.Store.BadgerPath,
	}
	if s.Store.Breaker.Enabled {
		opts.Breaker = &store.BreakerConfig{
			FailureThreshold: s.Store.Breaker.FailureThreshold,
			Timeout:          s.Store.Breaker.Timeout,
		}
	}
	return opts
}

// LogConfig 转换为 logging.Init 的参数。
func (s *Settings) LogConfig() logging.Config {
	return logging.Config{Level: s.Log.Level, Format: s.Log.Format}
}
