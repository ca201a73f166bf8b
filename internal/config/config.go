package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type StorageConfig struct {
	Driver string
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	Migrate         bool
}

type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	KeyPrefix    string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

type DenylistConfig struct {
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	DeleteTimeout time.Duration
	UserTTL       time.Duration
}

type SecurityConfig struct {
	JWTSecret           string
	JWTAccessTTL        time.Duration
	RefreshTTL          time.Duration
	PasswordChangeGrace time.Duration
	ResetCodeTTL        time.Duration
	Denylist            DenylistConfig
	// BootstrapAdminEmail is promoted to admin at startup when set.
	BootstrapAdminEmail string
}

type MailConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	Company     string
	SendTimeout time.Duration
}

type JobsConfig struct {
	PurgeSchedule string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Storage          StorageConfig
	Postgres         PostgresConfig
	Mongo            MongoConfig
	Redis            RedisConfig
	Security         SecurityConfig
	Mail             MailConfig
	Jobs             JobsConfig
	AllowCORSOrigins []string
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == EnvProduction
}

func (c *AppConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Security.JWTSecret) == "" {
		errs = append(errs, errors.New("security.jwtsecret is required"))
	}
	if c.Security.JWTAccessTTL <= 0 {
		errs = append(errs, errors.New("security.jwtaccessttl must be positive"))
	}
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres.dsn is required for the postgres driver"))
		}
	case DriverMongo:
		if c.Mongo.URI == "" {
			errs = append(errs, errors.New("mongo.uri is required for the mongo driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	return errors.Join(errs...)
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	return load(v)
}

func load(v *viper.Viper) (*AppConfig, error) {
	v.SetEnvPrefix("ECOMMERCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", EnvDevelopment)

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8000)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("storage.driver", DriverPostgres)

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 5)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.migrate", true)

	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "ecommerce")
	v.SetDefault("mongo.connecttimeout", "10s")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.keyprefix", "")
	v.SetDefault("redis.dialtimeout", "2s")
	v.SetDefault("redis.readtimeout", "1s")
	v.SetDefault("redis.writetimeout", "1s")
	v.SetDefault("redis.poolsize", 20)

	v.SetDefault("security.jwtsecret", "")
	v.SetDefault("security.jwtaccessttl", "15m")
	v.SetDefault("security.refreshttl", "720h") // 30 days
	v.SetDefault("security.passwordchangegrace", "10s")
	v.SetDefault("security.resetcodettl", "10m")
	v.SetDefault("security.denylist.readtimeout", "500ms")
	v.SetDefault("security.denylist.writetimeout", "1s")
	v.SetDefault("security.denylist.deletetimeout", "500ms")
	v.SetDefault("security.denylist.userttl", "1h")
	v.SetDefault("security.bootstrapadminemail", "")

	v.SetDefault("mail.host", "localhost")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "no-reply@localhost")
	v.SetDefault("mail.company", "E-Shop")
	v.SetDefault("mail.sendtimeout", "30s")

	v.SetDefault("jobs.purgeschedule", "0 */15 * * * *")

	v.SetDefault("allowcorsorigins", []string{})
}
