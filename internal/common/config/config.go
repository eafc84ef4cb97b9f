package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/mkorobovv/trade-mirror/pkg/log"
)

const (
	EnvProd = "prod"
	EnvTest = "test"
)

type Config struct {
	Env string `yaml:"env" env:"ENV" env-upd:""`

	Log Log `yaml:"log"`

	Postgres Postgres `yaml:"postgres"`

	Market Market `yaml:"market"`

	Scheduler Scheduler `yaml:"scheduler"`

	Cache Cache `yaml:"cache"`
}

type Log struct {
	Level    string `yaml:"level" env:"LOG_LEVEL" env-upd:"" env-default:"info"`
	Encoding string `yaml:"encoding" env:"LOG_ENCODING" env-upd:"" env-default:"console"`
}

type Postgres struct {
	Database string `yaml:"database" env:"POSTGRES_DATABASE" env-upd:""`
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-upd:""`
	Schema   string `yaml:"schema" env:"POSTGRES_SCHEMA" env-upd:"" env-default:"trade_mirror"`
	Username string `yaml:"username" env:"POSTGRES_USER" env-upd:""`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-upd:""`
	Port     int64  `yaml:"port" env:"POSTGRES_PORT" env-upd:""`

	// Disabled switches the ledger onto the in-memory repository; useful for
	// storage-free demo runs.
	Disabled bool `yaml:"disabled" env:"POSTGRES_DISABLED" env-upd:""`
}

type Market struct {
	BaseURL       string        `yaml:"base_url" env:"MARKET_BASE_URL" env-upd:"" env-default:"https://query2.finance.yahoo.com"`
	Timeout       time.Duration `yaml:"timeout" env:"MARKET_TIMEOUT" env-upd:"" env-default:"8s"`
	RetryAttempts uint64        `yaml:"retry_attempts" env:"MARKET_RETRY_ATTEMPTS" env-upd:"" env-default:"2"`
}

type Scheduler struct {
	// SimulationThreshold is the consecutive-error count at which a symbol
	// switches to synthetic pricing.
	SimulationThreshold int `yaml:"simulation_threshold" env:"SCHEDULER_SIMULATION_THRESHOLD" env-upd:"" env-default:"5"`

	// StaleAfter is the base staleness threshold; halved for high-priority
	// symbols.
	StaleAfter time.Duration `yaml:"stale_after" env:"SCHEDULER_STALE_AFTER" env-upd:"" env-default:"10s"`

	// StaggerDelay spaces out individual upstream fetches inside one batch.
	StaggerDelay time.Duration `yaml:"stagger_delay" env:"SCHEDULER_STAGGER_DELAY" env-upd:"" env-default:"50ms"`

	// RetentionWindow is how long a quote may stay inactive before the daily
	// sweep removes it.
	RetentionWindow time.Duration `yaml:"retention_window" env:"SCHEDULER_RETENTION_WINDOW" env-upd:"" env-default:"72h"`
}

type Cache struct {
	MaxSize       int           `yaml:"max_size" env:"CACHE_MAX_SIZE" env-upd:"" env-default:"500"`
	DefaultTTL    time.Duration `yaml:"default_ttl" env:"CACHE_DEFAULT_TTL" env-upd:"" env-default:"30s"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"CACHE_SWEEP_INTERVAL" env-upd:"" env-default:"1m"`
}

func (c *Config) GetPostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Postgres.Username, c.Postgres.Password, c.Postgres.Host, c.Postgres.Port, c.Postgres.Database)
}

func GetConfig(configPath string) *Config {
	if configPath == "" {
		log.Fatal("config path is required")
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatal(err.Error())
	}

	if err := cleanenv.UpdateEnv(&cfg); err != nil {
		log.Fatal(err.Error())
	}

	return &cfg
}
