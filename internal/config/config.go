package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jaam8/channel_poll_bot/pkg/tarantool"
	"github.com/joho/godotenv"
)

const (
	StorageTarantool = "tarantool"
	StorageMemory    = "memory"
)

type Config struct {
	RestPort       string        `yaml:"REST_PORT"       env:"REST_PORT"       env-default:"8080"`
	BotToken       string        `yaml:"BOT_TOKEN"       env:"BOT_TOKEN"       env-required:"true"`
	ChannelID      string        `yaml:"CHANNEL_ID"      env:"CHANNEL_ID"      env-required:"true"`
	BaseURL        string        `yaml:"BASE_URL"        env:"BASE_URL"        env-required:"true"`
	MmURL          string        `yaml:"MM_URL"          env:"MM_URL"          env-required:"true"`
	MmWsURL        string        `yaml:"MM_WS_URL"       env:"MM_WS_URL"       env-required:"true"`
	ActionURL      string        `yaml:"ACTION_URL"      env:"ACTION_URL"      env-required:"true"`
	ActionSecret   string        `yaml:"ACTION_SECRET"   env:"ACTION_SECRET"`
	BackendTimeout time.Duration `yaml:"BACKEND_TIMEOUT" env:"BACKEND_TIMEOUT" env-default:"10s"`
	LogLevel       string        `yaml:"LOG_LEVEL"       env:"LOG_LEVEL"       env-default:"debug"`
}

// TallyConfig configures the reference tally backend.
type TallyConfig struct {
	RestPort   string           `yaml:"TALLY_PORT"        env:"TALLY_PORT"        env-default:"8000"`
	Options    []string         `yaml:"TALLY_OPTIONS"     env:"TALLY_OPTIONS"     env-required:"true" env-separator:","`
	LockChoice bool             `yaml:"TALLY_LOCK_CHOICE" env:"TALLY_LOCK_CHOICE" env-default:"true"`
	Storage    string           `yaml:"TALLY_STORAGE"     env:"TALLY_STORAGE"     env-default:"tarantool"`
	LogLevel   string           `yaml:"LOG_LEVEL"         env:"LOG_LEVEL"         env-default:"debug"`
	Tarantool  tarantool.Config `yaml:"TARANTOOL"         env:"TARANTOOL"`
}

func New() (*Config, error) {
	var config Config
	if err := load(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func NewTally() (*TallyConfig, error) {
	var config TallyConfig
	if err := load(&config); err != nil {
		return nil, err
	}
	if config.Storage != StorageTarantool && config.Storage != StorageMemory {
		return nil, errors.New("config: TALLY_STORAGE must be tarantool or memory")
	}
	return &config, nil
}

// load reads .env when present, the environment always wins.
func load(config any) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return cleanenv.ReadEnv(config)
}
