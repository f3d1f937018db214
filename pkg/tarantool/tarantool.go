package tarantool

import (
	"fmt"
	"net"
	"time"

	"github.com/tarantool/go-tarantool"
)

type Config struct {
	Host          string        `yaml:"TARANTOOL_HOST"           env:"TARANTOOL_HOST"           env-default:"localhost"`
	Port          string        `yaml:"TARANTOOL_PORT"           env:"TARANTOOL_PORT"           env-default:"3301"`
	Username      string        `yaml:"TARANTOOL_USER"           env:"TARANTOOL_USER"           env-default:"admin"`
	Password      string        `yaml:"TARANTOOL_PASSWORD"       env:"TARANTOOL_PASSWORD"       env-default:"secret"`
	Timeout       time.Duration `yaml:"TARANTOOL_TIMEOUT"        env:"TARANTOOL_TIMEOUT"        env-default:"1s"`
	Reconnect     time.Duration `yaml:"TARANTOOL_RECONNECT"      env:"TARANTOOL_RECONNECT"      env-default:"3s"`
	MaxReconnects uint          `yaml:"TARANTOOL_MAX_RECONNECTS" env:"TARANTOOL_MAX_RECONNECTS" env-default:"5"`
}

func (c Config) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func New(config Config) (*tarantool.Connection, error) {
	conn, err := tarantool.Connect(config.Address(), tarantool.Opts{
		User:          config.Username,
		Pass:          config.Password,
		Timeout:       config.Timeout,
		Reconnect:     config.Reconnect,
		MaxReconnects: config.MaxReconnects,
	})
	if err != nil {
		return nil, fmt.Errorf("tarantool: connect to %s: %w", config.Address(), err)
	}
	return conn, nil
}
