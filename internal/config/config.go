package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type LobbiesConfig struct {
	CreatePermissionLevel     int           `mapstructure:"create_permission_level"`
	DontAllowCreatingIfJoined bool          `mapstructure:"dont_allow_creating_if_joined"`
	JoinedLimit               int           `mapstructure:"joined_limit"`
	StartTimeout              time.Duration `mapstructure:"start_timeout"`
}

type SpawnerConfig struct {
	Host     string `mapstructure:"host"`
	PortBase int    `mapstructure:"port_base"`
}

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	Lobbies    LobbiesConfig `mapstructure:"lobbies"`
	Spawner    SpawnerConfig `mapstructure:"spawner"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("lobbies.create_permission_level", 0)
	v.SetDefault("lobbies.dont_allow_creating_if_joined", true)
	v.SetDefault("lobbies.joined_limit", 1)
	v.SetDefault("lobbies.start_timeout", "10s")
	v.SetDefault("spawner.host", "127.0.0.1")
	v.SetDefault("spawner.port_base", 7000)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
