// Package config loads the server and client settings from
// config/<name>.<CONFIG_ENV>.yaml with environment and flag overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dkeye/Classroom/internal/domain"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	MaxMembers int           `mapstructure:"max_members"`
	// Policy is "kick" or "tolerant".
	Policy       string        `mapstructure:"policy"`
	ChatLimit    int           `mapstructure:"chat_limit"`
	ChatInterval time.Duration `mapstructure:"chat_interval"`
	ICEServers   []string      `mapstructure:"ice_servers"`
}

type ClientConfig struct {
	Mode   string `mapstructure:"mode"`
	Server string `mapstructure:"server"`
	Name   string `mapstructure:"name"`
	Role   string `mapstructure:"role"`
	Room   string `mapstructure:"room"`

	AckTimeout   time.Duration `mapstructure:"ack_timeout"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
	Camera       bool          `mapstructure:"camera"`
	ICEServers   []string      `mapstructure:"ice_servers"`
	// MaxMembers is passed to the whiteboard as its user limit.
	MaxMembers int `mapstructure:"max_members"`

	WhiteboardAPI   string `mapstructure:"whiteboard_api"`
	WhiteboardToken string `mapstructure:"whiteboard_token"`
}

func env() string {
	if e := os.Getenv("CONFIG_ENV"); e != "" {
		return e
	}
	return "dev"
}

func newViper(name string) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fmt.Sprintf("config/%s.%s.yaml", name, env()))
	v.SetEnvPrefix("CLASSROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// read loads the config file. Only a missing file falls back to defaults.
func read(v *viper.Viper) error {
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		log.Info().Str("module", "config").Str("file", v.ConfigFileUsed()).Msg("loaded config")
		return nil
	case errors.As(err, &notFound), errors.Is(err, fs.ErrNotExist):
		log.Warn().Str("module", "config").Str("file", v.ConfigFileUsed()).Msg("config file not found, using defaults")
		return nil
	default:
		return fmt.Errorf("failed to read %s: %w", v.ConfigFileUsed(), err)
	}
}

func Load() (*Config, error) {
	v := newViper("config")
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("max_members", domain.DefaultMaxMembers)
	v.SetDefault("policy", "kick")
	v.SetDefault("chat_limit", 5)
	v.SetDefault("chat_interval", "1s")
	if err := read(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.MaxMembers <= 0 {
		return nil, fmt.Errorf("max_members must be positive, got %d", cfg.MaxMembers)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Int("max_members", cfg.MaxMembers).Msg("server config")
	return &cfg, nil
}

// ClientFlags declares the flags LoadClient understands.
func ClientFlags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("server", "ws://localhost:8080/api/ws/signal", "signaling websocket url")
	fs.String("name", "", "display name")
	fs.String("role", "participant", "host|teacher or participant|student")
	fs.String("room", "", "room to join")
	fs.Bool("camera", false, "capture the local camera for the self view")
	fs.String("whiteboard-api", "", "whiteboard provisioning base url")
	fs.String("whiteboard-token", "", "whiteboard provisioning sdk token")
	return fs
}

// LoadClient reads config/client.<env>.yaml, CLASSROOM_* variables and the
// already parsed flags, in increasing priority.
func LoadClient(flags *pflag.FlagSet) (*ClientConfig, error) {
	v := newViper("client")
	v.SetDefault("mode", "release")
	v.SetDefault("server", "ws://localhost:8080/api/ws/signal")
	v.SetDefault("role", "participant")
	v.SetDefault("ack_timeout", "10s")
	v.SetDefault("dial_timeout", "5s")
	v.SetDefault("tick_interval", "50ms")
	v.SetDefault("camera", false)
	v.SetDefault("max_members", domain.DefaultMaxMembers)
	if flags != nil {
		flags.VisitAll(func(f *pflag.Flag) {
			_ = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
		})
	}
	if err := read(v); err != nil {
		return nil, err
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse client config: %w", err)
	}
	if _, err := domain.ParseRole(cfg.Role); err != nil {
		return nil, err
	}
	return &cfg, nil
}
