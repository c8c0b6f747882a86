package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dkeye/voicerelay/internal/domain"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode         string             `mapstructure:"mode"`
	Port         int                `mapstructure:"port"`
	StaticPath   string             `mapstructure:"static_path"`
	ReadLimit    int64              `mapstructure:"read_limit"`
	PingPeriod   time.Duration      `mapstructure:"ping_period"`
	PongWait     time.Duration      `mapstructure:"pong_wait"`
	WriteWait    time.Duration      `mapstructure:"write_wait"`
	SendBuffer   int                `mapstructure:"send_buffer"`
	Secret       string             `mapstructure:"secret"`
	LogLevel     string             `mapstructure:"log_level"`
	MessageRate  float64            `mapstructure:"message_rate"`
	MessageBurst int                `mapstructure:"message_burst"`
	ICEServers   []domain.ICEServer `mapstructure:"ice_servers"`
}

// Load reads config/config.<CONFIG_ENV>.yaml, falling back to defaults when
// the file is missing. VOICE_* environment variables override file values.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("module", "config").Msg("failed to read .env")
	}

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("VOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("static", cfg.StaticPath).
		Int("ice_servers", len(cfg.ICEServers)).
		Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "5s")
	v.SetDefault("send_buffer", 32)
	// Empty means a random key per process; declared so VOICE_SECRET is seen.
	v.SetDefault("secret", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("message_rate", 20)
	v.SetDefault("message_burst", 40)
	v.SetDefault("ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
	})
}

var (
	ErrInvalidPort  = errors.New("port out of range")
	ErrInvalidLimit = errors.New("limits must be positive")
	ErrPingPeriod   = errors.New("ping_period must be shorter than pong_wait")
	ErrICEServer    = errors.New("ice server without urls")
)

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}
	if c.ReadLimit <= 0 || c.SendBuffer <= 0 || c.WriteWait <= 0 || c.MessageRate <= 0 || c.MessageBurst <= 0 {
		return ErrInvalidLimit
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		return ErrPingPeriod
	}
	for i, s := range c.ICEServers {
		if len(s.URLs) == 0 {
			return fmt.Errorf("ice_servers[%d]: %w", i, ErrICEServer)
		}
	}
	return nil
}

// Level maps log_level onto zerolog, defaulting to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
