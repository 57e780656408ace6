// Package config reads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/NuZard84/go-typerace-socket/internal/constants"
	"github.com/NuZard84/go-typerace-socket/internal/game"
)

type Config struct {
	Port           string
	LogLevel       string
	LogFormat      string
	AllowedOrigins []string

	StartPolicy    string
	FinishRule     game.Rule
	MinPlayers     int
	MaxPlayers     int
	RoomCodeLength int
	MaxRooms       int

	PassagesFile    string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	NATSURL           string
	NATSStream        string
	NATSSubjectPrefix string

	WSWriteTimeout   time.Duration
	WSReadTimeout    time.Duration
	WSPingInterval   time.Duration
	WSMaxMessageSize int64
}

// LoadDotEnv loads a .env file when one exists. Variables already set in the
// environment win.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not load .env file")
	}
}

// Load builds the configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "5000"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "console"),
		AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),

		StartPolicy:    strings.ToLower(getEnv("START_POLICY", constants.StartPolicyAuto)),
		MinPlayers:     getEnvAsInt("MIN_PLAYERS", constants.MinPlayersToStart),
		MaxPlayers:     getEnvAsInt("MAX_PLAYERS", constants.MaximumPlayers),
		RoomCodeLength: getEnvAsInt("ROOM_CODE_LENGTH", constants.RoomCodeLength),
		MaxRooms:       getEnvAsInt("MAX_ROOMS", 0),

		PassagesFile:    getEnv("PASSAGES_FILE", ""),
		MongoURI:        getEnv("MONGO_URI", ""),
		MongoDatabase:   getEnv("MONGO_DATABASE", "SpeedScript"),
		MongoCollection: getEnv("MONGO_COLLECTION", "typingsentences"),

		NATSURL:           getEnv("NATS_URL", ""),
		NATSStream:        getEnv("NATS_STREAM", "RACE_EVENTS"),
		NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "race.events"),

		WSWriteTimeout:   getEnvAsDuration("WS_WRITE_TIMEOUT", constants.WriteTimeout),
		WSReadTimeout:    getEnvAsDuration("WS_READ_TIMEOUT", constants.ReadTimeout),
		WSPingInterval:   getEnvAsDuration("WS_PING_INTERVAL", constants.PingInterval),
		WSMaxMessageSize: int64(getEnvAsInt("WS_MAX_MESSAGE_SIZE", constants.MaxMessageSize)),
	}

	rule, err := game.ParseRule(strings.ToLower(getEnv("FINISH_RULE", constants.FinishRuleFirstToFinish)))
	if err != nil {
		return nil, fmt.Errorf("invalid FINISH_RULE: %w", err)
	}
	cfg.FinishRule = rule

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StartPolicy {
	case constants.StartPolicyAuto, constants.StartPolicyHost:
	default:
		return fmt.Errorf("invalid START_POLICY %q: want %q or %q",
			c.StartPolicy, constants.StartPolicyAuto, constants.StartPolicyHost)
	}
	if c.MinPlayers < 1 {
		return fmt.Errorf("MIN_PLAYERS must be at least 1, got %d", c.MinPlayers)
	}
	if c.MaxPlayers < c.MinPlayers {
		return fmt.Errorf("MAX_PLAYERS (%d) must not be below MIN_PLAYERS (%d)", c.MaxPlayers, c.MinPlayers)
	}
	if c.MaxRooms < 0 {
		return fmt.Errorf("MAX_ROOMS must not be negative, got %d", c.MaxRooms)
	}
	if c.RoomCodeLength < 4 {
		return fmt.Errorf("ROOM_CODE_LENGTH must be at least 4, got %d", c.RoomCodeLength)
	}
	if c.WSPingInterval >= c.WSReadTimeout {
		return fmt.Errorf("WS_PING_INTERVAL (%s) must be shorter than WS_READ_TIMEOUT (%s)", c.WSPingInterval, c.WSReadTimeout)
	}
	return nil
}

// SetupLogging configures the global zerolog logger.
func SetupLogging(level, format string, out io.Writer) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)

	if format == "json" {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: out})
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("not an integer, using default")
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Warn().Str("key", key).Str("value", value).Msg("not a duration, using default")
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
