package internal

import (
	"fmt"
	"time"
)

// Config is read from the environment by the server binary.
type Config struct {
	BufferSize        int           `env:"BUFFER_SIZE,default=1024"`
	SeenQueueSize     int           `env:"SEEN_QUEUE_SIZE,default=256"`
	CharReplacement   string        `env:"CHARACTER_REPLACEMENT,default=*"`
	SinkTimeout       time.Duration `env:"SINK_TIMEOUT,default=2s"`
	MetricInterval    time.Duration `env:"METRIC_INTERVAL,default=10s"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath     string        `env:"BLUGE_FILEPATH,required=true"`
	LogLevel          string        `env:"LOG_LEVEL,default=INFO"`
	Host              string        `env:"HOST,default=0.0.0.0"`
	Port              int           `env:"PORT,default=50051"`
	DebugPort         int           `env:"DEBUG_PORT,default=8081"`
	// RedisURL is optional; without it no notification is published
	RedisURL      string `env:"REDIS_URL"`
	MaxPhotoBytes int    `env:"MAX_PHOTO_BYTES,default=1048576"`
}

// Validate checks the values the environment parser cannot.
func (c Config) Validate() error {
	if c.BufferSize <= 0 || c.SeenQueueSize <= 0 {
		return fmt.Errorf("BUFFER_SIZE and SEEN_QUEUE_SIZE must be positive")
	}
	if c.SinkTimeout <= 0 {
		return fmt.Errorf("SINK_TIMEOUT must be positive, got %s", c.SinkTimeout)
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	_, err := CharacterRune(c.CharReplacement)
	return err
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
