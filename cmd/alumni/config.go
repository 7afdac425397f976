package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerAddr string `envconfig:"ALUMNI_SERVER_ADDR" default:"localhost:50051"`
	// ALUMNI_TOKEN is the session token issued by the authentication service
	Token    string `envconfig:"ALUMNI_TOKEN" required:"true"`
	Insecure bool   `envconfig:"ALUMNI_INSECURE" default:"true"`
	// ALUMNI_COLOURS enables colorized output
	Colours         bool          `envconfig:"ALUMNI_COLOURS" default:"true"`
	Timezone        string        `envconfig:"ALUMNI_TIMEZONE" default:"Local"`
	LogLevel        string        `envconfig:"ALUMNI_LOG_LEVEL" default:"WARN"`
	UnreadMode      string        `envconfig:"ALUMNI_UNREAD_MODE" default:"directional"`
	CharReplacement string        `envconfig:"ALUMNI_CHARACTER_REPLACEMENT" default:"*"`
	MaxPhotoBytes   int           `envconfig:"ALUMNI_MAX_PHOTO_BYTES" default:"1048576"`
	CallTimeout     time.Duration `envconfig:"ALUMNI_CALL_TIMEOUT" default:"10s"`
	SeenQueueSize   int           `envconfig:"ALUMNI_SEEN_QUEUE_SIZE" default:"16"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
