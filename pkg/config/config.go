package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Seconds is a duration written in config.yml as a (possibly fractional) number of seconds.
type Seconds float64

func (s Seconds) Duration() time.Duration {
	return time.Duration(float64(s) * float64(time.Second))
}

type Config struct {
	Bluesky struct {
		Service string `yaml:"service"`
	} `yaml:"bluesky"`
	Model   ModelSettings   `yaml:"model"`
	Reply   ReplySettings   `yaml:"reply"`
	Posting PostingSettings `yaml:"posting"`
	Follow  FollowSettings  `yaml:"follow"`
	Store   StoreSettings   `yaml:"store"`
	Logging LoggingSettings `yaml:"logging"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Topics []TopicSettings `yaml:"topics"`
}

type ModelSettings struct {
	BaseURL     string   `yaml:"base_url"`
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature"`
	TopP        *float64 `yaml:"top_p"`
	MaxTokens   int      `yaml:"max_tokens"`
}

type ReplySettings struct {
	Persona           string  `yaml:"persona"`
	PollInterval      Seconds `yaml:"poll_interval_seconds"`
	DelayBetween      Seconds `yaml:"delay_between_seconds"`
	NotificationLimit int     `yaml:"notification_limit"`
	MaxLength         int     `yaml:"max_length"`
	FetchLinks        bool    `yaml:"fetch_links"`
	MarkSeen          *bool   `yaml:"mark_seen"`
}

type PostingSettings struct {
	Cooldown      Seconds `yaml:"cooldown_seconds"`
	CheckInterval Seconds `yaml:"check_interval_seconds"`
	ErrorDelay    Seconds `yaml:"error_delay_seconds"`
	MaxLength     int     `yaml:"max_length"`
}

type FollowSettings struct {
	Interval     Seconds `yaml:"interval_seconds"`
	ErrorDelay   Seconds `yaml:"error_delay_seconds"`
	DelayBetween Seconds `yaml:"delay_between_seconds"`
	PageSize     int     `yaml:"page_size"`
	MaxPages     int     `yaml:"max_pages"`
}

type StoreSettings struct {
	// Backend is "file" or "redis".
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	RedisPrefix string `yaml:"redis_prefix"`
}

type LoggingSettings struct {
	File   string `yaml:"file"`
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TopicSettings struct {
	Name      string   `yaml:"name"`
	Subtopics []string `yaml:"subtopics"`
	KeyTerms  []string `yaml:"key_terms"`
}

func LoadConfig(path string) (*Config, error) {
	config := &Config{}

	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		config.applyDefaults()
		return config, nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	err = yaml.Unmarshal(file, config)
	if err != nil {
		return nil, err
	}

	config.applyDefaults()
	return config, nil
}

// applyDefaults fills every field left unset by config.yml.
func (c *Config) applyDefaults() {
	if c.Bluesky.Service == "" {
		c.Bluesky.Service = "https://bsky.social"
	}

	if c.Model.BaseURL == "" {
		c.Model.BaseURL = "https://api.groq.com/openai/v1"
	}
	if c.Model.Model == "" {
		c.Model.Model = "mixtral-8x7b-32768"
	}
	if c.Model.Temperature == nil {
		temperature := 0.7
		c.Model.Temperature = &temperature
	}
	if c.Model.TopP == nil {
		topP := 1.0
		c.Model.TopP = &topP
	}
	if c.Model.MaxTokens == 0 {
		c.Model.MaxTokens = 400
	}

	if c.Reply.Persona == "" {
		c.Reply.Persona = "therapy"
	}
	if c.Reply.PollInterval == 0 {
		c.Reply.PollInterval = 30
	}
	if c.Reply.DelayBetween == 0 {
		c.Reply.DelayBetween = 2
	}
	if c.Reply.NotificationLimit == 0 {
		c.Reply.NotificationLimit = 20
	}
	if c.Reply.MaxLength == 0 {
		c.Reply.MaxLength = 280
	}
	if c.Reply.MarkSeen == nil {
		markSeen := true
		c.Reply.MarkSeen = &markSeen
	}

	if c.Posting.Cooldown == 0 {
		c.Posting.Cooldown = 1800
	}
	if c.Posting.CheckInterval == 0 {
		c.Posting.CheckInterval = 300
	}
	if c.Posting.ErrorDelay == 0 {
		c.Posting.ErrorDelay = 60
	}
	if c.Posting.MaxLength == 0 {
		c.Posting.MaxLength = 280
	}

	if c.Follow.Interval == 0 {
		c.Follow.Interval = 300
	}
	if c.Follow.ErrorDelay == 0 {
		c.Follow.ErrorDelay = 60
	}
	if c.Follow.DelayBetween == 0 {
		c.Follow.DelayBetween = 2
	}
	if c.Follow.PageSize == 0 {
		c.Follow.PageSize = 100
	}
	if c.Follow.MaxPages == 0 {
		c.Follow.MaxPages = 10
	}

	if c.Store.Backend == "" {
		c.Store.Backend = "file"
	}
	if c.Store.Path == "" {
		c.Store.Path = "processed_uris.json"
	}
	if c.Store.RedisPrefix == "" {
		c.Store.RedisPrefix = "therapypunch"
	}

	if c.Logging.File == "" {
		c.Logging.File = "bot.log"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}
