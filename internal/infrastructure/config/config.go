package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"vocBot/internal/domain"
	"vocBot/internal/usecase/commands"
)

// Slot is one command slot as configured, before validation.
type Slot struct {
	Command        string   `env:"COMMAND"`
	URLs           []string `env:"URL" envSeparator:","`
	Volume         float64  `env:"VOLUME" envDefault:"100"`
	Cooldown       float64  `env:"COOLDOWN"`
	ComparisonMode string   `env:"COMPARISON_MODE" envDefault:"strict"`
}

type Overlay struct {
	Element      string `env:"VIDEO_ELEMENT" envDefault:"video"`
	AnimationIn  string `env:"ANIMATION_IN" envDefault:"fadeIn"`
	AnimationOut string `env:"ANIMATION_OUT" envDefault:"fadeOut"`
	// seconds
	TimeIn  float64 `env:"TIME_IN" envDefault:"1"`
	TimeOut float64 `env:"TIME_OUT" envDefault:"1"`

	PlaybackTimeout time.Duration `env:"PLAYBACK_TIMEOUT" envDefault:"5m"`
}

type Log struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	Dir        string `env:"LOG_DIR"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"50"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"14"`
	Compress   bool   `env:"LOG_COMPRESS" envDefault:"true"`
}

type Config struct {
	Video1 Slot `envPrefix:"VIDEO1_"`
	Video2 Slot `envPrefix:"VIDEO2_"`
	Video3 Slot `envPrefix:"VIDEO3_"`
	Video4 Slot `envPrefix:"VIDEO4_"`
	Video5 Slot `envPrefix:"VIDEO5_"`
	Audio1 Slot `envPrefix:"AUDIO1_"`
	Audio2 Slot `envPrefix:"AUDIO2_"`
	Audio3 Slot `envPrefix:"AUDIO3_"`
	Audio4 Slot `envPrefix:"AUDIO4_"`
	Audio5 Slot `envPrefix:"AUDIO5_"`

	// seconds
	GlobalCooldown      float64 `env:"GLOBAL_COOLDOWN"`
	PermissionMode      string  `env:"PERMISSION_MODE" envDefault:"everyone"`
	CaseSensitive       bool    `env:"CASE_SENSITIVE"`
	AllowList           string  `env:"ALLOW_LIST"`
	BlockList           string  `env:"BLOCK_LIST"`
	ChannelName         string  `env:"CHANNEL_NAME"`
	DebugMode           bool    `env:"DEBUG_MODE"`
	CooldownFallthrough bool    `env:"COOLDOWN_FALLTHROUGH"`

	Overlay Overlay
	Log     Log

	Addr          string  `env:"OVERLAY_WS_ADDR" envDefault:":8080"`
	DatabasePath  string  `env:"DATABASE_PATH" envDefault:"data/vocbot.db"`
	FieldDataPath string  `env:"FIELD_DATA_PATH"`
	ChatRate      float64 `env:"CHAT_RATE" envDefault:"2"`
	ChatBurst     int     `env:"CHAT_BURST" envDefault:"5"`
}

// Load reads .env if present, then the process environment, then the
// fieldData document named by FIELD_DATA_PATH.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(env.Options{})
}

func load(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}

	if cfg.FieldDataPath != "" {
		fd, err := LoadFieldData(cfg.FieldDataPath)
		if err != nil {
			return nil, err
		}
		fd.Apply(cfg)
	}
	return cfg, nil
}

func (c *Config) slot(name string) *Slot {
	switch name {
	case "video1":
		return &c.Video1
	case "video2":
		return &c.Video2
	case "video3":
		return &c.Video3
	case "video4":
		return &c.Video4
	case "video5":
		return &c.Video5
	case "audio1":
		return &c.Audio1
	case "audio2":
		return &c.Audio2
	case "audio3":
		return &c.Audio3
	case "audio4":
		return &c.Audio4
	case "audio5":
		return &c.Audio5
	}
	return nil
}

// Slots lists every slot in registry priority order, videos first.
func (c *Config) Slots() []commands.Slot {
	out := make([]commands.Slot, 0, len(commands.VideoSlots)+len(commands.AudioSlots))
	add := func(names []string, kind domain.MediaKind) {
		for _, name := range names {
			s := c.slot(name)
			out = append(out, commands.Slot{
				Name:            name,
				Kind:            kind,
				Trigger:         s.Command,
				URLs:            s.URLs,
				VolumePercent:   s.Volume,
				CooldownSeconds: s.Cooldown,
				ComparisonMode:  s.ComparisonMode,
			})
		}
	}
	add(commands.VideoSlots, domain.MediaVideo)
	add(commands.AudioSlots, domain.MediaAudio)
	return out
}

func (c *Config) GlobalCooldownDuration() time.Duration {
	return seconds(c.GlobalCooldown)
}

func (o Overlay) TimeInDuration() time.Duration  { return seconds(o.TimeIn) }
func (o Overlay) TimeOutDuration() time.Duration { return seconds(o.TimeOut) }

func seconds(v float64) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}
