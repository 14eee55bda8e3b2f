package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"voice-drive/pin_driver"
)

const (
	EnvPrefix = "VOICE_DRIVE"

	BackendWhisper = "whisper"
	BackendGemini  = "gemini"
)

type Config struct {
	Adaptor     string          `mapstructure:"adaptor"`
	FirmataPort string          `mapstructure:"firmata_port"`
	Pins        pin_driver.Pins `mapstructure:"pins"`
	STT         STT             `mapstructure:"stt"`
	Audio       Audio           `mapstructure:"audio"`
	Dispatch    Dispatch        `mapstructure:"dispatch"`
	Interpreter Interpreter     `mapstructure:"interpreter"`
	Status      Status          `mapstructure:"status"`
	Log         Log             `mapstructure:"log"`
}

type STT struct {
	Backend      string        `mapstructure:"backend"`
	Model        string        `mapstructure:"model"`
	Language     string        `mapstructure:"language"`
	GeminiAPIKey string        `mapstructure:"gemini_api_key"`
	GeminiModel  string        `mapstructure:"gemini_model"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// Audio durations left at zero fall back to the detector defaults, except
// ListenTimeout and MaxUtterance where zero means unbounded.
type Audio struct {
	Calibration   time.Duration `mapstructure:"calibration"`
	QuietTime     time.Duration `mapstructure:"quiet_time"`
	ListenTimeout time.Duration `mapstructure:"listen_timeout"`
	MaxUtterance  time.Duration `mapstructure:"max_utterance"`
	ReplayDir     string        `mapstructure:"replay_dir"`
	RecordDir     string        `mapstructure:"record_dir"`
}

type Dispatch struct {
	Workers int `mapstructure:"workers"`
}

type Interpreter struct {
	Synonyms map[string]string `mapstructure:"synonyms"`
}

type Status struct {
	// Addr enables the status server when set.
	Addr string `mapstructure:"addr"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

// NewViper returns a viper instance reading VOICE_DRIVE_* environment
// variables, with every key defaulted.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	return v
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("adaptor", pin_driver.AdaptorRaspi)
	v.SetDefault("firmata_port", "")

	v.SetDefault("pins.right_forward", pin_driver.DefaultPins.RightForward)
	v.SetDefault("pins.left_forward", pin_driver.DefaultPins.LeftForward)
	v.SetDefault("pins.right_backward", pin_driver.DefaultPins.RightBackward)
	v.SetDefault("pins.left_backward", pin_driver.DefaultPins.LeftBackward)

	v.SetDefault("stt.backend", BackendWhisper)
	v.SetDefault("stt.model", "")
	v.SetDefault("stt.language", "en")
	v.SetDefault("stt.gemini_api_key", "")
	v.SetDefault("stt.gemini_model", "")
	v.SetDefault("stt.timeout", 10*time.Second)

	v.SetDefault("audio.calibration", 200*time.Millisecond)
	v.SetDefault("audio.quiet_time", 0)
	v.SetDefault("audio.listen_timeout", 0)
	v.SetDefault("audio.max_utterance", 0)
	v.SetDefault("audio.replay_dir", "")
	v.SetDefault("audio.record_dir", "")

	v.SetDefault("dispatch.workers", 1)
	v.SetDefault("interpreter.synonyms", map[string]string{})
	v.SetDefault("status.addr", "")
	v.SetDefault("log.level", "info")
}

// Load reads the settings out of v and validates them.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config

	err := v.Unmarshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Adaptor {
	case pin_driver.AdaptorRaspi:
	case pin_driver.AdaptorFirmata:
		if c.FirmataPort == "" {
			return fmt.Errorf("firmata_port is required for the firmata adaptor")
		}
	default:
		return fmt.Errorf("unknown adaptor %q", c.Adaptor)
	}

	err := c.Pins.Validate()
	if err != nil {
		return fmt.Errorf("pins: %w", err)
	}

	switch c.STT.Backend {
	case BackendWhisper:
		if c.STT.Model == "" {
			return fmt.Errorf("stt.model is required for the whisper backend")
		}
	case BackendGemini:
		if c.STT.GeminiAPIKey == "" {
			return fmt.Errorf("stt.gemini_api_key is required for the gemini backend")
		}
	default:
		return fmt.Errorf("unknown stt backend %q", c.STT.Backend)
	}

	if c.STT.Timeout < 0 {
		return fmt.Errorf("stt.timeout must not be negative")
	}

	for key, d := range map[string]time.Duration{
		"audio.calibration":    c.Audio.Calibration,
		"audio.quiet_time":     c.Audio.QuietTime,
		"audio.listen_timeout": c.Audio.ListenTimeout,
		"audio.max_utterance":  c.Audio.MaxUtterance,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}

	if c.Dispatch.Workers < 1 || c.Dispatch.Workers > 2 {
		return fmt.Errorf("dispatch.workers must be 1 or 2, got %d", c.Dispatch.Workers)
	}

	_, err = log.ParseLevel(c.Log.Level)
	if err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	return nil
}
