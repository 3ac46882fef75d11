package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Config carries every tunable of the assistant. Values unset in the YAML
// file keep their defaults; the API key is read from the environment only.
type Config struct {
	WakeWord    string `yaml:"wake_word"`
	GoodbyeWord string `yaml:"goodbye_word"`

	SilenceDurationS   float64 `yaml:"silence_duration_s"`
	SilenceThreshold   float64 `yaml:"silence_threshold"`
	MinSpeechDurationS float64 `yaml:"min_speech_duration_s"`
	MaxRecordingTimeS  float64 `yaml:"max_recording_time_s"`
	CalibrationS       float64 `yaml:"calibration_s"`
	UtteranceQueueSize int     `yaml:"utterance_queue_size"`
	SpillAudio         bool    `yaml:"spill_audio"`

	MaxDailyCalls        int     `yaml:"max_daily_calls"`
	MaxHourlyCalls       int     `yaml:"max_hourly_calls"`
	MaxSessionCost       float64 `yaml:"max_session_cost"`
	CostWarningThreshold float64 `yaml:"cost_warning_threshold"`
	UsageWarningFraction float64 `yaml:"usage_warning_fraction"`
	MinDiskSpaceMB       uint64  `yaml:"min_disk_space_mb"`
	MaxMemoryPercent     float64 `yaml:"max_memory_percent"`

	EnableHistory        bool   `yaml:"enable_history"`
	MaxConversationTurns int    `yaml:"max_conversation_turns"`
	MaxHistoryTokens     int    `yaml:"max_history_tokens"`
	HistoryPath          string `yaml:"history_path"`

	MaxInputChars int     `yaml:"max_input_chars"`
	IdleTimeoutS  float64 `yaml:"idle_timeout_s"`

	Model           string  `yaml:"model"`
	APIKeyEnv       string  `yaml:"api_key_env"`
	RequestTimeoutS float64 `yaml:"request_timeout_s"`
	CostInputPer1M  float64 `yaml:"cost_input_per_1m"`
	CostOutputPer1M float64 `yaml:"cost_output_per_1m"`

	Voice        string `yaml:"voice"`
	TempDir      string `yaml:"temp_dir"`
	EnableChimes bool   `yaml:"enable_chimes"`
}

// Default returns the assistant's built-in configuration.
func Default() *Config {
	return &Config{
		WakeWord:    "hey steve",
		GoodbyeWord: "goodbye steve",

		SilenceDurationS:   4.0,
		SilenceThreshold:   150,
		MinSpeechDurationS: 0.5,
		MaxRecordingTimeS:  20,
		CalibrationS:       5,
		UtteranceQueueSize: 4,
		SpillAudio:         false,

		MaxDailyCalls:        200,
		MaxHourlyCalls:       30,
		MaxSessionCost:       5.00,
		CostWarningThreshold: 0.50,
		UsageWarningFraction: 0.8,
		MinDiskSpaceMB:       100,
		MaxMemoryPercent:     85,

		EnableHistory:        true,
		MaxConversationTurns: 20,
		MaxHistoryTokens:     8000,
		HistoryPath:          "history.enc",

		MaxInputChars: 500,
		IdleTimeoutS:  120,

		Model:           "gemini-1.5-pro",
		APIKeyEnv:       "GOOGLE_AI_API_KEY",
		RequestTimeoutS: 30,
		CostInputPer1M:  3.50,
		CostOutputPer1M: 10.50,

		TempDir:      os.TempDir(),
		EnableChimes: true,
	}
}

// Load reads a YAML config file over the defaults. An empty path returns the
// defaults unchanged; a missing file is an error so typos don't silently run
// with defaults.
func Load(fileSys afero.Fs, path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := afero.ReadFile(fileSys, path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations the state machine cannot run with.
func (c *Config) Validate() error {
	if c.WakeWord == "" {
		return fmt.Errorf("config: wake_word must not be empty")
	}
	if c.GoodbyeWord == "" {
		return fmt.Errorf("config: goodbye_word must not be empty")
	}
	if c.SilenceDurationS <= 0 {
		return fmt.Errorf("config: silence_duration_s must be positive")
	}
	if c.MinSpeechDurationS < 0 {
		return fmt.Errorf("config: min_speech_duration_s must not be negative")
	}
	if c.MaxRecordingTimeS <= c.MinSpeechDurationS {
		return fmt.Errorf("config: max_recording_time_s must exceed min_speech_duration_s")
	}
	if c.MaxDailyCalls <= 0 || c.MaxHourlyCalls <= 0 {
		return fmt.Errorf("config: call limits must be positive")
	}
	if c.MaxSessionCost <= 0 {
		return fmt.Errorf("config: max_session_cost must be positive")
	}
	if c.UsageWarningFraction < 0 || c.UsageWarningFraction > 1 {
		return fmt.Errorf("config: usage_warning_fraction must be in [0, 1]")
	}
	if c.MaxConversationTurns <= 0 || c.MaxHistoryTokens <= 0 {
		return fmt.Errorf("config: history limits must be positive")
	}
	if c.MaxMemoryPercent <= 0 || c.MaxMemoryPercent > 100 {
		return fmt.Errorf("config: max_memory_percent must be in (0, 100]")
	}
	if c.UtteranceQueueSize <= 0 {
		return fmt.Errorf("config: utterance_queue_size must be positive")
	}
	return nil
}

func (c *Config) SilenceDuration() time.Duration {
	return time.Duration(c.SilenceDurationS * float64(time.Second))
}

func (c *Config) MinSpeechDuration() time.Duration {
	return time.Duration(c.MinSpeechDurationS * float64(time.Second))
}

func (c *Config) MaxRecordingTime() time.Duration {
	return time.Duration(c.MaxRecordingTimeS * float64(time.Second))
}

func (c *Config) Calibration() time.Duration {
	return time.Duration(c.CalibrationS * float64(time.Second))
}

func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutS * float64(time.Second))
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutS * float64(time.Second))
}
