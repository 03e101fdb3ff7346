package config

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/ianaindex"

	"subforge/internal/subtitles"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateFiles(); err != nil {
		return err
	}
	if err := c.validateSegmentation(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateWhisperX(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateFiles() error {
	enc, err := ianaindex.IANA.Encoding(c.Files.Encoding)
	if err != nil || enc == nil {
		return fmt.Errorf("files.encoding: unsupported charset %q", c.Files.Encoding)
	}
	return nil
}

func (c *Config) validateSegmentation() error {
	switch c.Segmentation.Mode {
	case ModeWords, ModeSegments:
	default:
		return fmt.Errorf("segmentation.mode must be %q or %q (got %q)", ModeWords, ModeSegments, c.Segmentation.Mode)
	}
	if c.Segmentation.MergeMinWords < 0 {
		return errors.New("segmentation.merge_min_words must be >= 0")
	}
	return nil
}

// validateEngine runs the engine's own option checks so a bad file fails at
// load time with the config key in the message.
func (c *Config) validateEngine() error {
	if err := c.AssembleOptions().Validate(); err != nil {
		return fmt.Errorf("segmentation: %w", err)
	}
	if err := c.AdjustOptions().Validate(); err != nil {
		return fmt.Errorf("adjuster: %w", err)
	}
	if err := c.BatchOptions().Validate(); err != nil {
		return fmt.Errorf("batching: %w", err)
	}
	if c.Reflow.Enabled {
		if err := subtitles.ValidateWordsPerLine(c.Reflow.WordsPerLine); err != nil {
			return fmt.Errorf("reflow: %w", err)
		}
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	if !strings.HasPrefix(c.LLM.BaseURL, "http://") && !strings.HasPrefix(c.LLM.BaseURL, "https://") {
		return fmt.Errorf("llm.base_url must be an http(s) URL (got %q)", c.LLM.BaseURL)
	}
	return nil
}

func (c *Config) validateWhisperX() error {
	switch c.WhisperX.VADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("whisperx.vad_method must be silero or pyannote (got %q)", c.WhisperX.VADMethod)
	}
	if c.WhisperX.AudioTrack < 0 {
		return errors.New("whisperx.audio_track must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error (got %q)", c.Logging.Level)
	}
}

// RequireLLM reports a configuration error when no API key is available.
// Only commands that call the model need one.
func (c *Config) RequireLLM() error {
	if c.LLM.APIKey != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("llm.api_key is required. Set OPENAI_API_KEY env var or edit %s (create with 'subforge config init')", defaultPath)
}
