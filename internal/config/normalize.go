package config

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFiles()
	c.normalizeSegmentation()
	c.normalizeLLM()
	if err := c.normalizeRewrite(); err != nil {
		return err
	}
	c.normalizeWhisperX()
	c.normalizeLogging()
	return c.normalizeMetrics()
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeFiles() {
	c.Files.Encoding = strings.ToLower(strings.TrimSpace(c.Files.Encoding))
	if c.Files.Encoding == "" {
		c.Files.Encoding = defaultEncoding
	}
	c.Files.OutputDir = strings.TrimSpace(c.Files.OutputDir)
	if c.Files.OutputDir != "" {
		if expanded, err := expandPath(c.Files.OutputDir); err == nil {
			c.Files.OutputDir = expanded
		}
	}
}

func (c *Config) normalizeSegmentation() {
	c.Segmentation.Mode = strings.ToLower(strings.TrimSpace(c.Segmentation.Mode))
	if c.Segmentation.Mode == "" {
		c.Segmentation.Mode = defaultSegmentationMode
	}
	if strings.TrimSpace(c.Segmentation.CutPunctuation) == "" {
		c.Segmentation.CutPunctuation = defaultCutPunctuation
	}
	if strings.TrimSpace(c.Punctuation.Terminal) == "" {
		c.Punctuation.Terminal = defaultTerminal
	}
	if strings.TrimSpace(c.Punctuation.Pause) == "" {
		c.Punctuation.Pause = defaultPause
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("SUBFORGE_LLM_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Organization = strings.TrimSpace(c.LLM.Organization)
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.RetryAttempts <= 0 {
		c.LLM.RetryAttempts = defaultLLMRetryAttempts
	}
}

func (c *Config) normalizeRewrite() error {
	var err error
	if c.Rewrite.PromptFile, err = expandPath(strings.TrimSpace(c.Rewrite.PromptFile)); err != nil {
		return fmt.Errorf("rewrite.prompt_file: %w", err)
	}
	if c.Rewrite.ContextFile, err = expandPath(strings.TrimSpace(c.Rewrite.ContextFile)); err != nil {
		return fmt.Errorf("rewrite.context_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeWhisperX() {
	c.WhisperX.Model = strings.TrimSpace(c.WhisperX.Model)
	if c.WhisperX.Model == "" {
		c.WhisperX.Model = defaultWhisperXModel
	}
	c.WhisperX.Language = normalizeLanguage(c.WhisperX.Language)
	c.WhisperX.VADMethod = strings.ToLower(strings.TrimSpace(c.WhisperX.VADMethod))
	if c.WhisperX.VADMethod == "" {
		c.WhisperX.VADMethod = defaultVADMethod
	}
	c.WhisperX.HFToken = strings.TrimSpace(c.WhisperX.HFToken)
	if c.WhisperX.HFToken == "" {
		if value, ok := os.LookupEnv("HUGGING_FACE_HUB_TOKEN"); ok {
			c.WhisperX.HFToken = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			c.WhisperX.HFToken = strings.TrimSpace(value)
		}
	}
}

// normalizeLanguage maps ISO 639-1/639-2 codes and BCP 47 tags onto the
// two-letter base code WhisperX expects. Unparseable values are kept
// lowercased so validation can report them.
func normalizeLanguage(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	tag, err := language.Parse(value)
	if err != nil {
		return value
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return value
	}
	return base.String()
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeMetrics() error {
	var err error
	if c.Metrics.Textfile, err = expandPath(strings.TrimSpace(c.Metrics.Textfile)); err != nil {
		return fmt.Errorf("metrics.textfile: %w", err)
	}
	return nil
}
