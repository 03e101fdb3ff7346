package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir  string `toml:"work_dir"`
	CacheDir string `toml:"cache_dir"`
	LogDir   string `toml:"log_dir"`
}

// Files controls how text files are read and written.
type Files struct {
	// Encoding is the IANA charset name for prompt and subtitle files.
	Encoding string `toml:"encoding"`
	// OutputDir receives generated subtitles. Empty writes next to the input.
	OutputDir string `toml:"output_dir"`
}

// Segmentation controls how transcripts become cues.
type Segmentation struct {
	// Mode is "words" (assemble from word timings) or "segments" (one cue per
	// transcript segment).
	Mode               string `toml:"mode"`
	MinWords           int    `toml:"min_words"`
	Window             int    `toml:"window"`
	CutPunctuation     string `toml:"cut_punctuation"`
	MergeMinWords      int    `toml:"merge_min_words"`
	DropHallucinations bool   `toml:"drop_hallucinations"`
}

// Adjuster controls the punctuation boundary adjuster.
type Adjuster struct {
	Enabled    bool `toml:"enabled"`
	WordsSplit int  `toml:"words_split"`
}

// Batching controls how cues are grouped for rewriting.
type Batching struct {
	Size   int `toml:"size"`
	Offset int `toml:"offset"`
}

// Punctuation holds the shared terminal and pause mark sets.
type Punctuation struct {
	Terminal string `toml:"terminal"`
	Pause    string `toml:"pause"`
}

// Reflow controls line wrapping of the final subtitles.
type Reflow struct {
	Enabled      bool `toml:"enabled"`
	WordsPerLine int  `toml:"words_per_line"`
}

// LLM contains chat completion connection settings.
type LLM struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Organization   string  `toml:"organization"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RetryAttempts  int     `toml:"retry_attempts"`
}

// Rewrite controls the batch rewrite stage.
type Rewrite struct {
	Enabled bool `toml:"enabled"`
	// PromptFile holds the system prompt template. A {blocks} placeholder is
	// replaced with the number of cues in each batch.
	PromptFile string `toml:"prompt_file"`
	// ContextFile is optional reference text appended to the system prompt.
	ContextFile    string `toml:"context_file"`
	PreserveTiming bool   `toml:"preserve_timing"`
	CacheEnabled   bool   `toml:"cache_enabled"`
}

// WhisperX contains transcription settings.
type WhisperX struct {
	Model       string `toml:"model"`
	Language    string `toml:"language"`
	CUDAEnabled bool   `toml:"cuda_enabled"`
	VADMethod   string `toml:"vad_method"`
	HFToken     string `toml:"hf_token"`
	AudioTrack  int    `toml:"audio_track"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Metrics controls the Prometheus textfile written after each run.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// Config encapsulates all configuration values for subforge.
//
// Configuration sections by subsystem:
//   - Paths: work, cache and log directories
//   - Files: text encoding and output location
//   - Segmentation, Adjuster, Batching, Punctuation, Reflow: engine knobs
//   - LLM, Rewrite: chat completion and the batch rewrite stage
//   - WhisperX: audio extraction and transcription
//   - Logging, Metrics: observability
type Config struct {
	Paths        Paths        `toml:"paths"`
	Files        Files        `toml:"files"`
	Segmentation Segmentation `toml:"segmentation"`
	Adjuster     Adjuster     `toml:"adjuster"`
	Batching     Batching     `toml:"batching"`
	Punctuation  Punctuation  `toml:"punctuation"`
	Reflow       Reflow       `toml:"reflow"`
	LLM          LLM          `toml:"llm"`
	Rewrite      Rewrite      `toml:"rewrite"`
	WhisperX     WhisperX     `toml:"whisperx"`
	Logging      Logging      `toml:"logging"`
	Metrics      Metrics      `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the work and cache directories, plus the log
// directory when file logging is configured.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.WorkDir, c.Paths.CacheDir}
	if c.Paths.LogDir != "" {
		dirs = append(dirs, c.Paths.LogDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for audio extraction.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// UVXBinary returns the uvx executable name used to launch WhisperX.
func (c *Config) UVXBinary() string {
	return "uvx"
}

// RewriteCachePath returns the SQLite file backing the batch rewrite cache.
func (c *Config) RewriteCachePath() string {
	return filepath.Join(c.Paths.CacheDir, "rewrite.db")
}

// LogFilePath returns the JSON log file path, or "" when file logging is off.
func (c *Config) LogFilePath() string {
	if c.Paths.LogDir == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "subforge.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
