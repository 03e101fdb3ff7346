package config

const (
	defaultConfigPath        = "~/.config/subforge/config.toml"
	projectConfigName        = "subforge.toml"
	defaultWorkDir           = "~/.local/share/subforge/work"
	defaultCacheDir          = "~/.cache/subforge"
	defaultEncoding          = "utf-8"
	defaultSegmentationMode  = ModeWords
	defaultMinWords          = 8
	defaultWindow            = 3
	defaultCutPunctuation    = ".!?,"
	defaultMergeMinWords     = 2
	defaultWordsSplit        = 3
	defaultBatchSize         = 20
	defaultBatchOffset       = 10
	defaultTerminal          = ".!?"
	defaultPause             = ","
	defaultWordsPerLine      = 12
	defaultLLMBaseURL        = "https://api.openai.com/v1/chat/completions"
	defaultLLMModel          = "gpt-4o"
	defaultLLMTemperature    = 0.5
	defaultLLMTimeoutSeconds = 120
	defaultLLMRetryAttempts  = 3
	defaultWhisperXModel     = "large-v3"
	defaultWhisperXLanguage  = "en"
	defaultVADMethod         = "silero"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Segmentation modes.
const (
	ModeWords    = "words"
	ModeSegments = "segments"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  defaultWorkDir,
			CacheDir: defaultCacheDir,
		},
		Files: Files{
			Encoding: defaultEncoding,
		},
		Segmentation: Segmentation{
			Mode:           defaultSegmentationMode,
			MinWords:       defaultMinWords,
			Window:         defaultWindow,
			CutPunctuation: defaultCutPunctuation,
			MergeMinWords:  defaultMergeMinWords,
		},
		Adjuster: Adjuster{
			Enabled:    true,
			WordsSplit: defaultWordsSplit,
		},
		Batching: Batching{
			Size:   defaultBatchSize,
			Offset: defaultBatchOffset,
		},
		Punctuation: Punctuation{
			Terminal: defaultTerminal,
			Pause:    defaultPause,
		},
		Reflow: Reflow{
			Enabled:      true,
			WordsPerLine: defaultWordsPerLine,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Temperature:    defaultLLMTemperature,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			RetryAttempts:  defaultLLMRetryAttempts,
		},
		Rewrite: Rewrite{
			Enabled:        true,
			PreserveTiming: true,
			CacheEnabled:   true,
		},
		WhisperX: WhisperX{
			Model:     defaultWhisperXModel,
			Language:  defaultWhisperXLanguage,
			VADMethod: defaultVADMethod,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
