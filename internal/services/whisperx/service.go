package whisperx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"subforge/internal/logging"
	"subforge/internal/services"
	"subforge/internal/subtitles"
)

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Service provides WhisperX transcription capabilities.
type Service struct {
	cfg           Config
	ffmpegBinary  string
	uvxBinary     string
	commandRunner CommandRunner
	logger        *slog.Logger
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config, ffmpegBinary, uvxBinary string, logger *slog.Logger) *Service {
	if ffmpegBinary == "" {
		ffmpegBinary = ffmpegCommand
	}
	if uvxBinary == "" {
		uvxBinary = uvxCommand
	}
	return &Service{
		cfg:          cfg,
		ffmpegBinary: ffmpegBinary,
		uvxBinary:    uvxBinary,
		logger:       logging.NewComponentLogger(logger, "whisperx"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner CommandRunner) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return defaultModel
}

// Result describes one finished transcription.
type Result struct {
	Transcript subtitles.Transcript
	// JSONPath is the WhisperX output file. Transcribe leaves it empty
	// because its run directory is removed.
	JSONPath string
	// AudioSeconds is the extracted audio length, or 0 when unknown.
	AudioSeconds float64
}

// ExtractAudio writes audio track audioIndex of source to dest as a mono
// 16 kHz WAV file.
func (s *Service) ExtractAudio(ctx context.Context, source string, audioIndex int, dest string) error {
	if audioIndex < 0 {
		return services.Wrap(services.ErrValidation, "transcribe", "extract audio", fmt.Sprintf("invalid audio track index %d", audioIndex), nil)
	}
	if err := s.run(ctx, s.ffmpegBinary, buildExtractArgs(source, audioIndex, dest)...); err != nil {
		return services.Wrap(services.ErrExternalTool, "transcribe", "extract audio", "", err)
	}
	return nil
}

// Transcribe extracts audio from source into workDir, runs WhisperX on it and
// decodes the transcript. The extracted audio is removed before returning.
func (s *Service) Transcribe(ctx context.Context, source string, audioIndex int, workDir string) (Result, error) {
	if strings.TrimSpace(source) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "transcribe", "input", "source path required", nil)
	}
	if _, err := os.Stat(source); err != nil {
		return Result{}, services.Wrap(services.ErrNotFound, "transcribe", "input", source, err)
	}
	if workDir == "" {
		return Result{}, services.Wrap(services.ErrConfiguration, "transcribe", "work dir", "work directory required", nil)
	}
	runDir, err := os.MkdirTemp(workDir, "transcribe-")
	if err != nil {
		return Result{}, fmt.Errorf("transcribe: create run dir: %w", err)
	}
	defer os.RemoveAll(runDir)

	logger := logging.WithContext(ctx, s.logger)
	audioPath := filepath.Join(runDir, strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))+".wav")
	started := time.Now()
	if err := s.ExtractAudio(ctx, source, audioIndex, audioPath); err != nil {
		return Result{}, err
	}
	audioSeconds, err := AudioDuration(audioPath)
	if err != nil {
		logger.Debug("audio duration unavailable", logging.Error(err))
		audioSeconds = 0
	}
	logger.Debug("audio extracted",
		logging.Float64("audio_seconds", audioSeconds),
		logging.Duration("duration", time.Since(started)),
	)

	result, err := s.TranscribeFile(ctx, audioPath, runDir)
	if err != nil {
		return Result{}, err
	}
	result.AudioSeconds = audioSeconds
	result.JSONPath = ""
	return result, nil
}

// TranscribeFile runs WhisperX on an extracted WAV file and decodes the
// JSON it writes to outputDir.
func (s *Service) TranscribeFile(ctx context.Context, audioPath, outputDir string) (Result, error) {
	if audioPath == "" {
		return Result{}, errors.New("transcribe: audio path required")
	}
	if outputDir == "" {
		outputDir = filepath.Dir(audioPath)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("transcribe: ensure output dir: %w", err)
	}

	started := time.Now()
	if err := s.run(ctx, s.uvxBinary, s.buildArgs(audioPath, outputDir)...); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "transcribe", "whisperx", "", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(outputDir, baseName+".json")
	transcript, err := LoadTranscript(jsonPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "transcribe", "whisperx output", jsonPath, err)
	}
	logging.WithContext(ctx, s.logger).Info("transcription complete",
		logging.String(logging.FieldEventType, "transcription_complete"),
		logging.String("model", s.Model()),
		logging.Int("segments", len(transcript.Segments)),
		logging.Duration("duration", time.Since(started)),
	)
	return Result{Transcript: transcript, JSONPath: jsonPath}, nil
}

// LoadTranscript decodes a WhisperX JSON file.
func LoadTranscript(jsonPath string) (subtitles.Transcript, error) {
	f, err := os.Open(jsonPath)
	if err != nil {
		return subtitles.Transcript{}, err
	}
	defer f.Close()
	return subtitles.DecodeTranscript(f)
}

// run executes a command, using the custom runner if set.
func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// buildArgs returns the uvx arguments that run WhisperX on source and write
// JSON into outputDir.
func (s *Service) buildArgs(source, outputDir string) []string {
	args := []string{"--index-url", pypiIndexURL}
	if s.cfg.CUDAEnabled {
		args = []string{"--index-url", cudaIndexURL, "--extra-index-url", pypiIndexURL}
	}

	args = append(args, "whisperx", source, "--model", s.Model(), "--output_dir", outputDir)
	for _, flag := range decodeFlags {
		args = append(args, flag[0], flag[1])
	}

	vad := s.cfg.VADMethod
	if vad == "" {
		vad = vadSilero
	}
	args = append(args, "--vad_method", vad)
	if vad == vadPyannote && s.cfg.HFToken != "" {
		args = append(args, "--hf_token", s.cfg.HFToken)
	}
	if lang := strings.TrimSpace(s.cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	}

	if s.cfg.CUDAEnabled {
		return append(args, "--device", "cuda")
	}
	return append(args, "--device", "cpu", "--compute_type", "float32")
}
