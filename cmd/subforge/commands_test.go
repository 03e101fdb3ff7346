package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"subforge/internal/config"
	"subforge/internal/pipeline"
	"subforge/internal/services"
	"subforge/internal/services/llm"
	"subforge/internal/services/whisperx"
	"subforge/internal/subtitles"
	"subforge/internal/testsupport"
)

type stubTranscriber struct {
	transcript subtitles.Transcript
}

func (s stubTranscriber) Transcribe(context.Context, string, int, string) (whisperx.Result, error) {
	return whisperx.Result{Transcript: s.transcript}, nil
}

// shoutCompleter uppercases every cue it is sent.
type shoutCompleter struct{}

func (shoutCompleter) Complete(_ context.Context, messages []llm.Message) (string, error) {
	cues, err := subtitles.ParseSRT(messages[len(messages)-1].Content)
	if err != nil {
		return "", err
	}
	for i := range cues {
		cues[i].Text = strings.ToUpper(cues[i].Text)
	}
	return subtitles.FormatSRT(cues), nil
}

// writeConfigFile persists cfg as TOML and returns its path.
func writeConfigFile(t *testing.T, cfg *config.Config) string {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	return testsupport.WriteFile(t, filepath.Join(testsupport.BaseDir(cfg), "subforge.toml"), string(data))
}

func cliConfig(t *testing.T, opts ...testsupport.ConfigOption) (*config.Config, string) {
	t.Helper()
	t.Setenv("SUBFORGE_LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	opts = append([]testsupport.ConfigOption{testsupport.WithPrompt("Rewrite these {blocks} subtitles.")}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Segmentation.MinWords = 4
	cfg.Segmentation.Window = 2
	cfg.Batching.Size = 2
	cfg.Batching.Offset = 1
	cfg.Reflow.WordsPerLine = 3
	cfg.Logging.Level = "error"
	return cfg, writeConfigFile(t, cfg)
}

func runCLI(t *testing.T, configPath string, opts []pipeline.Option, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCommandWithOptions(opts...)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeSRT(t *testing.T, dir, name string, texts ...string) string {
	t.Helper()
	return testsupport.WriteFile(t, filepath.Join(dir, name), subtitles.FormatSRT(testsupport.Cues(texts...)))
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "conf", "subforge.toml")

	out, _, err := runCLI(t, "", nil, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration to "+target) {
		t.Fatalf("unexpected output: %q", out)
	}
	if got := testsupport.ReadFile(t, target); got != config.SampleConfig() {
		t.Fatal("written config does not match the sample")
	}

	_, _, err = runCLI(t, "", nil, "config", "init", "--path", target)
	if err == nil {
		t.Fatal("expected refusal to overwrite")
	}
	if code := services.ExitCode(err); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}

	if _, _, err := runCLI(t, "", nil, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigInitPrint(t *testing.T) {
	out, _, err := runCLI(t, "", nil, "config", "init", "--print")
	if err != nil {
		t.Fatalf("config init --print: %v", err)
	}
	if out != config.SampleConfig() {
		t.Fatal("--print should emit the sample verbatim")
	}
}

func TestConfigValidate(t *testing.T) {
	_, path := cliConfig(t)

	out, _, err := runCLI(t, path, nil, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	for _, want := range []string{"Config path: " + path, "Batching: size 2, offset 1", "Configuration valid"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigValidateRejectsUnknownKeys(t *testing.T) {
	path := testsupport.WriteFile(t, filepath.Join(t.TempDir(), "bad.toml"), "[segmentation]\nwindows = 3\n")

	_, _, err := runCLI(t, path, nil, "config", "validate")
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
	if code := services.ExitCode(err); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}

func TestPlanPrintsBatchTable(t *testing.T) {
	cfg, path := cliConfig(t)
	input := writeSRT(t, testsupport.BaseDir(cfg), "talk.original.srt",
		"we start here.", "then we go on", "and on.", "almost done", "the end.")

	out, _, err := runCLI(t, path, nil, "plan", input)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if !strings.Contains(out, "5 cues in ") || !strings.Contains(out, "(size 2, offset 1)") {
		t.Fatalf("missing summary line:\n%s", out)
	}
	if !strings.Contains(out, "the end.") {
		t.Fatalf("missing last cue preview:\n%s", out)
	}
}

func TestRewriteCommandUsesCompleter(t *testing.T) {
	cfg, path := cliConfig(t)
	input := writeSRT(t, testsupport.BaseDir(cfg), "talk.original.srt",
		"we start right here.", "then we go on", "and on.")
	opts := []pipeline.Option{pipeline.WithCompleter(shoutCompleter{})}

	out, _, err := runCLI(t, path, opts, "rewrite", input)
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	final := filepath.Join(testsupport.BaseDir(cfg), "talk.srt")
	if !strings.Contains(out, "Output: "+final) {
		t.Fatalf("unexpected output:\n%s", out)
	}
	content := testsupport.ReadFile(t, final)
	if !strings.Contains(content, "WE START\nRIGHT HERE.") {
		t.Fatalf("expected uppercased, reflowed text:\n%s", content)
	}
}

func TestReflowCommandWordsFlag(t *testing.T) {
	cfg, path := cliConfig(t)
	input := writeSRT(t, testsupport.BaseDir(cfg), "talk.srt", "one two three four five")
	output := filepath.Join(testsupport.BaseDir(cfg), "wrapped.srt")

	if _, _, err := runCLI(t, path, nil, "reflow", input, "-w", "2", "-o", output); err != nil {
		t.Fatalf("reflow: %v", err)
	}
	cues, err := subtitles.ParseSRT(testsupport.ReadFile(t, output))
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(cues) != 1 || cues[0].Text != "one two\nthree four\nfive" {
		t.Fatalf("unexpected cues: %+v", cues)
	}
	if got := testsupport.ReadFile(t, input); !strings.Contains(got, "one two three four five") {
		t.Fatal("input should be left untouched when -o is given")
	}
}

func TestGenerateCommand(t *testing.T) {
	cfg, path := cliConfig(t)
	transcript, err := subtitles.DecodeTranscript(strings.NewReader(
		testsupport.TranscriptJSON(strings.Fields("hello there. this is a test of the whole thing. bye now.")...)))
	if err != nil {
		t.Fatalf("decode transcript: %v", err)
	}
	media := testsupport.WriteFile(t, filepath.Join(testsupport.BaseDir(cfg), "media", "clip.mkv"), "video")
	opts := []pipeline.Option{
		pipeline.WithTranscriber(stubTranscriber{transcript: transcript}),
		pipeline.WithCompleter(shoutCompleter{}),
	}

	out, _, err := runCLI(t, path, opts, "generate", media)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	dir := filepath.Dir(media)
	for _, want := range []string{
		"Original subtitles: " + filepath.Join(dir, "clip.original.srt"),
		"Output: " + filepath.Join(dir, "clip.srt"),
		"Words: 12",
		"Run ID: ",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(testsupport.ReadFile(t, filepath.Join(dir, "clip.srt")), "HELLO") {
		t.Fatal("final subtitles were not rewritten")
	}
}

func TestMissingInputExitCode(t *testing.T) {
	_, path := cliConfig(t)

	_, _, err := runCLI(t, path, nil, "reflow", filepath.Join(t.TempDir(), "missing.srt"))
	if err == nil {
		t.Fatal("expected error")
	}
	if code := services.ExitCode(err); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}

func TestArgumentCountIsEnforced(t *testing.T) {
	_, path := cliConfig(t)

	_, _, err := runCLI(t, path, nil, "rewrite")
	if err == nil || !strings.Contains(err.Error(), "provide the path to the subtitle file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCacheCommands(t *testing.T) {
	cfg, path := cliConfig(t)
	store := testsupport.MustOpenCache(t, cfg)
	if err := store.Put(context.Background(), "0123456789abcdef0123", "gpt-test", 2, "1\n00:00:00,000 --> 00:00:01,000\nhi\n"); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	out, _, err := runCLI(t, path, nil, "cache", "stats")
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	if !strings.Contains(out, "Entries: 1") {
		t.Fatalf("unexpected stats:\n%s", out)
	}

	out, _, err = runCLI(t, path, nil, "cache", "list")
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	if !strings.Contains(out, "0123456789ab") || !strings.Contains(out, "gpt-test") {
		t.Fatalf("unexpected list:\n%s", out)
	}

	out, _, err = runCLI(t, path, nil, "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if !strings.Contains(out, "Removed 1 entries") {
		t.Fatalf("unexpected clear output:\n%s", out)
	}

	_, _, err = runCLI(t, path, nil, "cache", "prune", "--older-than", "0s")
	if code := services.ExitCode(err); code != 2 {
		t.Fatalf("prune with zero age: exit code = %d, want 2", code)
	}
}

func TestCheckReportsSections(t *testing.T) {
	_, path := cliConfig(t, testsupport.WithStubbedBinaries())

	out, _, err := runCLI(t, path, nil, "check", "--skip-llm")
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	for _, want := range []string{"== Directories ==", "== Dependencies ==", "== Rewrite ==", "[OK]", "skipped"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckFailsWithoutPrompt(t *testing.T) {
	cfg, path := cliConfig(t, testsupport.WithStubbedBinaries())
	if err := os.Remove(cfg.Rewrite.PromptFile); err != nil {
		t.Fatalf("remove prompt: %v", err)
	}

	out, _, err := runCLI(t, path, nil, "check", "--skip-llm")
	if err == nil {
		t.Fatalf("expected failure:\n%s", out)
	}
	if !strings.Contains(out, "[ERROR]") {
		t.Fatalf("expected an error line:\n%s", out)
	}
	if code := services.ExitCode(err); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}
