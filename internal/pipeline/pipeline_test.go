package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"subforge/internal/config"
	"subforge/internal/fileutil"
	"subforge/internal/metrics"
	"subforge/internal/pipeline"
	"subforge/internal/services"
	"subforge/internal/services/llm"
	"subforge/internal/services/whisperx"
	"subforge/internal/subtitles"
	"subforge/internal/testsupport"
)

var sampleWords = strings.Fields("so today we talk about tests. they help a lot, and they are cheap. write them first and keep them small. done.")

type fakeTranscriber struct {
	transcript subtitles.Transcript
	err        error
	calls      int
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ string, _ int, _ string) (whisperx.Result, error) {
	f.calls++
	if f.err != nil {
		return whisperx.Result{}, f.err
	}
	return whisperx.Result{Transcript: f.transcript}, nil
}

func newTranscriber(t *testing.T) *fakeTranscriber {
	t.Helper()
	transcript, err := subtitles.DecodeTranscript(strings.NewReader(testsupport.TranscriptJSON(sampleWords...)))
	if err != nil {
		t.Fatalf("decode transcript: %v", err)
	}
	return &fakeTranscriber{transcript: transcript}
}

// upperCompleter echoes each batch with its text uppercased. drop removes
// that many cues from every reply.
type upperCompleter struct {
	calls atomic.Int32
	drop  int
	fail  bool
}

func (c *upperCompleter) Complete(_ context.Context, messages []llm.Message) (string, error) {
	c.calls.Add(1)
	if c.fail {
		return "", errors.New("endpoint down")
	}
	cues, err := subtitles.ParseSRT(messages[len(messages)-1].Content)
	if err != nil {
		return "", err
	}
	for i := range cues {
		cues[i].Text = strings.ToUpper(cues[i].Text)
	}
	cues = cues[:len(cues)-min(c.drop, len(cues))]
	return "```srt\n" + subtitles.FormatSRT(cues) + "```", nil
}

func engineConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithPrompt("Rewrite these {blocks} subtitles."))
	cfg.Segmentation.MinWords = 4
	cfg.Segmentation.Window = 2
	cfg.Batching.Size = 2
	cfg.Batching.Offset = 1
	cfg.Reflow.WordsPerLine = 3
	return cfg
}

func fieldsOf(cues []subtitles.Cue) []string {
	var out []string
	for _, cue := range cues {
		out = append(out, strings.Fields(cue.Text)...)
	}
	return out
}

func TestGenerateWritesOriginalAndFinal(t *testing.T) {
	cfg := engineConfig(t)
	cfg.Metrics.Textfile = filepath.Join(testsupport.BaseDir(cfg), "metrics", "subforge.prom")
	source := testsupport.WriteFile(t, filepath.Join(testsupport.BaseDir(cfg), "media", "talk.mkv"), "video")
	completer := &upperCompleter{}
	p := pipeline.New(cfg,
		pipeline.WithTranscriber(newTranscriber(t)),
		pipeline.WithCompleter(completer),
		pipeline.WithMetrics(metrics.New()),
	)

	summary, err := p.Generate(context.Background(), source, "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if summary.RunID == "" {
		t.Fatal("expected run id")
	}
	wantOriginal := filepath.Join(filepath.Dir(source), "talk.original.srt")
	wantFinal := filepath.Join(filepath.Dir(source), "talk.srt")
	if summary.OriginalPath != wantOriginal || summary.OutputPath != wantFinal {
		t.Fatalf("unexpected paths %q %q", summary.OriginalPath, summary.OutputPath)
	}

	original, err := p.ReadCues(wantOriginal)
	if err != nil {
		t.Fatalf("read original: %v", err)
	}
	final, err := p.ReadCues(wantFinal)
	if err != nil {
		t.Fatalf("read final: %v", err)
	}
	if got := len(fieldsOf(original)); got != len(sampleWords) {
		t.Fatalf("original holds %d words, want %d", got, len(sampleWords))
	}
	if len(final) != len(original) {
		t.Fatalf("final has %d cues, original %d", len(final), len(original))
	}
	if strings.Join(fieldsOf(final), " ") != strings.ToUpper(strings.Join(fieldsOf(original), " ")) {
		t.Fatalf("final text is not the rewritten original")
	}
	for i, cue := range final {
		if cue.Index != i+1 {
			t.Fatalf("cue %d has index %d", i, cue.Index)
		}
		if cue.Start != original[i].Start || cue.End != original[i].End {
			t.Fatalf("cue %d timing changed", i+1)
		}
		for _, line := range strings.Split(cue.Text, "\n") {
			if n := len(strings.Fields(line)); n > cfg.Reflow.WordsPerLine {
				t.Fatalf("cue %d line %q exceeds %d words", i+1, line, cfg.Reflow.WordsPerLine)
			}
		}
	}
	if summary.Batches == 0 || int(completer.calls.Load()) != summary.Batches {
		t.Fatalf("expected one completion per batch, got %d calls for %d batches", completer.calls.Load(), summary.Batches)
	}

	prom := testsupport.ReadFile(t, cfg.Metrics.Textfile)
	for _, want := range []string{`subforge_runs_total{command="generate",result="success"} 1`, "subforge_words_total"} {
		if !strings.Contains(prom, want) {
			t.Fatalf("metrics textfile missing %q:\n%s", want, prom)
		}
	}
}

func TestGenerateWithoutRewriteSkipsModel(t *testing.T) {
	cfg := engineConfig(t)
	cfg.Rewrite.Enabled = false
	source := testsupport.WriteFile(t, filepath.Join(testsupport.BaseDir(cfg), "talk.mp4"), "video")
	completer := &upperCompleter{fail: true}
	p := pipeline.New(cfg, pipeline.WithTranscriber(newTranscriber(t)), pipeline.WithCompleter(completer))

	summary, err := p.Generate(context.Background(), source, filepath.Join(testsupport.BaseDir(cfg), "out", "custom.srt"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if completer.calls.Load() != 0 {
		t.Fatal("model should not be called when rewrite is disabled")
	}
	final, err := p.ReadCues(summary.OutputPath)
	if err != nil {
		t.Fatalf("read final: %v", err)
	}
	if strings.Join(fieldsOf(final), " ") != strings.Join(sampleWords, " ") {
		t.Fatalf("unexpected final words %v", fieldsOf(final))
	}
}

func TestGenerateTranscriptionFailure(t *testing.T) {
	cfg := engineConfig(t)
	transcriber := &fakeTranscriber{err: services.Wrap(services.ErrExternalTool, "transcribe", "whisperx", "", errors.New("exit 1"))}
	p := pipeline.New(cfg, pipeline.WithTranscriber(transcriber), pipeline.WithCompleter(&upperCompleter{}))
	source := testsupport.WriteFile(t, filepath.Join(testsupport.BaseDir(cfg), "talk.mp4"), "video")

	summary, err := p.Generate(context.Background(), source, "")
	if services.ExitCode(err) != services.ExitExternalTool {
		t.Fatalf("expected external tool failure, got %v", err)
	}
	if _, statErr := os.Stat(summary.OriginalPath); !os.IsNotExist(statErr) {
		t.Fatalf("no output should be written, stat err=%v", statErr)
	}
}

func TestRewriteFileMismatchWritesNothing(t *testing.T) {
	cfg := engineConfig(t)
	cfg.Rewrite.CacheEnabled = false
	input := testsupport.WriteFile(t, filepath.Join(testsupport.BaseDir(cfg), "ep.original.srt"),
		subtitles.FormatSRT(testsupport.Cues("one.", "two.", "three.", "four.")))
	completer := &upperCompleter{drop: 1}
	p := pipeline.New(cfg, pipeline.WithCompleter(completer))

	summary, err := p.RewriteFile(context.Background(), input, "")
	if err == nil {
		t.Fatal("expected rewrite failure")
	}
	if services.ExitCode(err) != services.ExitExternalTool {
		t.Fatalf("expected exit code 3, got %d (%v)", services.ExitCode(err), err)
	}
	if completer.calls.Load() != 1 {
		t.Fatalf("expected the run to stop after the first batch, got %d calls", completer.calls.Load())
	}
	if summary.OutputPath != filepath.Join(filepath.Dir(input), "ep.srt") {
		t.Fatalf("unexpected output path %q", summary.OutputPath)
	}
	if _, statErr := os.Stat(summary.OutputPath); !os.IsNotExist(statErr) {
		t.Fatalf("output should not exist, stat err=%v", statErr)
	}
}

func TestRewriteFileResumesFromCache(t *testing.T) {
	cfg := engineConfig(t)
	input := testsupport.WriteFile(t, filepath.Join(testsupport.BaseDir(cfg), "ep.srt"),
		subtitles.FormatSRT(testsupport.Cues("one.", "two.", "three.", "four.")))

	first := &upperCompleter{}
	if _, err := pipeline.New(cfg, pipeline.WithCompleter(first)).RewriteFile(context.Background(), input, ""); err != nil {
		t.Fatalf("first run: %v", err)
	}
	second := &upperCompleter{fail: true}
	summary, err := pipeline.New(cfg, pipeline.WithCompleter(second)).RewriteFile(context.Background(), input, "")
	if err != nil {
		t.Fatalf("second run should be served from cache: %v", err)
	}
	if second.calls.Load() != 0 {
		t.Fatalf("expected no model calls, got %d", second.calls.Load())
	}
	if summary.OutputPath != filepath.Join(filepath.Dir(input), "ep.rewritten.srt") {
		t.Fatalf("input must not be overwritten, got output %q", summary.OutputPath)
	}
	if got := testsupport.ReadFile(t, summary.OutputPath); !strings.Contains(got, "THREE.") {
		t.Fatalf("unexpected output:\n%s", got)
	}
}

func TestRewriteRequiresPrompt(t *testing.T) {
	cfg := engineConfig(t)
	cfg.Rewrite.PromptFile = filepath.Join(testsupport.BaseDir(cfg), "missing.txt")
	p := pipeline.New(cfg, pipeline.WithCompleter(&upperCompleter{}))

	_, _, err := p.Rewrite(context.Background(), testsupport.Cues("a.", "b."))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRewriteRequiresAPIKeyWithoutCompleter(t *testing.T) {
	cfg := engineConfig(t)
	cfg.LLM.APIKey = ""
	_, _, err := pipeline.New(cfg).Rewrite(context.Background(), testsupport.Cues("a.", "b."))
	if !errors.Is(err, services.ErrConfiguration) || !strings.Contains(err.Error(), "llm.api_key") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestSegmentFileSegmentsMode(t *testing.T) {
	cfg := engineConfig(t)
	cfg.Segmentation.Mode = config.ModeSegments
	cfg.Adjuster.Enabled = false
	transcript := testsupport.WriteFile(t, filepath.Join(testsupport.BaseDir(cfg), "ep.json"),
		`{"segments":[{"text":" Hi.","start":0,"end":1},{"text":" How are you today?","start":1,"end":3},{"text":" Fine thanks.","start":3,"end":4}]}`)
	p := pipeline.New(cfg)

	summary, err := p.SegmentFile(context.Background(), transcript, "")
	if err != nil {
		t.Fatalf("SegmentFile: %v", err)
	}
	cues, err := p.ReadCues(summary.OutputPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(cues) != 2 {
		t.Fatalf("expected short first segment merged, got %d cues", len(cues))
	}
	if cues[0].Text != "Hi. How are you today?" || cues[0].Start != 0 || cues[0].End != 3 {
		t.Fatalf("unexpected merged cue %+v", cues[0])
	}
}

func TestSegmentFileRejectsMalformedTranscript(t *testing.T) {
	cfg := engineConfig(t)
	transcript := testsupport.WriteFile(t, filepath.Join(testsupport.BaseDir(cfg), "bad.json"),
		`{"segments":[{"text":"x","start":0,"end":1,"words":[{"word":"x","start":0}]}]}`)

	_, err := pipeline.New(cfg).SegmentFile(context.Background(), transcript, "")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if services.ExitCode(err) != services.ExitInvalidInput {
		t.Fatalf("expected exit code 2, got %d", services.ExitCode(err))
	}
}

func TestSegmentFileMissingTranscript(t *testing.T) {
	cfg := engineConfig(t)
	_, err := pipeline.New(cfg).SegmentFile(context.Background(), filepath.Join(t.TempDir(), "none.json"), "")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReflowFileInPlace(t *testing.T) {
	cfg := engineConfig(t)
	input := testsupport.WriteFile(t, filepath.Join(testsupport.BaseDir(cfg), "ep.srt"),
		subtitles.FormatSRT(testsupport.Cues("a b c d e f g h i j k", "short")))

	if _, err := pipeline.New(cfg).ReflowFile(context.Background(), input, "", 5); err != nil {
		t.Fatalf("ReflowFile: %v", err)
	}
	cues, err := pipeline.New(cfg).ReadCues(input)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if cues[0].Text != "a b c d\ne f g h\ni j k" || cues[1].Text != "short" {
		t.Fatalf("unexpected reflow %q / %q", cues[0].Text, cues[1].Text)
	}
}

func TestRewriteFileRejectsLockedOutput(t *testing.T) {
	cfg := engineConfig(t)
	input := testsupport.WriteFile(t, filepath.Join(testsupport.BaseDir(cfg), "ep.original.srt"),
		subtitles.FormatSRT(testsupport.Cues("one.", "two.")))
	output := filepath.Join(testsupport.BaseDir(cfg), "ep.srt")
	lock, err := fileutil.LockOutput(output)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer lock.Unlock()

	_, err = pipeline.New(cfg, pipeline.WithCompleter(&upperCompleter{})).RewriteFile(context.Background(), input, "")
	if !errors.Is(err, fileutil.ErrLocked) {
		t.Fatalf("expected lock error, got %v", err)
	}
}

func TestOutputPathsUsesOutputDir(t *testing.T) {
	cfg := engineConfig(t)
	cfg.Files.OutputDir = "/srv/subs"
	original, final := pipeline.New(cfg).OutputPaths("/media/show/ep01.original.srt")
	if original != "/srv/subs/ep01.original.srt" || final != "/srv/subs/ep01.srt" {
		t.Fatalf("unexpected paths %q %q", original, final)
	}
}

func TestPreflightScopesChecksToCommand(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	cfg := engineConfig(t)

	bare := pipeline.New(cfg)
	err := bare.Preflight(context.Background(), pipeline.CommandGenerate)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	for _, want := range []string{"FFmpeg", "Rewrite LLM"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
	if err := bare.Preflight(context.Background(), pipeline.CommandReflow); err != nil {
		t.Fatalf("reflow needs no tools or key: %v", err)
	}

	injected := pipeline.New(cfg, pipeline.WithTranscriber(newTranscriber(t)), pipeline.WithCompleter(&upperCompleter{}))
	if err := injected.Preflight(context.Background(), pipeline.CommandGenerate); err != nil {
		t.Fatalf("injected collaborators should pass: %v", err)
	}

	cfg.Rewrite.PromptFile = filepath.Join(testsupport.BaseDir(cfg), "missing.txt")
	err = injected.Preflight(context.Background(), pipeline.CommandRewrite)
	if err == nil || !strings.Contains(err.Error(), "Rewrite prompt") {
		t.Fatalf("expected missing prompt failure, got %v", err)
	}
}
