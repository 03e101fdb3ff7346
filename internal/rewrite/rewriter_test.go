package rewrite_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"subforge/internal/batchcache"
	"subforge/internal/rewrite"
	"subforge/internal/services"
	"subforge/internal/services/llm"
	"subforge/internal/subtitles"
)

// fakeCompleter answers each call with the next scripted reply.
type fakeCompleter struct {
	replies []func(msgs []llm.Message) (string, error)
	calls   [][]llm.Message
}

func (f *fakeCompleter) Complete(_ context.Context, msgs []llm.Message) (string, error) {
	f.calls = append(f.calls, msgs)
	if len(f.calls) > len(f.replies) {
		return "", errors.New("unexpected call")
	}
	return f.replies[len(f.calls)-1](msgs)
}

// upper echoes the batch back with upper-cased text and shifted timing.
func upper(msgs []llm.Message) (string, error) {
	cues, err := subtitles.ParseSRT(msgs[1].Content)
	if err != nil {
		return "", err
	}
	for i := range cues {
		cues[i].Text = strings.ToUpper(cues[i].Text)
		cues[i].Start += 100
		cues[i].End += 100
	}
	return "```srt\n" + subtitles.FormatSRT(cues) + "```", nil
}

func reply(text string) func([]llm.Message) (string, error) {
	return func([]llm.Message) (string, error) { return text, nil }
}

func fail(err error) func([]llm.Message) (string, error) {
	return func([]llm.Message) (string, error) { return "", err }
}

func makeBatches(sizes ...int) [][]subtitles.Cue {
	var batches [][]subtitles.Cue
	idx := 1
	for _, size := range sizes {
		batch := make([]subtitles.Cue, 0, size)
		for i := 0; i < size; i++ {
			batch = append(batch, subtitles.Cue{
				Index: idx,
				Start: float64(idx),
				End:   float64(idx) + 0.5,
				Text:  fmt.Sprintf("cue %d", idx),
			})
			idx++
		}
		batches = append(batches, batch)
	}
	return batches
}

func TestRewriteBatchesPreservesTimingAndRenumbers(t *testing.T) {
	completer := &fakeCompleter{replies: []func([]llm.Message) (string, error){upper, upper}}
	r := rewrite.New(completer, rewrite.Options{Prompt: "Return {blocks} blocks.", PreserveTiming: true})

	got, err := r.RewriteBatches(context.Background(), makeBatches(2, 3))
	if err != nil {
		t.Fatalf("RewriteBatches: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 cues, got %d", len(got))
	}
	for i, cue := range got {
		if cue.Index != i+1 {
			t.Fatalf("cue %d has index %d", i, cue.Index)
		}
		if cue.Start != float64(i+1) || cue.End != float64(i+1)+0.5 {
			t.Fatalf("cue %d timing not preserved: %v-%v", i, cue.Start, cue.End)
		}
		if cue.Text != fmt.Sprintf("CUE %d", i+1) {
			t.Fatalf("cue %d text = %q", i, cue.Text)
		}
	}
	if len(completer.calls) != 2 {
		t.Fatalf("expected 2 completion calls, got %d", len(completer.calls))
	}
	if completer.calls[0][0].Content != "Return 2 blocks.\n" || completer.calls[1][0].Content != "Return 3 blocks.\n" {
		t.Fatalf("unexpected system prompts: %q / %q", completer.calls[0][0].Content, completer.calls[1][0].Content)
	}
}

func TestRewriteBatchesUsesModelTimingWhenNotPreserved(t *testing.T) {
	completer := &fakeCompleter{replies: []func([]llm.Message) (string, error){upper}}
	r := rewrite.New(completer, rewrite.Options{Prompt: "p"})

	got, err := r.RewriteBatches(context.Background(), makeBatches(2))
	if err != nil {
		t.Fatalf("RewriteBatches: %v", err)
	}
	if got[0].Start != 101 || got[1].End != 102.5 {
		t.Fatalf("expected model timing, got %+v", got)
	}
}

func TestRewriteBatchesAppendsContext(t *testing.T) {
	completer := &fakeCompleter{replies: []func([]llm.Message) (string, error){upper}}
	r := rewrite.New(completer, rewrite.Options{Prompt: "Fix {blocks}.", Context: "Names: Ana, Rui"})

	if _, err := r.RewriteBatches(context.Background(), makeBatches(1)); err != nil {
		t.Fatalf("RewriteBatches: %v", err)
	}
	if got := completer.calls[0][0].Content; got != "Fix 1.\n Names: Ana, Rui\n" {
		t.Fatalf("unexpected system content %q", got)
	}
}

func TestRewriteBatchesFailsOnCountMismatch(t *testing.T) {
	short := "1\n00:00:01,000 --> 00:00:01,500\nonly one\n"
	completer := &fakeCompleter{replies: []func([]llm.Message) (string, error){upper, reply(short)}}
	r := rewrite.New(completer, rewrite.Options{Prompt: "p"})

	got, err := r.RewriteBatches(context.Background(), makeBatches(1, 2, 1))
	if err == nil {
		t.Fatal("expected error")
	}
	if got != nil {
		t.Fatalf("expected no partial result, got %d cues", len(got))
	}
	if !errors.Is(err, rewrite.ErrRewriteFailed) || !errors.Is(err, subtitles.ErrMalformedInput) {
		t.Fatalf("expected rewrite failure wrapping malformed input, got %v", err)
	}
	if !strings.Contains(err.Error(), "batch 2/3") {
		t.Fatalf("expected batch position in error, got %v", err)
	}
	if len(completer.calls) != 2 {
		t.Fatalf("expected processing to stop at the failing batch, got %d calls", len(completer.calls))
	}
}

func TestRewriteBatchesFailsOnUnparseableResponse(t *testing.T) {
	completer := &fakeCompleter{replies: []func([]llm.Message) (string, error){reply("Sorry, I cannot help with that.")}}
	r := rewrite.New(completer, rewrite.Options{Prompt: "p"})

	if _, err := r.RewriteBatches(context.Background(), makeBatches(1)); !errors.Is(err, subtitles.ErrMalformedInput) {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}
}

func TestRewriteBatchesWrapsCompleterError(t *testing.T) {
	completer := &fakeCompleter{replies: []func([]llm.Message) (string, error){fail(errors.New("503 upstream"))}}
	r := rewrite.New(completer, rewrite.Options{Prompt: "p"})

	_, err := r.RewriteBatches(context.Background(), makeBatches(2))
	if !errors.Is(err, services.ErrExternalTool) || !errors.Is(err, rewrite.ErrRewriteFailed) {
		t.Fatalf("expected external tool rewrite failure, got %v", err)
	}
	if services.ExitCode(err) != services.ExitExternalTool {
		t.Fatalf("unexpected exit code %d", services.ExitCode(err))
	}
}

func TestRewriteBatchesHonoursCancellation(t *testing.T) {
	completer := &fakeCompleter{}
	r := rewrite.New(completer, rewrite.Options{Prompt: "p"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.RewriteBatches(ctx, makeBatches(1)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(completer.calls) != 0 {
		t.Fatal("expected no completion calls after cancel")
	}
}

func TestRewriteBatchesEmpty(t *testing.T) {
	r := rewrite.New(&fakeCompleter{}, rewrite.Options{Prompt: "p"})
	got, err := r.RewriteBatches(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v %v", got, err)
	}
}

func TestRewriteBatchesWithoutCompleter(t *testing.T) {
	r := rewrite.New(nil, rewrite.Options{})
	if _, err := r.RewriteBatches(context.Background(), makeBatches(1)); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRewriteBatchesServesRepeatRunFromCache(t *testing.T) {
	store, err := batchcache.Open(filepath.Join(t.TempDir(), "rewrite.db"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer store.Close()

	opts := rewrite.Options{Prompt: "p {blocks}", PreserveTiming: true, Model: "gpt-4o", Temperature: 0.5, Cache: store}
	batches := makeBatches(2, 2)

	first := &fakeCompleter{replies: []func([]llm.Message) (string, error){upper, fail(errors.New("timeout"))}}
	if _, err := rewrite.New(first, opts).RewriteBatches(context.Background(), batches); err == nil {
		t.Fatal("expected first run to fail on batch 2")
	}

	second := &fakeCompleter{replies: []func([]llm.Message) (string, error){upper}}
	got, err := rewrite.New(second, opts).RewriteBatches(context.Background(), batches)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(second.calls) != 1 {
		t.Fatalf("expected only the failed batch to be requested, got %d calls", len(second.calls))
	}
	if len(got) != 4 || got[0].Text != "CUE 1" || got[3].Text != "CUE 4" {
		t.Fatalf("unexpected result: %+v", got)
	}
}
