package subtitles

import (
	"errors"
	"math/rand"
	"testing"
)

func cuesFrom(texts ...string) []Cue {
	cues := make([]Cue, 0, len(texts))
	for i, text := range texts {
		cues = append(cues, Cue{Index: i + 1, Start: float64(i), End: float64(i) + 0.9, Text: text})
	}
	return cues
}

func batchIndices(batches [][]Cue) [][]int {
	out := make([][]int, 0, len(batches))
	for _, batch := range batches {
		ids := make([]int, 0, len(batch))
		for _, cue := range batch {
			ids = append(ids, cue.Index)
		}
		out = append(out, ids)
	}
	return out
}

func equalIndices(a, b [][]int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

func TestSplitBatches(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		opts  BatchOptions
		want  [][]int
	}{
		{
			name:  "closes on terminal after reaching size",
			texts: []string{"one", "two", "three.", "four"},
			opts:  BatchOptions{Size: 2, Offset: 1},
			want:  [][]int{{1, 2, 3}, {4}},
		},
		{
			name:  "closes immediately when size cue is punctuated",
			texts: []string{"one", "two,", "three", "four!"},
			opts:  BatchOptions{Size: 2, Offset: 5},
			want:  [][]int{{1, 2}, {3, 4}},
		},
		{
			name:  "force closes at size plus offset",
			texts: []string{"a", "b", "c", "d", "e", "f", "g"},
			opts:  BatchOptions{Size: 2, Offset: 1},
			want:  [][]int{{1, 2, 3}, {4, 5, 6}, {7}},
		},
		{
			name:  "zero offset closes at size",
			texts: []string{"a", "b", "c"},
			opts:  BatchOptions{Size: 1},
			want:  [][]int{{1}, {2}, {3}},
		},
		{
			name:  "punctuation before size is ignored",
			texts: []string{"a.", "b", "c"},
			opts:  BatchOptions{Size: 3, Offset: 2},
			want:  [][]int{{1, 2, 3}},
		},
		{
			name:  "empty input",
			texts: nil,
			opts:  BatchOptions{Size: 3},
			want:  [][]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches, err := SplitBatches(cuesFrom(tt.texts...), tt.opts)
			if err != nil {
				t.Fatalf("SplitBatches returned error: %v", err)
			}
			got := batchIndices(batches)
			if !equalIndices(got, tt.want) {
				t.Fatalf("unexpected batches: got %v want %v", got, tt.want)
			}
		})
	}
}

func TestSplitBatchesRejectsDegenerateOptions(t *testing.T) {
	for _, opts := range []BatchOptions{{Size: 0}, {Size: -1}, {Size: 2, Offset: -1}} {
		if _, err := SplitBatches(cuesFrom("a"), opts); !errors.Is(err, ErrInvalidOptions) {
			t.Fatalf("expected ErrInvalidOptions for %+v, got %v", opts, err)
		}
	}
}

func TestSplitBatchesCoverageAndBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	vocab := []string{"plain", "stop.", "pause,", "ask?", "more"}

	for trial := 0; trial < 200; trial++ {
		texts := make([]string, rng.Intn(80))
		for i := range texts {
			texts[i] = vocab[rng.Intn(len(vocab))]
		}
		opts := BatchOptions{Size: 1 + rng.Intn(10), Offset: rng.Intn(6)}

		batches, err := SplitBatches(cuesFrom(texts...), opts)
		if err != nil {
			t.Fatalf("trial %d: SplitBatches returned error: %v", trial, err)
		}
		next := 1
		for bi, batch := range batches {
			if len(batch) == 0 {
				t.Fatalf("trial %d: batch %d is empty", trial, bi)
			}
			if len(batch) > opts.Size+opts.Offset {
				t.Fatalf("trial %d: batch %d has %d cues, bound %d", trial, bi, len(batch), opts.Size+opts.Offset)
			}
			if bi < len(batches)-1 && len(batch) < opts.Size {
				t.Fatalf("trial %d: non-final batch %d has only %d cues", trial, bi, len(batch))
			}
			for _, cue := range batch {
				if cue.Index != next {
					t.Fatalf("trial %d: expected cue %d, got %d", trial, next, cue.Index)
				}
				next++
			}
		}
		if next-1 != len(texts) {
			t.Fatalf("trial %d: covered %d cues of %d", trial, next-1, len(texts))
		}
	}
}

func TestSplitBatchesDoNotAliasOnAppend(t *testing.T) {
	cues := cuesFrom("a.", "b.", "c.")
	batches, err := SplitBatches(cues, BatchOptions{Size: 1})
	if err != nil {
		t.Fatalf("SplitBatches returned error: %v", err)
	}
	_ = append(batches[0], Cue{Text: "extra"})
	if cues[1].Text != "b." {
		t.Fatalf("appending to a batch overwrote its neighbour: %q", cues[1].Text)
	}
}
