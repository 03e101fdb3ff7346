package subtitles

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Seconds is a timestamp in seconds that also decodes from a quoted number.
type Seconds float64

// UnmarshalJSON accepts 12.5 as well as "12.5".
func (s *Seconds) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return fmt.Errorf("timestamp %q: %w", text, err)
		}
		*s = Seconds(value)
		return nil
	}
	var value float64
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*s = Seconds(value)
	return nil
}

// TranscriptWord is one word record as emitted by WhisperX with
// word_timestamps enabled.
type TranscriptWord struct {
	Word  *string  `json:"word" validate:"required"`
	Start *Seconds `json:"start" validate:"required"`
	End   *Seconds `json:"end" validate:"required"`
	Score *float64 `json:"score,omitempty"`
}

// TranscriptSegment groups words recognised in one utterance.
type TranscriptSegment struct {
	Text  string           `json:"text"`
	Start *Seconds         `json:"start" validate:"required"`
	End   *Seconds         `json:"end" validate:"required"`
	Words []TranscriptWord `json:"words"`
}

// Transcript is the top-level transcription payload.
type Transcript struct {
	Language string              `json:"language,omitempty"`
	Segments []TranscriptSegment `json:"segments"`
}

// DecodeTranscript parses a transcription JSON document.
func DecodeTranscript(r io.Reader) (Transcript, error) {
	var t Transcript
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return Transcript{}, fmt.Errorf("%w: decode transcript: %v", ErrMalformedInput, err)
	}
	return t, nil
}

// NormalizeWords flattens every segment's words into one ordered stream.
// Word text is trimmed; tokens that trim to nothing are dropped. A word
// missing its text or either timestamp fails the whole transcript.
func NormalizeWords(t Transcript) ([]Word, error) {
	var words []Word
	for si, segment := range t.Segments {
		for wi := range segment.Words {
			raw := &segment.Words[wi]
			if err := validate.Struct(raw); err != nil {
				return nil, fmt.Errorf("%w: segment %d word %d: %s", ErrMalformedInput, si+1, wi+1, describeValidation(err))
			}
			text := strings.TrimSpace(*raw.Word)
			if text == "" {
				continue
			}
			words = append(words, Word{
				Text:  text,
				Start: float64(*raw.Start),
				End:   float64(*raw.End),
			})
		}
	}
	return words, nil
}

// SegmentCues builds one cue per transcript segment, then merges segments
// shorter than mergeMinWords into their successor. A mergeMinWords of zero
// disables merging.
func SegmentCues(t Transcript, mergeMinWords int) ([]Cue, error) {
	if mergeMinWords < 0 {
		return nil, fmt.Errorf("%w: merge_min_words must be >= 0 (got %d)", ErrInvalidOptions, mergeMinWords)
	}
	cues := make([]Cue, 0, len(t.Segments))
	for si := range t.Segments {
		segment := &t.Segments[si]
		if err := validate.StructPartial(segment, "Start", "End"); err != nil {
			return nil, fmt.Errorf("%w: segment %d: %s", ErrMalformedInput, si+1, describeValidation(err))
		}
		cues = append(cues, Cue{
			Start: float64(*segment.Start),
			End:   float64(*segment.End),
			Text:  strings.TrimSpace(segment.Text),
		})
	}
	cues = MergeShortSegments(cues, mergeMinWords)
	Renumber(cues)
	return cues, nil
}

// MergeShortSegments joins any cue with fewer than minWords words to the cue
// after it. The merged pair is not re-examined.
func MergeShortSegments(cues []Cue, minWords int) []Cue {
	merged := make([]Cue, 0, len(cues))
	for i := 0; i < len(cues); i++ {
		cue := cues[i]
		if cue.WordCount() < minWords && i+1 < len(cues) {
			next := cues[i+1]
			cue = Cue{
				Start: cue.Start,
				End:   next.End,
				Text:  strings.TrimSpace(strings.TrimSpace(cue.Text) + " " + strings.TrimSpace(next.Text)),
			}
			i++
		}
		merged = append(merged, cue)
	}
	return merged
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("missing %s", strings.ToLower(fe.Field())))
	}
	return strings.Join(parts, ", ")
}
