package subtitles

// SplitBatches groups cues into contiguous batches. A batch may close once it
// holds Size cues and the most recent cue ends with a terminal or pause mark;
// it is force-closed at Size+Offset cues. A trailing partial batch is kept.
// The returned batches share the backing array of cues.
func SplitBatches(cues []Cue, opts BatchOptions) ([][]Cue, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	terminal := opts.Terminal.Or(DefaultTerminalMarks)
	pause := opts.Pause.Or(DefaultPauseMarks)

	var batches [][]Cue
	start := 0
	for i, cue := range cues {
		size := i - start + 1
		if size < opts.Size {
			continue
		}
		if terminal.Ends(cue.Text) || pause.Ends(cue.Text) || size >= opts.Size+opts.Offset {
			batches = append(batches, cues[start:i+1:i+1])
			start = i + 1
		}
	}
	if start < len(cues) {
		batches = append(batches, cues[start:len(cues):len(cues)])
	}
	return batches, nil
}
