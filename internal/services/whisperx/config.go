package whisperx

// Config selects the model and runtime for a transcription.
type Config struct {
	// Model is the WhisperX model name. Empty means large-v3.
	Model string
	// Language is a two-letter code. Empty lets WhisperX detect it.
	Language    string
	CUDAEnabled bool
	// VADMethod is "silero" or "pyannote".
	VADMethod string
	// HFToken unlocks the gated pyannote models.
	HFToken string
}

const (
	defaultModel  = "large-v3"
	ffmpegCommand = "ffmpeg"
	uvxCommand    = "uvx"

	vadPyannote = "pyannote"
	vadSilero   = "silero"

	cudaIndexURL = "https://download.pytorch.org/whl/cu128"
	pypiIndexURL = "https://pypi.org/simple"

	// sampleRate is the mono PCM rate WhisperX expects, in Hz.
	sampleRate = 16000
)

// decodeFlags are passed to every WhisperX run, in order.
var decodeFlags = [][2]string{
	{"--batch_size", "4"},
	{"--output_format", "json"},
	{"--segment_resolution", "sentence"},
	{"--chunk_size", "15"},
	{"--vad_onset", "0.08"},
	{"--vad_offset", "0.07"},
	{"--beam_size", "10"},
	{"--best_of", "10"},
	{"--temperature", "0.0"},
	{"--patience", "1.0"},
}
