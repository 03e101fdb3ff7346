package rewrite

import (
	"strconv"
	"strings"

	"subforge/internal/services/llm"
	"subforge/internal/subtitles"
)

const blocksPlaceholder = "{blocks}"

// FormatBatch serializes a batch in the cue grammar.
func FormatBatch(batch []subtitles.Cue) string {
	return subtitles.FormatSRT(batch)
}

// InterpolatePrompt replaces {blocks} with n. Doubled braces are escapes for
// literal braces; other text, including unknown {names}, passes through.
func InterpolatePrompt(template string, n int) string {
	var sb strings.Builder
	sb.Grow(len(template) + 8)
	count := strconv.Itoa(n)
	for i := 0; i < len(template); {
		switch {
		case strings.HasPrefix(template[i:], "{{"):
			sb.WriteByte('{')
			i += 2
		case strings.HasPrefix(template[i:], "}}"):
			sb.WriteByte('}')
			i += 2
		case strings.HasPrefix(template[i:], blocksPlaceholder):
			sb.WriteString(count)
			i += len(blocksPlaceholder)
		default:
			sb.WriteByte(template[i])
			i++
		}
	}
	return sb.String()
}

// ComposeSystemPrompt appends optional reference context to the prompt.
func ComposeSystemPrompt(prompt, context string) string {
	if strings.TrimSpace(context) == "" {
		return prompt
	}
	return prompt + "\n " + context
}

// BuildMessages returns the system and user turns for one batch.
func BuildMessages(systemPrompt, batchText string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt + "\n"},
		{Role: llm.RoleUser, Content: batchText + "\n"},
	}
}

// StripCodeFence removes a Markdown code fence wrapped around the whole
// response. The opening fence may carry a language tag.
func StripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return trimmed
	}
	first := strings.TrimSpace(lines[0])
	last := strings.TrimSpace(lines[len(lines)-1])
	if !strings.HasPrefix(first, "```") || last != "```" {
		return trimmed
	}
	return strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
}
