// Package rewrite sends cue batches to a chat completion model and parses
// the rewritten cues back.
//
// Each batch is serialized in the cue grammar, paired with a system prompt
// whose {blocks} placeholder carries the batch size, and sent as one
// request. Batches run strictly in order. A batch whose response does not
// parse, or parses to a different number of cues, fails the whole run and no
// partial result is returned.
package rewrite
