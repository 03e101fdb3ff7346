// Package llm is a small client for OpenAI-compatible chat completion
// endpoints, used to rewrite subtitle batches and to probe the endpoint
// during preflight.
//
// Complete sends an ordered message list and returns the reply text.
// HealthCheck asks for a fixed JSON object to prove the key and model work.
//
// Requests that fail with HTTP 408, 429 or 5xx, return no text, or time out
// are retried with doubling backoff (1s base, 10s cap, 3 attempts unless
// configured otherwise). A Retry-After header replaces the computed delay.
// Cancelling the context stops retries at once.
package llm
