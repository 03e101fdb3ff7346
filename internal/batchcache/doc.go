// Package batchcache persists rewritten batches in SQLite so an interrupted
// or repeated rewrite does not pay for the same completion twice.
//
// Entries are keyed by a digest of the model, temperature, system prompt and
// batch text. Any change to those inputs misses the cache.
package batchcache
