package rewrite

import "subforge/internal/batchcache"

func cacheKey(opts Options, systemPrompt, batchText string) string {
	return batchcache.Key(opts.Model, opts.Temperature, systemPrompt, batchText)
}
