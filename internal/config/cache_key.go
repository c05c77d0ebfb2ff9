package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// TestPayloadKey returns the cache key for a test's public payload,
// keyed by slug since that is what candidates present.
func (r *CacheKeyStruct) TestPayloadKey(slug string) string {
	return fmt.Sprintf("test:%s:payload", slug)
}

// TestCompletionChannel returns the Redis PubSub channel carrying completion
// events for a test's live monitor feed.
func (r *CacheKeyStruct) TestCompletionChannel(testID string) string {
	return fmt.Sprintf("test:%s:completions", testID)
}

var CacheKey = NewCacheKeyStruct()
