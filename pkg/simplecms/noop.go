package simplecms

import "context"

// NoopEventSink is a no-operation implementation of EventSink.
// Useful when no subscriber transport is configured or for testing.
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink.
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// Publish does nothing and returns nil.
func (n *NoopEventSink) Publish(ctx context.Context, event string, payload any) error {
	return nil
}

// NoopCache is a cache that never hits. Every read falls through to the
// repository and every write is dropped.
type NoopCache struct{}

// NewNoopCache creates a new no-operation cache.
func NewNoopCache() Cache {
	return &NoopCache{}
}

func (n *NoopCache) Get(ctx context.Context, key string) (any, bool) { return nil, false }
func (n *NoopCache) Set(ctx context.Context, key string, value any)  {}
func (n *NoopCache) Delete(ctx context.Context, key string)          {}
func (n *NoopCache) DeleteAll(ctx context.Context, keys []string)    {}
