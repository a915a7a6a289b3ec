package recurrence

import (
	"time"
)

// Engine wraps the pure expansion functions with configured bounds and an
// optional result cache. It is safe for concurrent use.
type Engine struct {
	cache  *RecurrenceCache
	config EngineConfig
}

// NewEngine creates an engine with DisabledCacheConfig.
func NewEngine() *Engine {
	return NewEngineWithConfig(DisabledCacheConfig)
}

// Config returns the effective configuration.
func (e *Engine) Config() EngineConfig {
	return e.config
}

// Occurrences returns up to maxCount occurrences of rule from anchor.
func (e *Engine) Occurrences(anchor time.Time, rule Rule, exceptions ExceptionSet, maxCount int) []time.Time {
	key := CacheKey{
		Operation:  "occurrences",
		Anchor:     DateOf(anchor),
		Rule:       rule,
		Exceptions: exceptions,
		MaxCount:   maxCount,
		Horizon:    e.config.HorizonDays,
	}
	return e.cached(key, func() []time.Time {
		return Expand(anchor, rule, exceptions, ExpansionOptions{
			MaxCount:    maxCount,
			HorizonDays: e.config.HorizonDays,
		})
	})
}

// Between returns the occurrences within [from, to], capped at
// MaxRangeOccurrences.
func (e *Engine) Between(anchor time.Time, rule Rule, exceptions ExceptionSet, from, to time.Time) []time.Time {
	key := CacheKey{
		Operation:  "between",
		Anchor:     DateOf(anchor),
		Rule:       rule,
		Exceptions: exceptions,
		MaxCount:   e.config.MaxRangeOccurrences,
		Horizon:    e.config.HorizonDays,
		From:       DateOf(from),
		To:         DateOf(to),
	}
	return e.cached(key, func() []time.Time {
		return expand(anchor, rule, exceptions, ExpansionOptions{
			MaxCount:    e.config.MaxRangeOccurrences,
			HorizonDays: e.config.HorizonDays,
		}, window{from: someDate(from), to: someDate(to)})
	})
}

// HasOccurrenceInRange reports whether any non-excepted occurrence falls
// within [from, to].
func (e *Engine) HasOccurrenceInRange(anchor time.Time, rule Rule, exceptions ExceptionSet, from, to time.Time) bool {
	found := expand(anchor, rule, exceptions, ExpansionOptions{
		MaxCount:    1,
		HorizonDays: e.config.HorizonDays,
	}, window{from: someDate(from), to: someDate(to)})
	return len(found) > 0
}

// Stats returns cache statistics; zero when caching is disabled.
func (e *Engine) Stats() CacheStats {
	if e.cache == nil {
		return CacheStats{}
	}
	return e.cache.Stats()
}

// Close releases the cache.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

func (e *Engine) cached(key CacheKey, compute func() []time.Time) []time.Time {
	if e.cache == nil || key.Rule == nil {
		return compute()
	}
	if dates, ok := e.cache.Get(key); ok {
		return dates
	}
	dates := compute()
	e.cache.Set(key, dates)
	return dates
}
