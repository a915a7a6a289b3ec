package recurrence

import (
	"time"
)

// EngineConfig holds configuration options for the recurrence engine
type EngineConfig struct {
	// Cache configuration
	CacheEnabled bool
	CacheConfig  CacheConfig

	// Expansion bounds
	HorizonDays         int // Look-ahead from the anchor (<= 0 = DefaultHorizonDays)
	MaxRangeOccurrences int // Cap for Between and HasOccurrenceInRange
}

// DefaultEngineConfig provides sensible defaults for production use
var DefaultEngineConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig:  DefaultCacheConfig,

	HorizonDays:         DefaultHorizonDays,
	MaxRangeOccurrences: 1000,
}

// HighPerformanceConfig is optimized for high-traffic scenarios
var HighPerformanceConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             30 * time.Minute, // Longer cache TTL
		MaxEntries:      5000,             // More cache entries
		CleanupInterval: 10 * time.Minute, // Less frequent cleanup
	},

	HorizonDays:         2 * 365,
	MaxRangeOccurrences: 500,
}

// LowMemoryConfig is optimized for memory-constrained environments
var LowMemoryConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             5 * time.Minute, // Shorter cache TTL
		MaxEntries:      100,             // Fewer cache entries
		CleanupInterval: 2 * time.Minute, // More frequent cleanup
	},

	HorizonDays:         DefaultHorizonDays,
	MaxRangeOccurrences: 200,
}

// DisabledCacheConfig turns off caching entirely
var DisabledCacheConfig = EngineConfig{
	CacheEnabled: false,
	CacheConfig:  CacheConfig{}, // Not used

	HorizonDays:         DefaultHorizonDays,
	MaxRangeOccurrences: 1000,
}

// NewEngineWithConfig creates a new recurrence engine with custom configuration
func NewEngineWithConfig(config EngineConfig) *Engine {
	var cache *RecurrenceCache
	if config.CacheEnabled {
		cache = NewRecurrenceCache(config.CacheConfig)
	}
	if config.HorizonDays <= 0 {
		config.HorizonDays = DefaultHorizonDays
	}
	config.HorizonDays = min(config.HorizonDays, MaxHorizonDays)
	if config.MaxRangeOccurrences <= 0 {
		config.MaxRangeOccurrences = DefaultEngineConfig.MaxRangeOccurrences
	}

	return &Engine{
		cache:  cache,
		config: config,
	}
}
