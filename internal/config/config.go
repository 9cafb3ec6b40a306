// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir     string // Base directory for all databases (always absolute)
	Port        int
	LogLevel    string
	DevMode     bool
	UpstreamKey string // API key for the upstream match data provider
	Region      string // Default platform region (e.g. "euw1")

	Quota     QuotaConfig
	Cache     CacheConfig
	Retry     RetryConfig
	Analytics AnalyticsConfig
}

// QuotaConfig holds the rate limit window sizes for the upstream provider.
// Defaults match a development key: 20 requests/second and 100 requests/2min.
type QuotaConfig struct {
	ShortWindow time.Duration
	ShortLimit  int
	LongWindow  time.Duration
	LongLimit   int
	BaseBackoff time.Duration // Backoff applied after a throttle with no Retry-After hint
	MaxBackoff  time.Duration // Cap for exponential throttle backoff
}

// CacheConfig holds TTLs per cache class plus sweep behaviour.
type CacheConfig struct {
	StaticReferenceTTL time.Duration // Champion/static reference data
	RecentMatchesTTL   time.Duration // Match lists and match details
	SummonerTTL        time.Duration // Account and summoner lookups
	SnapshotTTL        time.Duration // Derived analytics snapshots
	NegativeTTL        time.Duration // Short negative-cache for retryable failures
	SweepInterval      time.Duration // Background expiry sweep period
}

// RetryConfig holds the gateway retry policy for upstream calls.
type RetryConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// AnalyticsConfig holds the reference constants behind the derived statistics.
// The exact weights are a product calibration concern, so everything is
// configurable rather than hard-coded in the engine.
type AnalyticsConfig struct {
	// GPI axis references (see gpi.go for how each one is applied)
	GPIKillWeight       float64 // Kill contribution per game in the aggression axis
	GPIDamageScale      float64 // Damage-to-champions divisor in the aggression axis
	GPICSReference      float64 // CS/min that maps to a 10.0 farming score
	GPIDeathFloor       float64 // Deaths/game considered neutral for survivability
	GPIDeathSlope       float64 // Survivability penalty per death above the floor
	GPIVisionReference  float64 // Vision score that maps to a 10.0 vision score
	GPIChampionPoolSize float64 // Distinct champions that map to a 10.0 versatility
	GPIVariancePenalty  float64 // Consistency penalty per unit of KDA stddev
	GPIVarianceCap      float64 // Maximum consistency penalty

	// Role performance score weights (sum to 1.0) and minimum sample size
	RoleWeightWinRate float64
	RoleWeightKDA     float64
	RoleWeightCS      float64
	RoleWeightVision  float64
	RoleMinGames      int

	// Per-role reference values the performance score normalizes against,
	// keyed by role name (TOP, JUNGLE, ...).
	RoleBenchmarks map[string]RoleBenchmark

	// Heatmap dominance threshold: if the busiest cell holds less than this
	// share of all games the activity pattern is classified as "Balanced".
	DominanceThreshold float64
}

// RoleBenchmark holds the raw-stat values that map to a 100 score for a role.
type RoleBenchmark struct {
	KDA         float64
	CSPerMin    float64
	VisionScore float64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("RIFTSCOPE_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:     absDataDir,
		Port:        getEnvAsInt("PORT", 8002),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DevMode:     getEnvAsBool("DEV_MODE", false),
		UpstreamKey: getEnv("UPSTREAM_API_KEY", ""),
		Region:      getEnv("UPSTREAM_REGION", "euw1"),
		Quota:       loadQuotaConfig(),
		Cache:       loadCacheConfig(),
		Retry:       loadRetryConfig(),
		Analytics:   loadAnalyticsConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Quota.ShortLimit <= 0 || c.Quota.LongLimit <= 0 {
		return fmt.Errorf("quota limits must be positive (short=%d long=%d)", c.Quota.ShortLimit, c.Quota.LongLimit)
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry max attempts must be positive (got %d)", c.Retry.MaxAttempts)
	}
	// Note: upstream key optional - analytics endpoints work from already
	// persisted records; only match sync requires the key.
	return nil
}

func loadQuotaConfig() QuotaConfig {
	return QuotaConfig{
		ShortWindow: getEnvAsDuration("QUOTA_SHORT_WINDOW", time.Second),
		ShortLimit:  getEnvAsInt("QUOTA_SHORT_LIMIT", 20),
		LongWindow:  getEnvAsDuration("QUOTA_LONG_WINDOW", 2*time.Minute),
		LongLimit:   getEnvAsInt("QUOTA_LONG_LIMIT", 100),
		BaseBackoff: getEnvAsDuration("QUOTA_BASE_BACKOFF", time.Second),
		MaxBackoff:  getEnvAsDuration("QUOTA_MAX_BACKOFF", time.Minute),
	}
}

func loadCacheConfig() CacheConfig {
	return CacheConfig{
		StaticReferenceTTL: getEnvAsDuration("CACHE_STATIC_TTL", 24*time.Hour),
		RecentMatchesTTL:   getEnvAsDuration("CACHE_MATCHES_TTL", 10*time.Minute),
		SummonerTTL:        getEnvAsDuration("CACHE_SUMMONER_TTL", 15*time.Minute),
		SnapshotTTL:        getEnvAsDuration("CACHE_SNAPSHOT_TTL", 10*time.Minute),
		NegativeTTL:        getEnvAsDuration("CACHE_NEGATIVE_TTL", 5*time.Second),
		SweepInterval:      getEnvAsDuration("CACHE_SWEEP_INTERVAL", 5*time.Minute),
	}
}

func loadRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
		BaseBackoff: getEnvAsDuration("RETRY_BASE_BACKOFF", 500*time.Millisecond),
		MaxBackoff:  getEnvAsDuration("RETRY_MAX_BACKOFF", 10*time.Second),
	}
}

func loadAnalyticsConfig() AnalyticsConfig {
	return AnalyticsConfig{
		GPIKillWeight:       getEnvAsFloat("GPI_KILL_WEIGHT", 1.5),
		GPIDamageScale:      getEnvAsFloat("GPI_DAMAGE_SCALE", 2000),
		GPICSReference:      getEnvAsFloat("GPI_CS_REFERENCE", 8.0),
		GPIDeathFloor:       getEnvAsFloat("GPI_DEATH_FLOOR", 2.0),
		GPIDeathSlope:       getEnvAsFloat("GPI_DEATH_SLOPE", 1.5),
		GPIVisionReference:  getEnvAsFloat("GPI_VISION_REFERENCE", 50.0),
		GPIChampionPoolSize: getEnvAsFloat("GPI_CHAMPION_POOL", 5.0),
		GPIVariancePenalty:  getEnvAsFloat("GPI_VARIANCE_PENALTY", 0.5),
		GPIVarianceCap:      getEnvAsFloat("GPI_VARIANCE_CAP", 3.0),
		RoleWeightWinRate:   getEnvAsFloat("ROLE_WEIGHT_WIN_RATE", 0.35),
		RoleWeightKDA:       getEnvAsFloat("ROLE_WEIGHT_KDA", 0.25),
		RoleWeightCS:        getEnvAsFloat("ROLE_WEIGHT_CS", 0.20),
		RoleWeightVision:    getEnvAsFloat("ROLE_WEIGHT_VISION", 0.20),
		RoleMinGames:        getEnvAsInt("ROLE_MIN_GAMES", 3),
		RoleBenchmarks:      loadRoleBenchmarks(),
		DominanceThreshold:  getEnvAsFloat("ACTIVITY_DOMINANCE_THRESHOLD", 0.15),
	}
}

// loadRoleBenchmarks builds the per-role reference table. Each value can be
// overridden with ROLE_BENCH_<ROLE>_{KDA,CS,VISION}.
func loadRoleBenchmarks() map[string]RoleBenchmark {
	defaults := map[string]RoleBenchmark{
		"TOP":     {KDA: 3.0, CSPerMin: 7.0, VisionScore: 25},
		"JUNGLE":  {KDA: 3.5, CSPerMin: 5.5, VisionScore: 35},
		"MIDDLE":  {KDA: 3.5, CSPerMin: 8.0, VisionScore: 25},
		"BOTTOM":  {KDA: 4.0, CSPerMin: 8.5, VisionScore: 25},
		"UTILITY": {KDA: 3.5, CSPerMin: 2.0, VisionScore: 60},
	}

	benchmarks := make(map[string]RoleBenchmark, len(defaults))
	for role, def := range defaults {
		benchmarks[role] = RoleBenchmark{
			KDA:         getEnvAsFloat("ROLE_BENCH_"+role+"_KDA", def.KDA),
			CSPerMin:    getEnvAsFloat("ROLE_BENCH_"+role+"_CS", def.CSPerMin),
			VisionScore: getEnvAsFloat("ROLE_BENCH_"+role+"_VISION", def.VisionScore),
		}
	}
	return benchmarks
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
