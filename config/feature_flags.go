package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags manages feature toggles. Flags default from code, can be
// overridden per environment, and can be flipped at runtime for debugging.
type FeatureFlags struct {
	mu       sync.RWMutex
	features map[string]*Feature
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool
}

// Predefined feature flag names.
const (
	// FeatureStudyHoursBackfill keeps the legacy duration documents in
	// step with participation slot edits, for clients that still read
	// them. New statistics derive minutes from slots only.
	FeatureStudyHoursBackfill = "sync.study_hours_backfill"

	// FeatureCalendarHeatMap renders per-day heat levels in month views.
	FeatureCalendarHeatMap = "calendar.heat_map"

	// FeatureGroupStatistics exposes whole-group rollups alongside
	// per-member ones.
	FeatureGroupStatistics = "stats.group_rollups"
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{features: make(map[string]*Feature)}
	ff.initializeDefaults()
	ff.loadFromEnvironment()
	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureStudyHoursBackfill] = &Feature{
		Name:        FeatureStudyHoursBackfill,
		Description: "Mirror slot durations into legacy study-hours documents",
		Enabled:     true,
	}

	ff.features[FeatureCalendarHeatMap] = &Feature{
		Name:        FeatureCalendarHeatMap,
		Description: "Per-day heat levels in the month view",
		Enabled:     true,
	}

	ff.features[FeatureGroupStatistics] = &Feature{
		Name:        FeatureGroupStatistics,
		Description: "Whole-group statistics rollups",
		Enabled:     true,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false
// Example: FEATURE_SYNC_STUDY_HOURS_BACKFILL=false
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "sync.study_hours_backfill" -> "FEATURE_SYNC_STUDY_HOURS_BACKFILL"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled.
func (ff *FeatureFlags) IsEnabled(featureName string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	return ok && feature.Enabled
}

// SetEnabled flips a feature at runtime. Thread-safe.
func (ff *FeatureFlags) SetEnabled(featureName string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}
	feature.Enabled = enabled
	return nil
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Errors ---

// ErrFeatureNotFound is returned for an unknown feature name.
var ErrFeatureNotFound = &FeatureFlagError{Message: "feature not found"}

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
