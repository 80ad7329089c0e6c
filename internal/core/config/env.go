package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "LAYERCHECK_"

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: LAYERCHECK_[SECTION]_[KEY] (e.g., LAYERCHECK_OUTPUT_FORMAT).
func ApplyEnvOverrides(cfg *Config) {
	// Source
	setEnvString(&cfg.Source.Kind, "SOURCE_KIND")
	setEnvString(&cfg.Source.Root, "SOURCE_ROOT")
	setEnvString(&cfg.Source.Snapshot, "SOURCE_SNAPSHOT")
	setEnvBool(&cfg.Source.IncludeTests, "SOURCE_INCLUDE_TESTS")
	setEnvList(&cfg.Source.Patterns, "SOURCE_PATTERNS")

	// Rules
	setEnvString(&cfg.Preset, "PRESET")
	setEnvString(&cfg.Mediator, "MEDIATOR")
	setEnvInt(&cfg.Evaluation.Parallelism, "EVALUATION_PARALLELISM")

	// Output
	setEnvString(&cfg.Output.Format, "OUTPUT_FORMAT")
	setEnvString(&cfg.Output.Path, "OUTPUT_PATH")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "WATCH_DEBOUNCE")

	// Observability
	setEnvString(&cfg.Observability.MetricsAddress, "OBSERVABILITY_METRICS_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "OBSERVABILITY_OTLP_ENDPOINT")

	normalize(cfg)
}

func lookup(key string) (string, bool) {
	val, ok := os.LookupEnv(envPrefix + key)
	if ok {
		slog.Debug("applying env override", "key", envPrefix+key, "value", val)
	}
	return val, ok
}

func setEnvString(target *string, key string) {
	if val, ok := lookup(key); ok {
		*target = val
	}
}

func setEnvList(target *[]string, key string) {
	val, ok := lookup(key)
	if !ok {
		return
	}
	out := make([]string, 0)
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) > 0 {
		*target = out
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := lookup(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := lookup(key); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := lookup(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			*target = d
		}
	}
}
