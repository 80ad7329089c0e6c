package config

import "time"

const DefaultFile = "layercheck.toml"

const (
	SourcePackages = "packages"
	SourceGo       = "source"
	SourceSnapshot = "snapshot"
)

type Config struct {
	Version       int           `toml:"version"`
	Source        Source        `toml:"source"`
	Layers        []Layer       `toml:"layers"`
	Preset        string        `toml:"preset"`
	Mediator      string        `toml:"mediator"`
	Rules         []Rule        `toml:"rules"`
	Evaluation    Evaluation    `toml:"evaluation"`
	Output        Output        `toml:"output"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
}

// Source selects how the codebase snapshot is produced.
type Source struct {
	Kind         string   `toml:"kind"`
	Root         string   `toml:"root"`
	Patterns     []string `toml:"patterns"`
	Snapshot     string   `toml:"snapshot"`
	IncludeTests bool     `toml:"include_tests"`
	Exclude      []string `toml:"exclude"`
	BuildTags    []string `toml:"build_tags"`
}

type Layer struct {
	Name  string   `toml:"name"`
	Paths []string `toml:"paths"`
}

type Rule struct {
	Name    string   `toml:"name"`
	Kind    string   `toml:"kind"`
	Subject Subject  `toml:"subject"`
	Targets []string `toml:"targets"`
}

// Subject holds exactly one selector.
type Subject struct {
	Layer       string `toml:"layer"`
	NameSuffix  string `toml:"name_suffix"`
	NamePattern string `toml:"name_pattern"`
}

type Evaluation struct {
	Parallelism int `toml:"parallelism"`
}

type Output struct {
	Format string `toml:"format"`
	Path   string `toml:"path"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
	Exclude  []string      `toml:"exclude"`
}

type Observability struct {
	MetricsAddress string `toml:"metrics_address"`
	OTLPEndpoint   string `toml:"otlp_endpoint"`
}

// Default is the configuration used when no file exists: a Go module at the
// working directory with no layers and no rules.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
