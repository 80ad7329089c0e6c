package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"layercheck/internal/core/errors"

	"go.uber.org/goleak"
)

const sampleConfig = `
version = 1
preset = "clean"
mediator = "example.com/mediator"

[source]
kind = "source"
root = "./app"
include_tests = true
exclude = ["gen"]

[[layers]]
name = "Domain"
paths = ["internal/domain"]

[[layers]]
name = "API"
paths = ["internal/api", "cmd/*"]

[[rules]]
name = "api stays thin"
kind = "forbid"
subject = { layer = "API" }
targets = ["database/sql"]

[[rules]]
kind = "require"
subject = { name_suffix = "Repository" }
targets = ["Domain"]

[evaluation]
parallelism = 4

[output]
format = "SARIF"
path = "out/layercheck.sarif"

[watch]
debounce = "1s"

[observability]
metrics_address = "127.0.0.1:9464"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Source.Kind != SourceGo || cfg.Source.Root != "./app" || !cfg.Source.IncludeTests {
		t.Errorf("unexpected source: %+v", cfg.Source)
	}
	if len(cfg.Source.Patterns) != 1 || cfg.Source.Patterns[0] != "./..." {
		t.Errorf("expected default patterns, got %v", cfg.Source.Patterns)
	}
	if len(cfg.Layers) != 2 || cfg.Layers[1].Name != "API" || len(cfg.Layers[1].Paths) != 2 {
		t.Errorf("unexpected layers: %+v", cfg.Layers)
	}
	if len(cfg.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(cfg.Rules))
	}
	if cfg.Rules[0].Subject.Layer != "API" || cfg.Rules[0].Targets[0] != "database/sql" {
		t.Errorf("unexpected first rule: %+v", cfg.Rules[0])
	}
	if cfg.Rules[1].Kind != "require" || cfg.Rules[1].Subject.NameSuffix != "Repository" {
		t.Errorf("unexpected second rule: %+v", cfg.Rules[1])
	}
	if cfg.Preset != "clean" || cfg.Mediator != "example.com/mediator" {
		t.Errorf("unexpected preset: %q %q", cfg.Preset, cfg.Mediator)
	}
	if cfg.Evaluation.Parallelism != 4 {
		t.Errorf("expected parallelism 4, got %d", cfg.Evaluation.Parallelism)
	}
	if cfg.Output.Format != "sarif" {
		t.Errorf("expected format to be normalized to sarif, got %q", cfg.Output.Format)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("expected debounce 1s, got %v", cfg.Watch.Debounce)
	}
	if cfg.Observability.MetricsAddress != "127.0.0.1:9464" {
		t.Errorf("unexpected metrics address %q", cfg.Observability.MetricsAddress)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Version != 1 || cfg.Source.Kind != SourcePackages || cfg.Source.Root != "." {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Output.Format != "text" || cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("unexpected defaults: %+v %+v", cfg.Output, cfg.Watch)
	}

	def := Default()
	if def.Source.Kind != cfg.Source.Kind || def.Output.Format != cfg.Output.Format {
		t.Errorf("Default() disagrees with an empty file: %+v", def)
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if !errors.IsCode(err, errors.CodeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "version = ", "decode config"},
		{"unknown key", "verbose = true", "unknown config keys: verbose"},
		{"version", "version = 3", "unsupported config version 3"},
		{"kind", "[source]\nkind = \"maven\"", "source.kind must be one of"},
		{"snapshot", "[source]\nkind = \"snapshot\"", "source.snapshot must be set"},
		{"layer name", "[[layers]]\npaths = [\"a\"]", "layers[0].name must not be empty"},
		{"layer paths", "[[layers]]\nname = \"Domain\"", `layer "Domain" must declare at least one path`},
		{"duplicate layer", "[[layers]]\nname = \"A\"\npaths = [\"a\"]\n[[layers]]\nname = \"A\"\npaths = [\"b\"]", `duplicate layer name "A"`},
		{"duplicate rule", "[[rules]]\nname = \"r\"\n[[rules]]\nname = \"r\"", `duplicate rule name "r"`},
		{"format", "[output]\nformat = \"html\"", "output.format must be one of"},
		{"parallelism", "[evaluation]\nparallelism = -1", "evaluation.parallelism must be >= 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.IsCode(err, errors.CodeValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in %q", tt.want, err.Error())
			}
		})
	}
}

func TestParseTrimsRuleValues(t *testing.T) {
	cfg, err := Parse(`
[[rules]]
name = "padded"
kind = " Forbid "
subject = { layer = " Domain ", name_suffix = "  " }
targets = [" Infrastructure", "API "]
`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	r := cfg.Rules[0]
	if r.Kind != "forbid" || r.Subject.Layer != "Domain" || r.Subject.NameSuffix != "" {
		t.Errorf("unexpected rule: %+v", r)
	}
	if len(r.Targets) != 2 || r.Targets[0] != "Infrastructure" || r.Targets[1] != "API" {
		t.Errorf("targets not trimmed: %q", r.Targets)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Version = 2
	cfg.Output.Format = "pdf"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"unsupported config version 2", "output.format must be one of"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %q", want, err.Error())
		}
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("LAYERCHECK_SOURCE_KIND", "Snapshot")
	t.Setenv("LAYERCHECK_SOURCE_SNAPSHOT", "units.yaml")
	t.Setenv("LAYERCHECK_SOURCE_INCLUDE_TESTS", "TRUE")
	t.Setenv("LAYERCHECK_SOURCE_PATTERNS", "./internal/..., ./cmd/...")
	t.Setenv("LAYERCHECK_EVALUATION_PARALLELISM", "not-a-number")
	t.Setenv("LAYERCHECK_OUTPUT_FORMAT", "junit")
	t.Setenv("LAYERCHECK_WATCH_DEBOUNCE", "2s")
	t.Setenv("LAYERCHECK_OBSERVABILITY_OTLP_ENDPOINT", "localhost:4317")

	cfg := Default()
	cfg.Evaluation.Parallelism = 3
	ApplyEnvOverrides(cfg)

	if cfg.Source.Kind != SourceSnapshot || cfg.Source.Snapshot != "units.yaml" || !cfg.Source.IncludeTests {
		t.Errorf("unexpected source: %+v", cfg.Source)
	}
	if len(cfg.Source.Patterns) != 2 || cfg.Source.Patterns[1] != "./cmd/..." {
		t.Errorf("unexpected patterns: %v", cfg.Source.Patterns)
	}
	if cfg.Evaluation.Parallelism != 3 {
		t.Errorf("invalid int override must be ignored, got %d", cfg.Evaluation.Parallelism)
	}
	if cfg.Output.Format != "junit" || cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("unexpected overrides: %+v %+v", cfg.Output, cfg.Watch)
	}
	if cfg.Observability.OTLPEndpoint != "localhost:4317" {
		t.Errorf("unexpected endpoint %q", cfg.Observability.OTLPEndpoint)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("overridden config should validate: %v", err)
	}
}

func TestResolvePaths(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Source.Root = "app"
	cfg.Source.Snapshot = "/abs/units.json"
	cfg.Output.Path = "out/report.json"

	got, err := ResolvePaths(cfg, base)
	if err != nil {
		t.Fatal(err)
	}
	if got.Root != filepath.Join(base, "app") {
		t.Errorf("unexpected root %q", got.Root)
	}
	if got.Snapshot != filepath.Clean("/abs/units.json") {
		t.Errorf("unexpected snapshot %q", got.Snapshot)
	}
	if got.Output != filepath.Join(base, "out", "report.json") {
		t.Errorf("unexpected output %q", got.Output)
	}

	cfg.Output.Path = "-"
	got, err = ResolvePaths(cfg, base)
	if err != nil {
		t.Fatal(err)
	}
	if got.Output != "" {
		t.Errorf("stdout output should stay empty, got %q", got.Output)
	}
}

func TestWatcherReloads(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := writeConfig(t, "preset = \"clean\"\n")
	reloaded := make(chan *Config, 4)
	w := NewWatcher(path, func(cfg *Config) { reloaded <- cfg })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("[output]\nformat = \"json\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case cfg := <-reloaded:
		if cfg.Output.Format != "json" {
			t.Errorf("expected reloaded format json, got %q", cfg.Output.Format)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
}

func TestWatcherPrepareAndStop(t *testing.T) {
	path := writeConfig(t, "[output]\nformat = \"json\"\n")
	var calls []*Config
	w := NewWatcher(path, func(cfg *Config) { calls = append(calls, cfg) })
	w.Prepare = func(cfg *Config) error {
		cfg.Source.Root = "/flag/root"
		return Validate(cfg)
	}

	w.reload()
	if len(calls) != 1 || calls[0].Source.Root != "/flag/root" || calls[0].Output.Format != "json" {
		t.Fatalf("expected prepared config, got %+v", calls)
	}

	w.Prepare = func(cfg *Config) error {
		cfg.Output.Format = "pdf"
		return Validate(cfg)
	}
	w.reload()
	if len(calls) != 1 {
		t.Errorf("rejected revision reached the callback")
	}

	w.Prepare = nil
	w.Stop()
	w.reload()
	if len(calls) != 1 {
		t.Errorf("reload ran after Stop")
	}
}
