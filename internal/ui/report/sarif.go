package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"layercheck/internal/engine/rules"
)

// SARIF v2.1.0 schema – see https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json

const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"
)

type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool             sarifTool          `json:"tool"`
	AutomationDetail *sarifAutomationID `json:"automationDetails,omitempty"`
	Results          []sarifResult      `json:"results"`
	Properties       map[string]any     `json:"properties,omitempty"`
}

type sarifAutomationID struct {
	ID string `json:"id"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	ShortDescription sarifMessage           `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaultConfig `json:"defaultConfiguration"`
}

type sarifRuleDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	RuleIndex int             `json:"ruleIndex"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation *sarifPhysicalLocation `json:"physicalLocation,omitempty"`
	LogicalLocations []sarifLogicalLocation `json:"logicalLocations,omitempty"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

type sarifRegion struct {
	StartLine int `json:"startLine,omitempty"`
}

type sarifLogicalLocation struct {
	FullyQualifiedName string `json:"fullyQualifiedName"`
	Kind               string `json:"kind,omitempty"`
}

// SARIFWriter emits one SARIF rule per configured rule and one error result
// per violating unit. File URIs are made relative to ProjectRoot so reports
// never leak absolute paths.
type SARIFWriter struct {
	ProjectRoot string
	Version     string
}

func (s *SARIFWriter) Format() string { return FormatSARIF }

func (s *SARIFWriter) Write(w io.Writer, report rules.Report) error {
	driverRules := make([]sarifRule, 0, len(report.Results))
	results := make([]sarifResult, 0)

	for i, res := range report.Results {
		id := sarifRuleID(i)
		driverRules = append(driverRules, sarifRule{
			ID:               id,
			Name:             ruleName(res),
			ShortDescription: sarifMessage{Text: ruleDescription(res)},
			DefaultConfig:    sarifRuleDefaultConfig{Level: "error"},
		})
		for _, f := range res.Findings {
			result := sarifResult{
				RuleID:    id,
				RuleIndex: i,
				Level:     "error",
				Message:   sarifMessage{Text: fmt.Sprintf("%s %s (rule %q)", f.Unit, explain(f), ruleName(res))},
			}
			loc := sarifLocation{
				LogicalLocations: []sarifLogicalLocation{{FullyQualifiedName: f.Unit, Kind: "type"}},
			}
			if f.Location.File != "" {
				loc.PhysicalLocation = &sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{
						URI:       relativeURI(s.ProjectRoot, f.Location.File),
						URIBaseID: "%SRCROOT%",
					},
				}
				if f.Location.Line > 0 {
					loc.PhysicalLocation.Region = &sarifRegion{StartLine: f.Location.Line}
				}
			}
			result.Locations = []sarifLocation{loc}
			results = append(results, result)
		}
	}

	run := sarifRun{
		Tool: sarifTool{
			Driver: sarifDriver{
				Name:    "layercheck",
				Version: nonEmpty(s.Version, "dev"),
				Rules:   driverRules,
			},
		},
		Results:    results,
		Properties: map[string]any{"units": report.Units},
	}
	if report.RunID != "" {
		run.AutomationDetail = &sarifAutomationID{ID: "layercheck/" + report.RunID}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sarifReport{Schema: sarifSchema, Version: sarifVersion, Runs: []sarifRun{run}})
}

func sarifRuleID(i int) string {
	return fmt.Sprintf("LC%03d", i+1)
}

// relativeURI converts an absolute file path to a forward-slash relative URI
// anchored at projectRoot. If the path is already relative or projectRoot is
// empty, the original path (with forward slashes) is returned.
func relativeURI(projectRoot, filePath string) string {
	if projectRoot != "" && filepath.IsAbs(filePath) {
		rel, err := filepath.Rel(projectRoot, filePath)
		if err == nil {
			filePath = rel
		}
	}
	return filepath.ToSlash(filePath)
}

func nonEmpty(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
