package report

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"layercheck/internal/engine/rules"
)

type junitSuites struct {
	XMLName  xml.Name     `xml:"testsuites"`
	Name     string       `xml:"name,attr"`
	Tests    int          `xml:"tests,attr"`
	Failures int          `xml:"failures,attr"`
	Time     string       `xml:"time,attr"`
	Suites   []junitSuite `xml:"testsuite"`
}

type junitSuite struct {
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Timestamp  string          `xml:"timestamp,attr,omitempty"`
	Properties []junitProperty `xml:"properties>property,omitempty"`
	Cases      []junitCase     `xml:"testcase"`
}

type junitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitWriter maps each rule to a test case so CI systems show rule failures
// next to ordinary test results.
type JUnitWriter struct{}

func (j *JUnitWriter) Format() string { return FormatJUnit }

func (j *JUnitWriter) Write(w io.Writer, report rules.Report) error {
	suite := junitSuite{
		Name:  "layercheck",
		Tests: len(report.Results),
	}
	if !report.StartedAt.IsZero() {
		suite.Timestamp = report.StartedAt.UTC().Format("2006-01-02T15:04:05")
	}
	if report.RunID != "" {
		suite.Properties = append(suite.Properties, junitProperty{Name: "run_id", Value: report.RunID})
	}
	suite.Properties = append(suite.Properties, junitProperty{Name: "units", Value: fmt.Sprint(report.Units)})

	for _, res := range report.Results {
		tc := junitCase{Name: ruleName(res), ClassName: "layercheck.rules"}
		if res.Rule != nil {
			tc.ClassName = "layercheck.rules." + string(res.Rule.Kind())
		}
		if !res.Success {
			suite.Failures++
			var body strings.Builder
			for _, f := range res.Findings {
				body.WriteString(f.Unit + " " + explain(f))
				if loc := location(f); loc != "" {
					body.WriteString(" (" + loc + ")")
				}
				body.WriteString("\n")
			}
			tc.Failure = &junitFailure{
				Message: fmt.Sprintf("%d of %d units violate %s", len(res.Violators), res.Subjects, ruleDescription(res)),
				Type:    "DependencyRuleViolation",
				Body:    body.String(),
			}
		}
		suite.Cases = append(suite.Cases, tc)
	}

	doc := junitSuites{
		Name:     "layercheck",
		Tests:    suite.Tests,
		Failures: suite.Failures,
		Time:     fmt.Sprintf("%.3f", report.Duration().Seconds()),
		Suites:   []junitSuite{suite},
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
