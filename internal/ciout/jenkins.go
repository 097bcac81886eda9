package ciout

import (
	"encoding/xml"
	"errors"
	"strconv"
	"time"

	"github.com/huangsam/qualgate/schema"
)

// junitTestSuites is the root of a JUnit report as read by the Jenkins junit step.
type junitTestSuites struct {
	XMLName xml.Name         `xml:"testsuites"`
	Suites  []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []junitProperty `xml:"properties>property"`
	Cases      []junitTestCase `xml:"testcase"`
}

type junitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type junitTestCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Text    string `xml:",chardata"`
}

const junitSuiteName = "qualgate"

// jenkinsAdapter emits one JUnit test case per gate.
type jenkinsAdapter struct{}

func (jenkinsAdapter) Format() schema.CIFormat { return schema.JenkinsFormat }

func (a jenkinsAdapter) Render(report *schema.GateReport, cfg schema.CIConfig) (string, error) {
	return a.renderWithTrend(report, cfg, "")
}

func (jenkinsAdapter) renderWithTrend(report *schema.GateReport, _ schema.CIConfig, trend string) (string, error) {
	suite := junitTestSuite{
		Name:      junitSuiteName,
		Tests:     report.Summary.Total,
		Failures:  report.Summary.Failed,
		Timestamp: report.Timestamp.UTC().Format(time.RFC3339),
		Properties: []junitProperty{
			{Name: "passed", Value: strconv.FormatBool(report.Passed)},
			{Name: "warnings", Value: strconv.Itoa(report.Summary.Warnings)},
			{Name: "score", Value: formatScore(report.Results.Overall)},
			{Name: "message", Value: report.Message},
		},
	}
	if trend != "" {
		suite.Properties = append(suite.Properties, junitProperty{Name: "trend", Value: trend})
	}
	for _, g := range report.Gates {
		tc := junitTestCase{Name: g.Name, ClassName: "qualgate." + string(g.Type), SystemOut: g.Message}
		if !g.Passed {
			tc.Failure = &junitFailure{Message: g.Message, Type: "QualityGateFailure", Text: g.Message}
		}
		suite.Cases = append(suite.Cases, tc)
	}

	data, err := xml.MarshalIndent(junitTestSuites{Suites: []junitTestSuite{suite}}, "", "  ")
	if err != nil {
		return "", err
	}
	return xml.Header + string(data) + "\n", nil
}

func (jenkinsAdapter) Parse(output string) (schema.CIVerdict, error) {
	var doc junitTestSuites
	if err := xml.Unmarshal([]byte(output), &doc); err != nil {
		return schema.CIVerdict{}, parseError(schema.JenkinsFormat, err)
	}
	for _, suite := range doc.Suites {
		if suite.Name != junitSuiteName {
			continue
		}
		v := schema.CIVerdict{Summary: schema.GateSummary{
			Passed: suite.Tests - suite.Failures,
			Failed: suite.Failures,
			Total:  suite.Tests,
		}}
		var sawPassed bool
		for _, p := range suite.Properties {
			var err error
			switch p.Name {
			case "passed":
				v.Passed, err = strconv.ParseBool(p.Value)
				sawPassed = true
			case "warnings":
				v.Summary.Warnings, err = strconv.Atoi(p.Value)
			}
			if err != nil {
				return schema.CIVerdict{}, parseError(schema.JenkinsFormat, err)
			}
		}
		if !sawPassed {
			return schema.CIVerdict{}, parseError(schema.JenkinsFormat, errors.New("suite has no passed property"))
		}
		return v, nil
	}
	return schema.CIVerdict{}, parseError(schema.JenkinsFormat, errors.New("qualgate test suite not found"))
}
