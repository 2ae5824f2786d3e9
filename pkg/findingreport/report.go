// Renders expiration findings for humans (table) and machines (JSON, event log lines)
package findingreport

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/function61/gokit/jsonfile"
	"github.com/function61/ldapcertwatch/pkg/ldapcertexpiry"
	"github.com/scylladb/termtables"
)

type Format string

const (
	FormatTable  Format = "table"
	FormatJson   Format = "json"
	FormatEvents Format = "events"
)

func ParseFormat(format string) (Format, error) {
	switch Format(format) {
	case FormatTable, FormatJson, FormatEvents:
		return Format(format), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// what we report, along with the facts the findings were based on
type Report struct {
	Check       ldapcertexpiry.CheckMetadata `json:"check"`
	EvaluatedAt time.Time                    `json:"evaluated_at"`
	Regions     []string                     `json:"regions"`
	Findings    []ldapcertexpiry.Finding     `json:"findings"`
}

func New(evaluatedAt time.Time, regions []string, findings []ldapcertexpiry.Finding) Report {
	return Report{
		Check:       ldapcertexpiry.Metadata,
		EvaluatedAt: evaluatedAt,
		Regions:     regions,
		Findings:    findings,
	}
}

func (r Report) HasFailures() bool {
	return ldapcertexpiry.CountByStatus(r.Findings)[ldapcertexpiry.StatusFail] > 0
}

func Write(output io.Writer, report Report, format Format) error {
	switch format {
	case FormatTable:
		return WriteTable(output, report)
	case FormatJson:
		return jsonfile.Marshal(output, report)
	case FormatEvents:
		return WriteEvents(output, report)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func WriteTable(output io.Writer, report Report) error {
	if len(report.Findings) == 0 {
		_, err := fmt.Fprintf(
			output,
			"No LDAP certificates found in %s\n",
			strings.Join(report.Regions, ", "))
		return err
	}

	table := termtables.CreateTable()
	table.AddHeaders("Status", "Region", "Directory", "Certificate", "Days left", "Details")

	for _, finding := range report.Findings {
		table.AddRow(
			string(finding.Status),
			finding.Region,
			finding.DirectoryName,
			finding.ResourceId,
			finding.RemainingDays,
			finding.StatusExtended)
	}

	counts := ldapcertexpiry.CountByStatus(report.Findings)

	_, err := fmt.Fprintf(
		output,
		"%s\n%d PASS, %d FAIL (evaluated at %s)\n",
		table.Render(),
		counts[ldapcertexpiry.StatusPass],
		counts[ldapcertexpiry.StatusFail],
		report.EvaluatedAt.Format(time.RFC3339))
	return err
}
