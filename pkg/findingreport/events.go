package findingreport

import (
	"fmt"
	"io"
	"time"

	"github.com/function61/eventhorizon/pkg/ehevent"
	"github.com/function61/ldapcertwatch/pkg/ldapcertexpiry"
)

var Types = ehevent.Allocators{
	"LdapCertificateEvaluated": func() ehevent.Event { return &LdapCertificateEvaluated{} },
}

// ------

type LdapCertificateEvaluated struct {
	meta           ehevent.EventMeta
	CheckId        string
	CertificateId  string
	DirectoryName  string
	Region         string
	Status         string // "PASS" | "FAIL"
	StatusExtended string
	RemainingDays  int
}

func (e *LdapCertificateEvaluated) MetaType() string         { return "LdapCertificateEvaluated" }
func (e *LdapCertificateEvaluated) Meta() *ehevent.EventMeta { return &e.meta }

func NewLdapCertificateEvaluated(
	finding ldapcertexpiry.Finding,
	meta ehevent.EventMeta,
) *LdapCertificateEvaluated {
	return &LdapCertificateEvaluated{
		meta:           meta,
		CheckId:        finding.CheckId,
		CertificateId:  finding.ResourceId,
		DirectoryName:  finding.DirectoryName,
		Region:         finding.Region,
		Status:         string(finding.Status),
		StatusExtended: finding.StatusExtended,
		RemainingDays:  finding.RemainingDays,
	}
}

// one serialized event per line, ready to be appended to an event stream
func WriteEvents(output io.Writer, report Report) error {
	for _, line := range eventLines(report.Findings, report.EvaluatedAt) {
		if _, err := fmt.Fprintln(output, line); err != nil {
			return err
		}
	}

	return nil
}

func eventLines(findings []ldapcertexpiry.Finding, evaluatedAt time.Time) []string {
	lines := []string{}
	for _, finding := range findings {
		lines = append(lines, ehevent.Serialize(NewLdapCertificateEvaluated(
			finding,
			ehevent.MetaSystemUser(evaluatedAt))))
	}

	return lines
}
