package ldapcertexpiry

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
)

type Finding struct {
	CheckId        string `json:"check_id"`
	ResourceId     string `json:"resource_id"` // certificate id
	Region         string `json:"region"`      // of the directory that the certificate is configured at
	DirectoryName  string `json:"directory_name"`
	Status         Status `json:"status"`
	StatusExtended string `json:"status_extended"`
	RemainingDays  int    `json:"remaining_days"`
}

type CheckMetadata struct {
	CheckId     string `json:"check_id"`
	Provider    string `json:"provider"`
	ServiceName string `json:"service_name"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Risk        string `json:"risk"`
	Remediation string `json:"remediation"`
}

var Metadata = CheckMetadata{
	CheckId:     CheckId,
	Provider:    "aws",
	ServiceName: "directoryservice",
	Severity:    "medium",
	Description: fmt.Sprintf("Directory Service LDAP certificates expiring in %d days or less", ExpirationThresholdDays),
	Risk:        "Clients cannot establish LDAPS sessions against the directory once its certificate has expired.",
	Remediation: "Register a renewed certificate for the directory well before the current one expires.",
}

// reference to a certificate that could not be evaluated
type InvalidCertificate struct {
	DirectoryName string
	CertificateId string
	Reason        string
}

// findings were still produced for all other certificates
type InvalidCertificatesError struct {
	Certificates []InvalidCertificate
}

func (e *InvalidCertificatesError) Error() string {
	descriptions := []string{}
	for _, cert := range e.Certificates {
		descriptions = append(descriptions, fmt.Sprintf(
			"%s at %s: %s",
			cert.CertificateId,
			cert.DirectoryName,
			cert.Reason))
	}

	return fmt.Sprintf(
		"%d certificate(s) could not be evaluated: %s",
		len(e.Certificates),
		strings.Join(descriptions, "; "))
}

func CountByStatus(findings []Finding) map[Status]int {
	counts := map[Status]int{
		StatusPass: 0,
		StatusFail: 0,
	}

	for _, finding := range findings {
		counts[finding.Status]++
	}

	return counts
}
