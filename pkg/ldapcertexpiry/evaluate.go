// Checks whether Directory Service LDAPS certificates are about to expire
package ldapcertexpiry

import (
	"fmt"
	"time"

	"github.com/function61/ldapcertwatch/pkg/dsdomain"
)

const (
	CheckId = "directoryservice_ldap_certificate_expiration"

	// exactly this many days left is already a failure
	ExpirationThresholdDays = 90
)

const secondsPerDay = 24 * 60 * 60

// produces findings in directory insertion order, and certificates in their stored order.
// non-nil error (*InvalidCertificatesError) means some certificates were skipped; findings
// are still returned for the rest.
func Evaluate(directories *dsdomain.Snapshot, now time.Time) ([]Finding, error) {
	findings := []Finding{}
	invalid := []InvalidCertificate{}

	for _, dir := range directories.All() {
		for _, cert := range dir.Certificates {
			if !eligibleForEvaluation(cert.State) {
				continue
			}

			if cert.ExpiryDateTime.IsZero() {
				invalid = append(invalid, InvalidCertificate{
					DirectoryName: dir.Name,
					CertificateId: cert.Id,
					Reason:        "expiry date missing",
				})
				continue
			}

			findings = append(findings, evaluateCertificate(cert, dir, now))
		}
	}

	if len(invalid) > 0 {
		return findings, &InvalidCertificatesError{invalid}
	}

	return findings, nil
}

func evaluateCertificate(cert dsdomain.Certificate, dir dsdomain.Directory, now time.Time) Finding {
	remainingDays := remainingDaysUntil(cert.ExpiryDateTime, now)

	status, statusExtended := func() (Status, string) {
		if remainingDays > ExpirationThresholdDays {
			return StatusPass, fmt.Sprintf(
				"LDAP Certificate %s configured at %s expires in %d days",
				cert.Id,
				dir.Name,
				remainingDays)
		}

		// already expired certs (negative count) get the same message
		return StatusFail, fmt.Sprintf(
			"LDAP Certificate %s configured at %s is about to expire in %d days",
			cert.Id,
			dir.Name,
			remainingDays)
	}()

	return Finding{
		CheckId:        CheckId,
		ResourceId:     cert.Id,
		Region:         dir.Region,
		DirectoryName:  dir.Name,
		Status:         status,
		StatusExtended: statusExtended,
		RemainingDays:  remainingDays,
	}
}

// whole days, floored (also for negative durations: 1 hour past expiry is -1 days).
// counted in seconds: time.Duration saturates at ~292 years and expiries like 9999-12-31 exist.
func remainingDaysUntil(expires time.Time, now time.Time) int {
	secs := expires.Unix() - now.Unix()
	if expires.Nanosecond() < now.Nanosecond() { // sub-second remainder borrows one second
		secs--
	}

	days := secs / secondsPerDay
	if secs%secondsPerDay < 0 {
		days--
	}

	return int(days)
}

func eligibleForEvaluation(state dsdomain.CertificateState) bool {
	switch state {
	case dsdomain.CertificateStateRegistered:
		return true
	case dsdomain.CertificateStateRegistering,
		dsdomain.CertificateStateRegisterFailed,
		dsdomain.CertificateStateDeregistering,
		dsdomain.CertificateStateDeregistered,
		dsdomain.CertificateStateDeregisterFailed,
		dsdomain.CertificateStateUnknown:
		return false
	default: // values this build doesn't know about
		return false
	}
}
