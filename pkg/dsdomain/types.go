// Directories and their LDAPS certificates, as snapshotted from AWS Directory Service
package dsdomain

import (
	"encoding/json"
	"fmt"
	"time"
)

type CertificateState int

const (
	CertificateStateUnknown CertificateState = iota
	CertificateStateRegistering
	CertificateStateRegistered
	CertificateStateRegisterFailed
	CertificateStateDeregistering
	CertificateStateDeregistered
	CertificateStateDeregisterFailed
)

var certificateStateNames = map[CertificateState]string{
	CertificateStateUnknown:          "Unknown",
	CertificateStateRegistering:      "Registering",
	CertificateStateRegistered:       "Registered",
	CertificateStateRegisterFailed:   "RegisterFailed",
	CertificateStateDeregistering:    "Deregistering",
	CertificateStateDeregistered:     "Deregistered",
	CertificateStateDeregisterFailed: "DeregisterFailed",
}

// unrecognized values (= states AWS adds later) map to CertificateStateUnknown
func ParseCertificateState(state string) CertificateState {
	for value, name := range certificateStateNames {
		if name == state && value != CertificateStateUnknown {
			return value
		}
	}

	return CertificateStateUnknown
}

func (c CertificateState) String() string {
	if name, found := certificateStateNames[c]; found {
		return name
	}

	return fmt.Sprintf("CertificateState(%d)", int(c))
}

func (c CertificateState) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *CertificateState) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}

	*c = ParseCertificateState(name)
	return nil
}

type CertificateType int

const (
	CertificateTypeUnknown CertificateType = iota
	CertificateTypeClientLDAPS
	CertificateTypeClientCertAuth
)

var certificateTypeNames = map[CertificateType]string{
	CertificateTypeUnknown:        "Unknown",
	CertificateTypeClientLDAPS:    "ClientLDAPS",
	CertificateTypeClientCertAuth: "ClientCertAuth",
}

func ParseCertificateType(typ string) CertificateType {
	for value, name := range certificateTypeNames {
		if name == typ && value != CertificateTypeUnknown {
			return value
		}
	}

	return CertificateTypeUnknown
}

func (c CertificateType) String() string {
	if name, found := certificateTypeNames[c]; found {
		return name
	}

	return fmt.Sprintf("CertificateType(%d)", int(c))
}

func (c CertificateType) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *CertificateType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}

	*c = ParseCertificateType(name)
	return nil
}

type Certificate struct {
	Id             string           `json:"id"`
	CommonName     string           `json:"common_name"`
	State          CertificateState `json:"state"`
	Type           CertificateType  `json:"type"`
	ExpiryDateTime time.Time        `json:"expiry_date_time"` // zero = not reported by AWS
}

type Directory struct {
	Id           string        `json:"id,omitempty"`   // "d-1234567890"
	Name         string        `json:"name"`           // "corp.example.com"
	Type         string        `json:"type,omitempty"` // "MicrosoftAD" | "SimpleAD" | ...
	Region       string        `json:"region"`
	Certificates []Certificate `json:"certificates"`
}
