package identity

import (
	"regexp"
	"strings"

	"github.com/roach88/rentledger/internal/domain"
)

// DefaultEnrollmentAttribute is the attribute the certificate authority
// sets to the enrolled user name.
const DefaultEnrollmentAttribute = "hf.EnrollmentID"

// Separator splits the full identity string into its type, subject and
// issuer segments, e.g. "x509::/O=orgB/CN=tenant1::/O=orgB/CN=ca.orgB".
const Separator = "::"

var commonNamePattern = regexp.MustCompile(`CN=([^/]+)`)

// Credential is an authenticated caller as exposed by the transport.
type Credential interface {
	// MSPID returns the caller's organization identifier.
	MSPID() string

	// ID returns the full identity string.
	ID() string

	// Attribute looks up a named certificate attribute.
	Attribute(name string) (string, bool)
}

// Resolver derives stable identifiers from a credential. It holds no
// state beyond its configuration.
type Resolver struct {
	EnrollmentAttribute string
}

// NewResolver returns a Resolver reading the given enrollment attribute,
// or DefaultEnrollmentAttribute when empty.
func NewResolver(enrollmentAttribute string) Resolver {
	if enrollmentAttribute == "" {
		enrollmentAttribute = DefaultEnrollmentAttribute
	}
	return Resolver{EnrollmentAttribute: enrollmentAttribute}
}

// OrganizationOf returns the caller's organization id.
func (r Resolver) OrganizationOf(c Credential) (string, error) {
	if c == nil {
		return "", domain.IdentityExtractionf("no caller credential")
	}
	org := c.MSPID()
	if org == "" {
		return "", domain.IdentityExtractionf("credential carries no organization id")
	}
	return org, nil
}

// UserIDOf returns the caller's user id.
//
// The enrollment attribute wins when present. Otherwise the identity string
// is split on Separator and the CN of the second segment (the subject) is
// used. The CN runs up to the next '/' or the end of the segment.
func (r Resolver) UserIDOf(c Credential) (string, error) {
	if c == nil {
		return "", domain.IdentityExtractionf("no caller credential")
	}
	if id, ok := c.Attribute(r.attribute()); ok && id != "" {
		return id, nil
	}

	full := c.ID()
	parts := strings.Split(full, Separator)
	subject := ""
	if len(parts) > 1 {
		subject = parts[1]
	}
	if m := commonNamePattern.FindStringSubmatch(subject); m != nil && m[1] != "" {
		return m[1], nil
	}
	return "", domain.IdentityExtractionf("failed to extract user id from identity: no CN in subject").
		With("identity", full)
}

// AttributeOf looks up a named attribute. Absent and empty are the same.
func (r Resolver) AttributeOf(c Credential, name string) (string, bool) {
	if c == nil {
		return "", false
	}
	v, ok := c.Attribute(name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (r Resolver) attribute() string {
	if r.EnrollmentAttribute == "" {
		return DefaultEnrollmentAttribute
	}
	return r.EnrollmentAttribute
}
