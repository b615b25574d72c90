package identity

import "fmt"

// Static is a Credential built from already-authenticated claims: a bearer
// token in the gateway, an identity file in the CLI, a scenario step in the
// harness.
type Static struct {
	Org   string            `yaml:"mspid" json:"mspid"`
	Full  string            `yaml:"id" json:"id"`
	Attrs map[string]string `yaml:"attrs,omitempty" json:"attrs,omitempty"`
}

var _ Credential = Static{}

func (s Static) MSPID() string { return s.Org }

func (s Static) ID() string { return s.Full }

func (s Static) Attribute(name string) (string, bool) {
	v, ok := s.Attrs[name]
	return v, ok
}

// X509ID renders an identity string in the x509 form
// "x509::/O=<org>/CN=<user>::/O=<org>/CN=ca.<org>".
func X509ID(org, user string) string {
	return fmt.Sprintf("x509::/O=%s/CN=%s::/O=%s/CN=ca.%s", org, user, org, org)
}

// NewUser returns a credential for user in org whose id is only
// recoverable through the subject CN.
func NewUser(org, user string) Static {
	return Static{Org: org, Full: X509ID(org, user)}
}
