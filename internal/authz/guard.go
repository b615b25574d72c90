package authz

import (
	"slices"

	"github.com/roach88/rentledger/internal/domain"
	"github.com/roach88/rentledger/internal/identity"
)

// DefaultRoleAttribute is the credential attribute holding the caller's role.
const DefaultRoleAttribute = "role"

// Guard answers authorization questions about a caller. The zero value
// grants no privilege; use DefaultGuard for the production policy.
type Guard struct {
	Resolver identity.Resolver

	// PrivilegedOrgs may act on any contract.
	PrivilegedOrgs []string

	// PrivilegedRoles grant the same privilege through RoleAttribute.
	PrivilegedRoles []string
	RoleAttribute   string
}

// DefaultGuard returns the production policy: OrgPropMSP and AdminMSP are
// privileged organizations; admin and regulator are privileged roles.
func DefaultGuard() Guard {
	return Guard{
		Resolver:        identity.NewResolver(identity.DefaultEnrollmentAttribute),
		PrivilegedOrgs:  []string{"OrgPropMSP", "AdminMSP"},
		PrivilegedRoles: []string{"admin", "regulator"},
		RoleAttribute:   DefaultRoleAttribute,
	}
}

// Decision is the outcome of a party or privilege check. At most one of
// IsLandlord, IsTenant and IsPrivileged is true.
type Decision struct {
	IsLandlord   bool
	IsTenant     bool
	IsPrivileged bool

	// ActorID and ActorOrg identify who actually called.
	ActorID  string
	ActorOrg string

	// PrivilegedRole is the role attribute that granted privilege. Empty
	// when privilege came from the caller's organization.
	PrivilegedRole string
}

// Role attributes the decision for audit records.
func (d Decision) Role() domain.Role {
	switch {
	case d.IsPrivileged && d.PrivilegedRole != "":
		return domain.Role(d.PrivilegedRole)
	case d.IsPrivileged:
		return domain.RoleAdmin
	case d.IsLandlord:
		return domain.RoleLandlord
	default:
		return domain.RoleTenant
	}
}

// Caller resolves the caller's organization and user id.
func (g Guard) Caller(c identity.Credential) (org, userID string, err error) {
	org, err = g.Resolver.OrganizationOf(c)
	if err != nil {
		return "", "", err
	}
	userID, err = g.Resolver.UserIDOf(c)
	if err != nil {
		return "", "", err
	}
	return org, userID, nil
}

// RequireExactIdentity fails unless the caller's organization and user id
// both equal the expected values. It returns the caller's user id.
func (g Guard) RequireExactIdentity(c identity.Credential, expectedOrg, expectedUserID string) (string, error) {
	org, userID, err := g.Caller(c)
	if err != nil {
		return "", err
	}
	if org != expectedOrg {
		return "", domain.Unauthorizedf("caller organization %s does not match expected organization %s", org, expectedOrg).
			With("actual_org", org).
			With("expected_org", expectedOrg)
	}
	if userID != expectedUserID {
		return "", domain.Unauthorizedf("caller identity %s does not match expected user %s", userID, expectedUserID).
			With("actual_user", userID).
			With("expected_user", expectedUserID)
	}
	return userID, nil
}

// RequireParty fails unless the caller is exactly the contract's landlord
// or tenant. When both parties share an identity the landlord flag wins.
func (g Guard) RequireParty(c identity.Credential, contract *domain.Contract) (Decision, error) {
	org, userID, err := g.Caller(c)
	if err != nil {
		return Decision{}, err
	}
	d := Decision{ActorID: userID, ActorOrg: org}
	switch {
	case org == contract.LandlordOrg && userID == contract.LandlordID:
		d.IsLandlord = true
	case org == contract.TenantOrg && userID == contract.TenantID:
		d.IsTenant = true
	default:
		return Decision{}, domain.Unauthorizedf(
			"caller %s@%s is not a party to contract %s, expected landlord %s@%s or tenant %s@%s",
			userID, org, contract.ContractID,
			contract.LandlordID, contract.LandlordOrg,
			contract.TenantID, contract.TenantOrg,
		).With("contractId", contract.ContractID)
	}
	return d, nil
}

// IsPrivileged reports whether the caller's organization or role grants
// administrative access.
func (g Guard) IsPrivileged(c identity.Credential) bool {
	ok, _ := g.privilege(c)
	return ok
}

// privilege reports whether c is privileged and, when a role attribute
// granted it, which role. Organization membership wins over the attribute.
func (g Guard) privilege(c identity.Credential) (bool, string) {
	if c == nil {
		return false, ""
	}
	if slices.Contains(g.PrivilegedOrgs, c.MSPID()) {
		return true, ""
	}
	attr := g.RoleAttribute
	if attr == "" {
		attr = DefaultRoleAttribute
	}
	role, ok := g.Resolver.AttributeOf(c, attr)
	if !ok || !slices.Contains(g.PrivilegedRoles, role) {
		return false, ""
	}
	return true, role
}

// RequirePartyOrPrivileged checks privilege first and falls back to
// RequireParty. A privileged caller gets both party flags false.
func (g Guard) RequirePartyOrPrivileged(c identity.Credential, contract *domain.Contract) (Decision, error) {
	if ok, role := g.privilege(c); ok {
		org, userID, err := g.Caller(c)
		if err != nil {
			return Decision{}, err
		}
		return Decision{IsPrivileged: true, ActorID: userID, ActorOrg: org, PrivilegedRole: role}, nil
	}
	return g.RequireParty(c, contract)
}

// RequireReadAccess gates reads of a full contract record. Only the two
// parties may read; there is no delegated viewer.
func (g Guard) RequireReadAccess(c identity.Credential, contract *domain.Contract) (Decision, error) {
	return g.RequireParty(c, contract)
}
