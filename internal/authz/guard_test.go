package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rentledger/internal/domain"
	"github.com/roach88/rentledger/internal/identity"
)

func testContract() *domain.Contract {
	return &domain.Contract{
		ContractID:  "C1",
		LandlordID:  "L",
		LandlordOrg: "orgA",
		TenantID:    "T",
		TenantOrg:   "orgB",
	}
}

func TestRequireExactIdentity(t *testing.T) {
	g := DefaultGuard()

	id, err := g.RequireExactIdentity(identity.NewUser("orgB", "T"), "orgB", "T")
	require.NoError(t, err)
	assert.Equal(t, "T", id)

	_, err = g.RequireExactIdentity(identity.NewUser("orgA", "T"), "orgB", "T")
	require.Error(t, err)
	assert.True(t, domain.IsAuthorization(err))

	_, err = g.RequireExactIdentity(identity.Static{Org: "orgB", Full: "garbage"}, "orgB", "T")
	assert.True(t, domain.IsIdentityExtraction(err))
}

func TestRequireExactIdentitySameOrgDifferentUser(t *testing.T) {
	g := DefaultGuard()

	_, err := g.RequireExactIdentity(identity.NewUser("orgB", "mallory"), "orgB", "T")

	require.Error(t, err)
	assert.True(t, domain.IsAuthorization(err))
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "mallory", de.Details["actual_user"])
	assert.Equal(t, "T", de.Details["expected_user"])
}

func TestRequireParty(t *testing.T) {
	g := DefaultGuard()
	c := testContract()

	d, err := g.RequireParty(identity.NewUser("orgA", "L"), c)
	require.NoError(t, err)
	assert.True(t, d.IsLandlord)
	assert.False(t, d.IsTenant)
	assert.Equal(t, domain.RoleLandlord, d.Role())

	d, err = g.RequireParty(identity.NewUser("orgB", "T"), c)
	require.NoError(t, err)
	assert.True(t, d.IsTenant)
	assert.Equal(t, "T", d.ActorID)
	assert.Equal(t, domain.RoleTenant, d.Role())

	// Right user id, wrong organization.
	_, err = g.RequireParty(identity.NewUser("orgA", "T"), c)
	assert.True(t, domain.IsAuthorization(err))

	_, err = g.RequireParty(identity.NewUser("AdminMSP", "root"), c)
	assert.True(t, domain.IsAuthorization(err))
}

func TestIsPrivileged(t *testing.T) {
	g := DefaultGuard()

	assert.True(t, g.IsPrivileged(identity.NewUser("AdminMSP", "root")))
	assert.True(t, g.IsPrivileged(identity.NewUser("OrgPropMSP", "ops")))
	assert.True(t, g.IsPrivileged(identity.Static{
		Org: "orgC", Full: identity.X509ID("orgC", "reg"), Attrs: map[string]string{"role": "regulator"},
	}))
	assert.False(t, g.IsPrivileged(identity.Static{
		Org: "orgC", Full: identity.X509ID("orgC", "u"), Attrs: map[string]string{"role": "viewer"},
	}))
	assert.False(t, g.IsPrivileged(identity.NewUser("orgA", "L")))
	assert.False(t, g.IsPrivileged(nil))
	assert.False(t, Guard{}.IsPrivileged(identity.NewUser("AdminMSP", "root")))
}

func TestRequirePartyOrPrivileged(t *testing.T) {
	g := DefaultGuard()
	c := testContract()

	d, err := g.RequirePartyOrPrivileged(identity.NewUser("AdminMSP", "root"), c)
	require.NoError(t, err)
	assert.True(t, d.IsPrivileged)
	assert.False(t, d.IsLandlord)
	assert.False(t, d.IsTenant)
	assert.Equal(t, "root", d.ActorID)
	assert.Equal(t, domain.RoleAdmin, d.Role())

	d, err = g.RequirePartyOrPrivileged(identity.NewUser("orgB", "T"), c)
	require.NoError(t, err)
	assert.True(t, d.IsTenant)
	assert.False(t, d.IsPrivileged)

	_, err = g.RequirePartyOrPrivileged(identity.NewUser("orgC", "x"), c)
	assert.True(t, domain.IsAuthorization(err))
}

func TestDecisionRoleRecordsPrivilegeSource(t *testing.T) {
	g := DefaultGuard()
	c := testContract()

	regulator := identity.Static{
		Org: "orgC", Full: identity.X509ID("orgC", "reg"), Attrs: map[string]string{"role": "regulator"},
	}
	d, err := g.RequirePartyOrPrivileged(regulator, c)
	require.NoError(t, err)
	assert.True(t, d.IsPrivileged)
	assert.Equal(t, "regulator", d.PrivilegedRole)
	assert.Equal(t, domain.Role("regulator"), d.Role())

	// Organization membership grants privilege before any role attribute.
	orgAdmin := identity.Static{
		Org: "AdminMSP", Full: identity.X509ID("AdminMSP", "root"), Attrs: map[string]string{"role": "regulator"},
	}
	d, err = g.RequirePartyOrPrivileged(orgAdmin, c)
	require.NoError(t, err)
	assert.Empty(t, d.PrivilegedRole)
	assert.Equal(t, domain.RoleAdmin, d.Role())
}

func TestRequireReadAccessExcludesPrivileged(t *testing.T) {
	g := DefaultGuard()
	c := testContract()

	_, err := g.RequireReadAccess(identity.NewUser("orgA", "L"), c)
	require.NoError(t, err)

	_, err = g.RequireReadAccess(identity.NewUser("AdminMSP", "root"), c)
	assert.True(t, domain.IsAuthorization(err))
}
