// Package authz decides whether a caller may act on a contract.
//
// Identity checks compare both the organization id and the resolved user
// id; matching the organization alone is never enough. Privilege comes from
// a configured organization set or a role attribute.
package authz
