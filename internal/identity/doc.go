// Package identity turns a caller credential into an organization id and a
// user id.
package identity
