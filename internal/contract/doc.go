// Package contract implements the rental contract lifecycle:
//
//	PENDING_SIGNATURE -> WAIT_DEPOSIT -> WAIT_FIRST_PAYMENT -> ACTIVE -> TERMINATED
//
// plus extensions, contract-level penalties, restricted private details
// and the read operations over contracts.
package contract
