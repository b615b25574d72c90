// Package domain defines the rental ledger's data model: contracts,
// payments and their index records, the status enums with their transition
// tables, fixed-point amounts, the currency allow-list, ledger key
// construction, event shapes and the error taxonomy shared by the contract
// and payment services.
//
// Nothing in this package touches the ledger or logs.
package domain
