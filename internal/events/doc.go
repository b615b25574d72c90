// Package events forwards committed ledger events to external buses.
//
// The ledger's event table is authoritative. Publishers here are
// best-effort mirrors: Redis Streams (XADD, one flat entry per event) and
// MQTT (JSON envelope on <prefix>/<event name>).
package events
