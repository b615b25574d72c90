package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content digests.
// The version suffix leaves room for an algorithm change.
const (
	DomainDocument = "rentledger/document/v1"
	DomainEvent    = "rentledger/event/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data) as lowercase hex.
// The null separator keeps domain and data from running together.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DocumentDigest fingerprints a stored ledger value. The store records it
// next to each state row and history entry.
func DocumentDigest(canonical []byte) string {
	return hashWithDomain(DomainDocument, canonical)
}

// EventDigest fingerprints an emitted event. Name and payload are joined
// by a null byte so that ("a", "bc") and ("ab", "c") differ.
func EventDigest(txID, name string, payload []byte) string {
	data := make([]byte, 0, len(txID)+len(name)+len(payload)+2)
	data = append(data, txID...)
	data = append(data, 0x00)
	data = append(data, name...)
	data = append(data, 0x00)
	data = append(data, payload...)
	return hashWithDomain(DomainEvent, data)
}
