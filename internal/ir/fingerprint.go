package ir

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/text/unicode/norm"
)

// DomainGraph is the domain prefix for graph fingerprints. The
// version suffix enables future algorithm migration.
const DomainGraph = "anvil/graph/v1"

// Fingerprint computes a content hash of the subtree under root:
// SHA-256 over the domain prefix, a null separator, and the printed
// form normalized to NFC. Two graphs fingerprint identically exactly
// when they print identically, independent of arena layout or
// mutation history.
func Fingerprint(root *Node) string {
	return hashWithDomain(DomainGraph, []byte(norm.NFC.String(Print(root))))
}

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
