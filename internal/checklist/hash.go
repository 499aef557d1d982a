package checklist

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content-addressed fingerprints.
// Version suffix enables future algorithm migration.
const (
	DomainContent = "tasksync/content/v1"
	DomainItems   = "tasksync/items/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash fingerprints raw artifact content exactly as received.
//
// No normalization happens on this path: a whitespace-only edit is drift.
// Canonicalization belongs to the parsers, never to the hash.
func ContentHash(content string) string {
	return hashWithDomain(DomainContent, []byte(content))
}

// ItemsFingerprint hashes a merged item list via canonical JSON. Two lists
// with equal ids, titles, statuses and metadata in the same order share a
// fingerprint; timestamps are excluded so the value tracks checklist state
// rather than sync history.
func ItemsFingerprint(items []ChecklistItem) (string, error) {
	arr := make([]any, len(items))
	for i, it := range items {
		obj := map[string]any{
			"id":     it.ID,
			"title":  it.Title,
			"status": string(it.Status),
		}
		if it.Priority != "" {
			obj["priority"] = it.Priority
		}
		if it.Notes != "" {
			obj["notes"] = it.Notes
		}
		arr[i] = obj
	}
	data, err := MarshalCanonical(arr)
	if err != nil {
		return "", err
	}
	return hashWithDomain(DomainItems, data), nil
}
