package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainStatement = "qrm/statement/v1"
	DomainTree      = "qrm/tree/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// StatementHash identifies a compiled statement by its SQL text and bound
// arguments. Two statements with the same hash are interchangeable, which is
// what log correlation across runs relies on.
func StatementHash(sql string, args []any) (string, error) {
	arr := make(IRArray, len(args))
	for i, a := range args {
		v, err := FromGo(a)
		if err != nil {
			return "", fmt.Errorf("StatementHash: arg %d: %w", i, err)
		}
		arr[i] = v
	}

	canonical, err := MarshalCanonical(IRObject{
		"sql":  IRString(sql),
		"args": arr,
	})
	if err != nil {
		return "", fmt.Errorf("StatementHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainStatement, canonical), nil
}

// TreeHash fingerprints a materialized result. Golden scenarios record it so a
// changed tree is visible even when only the summary is printed.
func TreeHash(roots []IRObject) (string, error) {
	canonical, err := MarshalCanonical(roots)
	if err != nil {
		return "", fmt.Errorf("TreeHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTree, canonical), nil
}
