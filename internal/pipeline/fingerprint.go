package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Fingerprint hashes a phase's inputs together with the fingerprint of the
// phase upstream of it. Inputs are canonicalized through JSON marshalling
// (struct field order is fixed, map keys are sorted), so the same inputs
// always hash the same and a change anywhere upstream ripples down to
// every later phase.
func Fingerprint(inputs any, upstream string) (string, error) {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "", fmt.Errorf("fingerprinting phase inputs: %w", err)
	}

	h := sha256.New()
	h.Write(data)
	h.Write([]byte(upstream))
	return hex.EncodeToString(h.Sum(nil)), nil
}
