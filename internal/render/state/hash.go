package state

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// HashJSON returns a deterministic hash of the JSON encoding of v. Struct
// fields encode in declaration order, so callers hash fixed structs rather
// than maps when ordering matters.
func HashJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		// Should never happen with known struct types.
		return fmt.Sprintf("sha256:error-%v", err)
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("sha256:%x", sum)
}
