// Package id defines the content-address identity used throughout the
// object store: a fixed 20-byte SHA-1 digest and its lowercase hex form.
package id

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/pjbgf/sha1cd"
)

// Size is the length in bytes of an ID.
const Size = 20

// ID is a content address: the SHA-1 digest of an object's canonical bytes.
type ID [Size]byte

// Zero is the ID with all bytes zero. It never addresses a real object and
// is used as a sentinel for "no ID" in call sites that can't use a pointer
// or an (ID, bool) pair.
var Zero ID

// Of hashes data with the collision-detecting SHA-1 implementation used by
// go-git, returning the resulting ID.
func Of(data []byte) ID {
	return ID(sha1cd.Sum(data))
}

// String returns the 40-character lowercase hex form.
func (i ID) String() string {
	return hex.EncodeToString(i[:])
}

// IsZero reports whether i is the zero ID.
func (i ID) IsZero() bool {
	return i == Zero
}

// Parse decodes a 40-character lowercase hex string into an ID.
func Parse(hexStr string) (ID, error) {
	var out ID
	if len(hexStr) != Size*2 {
		return out, fmt.Errorf("id: want %d hex chars, got %d", Size*2, len(hexStr))
	}
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return out, fmt.Errorf("id: invalid hex: %w", err)
	}
	copy(out[:], b)
	return out, nil
}

// MarshalJSON encodes the ID as its hex string, so persisted structures
// (Index, RefStorage, Commit.Parent, TreeNode.ID) serialize as readable
// JSON rather than a base64 byte array.
func (i ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.String())
}

// UnmarshalJSON decodes the ID from its hex string form.
func (i *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
