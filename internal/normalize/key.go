package normalize

import (
	"strings"
)

// maxKeyLen bounds the client key to fit the store's unique-index column.
const maxKeyLen = 255

// ClientKey derives the stable identity key used as the upsert target.
// Semantically equal inputs (case/whitespace variation in name, any phone
// formatting) always produce the same key, which is what makes key-based
// upsert safe without a lookup-then-insert race. Missing name or phone still
// yields a deterministic (degenerate) key so partial rows never abort a batch.
func ClientKey(name, phone string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	p, _ := Phone(phone)

	key := n + "_" + p
	if r := []rune(key); len(r) > maxKeyLen {
		key = string(r[:maxKeyLen])
	}
	return key
}
