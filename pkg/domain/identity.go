package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID composes a time+random identifier. Collisions are operationally
// negligible; these ids are not required to be cryptographically unique.
func NewID(prefix string) string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), hex.EncodeToString(b[:]))
}

// NewPlanID returns a fresh plan document identifier.
func NewPlanID() string {
	return uuid.NewString()
}

// PlantingID formats a planting identifier from the in-process counter.
func PlantingID(seq int) string {
	return fmt.Sprintf("p%d", seq)
}

// PlantingSeq parses the counter value out of a planting identifier. It
// returns false for ids not produced by PlantingID (e.g. imported documents).
func PlantingSeq(id string) (int, bool) {
	if len(id) < 2 || id[0] != 'p' {
		return 0, false
	}
	n := 0
	for _, r := range id[1:] {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

// Content keys detect "the same real-world thing" during import merges. They
// are case-insensitive and whitespace-trimmed, and are never stored; the
// storage identifier is always the entity ID.

func contentKey(parts ...string) string {
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, "|")
}

// ContentKey derives the variety merge key from crop, name, and supplier.
func (v Variety) ContentKey() string {
	return contentKey(v.Crop, v.Name, v.Supplier)
}

// ContentKey derives the seed mix merge key from name and crop.
func (m SeedMix) ContentKey() string {
	return contentKey(m.Name, m.Crop)
}

// ContentKey derives the product merge key from crop, product, and unit.
func (p Product) ContentKey() string {
	return contentKey(p.Crop, p.Product, p.Unit)
}
