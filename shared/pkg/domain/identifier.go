package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Identifier is a validated UUID v4 in canonical 8-4-4-4-12 form.
type Identifier struct {
	value string
}

func NewIdentifier() Identifier {
	return Identifier{value: uuid.NewString()}
}

// ParseIdentifier accepts only the canonical hyphenated form with a
// version-4 nibble and an RFC 4122 variant.
func ParseIdentifier(s string) (Identifier, error) {
	if len(s) != 36 {
		return Identifier{}, fmt.Errorf("%w: %q", ErrInvalidIdentifier, s)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return Identifier{}, fmt.Errorf("%w: %q", ErrInvalidIdentifier, s)
	}
	if u.Version() != 4 || u.Variant() != uuid.RFC4122 {
		return Identifier{}, fmt.Errorf("%w: %q", ErrInvalidIdentifier, s)
	}
	return Identifier{value: u.String()}, nil
}

func (i Identifier) String() string { return i.value }

func (i Identifier) IsZero() bool { return i.value == "" }
