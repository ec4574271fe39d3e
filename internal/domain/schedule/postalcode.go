package schedule

import "fmt"

// ErrInvalidPostalCode is returned when a postal code does not satisfy the
// 5-digit invariant.
var ErrInvalidPostalCode = fmt.Errorf("postal code must be exactly 5 digits")

// PostalCode identifies one tracked delivery area. It is the identity key of
// a coordinator and never changes after the coordinator is created.
type PostalCode string

// NewPostalCode validates the raw code (exactly 5 ASCII digits).
func NewPostalCode(raw string) (PostalCode, error) {
	if len(raw) != 5 {
		return "", fmt.Errorf("%w: got %q", ErrInvalidPostalCode, raw)
	}
	for _, c := range raw {
		if c < '0' || c > '9' {
			return "", fmt.Errorf("%w: got %q", ErrInvalidPostalCode, raw)
		}
	}
	return PostalCode(raw), nil
}

func (p PostalCode) String() string {
	return string(p)
}
