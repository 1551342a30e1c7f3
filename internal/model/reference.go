package model

import (
	"errors"
	"fmt"
	"strings"
)

// Reference parsing errors.
var (
	ErrEmptyReference = errors.New("reference is empty")
	ErrShortReference = errors.New("reference does not include enough segments")
)

// minReferenceSegments is the minimum number of dot-delimited segments a
// reference needs before it can route a payment.
const minReferenceSegments = 3

// Reference is a parsed payment routing code of the form
// SACCO_CODE.IKIMINA_CODE[.MEMBER_CODE]. Segments are dot-delimited and
// case-sensitive: the second carries the ikimina (group) code and the third,
// when present, the member code.
type Reference struct {
	segments []string
}

// ParseReference splits a raw reference string and validates that enough
// segments are present for group-code extraction.
func ParseReference(raw string) (Reference, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Reference{}, ErrEmptyReference
	}
	segments := strings.Split(trimmed, ".")
	if len(segments) < minReferenceSegments {
		return Reference{}, fmt.Errorf("%w: %q has %d segment(s), need at least %d",
			ErrShortReference, trimmed, len(segments), minReferenceSegments)
	}
	return Reference{segments: segments}, nil
}

// SaccoCode returns the tenant code segment.
func (r Reference) SaccoCode() string {
	return r.segments[0]
}

// GroupCode returns the ikimina code segment.
func (r Reference) GroupCode() string {
	return r.segments[1]
}

// MemberCode returns the member code segment, or an empty string when the
// reference does not carry one.
func (r Reference) MemberCode() string {
	if len(r.segments) < 3 {
		return ""
	}
	return r.segments[2]
}

// String reassembles the reference.
func (r Reference) String() string {
	return strings.Join(r.segments, ".")
}

// MemberCodeHint extracts the member code from a raw reference without
// requiring the reference to be otherwise well formed. Used for deriving
// search terms from partially valid references.
func MemberCodeHint(raw string) string {
	segments := strings.Split(raw, ".")
	if len(segments) < 3 {
		return ""
	}
	return segments[2]
}
