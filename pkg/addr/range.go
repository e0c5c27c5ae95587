package addr

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is a CIDR-style prefix: a base Address plus a prefix length. The
// invariant PrefixLen <= 8*Len is enforced by every constructor in this
// package; callers that build a Range by hand are expected to uphold it.
type Range struct {
	Base      Address
	PrefixLen uint8
}

// NewRange validates the PrefixLen <= 8*base.Len invariant and returns the
// Range, or an error if the prefix length is out of bounds for base's
// length.
func NewRange(base Address, prefixLen uint8) (Range, error) {
	if int(prefixLen) > 8*int(base.Len) {
		return Range{}, fmt.Errorf("addr: prefix length %d exceeds %d bits for a %d-byte address", prefixLen, 8*base.Len, base.Len)
	}
	return Range{Base: base, PrefixLen: prefixLen}, nil
}

// Contains reports whether a lies within r: same length, and the first
// PrefixLen bits (MSB-first across bytes) of a.Data equal those of
// r.Base.Data.
func (r Range) Contains(a Address) bool {
	if a.Len != r.Base.Len {
		return false
	}
	fullBytes := int(r.PrefixLen) / 8
	remBits := int(r.PrefixLen) % 8

	for i := 0; i < fullBytes; i++ {
		if a.Data[i] != r.Base.Data[i] {
			return false
		}
	}
	if remBits == 0 {
		return true
	}
	mask := byte(0xFF << (8 - remBits))
	return a.Data[fullBytes]&mask == r.Base.Data[fullBytes]&mask
}

// Equal reports whether two ranges carry the same base address and prefix
// length. Used by RoutingTable to detect re-learning of an existing route.
func (r Range) Equal(o Range) bool {
	return r.PrefixLen == o.PrefixLen && r.Base.Equal(o.Base)
}

// String renders the range as "<addr>/<prefix>".
func (r Range) String() string {
	return fmt.Sprintf("%s/%d", r.Base, r.PrefixLen)
}

// ParseRange parses the "<addr>/<prefix>" textual CIDR form.
func ParseRange(s string) (Range, error) {
	idx := strings.LastIndexByte(s, '/')
	if idx < 0 {
		return Range{}, fmt.Errorf("addr: invalid range %q: missing '/'", s)
	}
	base, err := Parse(s[:idx])
	if err != nil {
		return Range{}, fmt.Errorf("addr: invalid range %q: %w", s, err)
	}
	prefixLen, err := strconv.ParseUint(s[idx+1:], 10, 8)
	if err != nil {
		return Range{}, fmt.Errorf("addr: invalid prefix length in %q: %w", s, err)
	}
	return NewRange(base, uint8(prefixLen))
}
