package route

import (
	"net/url"
	"strings"
)

// Identifier is an opaque hierarchical resource locator such as "/tasks/1".
// The empty Identifier means "unspecified".
type Identifier string

// emptySegment spells an empty segment. PathEscape never produces a lone
// "%", so it cannot collide with an escaped value.
const emptySegment = "%"

// Join builds an identifier from raw segments, escaping each one. An empty
// segment is written as emptySegment.
func Join(segments ...string) Identifier {
	if len(segments) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range segments {
		b.WriteByte('/')
		if s == "" {
			b.WriteString(emptySegment)
			continue
		}
		b.WriteString(url.PathEscape(s))
	}
	return Identifier(b.String())
}

// Segments returns the unescaped path segments. Blank segments between
// slashes are dropped, so "/tasks/", "tasks" and "/tasks" are equivalent;
// an empty value survives only as emptySegment.
func (id Identifier) Segments() []string {
	raw := strings.Split(string(id), "/")
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s == "" {
			continue
		}
		if s == emptySegment {
			out = append(out, "")
			continue
		}
		if u, err := url.PathUnescape(s); err == nil {
			s = u
		}
		out = append(out, s)
	}
	return out
}

// Unspecified reports whether id carries no location.
func (id Identifier) Unspecified() bool {
	return id == ""
}

// Append returns id with one more segment.
func (id Identifier) Append(segment string) Identifier {
	return Join(append(id.Segments(), segment)...)
}

// Parent returns id without its last segment. The root is its own parent.
func (id Identifier) Parent() Identifier {
	segs := id.Segments()
	if len(segs) == 0 {
		return "/"
	}
	return Join(segs[:len(segs)-1]...)
}

// Normalize returns the canonical spelling of id.
func (id Identifier) Normalize() Identifier {
	if id.Unspecified() {
		return id
	}
	return Join(id.Segments()...)
}

// IsAncestorOf reports whether other lies strictly below id.
func (id Identifier) IsAncestorOf(other Identifier) bool {
	a, b := id.Segments(), other.Segments()
	if len(a) >= len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer.
func (id Identifier) String() string {
	return string(id)
}
