package object

import (
	"strconv"
	"strings"

	"github.com/teranos/reflow/errors"
)

// Path identifies one property slot on one object. Object may be an
// internal name or a user label; the canonical form always uses the
// internal name. Sub holds components navigating into a nested list
// value ("Box.Points.0").
type Path struct {
	Object   string
	Property string
	Sub      []string
}

// ParsePath parses a dot-separated path string of the form
// "Object.Property" or "Object.Property.sub...".
func ParsePath(s string) (Path, error) {
	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return Path{}, errors.NewInvalidTarget("path %q must have at least object and property components", s)
	}
	for i, part := range parts {
		if part == "" {
			return Path{}, errors.NewInvalidTarget("path %q has an empty component at position %d", s, i)
		}
	}
	if !isIdentifier(parts[0]) || !isIdentifier(parts[1]) {
		return Path{}, errors.NewInvalidTarget("path %q has a malformed object or property component", s)
	}

	p := Path{Object: parts[0], Property: parts[1]}
	if len(parts) > 2 {
		p.Sub = parts[2:]
	}
	return p, nil
}

// String returns the dot-separated form of the path
func (p Path) String() string {
	s := p.Object + "." + p.Property
	if len(p.Sub) > 0 {
		s += "." + strings.Join(p.Sub, ".")
	}
	return s
}

// Canonical resolves the path against doc and returns its normal form:
// the object component becomes the internal object name (labels are
// resolved), the property must exist, and numeric sub components are
// normalized ("007" -> "7"). Canonicalization is idempotent. A path that
// cannot be resolved yields ErrInvalidTarget.
func (p Path) Canonical(doc *Document) (Path, error) {
	obj := doc.Find(p.Object)
	if obj == nil {
		return Path{}, errors.NewInvalidTarget("path %s: no object named or labeled %q", p, p.Object)
	}
	if _, ok := obj.props[p.Property]; !ok {
		return Path{}, errors.NewInvalidTarget("path %s: object %q has no property %q", p, obj.Name(), p.Property)
	}

	out := Path{Object: obj.Name(), Property: p.Property}
	if len(p.Sub) > 0 {
		out.Sub = make([]string, len(p.Sub))
		for i, sub := range p.Sub {
			if n, err := strconv.Atoi(sub); err == nil {
				out.Sub[i] = strconv.Itoa(n)
			} else {
				out.Sub[i] = sub
			}
		}
	}
	return out, nil
}

// Equal reports structural equality of two paths. Callers comparing
// possibly non-canonical paths should canonicalize both first.
func (p Path) Equal(other Path) bool {
	return p.String() == other.String()
}

func isIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return len(s) > 0
}
