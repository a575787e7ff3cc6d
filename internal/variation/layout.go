// Package variation maps an integer variation index to the semantic
// parameters of an episode and back.
//
// A Layout is an ordered list of dimensions decoded as a mixed-radix
// number: the first dimension is the most significant digit. A flag may be
// linked to another dimension, in which case it adds no digit of its own and
// is true iff the linked digit equals Digit.
package variation

import (
	"errors"
	"fmt"
)

// ErrInvalidVariationIndex is returned for indices outside [0, Count()).
var ErrInvalidVariationIndex = errors.New("invalid variation index")

// ErrInvalidLayout is returned by Validate for malformed layouts.
var ErrInvalidLayout = errors.New("invalid variation layout")

// Role is what a dimension's digit encodes.
type Role string

const (
	RoleColor  Role = "color"
	RoleTarget Role = "target"
	RoleFlag   Role = "flag"
)

// Dimension is one digit of the variation index.
type Dimension struct {
	Name        string `yaml:"name"`
	Role        Role   `yaml:"role"`
	Cardinality int    `yaml:"cardinality"`
	Min         int    `yaml:"min"`       // target: value = Min + digit
	LinkedTo    string `yaml:"linked_to"` // flag: derived from another dimension
	Digit       int    `yaml:"digit"`     // flag: true iff linked digit == Digit
}

// Colors is a color dimension over a palette of n entries.
func Colors(n int) Dimension {
	return Dimension{Name: "color", Role: RoleColor, Cardinality: n}
}

// Targets is a target-count dimension over the inclusive range [min, max].
func Targets(min, max int) Dimension {
	return Dimension{Name: "target", Role: RoleTarget, Cardinality: max - min + 1, Min: min}
}

// Flag is an independent binary dimension.
func Flag(name string) Dimension {
	return Dimension{Name: name, Role: RoleFlag, Cardinality: 2}
}

// LinkedFlag is a flag derived from another dimension's digit.
func LinkedFlag(name, linkedTo string, digit int) Dimension {
	return Dimension{Name: name, Role: RoleFlag, LinkedTo: linkedTo, Digit: digit}
}

func (d Dimension) linked() bool {
	return d.Role == RoleFlag && d.LinkedTo != ""
}

// Layout declares how a task decomposes its variation index.
type Layout struct {
	Dimensions []Dimension `yaml:"dimensions"`
	Cap        int         `yaml:"cap"` // optional upper bound on Count
}

// NewLayout builds a layout from dimensions, most significant first.
func NewLayout(dims ...Dimension) Layout {
	return Layout{Dimensions: dims}
}

// WithCap returns a copy of the layout whose Count is at most n.
func (l Layout) WithCap(n int) Layout {
	l.Cap = n
	return l
}

// Validate checks cardinalities, roles and links.
func (l Layout) Validate() error {
	if len(l.Dimensions) == 0 {
		return fmt.Errorf("%w: no dimensions", ErrInvalidLayout)
	}
	names := make(map[string]Dimension, len(l.Dimensions))
	roles := make(map[Role]int)
	for _, d := range l.Dimensions {
		if d.Name == "" {
			return fmt.Errorf("%w: unnamed dimension", ErrInvalidLayout)
		}
		if _, dup := names[d.Name]; dup {
			return fmt.Errorf("%w: duplicate dimension %q", ErrInvalidLayout, d.Name)
		}
		names[d.Name] = d
		switch d.Role {
		case RoleColor, RoleTarget:
			roles[d.Role]++
			if roles[d.Role] > 1 {
				return fmt.Errorf("%w: more than one %s dimension", ErrInvalidLayout, d.Role)
			}
		case RoleFlag:
		default:
			return fmt.Errorf("%w: dimension %q has unknown role %q", ErrInvalidLayout, d.Name, d.Role)
		}
		if d.linked() {
			continue
		}
		if d.Cardinality < 1 {
			return fmt.Errorf("%w: dimension %q has cardinality %d", ErrInvalidLayout, d.Name, d.Cardinality)
		}
		if d.Role == RoleFlag && d.Cardinality != 2 {
			return fmt.Errorf("%w: flag %q must have cardinality 2", ErrInvalidLayout, d.Name)
		}
	}
	for _, d := range l.Dimensions {
		if !d.linked() {
			continue
		}
		target, ok := names[d.LinkedTo]
		if !ok || target.linked() {
			return fmt.Errorf("%w: flag %q linked to unknown dimension %q", ErrInvalidLayout, d.Name, d.LinkedTo)
		}
		if d.Digit < 0 || d.Digit >= target.Cardinality {
			return fmt.Errorf("%w: flag %q digit %d outside %q", ErrInvalidLayout, d.Name, d.Digit, d.LinkedTo)
		}
	}
	return nil
}

// Count is the number of variations: the product of all free cardinalities,
// bounded by Cap when Cap is positive.
func (l Layout) Count() int {
	n := 1
	for _, d := range l.Dimensions {
		if d.linked() {
			continue
		}
		n *= d.Cardinality
	}
	if l.Cap > 0 && l.Cap < n {
		return l.Cap
	}
	return n
}
