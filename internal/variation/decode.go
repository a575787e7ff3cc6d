package variation

import "fmt"

// Spec is the decoded, immutable parameter tuple of one variation.
type Spec struct {
	Index       int
	ColorIndex  int
	TargetCount int
	Flags       map[string]bool
}

// Flag returns the named flag, false if absent.
func (s Spec) Flag(name string) bool {
	return s.Flags[name]
}

// Decode maps index to its Spec.
func Decode(index int, l Layout) (Spec, error) {
	if err := l.Validate(); err != nil {
		return Spec{}, err
	}
	if index < 0 || index >= l.Count() {
		return Spec{}, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidVariationIndex, index, l.Count())
	}

	digits := make(map[string]int, len(l.Dimensions))
	rem := index
	for i := len(l.Dimensions) - 1; i >= 0; i-- {
		d := l.Dimensions[i]
		if d.linked() {
			continue
		}
		digits[d.Name] = rem % d.Cardinality
		rem /= d.Cardinality
	}

	spec := Spec{Index: index, Flags: make(map[string]bool)}
	for _, d := range l.Dimensions {
		switch d.Role {
		case RoleColor:
			spec.ColorIndex = digits[d.Name]
		case RoleTarget:
			spec.TargetCount = d.Min + digits[d.Name]
		case RoleFlag:
			if d.linked() {
				spec.Flags[d.Name] = digits[d.LinkedTo] == d.Digit
			} else {
				spec.Flags[d.Name] = digits[d.Name] == 1
			}
		}
	}
	return spec, nil
}

// Encode is the inverse of Decode. Specs whose linked flags disagree with
// their source dimension have no index and are rejected.
func Encode(spec Spec, l Layout) (int, error) {
	if err := l.Validate(); err != nil {
		return 0, err
	}

	digits := make(map[string]int, len(l.Dimensions))
	for _, d := range l.Dimensions {
		switch d.Role {
		case RoleColor:
			digits[d.Name] = spec.ColorIndex
		case RoleTarget:
			digits[d.Name] = spec.TargetCount - d.Min
		case RoleFlag:
			if d.linked() {
				continue
			}
			if spec.Flags[d.Name] {
				digits[d.Name] = 1
			}
		}
	}

	index := 0
	for _, d := range l.Dimensions {
		if d.linked() {
			continue
		}
		digit := digits[d.Name]
		if digit < 0 || digit >= d.Cardinality {
			return 0, fmt.Errorf("%w: %s value out of range", ErrInvalidVariationIndex, d.Name)
		}
		index = index*d.Cardinality + digit
	}
	for _, d := range l.Dimensions {
		if d.linked() && spec.Flags[d.Name] != (digits[d.LinkedTo] == d.Digit) {
			return 0, fmt.Errorf("%w: flag %s inconsistent with %s", ErrInvalidVariationIndex, d.Name, d.LinkedTo)
		}
	}
	if index >= l.Count() {
		return 0, fmt.Errorf("%w: %d beyond cap %d", ErrInvalidVariationIndex, index, l.Count())
	}
	return index, nil
}
