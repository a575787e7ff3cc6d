// Package palette holds the color tables used by task variations and picks
// distractor colors. Colors are identified by their index in a palette, never
// by value, so two entries with equal RGB are still distinct choices.
package palette

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/AaronLay10/EpisodeEngine/internal/scene"
)

// ErrInsufficientDistinctColors is returned when fewer spare colors remain
// than the number of distinct colors requested.
var ErrInsufficientDistinctColors = errors.New("insufficient distinct colors")

// Color is a named RGB entry.
type Color struct {
	Name string
	RGB  scene.RGB
}

// Palette is an ordered color table.
type Palette []Color

// At returns the color at index i.
func (p Palette) At(i int) (Color, error) {
	if i < 0 || i >= len(p) {
		return Color{}, fmt.Errorf("color index %d out of range [0, %d)", i, len(p))
	}
	return p[i], nil
}

// Spare returns the indices of p that are not in exclude, in order.
func (p Palette) Spare(exclude ...int) []int {
	spare := make([]int, 0, len(p))
	for i := range p {
		if !slices.Contains(exclude, i) {
			spare = append(spare, i)
		}
	}
	return spare
}

// ChooseDistinct draws n distinct indices from the palette, none of which
// appear in exclude.
func (p Palette) ChooseDistinct(r *rand.Rand, exclude []int, n int) ([]int, error) {
	spare := p.Spare(exclude...)
	if len(spare) < n {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrInsufficientDistinctColors, n, len(spare))
	}
	perm := r.Perm(len(spare))
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = spare[perm[i]]
	}
	return out, nil
}

// ChooseEach draws n indices independently from the spare set; two draws
// may return the same index.
func (p Palette) ChooseEach(r *rand.Rand, exclude []int, n int) ([]int, error) {
	spare := p.Spare(exclude...)
	if len(spare) == 0 && n > 0 {
		return nil, fmt.Errorf("%w: need 1, have 0", ErrInsufficientDistinctColors)
	}
	out := make([]int, n)
	for i := range out {
		out[i] = spare[r.IntN(len(spare))]
	}
	return out, nil
}

// Standard is the general-purpose benchmark color table.
var Standard = Palette{
	{"red", scene.RGB{R: 1.0, G: 0.0, B: 0.0}},
	{"maroon", scene.RGB{R: 0.5, G: 0.0, B: 0.0}},
	{"lime", scene.RGB{R: 0.0, G: 1.0, B: 0.0}},
	{"green", scene.RGB{R: 0.0, G: 0.5, B: 0.0}},
	{"blue", scene.RGB{R: 0.0, G: 0.0, B: 1.0}},
	{"navy", scene.RGB{R: 0.0, G: 0.0, B: 0.5}},
	{"yellow", scene.RGB{R: 1.0, G: 1.0, B: 0.0}},
	{"cyan", scene.RGB{R: 0.0, G: 1.0, B: 1.0}},
	{"magenta", scene.RGB{R: 1.0, G: 0.0, B: 1.0}},
	{"silver", scene.RGB{R: 0.75, G: 0.75, B: 0.75}},
	{"gray", scene.RGB{R: 0.5, G: 0.5, B: 0.5}},
	{"orange", scene.RGB{R: 1.0, G: 0.5, B: 0.0}},
	{"olive", scene.RGB{R: 0.5, G: 0.5, B: 0.0}},
	{"purple", scene.RGB{R: 0.5, G: 0.0, B: 0.5}},
	{"teal", scene.RGB{R: 0.0, G: 0.5, B: 0.5}},
	{"azure", scene.RGB{R: 0.0, G: 0.5, B: 1.0}},
	{"violet", scene.RGB{R: 0.5, G: 0.0, B: 1.0}},
	{"rose", scene.RGB{R: 1.0, G: 0.0, B: 0.5}},
	{"black", scene.RGB{R: 0.0, G: 0.0, B: 0.0}},
	{"white", scene.RGB{R: 1.0, G: 1.0, B: 1.0}},
}

// Stacking omits blue and yellow, which are reserved for the indicator block.
var Stacking = Palette{
	{"red", scene.RGB{R: 1.0, G: 0.0, B: 0.0}},
	{"maroon", scene.RGB{R: 0.5, G: 0.0, B: 0.0}},
	{"lime", scene.RGB{R: 0.0, G: 1.0, B: 0.0}},
	{"green", scene.RGB{R: 0.0, G: 0.5, B: 0.0}},
	{"navy", scene.RGB{R: 0.0, G: 0.0, B: 0.5}},
	{"cyan", scene.RGB{R: 0.0, G: 1.0, B: 1.0}},
	{"magenta", scene.RGB{R: 1.0, G: 0.0, B: 1.0}},
	{"silver", scene.RGB{R: 0.75, G: 0.75, B: 0.75}},
	{"gray", scene.RGB{R: 0.5, G: 0.5, B: 0.5}},
	{"orange", scene.RGB{R: 1.0, G: 0.5, B: 0.0}},
	{"olive", scene.RGB{R: 0.5, G: 0.5, B: 0.0}},
	{"purple", scene.RGB{R: 0.5, G: 0.0, B: 0.5}},
	{"teal", scene.RGB{R: 0.0, G: 0.5, B: 0.5}},
	{"azure", scene.RGB{R: 0.0, G: 0.5, B: 1.0}},
	{"violet", scene.RGB{R: 0.5, G: 0.0, B: 1.0}},
	{"rose", scene.RGB{R: 1.0, G: 0.0, B: 0.5}},
	{"black", scene.RGB{R: 0.0, G: 0.0, B: 0.0}},
	{"white", scene.RGB{R: 1.0, G: 1.0, B: 1.0}},
}

// Buttons omits red and lime: button plates are red until pressed and
// green afterwards.
var Buttons = Palette{
	{"maroon", scene.RGB{R: 0.5, G: 0.0, B: 0.0}},
	{"green", scene.RGB{R: 0.0, G: 0.5, B: 0.0}},
	{"blue", scene.RGB{R: 0.0, G: 0.0, B: 1.0}},
	{"navy", scene.RGB{R: 0.0, G: 0.0, B: 0.5}},
	{"yellow", scene.RGB{R: 1.0, G: 1.0, B: 0.0}},
	{"cyan", scene.RGB{R: 0.0, G: 1.0, B: 1.0}},
	{"magenta", scene.RGB{R: 1.0, G: 0.0, B: 1.0}},
	{"silver", scene.RGB{R: 0.75, G: 0.75, B: 0.75}},
	{"gray", scene.RGB{R: 0.5, G: 0.5, B: 0.5}},
	{"orange", scene.RGB{R: 1.0, G: 0.5, B: 0.0}},
	{"olive", scene.RGB{R: 0.5, G: 0.5, B: 0.0}},
	{"purple", scene.RGB{R: 0.5, G: 0.0, B: 0.5}},
	{"teal", scene.RGB{R: 0.0, G: 0.5, B: 0.5}},
	{"azure", scene.RGB{R: 0.0, G: 0.5, B: 1.0}},
	{"violet", scene.RGB{R: 0.5, G: 0.0, B: 1.0}},
	{"rose", scene.RGB{R: 1.0, G: 0.0, B: 0.5}},
	{"black", scene.RGB{R: 0.0, G: 0.0, B: 0.0}},
	{"white", scene.RGB{R: 1.0, G: 1.0, B: 1.0}},
}
