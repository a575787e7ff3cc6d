package palette

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/AaronLay10/EpisodeEngine/internal/scene"
)

func TestChooseDistinctExcludesAndIsUnique(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))

	for trial := 0; trial < 200; trial++ {
		got, err := Standard.ChooseDistinct(r, []int{3}, 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 5 {
			t.Fatalf("expected 5 colors, got %d", len(got))
		}
		seen := map[int]bool{}
		for _, idx := range got {
			if idx == 3 {
				t.Fatalf("excluded index returned: %v", got)
			}
			if seen[idx] {
				t.Fatalf("duplicate index returned: %v", got)
			}
			seen[idx] = true
		}
	}
}

func TestChooseDistinctInsufficient(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	p := Palette{{"a", scene.RGB{}}, {"b", scene.RGB{}}, {"c", scene.RGB{}}}

	_, err := p.ChooseDistinct(r, []int{0}, 3)
	if !errors.Is(err, ErrInsufficientDistinctColors) {
		t.Errorf("expected ErrInsufficientDistinctColors, got %v", err)
	}

	got, err := p.ChooseDistinct(r, []int{0}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	slices.Sort(got)
	if !slices.Equal(got, []int{1, 2}) {
		t.Errorf("expected [1 2], got %v", got)
	}
}

// Entries with identical RGB values are still distinct choices.
func TestChooseDistinctComparesByIndex(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 7))
	gray := scene.RGB{R: 0.5, G: 0.5, B: 0.5}
	p := Palette{{"gray", gray}, {"grey", gray}, {"red", scene.RGB{R: 1}}}

	got, err := p.ChooseDistinct(r, []int{2}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	slices.Sort(got)
	if !slices.Equal(got, []int{0, 1}) {
		t.Errorf("expected [0 1], got %v", got)
	}
}

func TestChooseEach(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))

	got, err := Standard.ChooseEach(r, []int{0}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, idx := range got {
		if idx == 0 {
			t.Fatalf("excluded index returned: %v", got)
		}
	}

	one := Palette{{"only", scene.RGB{}}}
	if _, err := one.ChooseEach(r, []int{0}, 1); !errors.Is(err, ErrInsufficientDistinctColors) {
		t.Errorf("expected ErrInsufficientDistinctColors, got %v", err)
	}
}

func TestPaletteTables(t *testing.T) {
	if len(Standard) != 20 {
		t.Errorf("expected 20 standard colors, got %d", len(Standard))
	}
	if len(Stacking) != 18 || len(Buttons) != 18 {
		t.Errorf("expected 18 stacking and button colors, got %d and %d", len(Stacking), len(Buttons))
	}
	for _, c := range Buttons {
		if c.Name == "red" {
			t.Error("button palette must not contain red")
		}
	}
	if _, err := Standard.At(20); err == nil {
		t.Error("expected out of range error")
	}
}
