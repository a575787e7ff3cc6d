package sampler

import (
	"fmt"
	"math/rand/v2"

	"github.com/AaronLay10/EpisodeEngine/internal/scene"
)

// Box is an axis-aligned sampling volume.
type Box struct {
	Min scene.Vec3 `yaml:"min"`
	Max scene.Vec3 `yaml:"max"`
}

func (b Box) weight() float64 {
	dx, dy, dz := b.Max.X-b.Min.X, b.Max.Y-b.Min.Y, b.Max.Z-b.Min.Z
	if a := dx * dy; a > 0 {
		return a
	}
	if v := dx + dy + dz; v > 0 {
		return v
	}
	return 1
}

func (b Box) uniform(r *rand.Rand) scene.Vec3 {
	return uniformBetween(r, b.Min, b.Max)
}

// Region is a named set of boxes with an optional rotation range. A box
// is chosen with probability proportional to its footprint.
type Region struct {
	Name        string
	Boxes       []Box
	RotationMin *scene.Vec3
	RotationMax *scene.Vec3
}

// Validate rejects regions without boxes or with inverted corners.
func (r Region) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: unnamed", ErrInvalidRegion)
	}
	if len(r.Boxes) == 0 {
		return fmt.Errorf("%w: %s has no boxes", ErrInvalidRegion, r.Name)
	}
	for i, b := range r.Boxes {
		if b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z {
			return fmt.Errorf("%w: %s box %d has min above max", ErrInvalidRegion, r.Name, i)
		}
	}
	if (r.RotationMin == nil) != (r.RotationMax == nil) {
		return fmt.Errorf("%w: %s rotation range needs both bounds", ErrInvalidRegion, r.Name)
	}
	return nil
}

func (r Region) pick(rng *rand.Rand) Box {
	if len(r.Boxes) == 1 {
		return r.Boxes[0]
	}
	total := 0.0
	for _, b := range r.Boxes {
		total += b.weight()
	}
	x := rng.Float64() * total
	for _, b := range r.Boxes {
		x -= b.weight()
		if x < 0 {
			return b
		}
	}
	return r.Boxes[len(r.Boxes)-1]
}

func uniformBetween(r *rand.Rand, lo, hi scene.Vec3) scene.Vec3 {
	return scene.Vec3{
		X: lo.X + r.Float64()*(hi.X-lo.X),
		Y: lo.Y + r.Float64()*(hi.Y-lo.Y),
		Z: lo.Z + r.Float64()*(hi.Z-lo.Z),
	}
}
