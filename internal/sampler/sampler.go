// Package sampler places objects at random inside named regions while
// keeping them apart from each other and satisfying relational constraints.
package sampler

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/AaronLay10/EpisodeEngine/internal/events"
	"github.com/AaronLay10/EpisodeEngine/internal/scene"
)

// DefaultRetryCeiling bounds the rejection loop of a single Sample call.
const DefaultRetryCeiling = 10000

var (
	// ErrSamplingExhausted is returned when no candidate was accepted
	// within the retry ceiling.
	ErrSamplingExhausted = errors.New("sampling exhausted")
	// ErrUnknownRegion is returned when a request names an unregistered region.
	ErrUnknownRegion = errors.New("unknown region")
	// ErrInvalidRegion is returned by AddRegion for malformed regions.
	ErrInvalidRegion = errors.New("invalid region")
)

// Constraint is a relational predicate over a candidate position and the
// positions of the other objects already placed by the sampler.
type Constraint func(candidate scene.Vec3, placed map[string]scene.Vec3) bool

// Request describes one placement.
type Request struct {
	Object      string
	Region      string
	MinDistance float64
	Constraint  Constraint
	// RotationMin and RotationMax override the region's rotation range.
	RotationMin *scene.Vec3
	RotationMax *scene.Vec3
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithRetryCeiling sets the maximum number of candidates drawn per request.
func WithRetryCeiling(n int) Option {
	return func(s *Sampler) {
		if n > 0 {
			s.ceiling = n
		}
	}
}

// Sampler is the per-episode collision set plus the regions it samples from.
// It is not safe for concurrent use.
type Sampler struct {
	w       scene.Writer
	rng     *rand.Rand
	ceiling int
	regions map[string]Region
	placed  map[string]scene.Vec3
}

// New creates a sampler that writes accepted placements to w.
func New(w scene.Writer, rng *rand.Rand, opts ...Option) *Sampler {
	s := &Sampler{
		w:       w,
		rng:     rng,
		ceiling: DefaultRetryCeiling,
		regions: make(map[string]Region),
		placed:  make(map[string]scene.Vec3),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RetryCeiling returns the configured ceiling.
func (s *Sampler) RetryCeiling() int {
	return s.ceiling
}

// AddRegion registers or replaces a region.
func (s *Sampler) AddRegion(r Region) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.regions[r.Name] = r
	return nil
}

// Region returns a registered region.
func (s *Sampler) Region(name string) (Region, bool) {
	r, ok := s.regions[name]
	return r, ok
}

// Regions returns the names of all registered regions, sorted.
func (s *Sampler) Regions() []string {
	names := make([]string, 0, len(s.regions))
	for name := range s.regions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear forgets every tracked placement. Regions are kept.
func (s *Sampler) Clear() {
	s.placed = make(map[string]scene.Vec3)
}

// Placed returns a copy of the tracked placements.
func (s *Sampler) Placed() map[string]scene.Vec3 {
	out := make(map[string]scene.Vec3, len(s.placed))
	for k, v := range s.placed {
		out[k] = v
	}
	return out
}

// Sample draws candidates for req until one is at least req.MinDistance
// from every other tracked object and satisfies req.Constraint, then moves
// the object there. Re-sampling a tracked object replaces its entry.
func (s *Sampler) Sample(req Request) (scene.Vec3, error) {
	region, ok := s.regions[req.Region]
	if !ok {
		return scene.Vec3{}, fmt.Errorf("%w: %s", ErrUnknownRegion, req.Region)
	}

	others := make(map[string]scene.Vec3, len(s.placed))
	for name, p := range s.placed {
		if name != req.Object {
			others[name] = p
		}
	}

	rotMin, rotMax := region.RotationMin, region.RotationMax
	if req.RotationMin != nil && req.RotationMax != nil {
		rotMin, rotMax = req.RotationMin, req.RotationMax
	}

	for attempt := 1; attempt <= s.ceiling; attempt++ {
		candidate := region.pick(s.rng).uniform(s.rng)
		if !farEnough(candidate, others, req.MinDistance) {
			continue
		}
		if req.Constraint != nil && !req.Constraint(candidate, others) {
			continue
		}

		if err := s.w.SetPosition(req.Object, candidate); err != nil {
			return scene.Vec3{}, fmt.Errorf("place %s: %w", req.Object, err)
		}
		if rotMin != nil && rotMax != nil {
			rot := uniformBetween(s.rng, *rotMin, *rotMax)
			if err := s.w.SetOrientation(req.Object, rot); err != nil {
				return scene.Vec3{}, fmt.Errorf("rotate %s: %w", req.Object, err)
			}
		}
		s.placed[req.Object] = candidate

		events.Emit("info", "placement.sampled", "", map[string]interface{}{
			"object":   req.Object,
			"region":   req.Region,
			"attempts": attempt,
		})
		return candidate, nil
	}

	events.Emit("error", "placement.exhausted", "", map[string]interface{}{
		"object":   req.Object,
		"region":   req.Region,
		"attempts": s.ceiling,
	})
	return scene.Vec3{}, fmt.Errorf("%w: %s in %s after %d attempts", ErrSamplingExhausted, req.Object, req.Region, s.ceiling)
}

func farEnough(candidate scene.Vec3, others map[string]scene.Vec3, min float64) bool {
	for _, p := range others {
		if candidate.Distance(p) < min {
			return false
		}
	}
	return true
}
