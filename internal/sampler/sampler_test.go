package sampler

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/AaronLay10/EpisodeEngine/internal/scene"
)

func newTestSampler(t *testing.T, opts ...Option) (*Sampler, *scene.Memory) {
	t.Helper()
	mem := scene.NewMemory()
	s := New(mem, rand.New(rand.NewPCG(11, 13)), opts...)
	if err := s.AddRegion(Region{
		Name:  "table",
		Boxes: []Box{{Min: scene.Vec3{X: -0.5, Y: -0.5}, Max: scene.Vec3{X: 0.5, Y: 0.5}}},
	}); err != nil {
		t.Fatalf("add region: %v", err)
	}
	return s, mem
}

func TestSampleKeepsMinimumDistance(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		mem := scene.NewMemory()
		s := New(mem, rand.New(rand.NewPCG(seed, seed+1)))
		s.AddRegion(Region{
			Name:  "table",
			Boxes: []Box{{Min: scene.Vec3{X: -0.3, Y: -0.3}, Max: scene.Vec3{X: 0.3, Y: 0.3}}},
		})

		for i := 0; i < 8; i++ {
			if _, err := s.Sample(Request{Object: fmt.Sprintf("block%d", i), Region: "table", MinDistance: 0.1}); err != nil {
				t.Fatalf("seed %d block %d: %v", seed, i, err)
			}
		}

		placed := s.Placed()
		for a, pa := range placed {
			for b, pb := range placed {
				if a == b {
					continue
				}
				if d := pa.Distance(pb); d < 0.1 {
					t.Fatalf("seed %d: %s and %s only %.4f apart", seed, a, b, d)
				}
			}
			// The scene and the tracked set agree.
			got, _ := mem.Position(a)
			if got != pa {
				t.Fatalf("scene position %v differs from tracked %v", got, pa)
			}
		}
	}
}

func TestSampleStaysInsideRegion(t *testing.T) {
	s, _ := newTestSampler(t)
	for i := 0; i < 50; i++ {
		p, err := s.Sample(Request{Object: "banana", Region: "table"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.X < -0.5 || p.X > 0.5 || p.Y < -0.5 || p.Y > 0.5 || p.Z != 0 {
			t.Fatalf("candidate outside region: %v", p)
		}
	}
}

func TestUnsatisfiableConstraintExhausts(t *testing.T) {
	s, mem := newTestSampler(t, WithRetryCeiling(500))

	never := func(scene.Vec3, map[string]scene.Vec3) bool { return false }
	_, err := s.Sample(Request{Object: "banana", Region: "table", Constraint: never})
	if !errors.Is(err, ErrSamplingExhausted) {
		t.Fatalf("expected ErrSamplingExhausted, got %v", err)
	}
	if mem.Exists("banana") {
		t.Error("rejected object must not be moved")
	}
	if _, tracked := s.Placed()["banana"]; tracked {
		t.Error("rejected object must not be tracked")
	}
}

// Five objects cannot be 0.1 apart inside a 0.05 x 0.05 square: its
// diagonal is only ~0.071.
func TestOvercrowdedRegionExhausts(t *testing.T) {
	mem := scene.NewMemory()
	s := New(mem, rand.New(rand.NewPCG(5, 5)), WithRetryCeiling(2000))
	s.AddRegion(Region{
		Name:  "tiny",
		Boxes: []Box{{Min: scene.Vec3{}, Max: scene.Vec3{X: 0.05, Y: 0.05}}},
	})

	var err error
	placed := 0
	for i := 0; i < 5; i++ {
		if _, err = s.Sample(Request{Object: fmt.Sprintf("block%d", i), Region: "tiny", MinDistance: 0.1}); err != nil {
			break
		}
		placed++
	}
	if !errors.Is(err, ErrSamplingExhausted) {
		t.Fatalf("expected ErrSamplingExhausted, got %v", err)
	}
	if placed != 1 {
		t.Errorf("expected only the first block to fit, placed %d", placed)
	}
}

func TestResampleIgnoresOwnPreviousPosition(t *testing.T) {
	mem := scene.NewMemory()
	s := New(mem, rand.New(rand.NewPCG(1, 1)), WithRetryCeiling(100))
	s.AddRegion(Region{
		Name:  "tiny",
		Boxes: []Box{{Min: scene.Vec3{}, Max: scene.Vec3{X: 0.01, Y: 0.01}}},
	})

	for i := 0; i < 5; i++ {
		if _, err := s.Sample(Request{Object: "banana", Region: "tiny", MinDistance: 0.1}); err != nil {
			t.Fatalf("resample %d: %v", i, err)
		}
	}
	if len(s.Placed()) != 1 {
		t.Errorf("expected one tracked object, got %v", s.Placed())
	}
}

func TestClearForgetsPlacements(t *testing.T) {
	mem := scene.NewMemory()
	s := New(mem, rand.New(rand.NewPCG(2, 3)), WithRetryCeiling(100))
	s.AddRegion(Region{
		Name:  "tiny",
		Boxes: []Box{{Min: scene.Vec3{}, Max: scene.Vec3{X: 0.01, Y: 0.01}}},
	})

	if _, err := s.Sample(Request{Object: "cup1", Region: "tiny", MinDistance: 0.05}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Sample(Request{Object: "cup2", Region: "tiny", MinDistance: 0.05}); !errors.Is(err, ErrSamplingExhausted) {
		t.Fatalf("expected collision with cup1, got %v", err)
	}

	s.Clear()
	if len(s.Placed()) != 0 {
		t.Fatal("expected empty collision set after Clear")
	}
	if _, err := s.Sample(Request{Object: "cup2", Region: "tiny", MinDistance: 0.05}); err != nil {
		t.Errorf("expected cup2 to fit after Clear, got %v", err)
	}
}

func TestConstraintSeesOtherPlacements(t *testing.T) {
	s, _ := newTestSampler(t)

	if _, err := s.Sample(Request{Object: "jar0", Region: "table"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var seen map[string]scene.Vec3
	_, err := s.Sample(Request{
		Object: "jar1",
		Region: "table",
		Constraint: func(_ scene.Vec3, placed map[string]scene.Vec3) bool {
			seen = placed
			return true
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := seen["jar0"]; !ok || len(seen) != 1 {
		t.Errorf("expected constraint to see only jar0, got %v", seen)
	}
}

func TestRotationRange(t *testing.T) {
	s, mem := newTestSampler(t)
	lo, hi := scene.Vec3{Z: -1}, scene.Vec3{Z: 1}

	for i := 0; i < 20; i++ {
		if _, err := s.Sample(Request{Object: "cup", Region: "table", RotationMin: &lo, RotationMax: &hi}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		o, _ := mem.Orientation("cup")
		if o.X != 0 || o.Y != 0 || o.Z < -1 || o.Z > 1 {
			t.Fatalf("orientation out of range: %v", o)
		}
	}

	zero := scene.Vec3{}
	mem.SetOrientation("cup2", scene.Vec3{Z: 2})
	s.Sample(Request{Object: "cup2", Region: "table", RotationMin: &zero, RotationMax: &zero})
	if o, _ := mem.Orientation("cup2"); o != zero {
		t.Errorf("expected zero rotation, got %v", o)
	}
}

func TestUnknownRegion(t *testing.T) {
	s, _ := newTestSampler(t)
	if _, err := s.Sample(Request{Object: "x", Region: "shelf"}); !errors.Is(err, ErrUnknownRegion) {
		t.Errorf("expected ErrUnknownRegion, got %v", err)
	}
}

func TestRegionValidate(t *testing.T) {
	lo := scene.Vec3{}
	bad := []Region{
		{Name: ""},
		{Name: "empty"},
		{Name: "inverted", Boxes: []Box{{Min: scene.Vec3{X: 1}, Max: scene.Vec3{}}}},
		{Name: "half rotation", Boxes: []Box{{}}, RotationMin: &lo},
	}
	for _, r := range bad {
		if err := r.Validate(); !errors.Is(err, ErrInvalidRegion) {
			t.Errorf("%q: expected ErrInvalidRegion, got %v", r.Name, err)
		}
	}
}

func TestMultiBoxRegionUsesEveryBox(t *testing.T) {
	mem := scene.NewMemory()
	s := New(mem, rand.New(rand.NewPCG(9, 9)))
	s.AddRegion(Region{
		Name: "boundaries",
		Boxes: []Box{
			{Min: scene.Vec3{X: 0, Y: 0}, Max: scene.Vec3{X: 0.2, Y: 0.2}},
			{Min: scene.Vec3{X: 1, Y: 0}, Max: scene.Vec3{X: 1.2, Y: 0.2}},
		},
	})

	left, right := 0, 0
	for i := 0; i < 200; i++ {
		p, err := s.Sample(Request{Object: "block", Region: "boundaries"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.X <= 0.2 {
			left++
		} else {
			right++
		}
	}
	if left == 0 || right == 0 {
		t.Errorf("expected both boxes to be used, got left=%d right=%d", left, right)
	}
}
