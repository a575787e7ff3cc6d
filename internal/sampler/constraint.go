package sampler

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/AaronLay10/EpisodeEngine/internal/scene"
)

// ConstraintEnv is the environment of a constraint expression. The
// candidate coordinates are X, Y and Z; helper methods resolve other
// objects from the sampler's placements first and the scene second.
type ConstraintEnv struct {
	X, Y, Z float64

	candidate scene.Vec3
	placed    map[string]scene.Vec3
	reader    scene.Reader
}

func (e ConstraintEnv) lookup(name string) (scene.Vec3, bool) {
	if p, ok := e.placed[name]; ok {
		return p, true
	}
	if e.reader == nil {
		return scene.Vec3{}, false
	}
	p, err := e.reader.Position(name)
	return p, err == nil
}

// Dist is the distance from the candidate to a named object, +Inf if unknown.
func (e ConstraintEnv) Dist(name string) float64 {
	p, ok := e.lookup(name)
	if !ok {
		return math.Inf(1)
	}
	return e.candidate.Distance(p)
}

// DistXY is Dist projected onto the table plane.
func (e ConstraintEnv) DistXY(name string) float64 {
	p, ok := e.lookup(name)
	if !ok {
		return math.Inf(1)
	}
	return math.Hypot(e.candidate.X-p.X, e.candidate.Y-p.Y)
}

// Placed reports whether the sampler already tracks the named object.
func (e ConstraintEnv) Placed(name string) bool {
	_, ok := e.placed[name]
	return ok
}

// CompileConstraint compiles a boolean expression such as
// `Dist("jar0") < Dist("jar1")` into a Constraint. Objects not placed by
// the sampler are looked up through r, which may be nil.
func CompileConstraint(src string, r scene.Reader) (Constraint, error) {
	program, err := expr.Compile(src, expr.Env(ConstraintEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile constraint %q: %w", src, err)
	}
	return programConstraint(program, r), nil
}

func programConstraint(program *vm.Program, r scene.Reader) Constraint {
	return func(candidate scene.Vec3, placed map[string]scene.Vec3) bool {
		env := ConstraintEnv{
			X:         candidate.X,
			Y:         candidate.Y,
			Z:         candidate.Z,
			candidate: candidate,
			placed:    placed,
			reader:    r,
		}
		out, err := vm.Run(program, env)
		if err != nil {
			return false
		}
		ok, _ := out.(bool)
		return ok
	}
}
