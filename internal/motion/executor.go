// Package motion is a reference executor that consumes a waypoint template
// through a sequencer, ticking the simulator as it goes.
package motion

import (
	"context"
	"errors"
	"fmt"

	bt "github.com/joeycumines/go-behaviortree"

	"github.com/AaronLay10/EpisodeEngine/internal/events"
	"github.com/AaronLay10/EpisodeEngine/internal/scene"
	"github.com/AaronLay10/EpisodeEngine/internal/sequencer"
)

const (
	DefaultStepsPerWaypoint = 1
	DefaultMaxTicks         = 500
	DefaultEffector         = "tip"
)

// ErrInvalidTemplate is returned for templates whose repeat block is out of range.
var ErrInvalidTemplate = errors.New("invalid motion template")

// Template is the fixed waypoint list of a task. Waypoints[RepeatFrom:]
// form the repeat block, replayed while the sequencer asks to repeat.
type Template struct {
	Waypoints  []sequencer.Waypoint
	RepeatFrom int
}

// Validate checks that the repeat block is non-empty and in range.
func (t Template) Validate() error {
	if len(t.Waypoints) == 0 {
		return fmt.Errorf("%w: no waypoints", ErrInvalidTemplate)
	}
	if t.RepeatFrom < 0 || t.RepeatFrom >= len(t.Waypoints) {
		return fmt.Errorf("%w: repeat block starts at %d of %d", ErrInvalidTemplate, t.RepeatFrom, len(t.Waypoints))
	}
	return nil
}

// StepFunc advances the simulation one tick and reports task success.
type StepFunc func() (bool, error)

// Options tune an Executor.
type Options struct {
	StepsPerWaypoint int
	// MaxTicks bounds the executor ticks of one Run. Each tick performs at
	// most one simulation step.
	MaxTicks int
	// Effector is the scene object moved to each waypoint pose.
	Effector string
}

// Result summarizes one Run.
type Result struct {
	Success    bool
	Completed  bool
	Ticks      int
	Steps      int
	Iterations int
	Reached    []string
}

// Executor drives one episode's template. Waypoints are behavior tree
// leaves inside memorized sequences; each leaf calls Sequencer.Enter once
// before moving the effector.
type Executor struct {
	w    scene.Writer
	seq  *sequencer.Sequencer
	tmpl Template
	step StepFunc
	opts Options

	result    Result
	succeeded bool
}

// NewExecutor creates an executor. Zero options take the package defaults.
func NewExecutor(w scene.Writer, seq *sequencer.Sequencer, tmpl Template, step StepFunc, opts Options) *Executor {
	if opts.StepsPerWaypoint <= 0 {
		opts.StepsPerWaypoint = DefaultStepsPerWaypoint
	}
	if opts.MaxTicks <= 0 {
		opts.MaxTicks = DefaultMaxTicks
	}
	if opts.Effector == "" {
		opts.Effector = DefaultEffector
	}
	return &Executor{w: w, seq: seq, tmpl: tmpl, step: step, opts: opts}
}

// Run executes the template until the step callback reports success, the
// sequencer is done, MaxTicks is reached or ctx is cancelled. The
// sequencer must already be active.
func (e *Executor) Run(ctx context.Context) (Result, error) {
	if err := e.tmpl.Validate(); err != nil {
		return Result{}, err
	}
	e.result = Result{Iterations: 1}
	e.succeeded = false

	prefix := e.sequence(e.tmpl.Waypoints[:e.tmpl.RepeatFrom])
	root := bt.New(bt.Memorize(bt.Sequence), prefix, e.loop())

	for e.result.Ticks < e.opts.MaxTicks {
		if err := ctx.Err(); err != nil {
			return e.result, err
		}
		e.result.Ticks++

		status, err := root.Tick()
		if err != nil {
			return e.result, err
		}
		if e.succeeded {
			e.result.Success = true
			return e.result, nil
		}
		switch status {
		case bt.Success:
			e.result.Completed = true
			return e.result, nil
		case bt.Failure:
			return e.result, fmt.Errorf("motion failed at tick %d", e.result.Ticks)
		}
	}
	return e.result, nil
}

// loop re-ticks a fresh copy of the repeat block until Repeat says stop.
func (e *Executor) loop() bt.Node {
	block := e.sequence(e.tmpl.Waypoints[e.tmpl.RepeatFrom:])
	return bt.New(func([]bt.Node) (bt.Status, error) {
		status, err := block.Tick()
		if err != nil || status != bt.Success {
			return status, err
		}
		again, err := e.seq.Repeat()
		if err != nil {
			return bt.Failure, err
		}
		if !again {
			return bt.Success, nil
		}
		e.result.Iterations++
		block = e.sequence(e.tmpl.Waypoints[e.tmpl.RepeatFrom:])
		return bt.Running, nil
	})
}

func (e *Executor) sequence(wps []sequencer.Waypoint) bt.Node {
	leaves := make([]bt.Node, len(wps))
	for i := range wps {
		leaves[i] = e.leaf(wps[i])
	}
	return bt.New(bt.Memorize(bt.Sequence), leaves...)
}

// leaf moves the effector to wp and holds it there for StepsPerWaypoint
// simulation steps, one per tick. It succeeds on the tick after its last step.
func (e *Executor) leaf(wp sequencer.Waypoint) bt.Node {
	entered := false
	remaining := 0
	return bt.New(func([]bt.Node) (bt.Status, error) {
		if !entered {
			entered = true
			if err := e.seq.Enter(&wp); err != nil {
				return bt.Failure, err
			}
			if wp.Skip {
				events.Emit("info", "waypoint.skipped", "", map[string]interface{}{
					"waypoint": wp.Index,
					"name":     wp.Name,
				})
				return bt.Success, nil
			}
			if err := scene.SetPose(e.w, e.opts.Effector, wp.Pose); err != nil {
				return bt.Failure, fmt.Errorf("move to waypoint %d: %w", wp.Index, err)
			}
			remaining = e.opts.StepsPerWaypoint
		}

		if remaining == 0 {
			e.result.Reached = append(e.result.Reached, wp.Name)
			events.Emit("info", "waypoint.reached", "", map[string]interface{}{
				"waypoint": wp.Index,
				"name":     wp.Name,
			})
			return bt.Success, nil
		}

		ok, err := e.step()
		e.result.Steps++
		remaining--
		if err != nil {
			return bt.Failure, err
		}
		if ok {
			e.succeeded = true
		}
		return bt.Running, nil
	})
}
