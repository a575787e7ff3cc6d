// Package sequencer unrolls a fixed waypoint template into a motion plan
// whose length depends on per-episode counters.
package sequencer

import (
	"errors"
	"fmt"

	"github.com/AaronLay10/EpisodeEngine/internal/events"
	"github.com/AaronLay10/EpisodeEngine/internal/scene"
)

var (
	// ErrSequencingOverrun is returned when an ability fires after the
	// declared number of iterations has been consumed.
	ErrSequencingOverrun = errors.New("sequencing overrun")
	// ErrInvalidTransition is returned for calls that are not valid in the
	// current phase.
	ErrInvalidTransition = errors.New("invalid sequencer transition")
)

// Phase is the lifecycle state of a sequencer.
type Phase string

const (
	PhaseIdle   Phase = "idle"
	PhaseActive Phase = "active"
	PhaseDone   Phase = "done"
)

// State holds the per-episode counters passed to every hook.
type State struct {
	RepeatCount int
	TotalTarget int
}

// Last reports whether the current iteration is the final one.
func (s State) Last() bool {
	return s.RepeatCount == s.TotalTarget-1
}

// Waypoint is one entry of a motion template. Abilities may rewrite Pose
// and Skip right before the waypoint is consumed.
type Waypoint struct {
	Index int
	Name  string
	Pose  scene.Pose
	Skip  bool
}

// Ability is the set of hooks registered on a waypoint index.
type Ability struct {
	Pose func(State) (scene.Pose, error)
	Skip func(State) bool
}

// RepeatFunc decides at the end of the repeat block whether to loop again.
type RepeatFunc func(State) bool

// DefaultRepeat loops until TotalTarget iterations have run.
func DefaultRepeat(s State) bool {
	return s.RepeatCount+1 < s.TotalTarget
}

// Sequencer owns one episode's counters. It is not safe for concurrent use;
// episodes running in parallel each need their own.
type Sequencer struct {
	abilities map[int]Ability
	repeat    RepeatFunc
	phase     Phase
	state     State
}

// New creates an idle sequencer with the default repeat predicate.
func New() *Sequencer {
	return &Sequencer{
		abilities: make(map[int]Ability),
		repeat:    DefaultRepeat,
		phase:     PhaseIdle,
	}
}

// Register installs the ability for a waypoint index, replacing any previous one.
func (s *Sequencer) Register(index int, a Ability) {
	s.abilities[index] = a
}

// SetRepeat replaces the repeat predicate; nil restores DefaultRepeat.
func (s *Sequencer) SetRepeat(f RepeatFunc) {
	if f == nil {
		f = DefaultRepeat
	}
	s.repeat = f
}

// Phase returns the current phase.
func (s *Sequencer) Phase() Phase {
	return s.phase
}

// State returns a copy of the counters.
func (s *Sequencer) State() State {
	return s.state
}

// Begin moves an idle sequencer to Active with RepeatCount 0.
func (s *Sequencer) Begin(total int) error {
	if s.phase != PhaseIdle {
		return fmt.Errorf("%w: begin from %s", ErrInvalidTransition, s.phase)
	}
	if total < 1 {
		return fmt.Errorf("%w: total target %d", ErrInvalidTransition, total)
	}
	s.state = State{RepeatCount: 0, TotalTarget: total}
	s.phase = PhaseActive
	events.Emit("info", "sequencer.started", "", map[string]interface{}{
		"total_target": total,
	})
	return nil
}

// Enter runs the ability registered for wp.Index, if any, rewriting wp in
// place. It must be called before the waypoint is consumed.
func (s *Sequencer) Enter(wp *Waypoint) error {
	if s.phase != PhaseActive {
		return fmt.Errorf("%w: enter waypoint %d while %s", ErrInvalidTransition, wp.Index, s.phase)
	}
	a, ok := s.abilities[wp.Index]
	if !ok {
		return nil
	}

	if s.state.RepeatCount >= s.state.TotalTarget {
		events.Emit("error", "sequencer.overrun", "", map[string]interface{}{
			"waypoint":     wp.Index,
			"repeat_count": s.state.RepeatCount,
			"total_target": s.state.TotalTarget,
		})
		return fmt.Errorf("%w: waypoint %d at iteration %d of %d",
			ErrSequencingOverrun, wp.Index, s.state.RepeatCount, s.state.TotalTarget)
	}

	if a.Pose != nil {
		pose, err := a.Pose(s.state)
		if err != nil {
			return fmt.Errorf("waypoint %d pose: %w", wp.Index, err)
		}
		wp.Pose = pose
	}
	if a.Skip != nil {
		wp.Skip = a.Skip(s.state)
	}

	events.Emit("info", "waypoint.entered", "", map[string]interface{}{
		"waypoint":     wp.Index,
		"name":         wp.Name,
		"repeat_count": s.state.RepeatCount,
		"skip":         wp.Skip,
	})
	return nil
}

// Repeat evaluates the repeat predicate at the end of the repeat block.
// It returns true after incrementing RepeatCount, or false after moving to Done.
func (s *Sequencer) Repeat() (bool, error) {
	if s.phase != PhaseActive {
		return false, fmt.Errorf("%w: repeat while %s", ErrInvalidTransition, s.phase)
	}
	if s.repeat(s.state) {
		s.state.RepeatCount++
		events.Emit("info", "sequencer.repeat", "", map[string]interface{}{
			"repeat_count": s.state.RepeatCount,
			"total_target": s.state.TotalTarget,
		})
		return true, nil
	}
	s.phase = PhaseDone
	events.Emit("info", "sequencer.done", "", map[string]interface{}{
		"iterations": s.state.RepeatCount + 1,
	})
	return false, nil
}

// Reset returns to Idle and zeroes the counters. Abilities stay registered.
func (s *Sequencer) Reset() {
	s.phase = PhaseIdle
	s.state = State{}
}
