// Package tasks holds the concrete manipulation task definitions.
package tasks

import (
	"errors"
	"fmt"
	"sort"

	"github.com/AaronLay10/EpisodeEngine/internal/episode"
	"github.com/AaronLay10/EpisodeEngine/internal/sampler"
	"github.com/AaronLay10/EpisodeEngine/internal/scene"
)

// Gripper is the gripper queried by NothingGrasped conditions.
const Gripper = "gripper"

// ErrUnknownTask is returned by Lookup for unregistered names.
var ErrUnknownTask = errors.New("unknown task")

var registry = map[string]func() episode.Task{
	"close_jar_banana":   func() episode.Task { return &CloseJarBanana{} },
	"condition_block":    func() episode.Task { return &ConditionBlock{} },
	"push_buttons_light": func() episode.Task { return &PushButtonsLight{} },
	"stack_cups_blocks":  func() episode.Task { return &StackCupsBlocks{} },
}

// Lookup returns a fresh instance of the named task.
func Lookup(name string) (episode.Task, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return f(), nil
}

// Names returns the registered task names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fixture is a scene object a task expects to exist before its first
// episode. A positive Radius makes it a proximity sensor.
type Fixture struct {
	Name   string
	Pose   scene.Pose
	Radius float64
}

// Fixtured is implemented by tasks that can describe their default scene.
type Fixtured interface {
	Fixtures() []Fixture
}

// Seed adds the task's fixtures to m, keeping objects that already exist.
func Seed(m *scene.Memory, t episode.Task) {
	f, ok := t.(Fixtured)
	if !ok {
		return
	}
	for _, fx := range f.Fixtures() {
		if m.Exists(fx.Name) {
			continue
		}
		if fx.Radius > 0 {
			m.AddSensor(fx.Name, fx.Pose.Position, fx.Radius)
			continue
		}
		m.AddObject(fx.Name, fx.Pose)
	}
}

// ensureRegion registers r unless a region of that name was configured.
func ensureRegion(env *episode.Env, r sampler.Region) error {
	if _, ok := env.Sampler.Region(r.Name); ok {
		return nil
	}
	return env.Sampler.AddRegion(r)
}

func paint(w scene.Writer, c scene.RGB, names ...string) error {
	for _, name := range names {
		if err := w.SetColor(name, c); err != nil {
			return fmt.Errorf("color %s: %w", name, err)
		}
	}
	return nil
}

func indexed(format string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf(format, i)
	}
	return out
}

func at(p scene.Vec3) scene.Pose {
	return scene.Pose{Position: p}
}

// table returns a flat box at table height.
func table(x0, y0, x1, y1 float64) sampler.Box {
	return sampler.Box{
		Min: scene.Vec3{X: x0, Y: y0, Z: tableZ},
		Max: scene.Vec3{X: x1, Y: y1, Z: tableZ},
	}
}

const tableZ = 0.752
