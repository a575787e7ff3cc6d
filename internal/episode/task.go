// Package episode configures and tears down task episodes: it decodes the
// variation, lets the task place its objects, installs the success tree
// and arms the waypoint sequencer.
package episode

import (
	"math/rand/v2"

	"github.com/AaronLay10/EpisodeEngine/internal/condition"
	"github.com/AaronLay10/EpisodeEngine/internal/motion"
	"github.com/AaronLay10/EpisodeEngine/internal/sampler"
	"github.com/AaronLay10/EpisodeEngine/internal/scene"
	"github.com/AaronLay10/EpisodeEngine/internal/sequencer"
	"github.com/AaronLay10/EpisodeEngine/internal/variation"
)

// Env is what a task may touch. All of it belongs to a single engine
// instance.
type Env struct {
	Scene     scene.Scene
	Sampler   *sampler.Sampler
	Sequencer *sequencer.Sequencer
	Rand      *rand.Rand
}

// NewEnv wires a sampler and sequencer around s.
func NewEnv(s scene.Scene, rng *rand.Rand, opts ...sampler.Option) *Env {
	return &Env{
		Scene:     s,
		Sampler:   sampler.New(s, rng, opts...),
		Sequencer: sequencer.New(),
		Rand:      rng,
	}
}

// Setup is what a task returns for one episode.
type Setup struct {
	Descriptions []string
	Success      *condition.Node
	// TotalTarget is the number of repeat-block iterations; zero means one.
	TotalTarget int
	Observers   []condition.Observer
}

// Task is one manipulation task definition.
type Task interface {
	Name() string
	Layout() variation.Layout
	Template() motion.Template
	// Init runs once per engine: regions, abilities, repeat predicate.
	Init(env *Env) error
	// InitEpisode places objects and builds the success tree for spec.
	InitEpisode(env *Env, spec variation.Spec) (Setup, error)
	// Cleanup drops per-episode task state.
	Cleanup(env *Env)
}
