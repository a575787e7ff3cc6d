package episode

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/AaronLay10/EpisodeEngine/internal/condition"
	"github.com/AaronLay10/EpisodeEngine/internal/events"
	"github.com/AaronLay10/EpisodeEngine/internal/motion"
	"github.com/AaronLay10/EpisodeEngine/internal/sequencer"
	"github.com/AaronLay10/EpisodeEngine/internal/variation"
)

var (
	// ErrNoEpisode is returned by Step before a successful InitEpisode.
	ErrNoEpisode = errors.New("no episode configured")
	// ErrTaskNotInitialized is returned by InitEpisode before InitTask.
	ErrTaskNotInitialized = errors.New("task not initialized")
)

// Controller runs the episode lifecycle of one task. It is not safe for
// concurrent use.
type Controller struct {
	task Task
	env  *Env

	ready     bool
	episodeID string
	index     int
	spec      *variation.Spec
	tree      *condition.Tree
	succeeded bool
}

// NewController creates a controller for task over env.
func NewController(task Task, env *Env) *Controller {
	return &Controller{task: task, env: env}
}

// InitTask validates the task layout and template and runs the task's
// one-time setup.
func (c *Controller) InitTask() error {
	if err := c.task.Layout().Validate(); err != nil {
		return fmt.Errorf("%s: %w", c.task.Name(), err)
	}
	if err := c.task.Template().Validate(); err != nil {
		return fmt.Errorf("%s: %w", c.task.Name(), err)
	}
	if err := c.task.Init(c.env); err != nil {
		return fmt.Errorf("%s init: %w", c.task.Name(), err)
	}
	c.ready = true
	return nil
}

// InitEpisode configures the episode for a variation index and returns its
// goal descriptions. On any error the controller is left without an
// episode and episode.failed is emitted.
func (c *Controller) InitEpisode(index int) ([]string, error) {
	if !c.ready {
		return nil, ErrTaskNotInitialized
	}
	if c.tree != nil || c.env.Sequencer.Phase() != sequencer.PhaseIdle {
		c.Cleanup()
	}

	c.episodeID = uuid.NewString()
	c.index = index
	c.emitEvent("info", "episode.started", nil)

	spec, err := variation.Decode(index, c.task.Layout())
	if err != nil {
		return nil, c.fail(err)
	}

	c.env.Sampler.Clear()
	setup, err := c.task.InitEpisode(c.env, spec)
	if err != nil {
		return nil, c.fail(err)
	}

	tree, err := condition.NewTree(setup.Success, setup.Observers...)
	if err != nil {
		return nil, c.fail(err)
	}

	total := setup.TotalTarget
	if total == 0 {
		total = 1
	}
	if err := c.env.Sequencer.Begin(total); err != nil {
		return nil, c.fail(err)
	}

	c.spec = &spec
	c.tree = tree
	c.succeeded = false

	c.emitEvent("info", "episode.configured", map[string]interface{}{
		"color_index":  spec.ColorIndex,
		"target_count": spec.TargetCount,
		"total_target": total,
		"success":      setup.Success.String(),
		"descriptions": len(setup.Descriptions),
	})
	return setup.Descriptions, nil
}

func (c *Controller) fail(err error) error {
	c.emitEvent("error", "episode.failed", map[string]interface{}{
		"error": err.Error(),
	})
	c.task.Cleanup(c.env)
	c.reset()
	return fmt.Errorf("%s variation %d: %w", c.task.Name(), c.index, err)
}

// Step evaluates the success tree for one simulation tick.
func (c *Controller) Step() (bool, error) {
	if c.tree == nil {
		return false, ErrNoEpisode
	}
	met := c.tree.Tick(c.env.Scene)
	if met && !c.succeeded {
		c.succeeded = true
		c.emitEvent("info", "episode.succeeded", nil)
	}
	return met, nil
}

// Cleanup discards all episode state. It is safe to call at any time.
func (c *Controller) Cleanup() {
	c.task.Cleanup(c.env)
	if c.episodeID != "" {
		c.emitEvent("info", "episode.cleanup", map[string]interface{}{
			"succeeded": c.succeeded,
		})
	}
	c.reset()
}

func (c *Controller) reset() {
	c.env.Sequencer.Reset()
	c.env.Sampler.Clear()
	if c.tree != nil {
		c.tree.Reset()
	}
	c.tree = nil
	c.spec = nil
	c.succeeded = false
}

// Executor returns a motion executor for the current episode.
func (c *Controller) Executor(opts motion.Options) *motion.Executor {
	return motion.NewExecutor(c.env.Scene, c.env.Sequencer, c.task.Template(), c.Step, opts)
}

// VariationCount is the number of valid variation indices.
func (c *Controller) VariationCount() int {
	return c.task.Layout().Count()
}

// Template returns the task's waypoint template.
func (c *Controller) Template() motion.Template {
	return c.task.Template()
}

// Sequencer returns the episode's sequencer.
func (c *Controller) Sequencer() *sequencer.Sequencer {
	return c.env.Sequencer
}

// Spec returns the decoded variation of the current episode.
func (c *Controller) Spec() (variation.Spec, bool) {
	if c.spec == nil {
		return variation.Spec{}, false
	}
	return *c.spec, true
}

// EpisodeID identifies the current or last episode in emitted events.
func (c *Controller) EpisodeID() string {
	return c.episodeID
}

// Succeeded reports whether the success tree has been met this episode.
func (c *Controller) Succeeded() bool {
	return c.succeeded
}

func (c *Controller) emitEvent(level, name string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["episode_id"] = c.episodeID
	fields["task"] = c.task.Name()
	fields["variation"] = c.index
	events.Emit(level, name, "", fields)
}
