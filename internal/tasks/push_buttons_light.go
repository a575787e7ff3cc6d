package tasks

import (
	"math"

	"github.com/AaronLay10/EpisodeEngine/internal/condition"
	"github.com/AaronLay10/EpisodeEngine/internal/episode"
	"github.com/AaronLay10/EpisodeEngine/internal/events"
	"github.com/AaronLay10/EpisodeEngine/internal/motion"
	"github.com/AaronLay10/EpisodeEngine/internal/palette"
	"github.com/AaronLay10/EpisodeEngine/internal/sampler"
	"github.com/AaronLay10/EpisodeEngine/internal/scene"
	"github.com/AaronLay10/EpisodeEngine/internal/sequencer"
	"github.com/AaronLay10/EpisodeEngine/internal/variation"
)

const (
	maxTargetButtons  = 1
	maxButtonVariants = 50
	buttonCount       = 3
	buttonBoundary    = "push_buttons_boundary"
	buttonPressed     = 0.001
	buttonHover       = 0.083
	colorBulb         = "color_bulb"
	lightBulb         = "light_bulb"
)

var (
	buttons      = indexed("push_buttons_target%d", buttonCount)
	buttonPlates = indexed("target_button_topPlate%d", buttonCount)
	buttonWraps  = indexed("target_button_wrap%d", buttonCount)
	buttonJoints = indexed("target_button_joint%d", buttonCount)

	unpressed = scene.RGB{R: 1}
	pressed   = scene.RGB{G: 1}
)

// PushButtonsLight: push the button whose color matches the light bulb.
// Plates and wraps turn from red to green once their button is pressed.
type PushButtonsLight struct {
	toPush int
}

func (t *PushButtonsLight) Name() string { return "push_buttons_light" }

func (t *PushButtonsLight) Layout() variation.Layout {
	return variation.NewLayout(
		variation.Colors(len(palette.Buttons)),
		variation.Targets(1, maxTargetButtons),
	).WithCap(maxButtonVariants)
}

func (t *PushButtonsLight) Template() motion.Template {
	return motion.Template{Waypoints: []sequencer.Waypoint{
		{Index: 0, Name: "above_button"},
		{Index: 1, Name: "press"},
		{Index: 2, Name: "release"},
	}}
}

func (t *PushButtonsLight) Fixtures() []Fixture {
	return []Fixture{{Name: colorBulb, Pose: at(scene.Vec3{X: 0.5, Z: tableZ})}}
}

func (t *PushButtonsLight) Init(env *episode.Env) error {
	err := ensureRegion(env, sampler.Region{
		Name:  buttonBoundary,
		Boxes: []sampler.Box{table(0.0, -0.3, 0.4, 0.3)},
	})
	if err != nil {
		return err
	}

	above := func(dz float64) func(sequencer.State) (scene.Pose, error) {
		return func(st sequencer.State) (scene.Pose, error) {
			p, err := env.Scene.Position(buttons[st.RepeatCount])
			return scene.Pose{
				Position:    p.Add(scene.Vec3{Z: dz}),
				Orientation: scene.Vec3{X: math.Pi, Z: math.Pi},
			}, err
		}
	}
	env.Sequencer.Register(0, sequencer.Ability{Pose: above(buttonHover)})
	env.Sequencer.Register(1, sequencer.Ability{Pose: above(buttonHover / 4)})
	env.Sequencer.Register(2, sequencer.Ability{Pose: above(buttonHover)})
	return nil
}

func (t *PushButtonsLight) InitEpisode(env *episode.Env, spec variation.Spec) (episode.Setup, error) {
	if err := paint(env.Scene, unpressed, append(append([]string(nil), buttonPlates...), buttonWraps...)...); err != nil {
		return episode.Setup{}, err
	}

	color, err := palette.Buttons.At(spec.ColorIndex)
	if err != nil {
		return episode.Setup{}, err
	}
	t.toPush = spec.TargetCount
	if err := paint(env.Scene, color.RGB, append(append([]string(nil), buttons...), colorBulb)...); err != nil {
		return episode.Setup{}, err
	}

	goals := make([]*condition.Node, t.toPush)
	for i := range goals {
		goals[i] = condition.JointPosition(buttonJoints[i], buttonPressed, false)
	}
	success, err := condition.Set(condition.And, true, goals...)
	if err != nil {
		return episode.Setup{}, err
	}

	for _, obj := range append(append([]string(nil), buttons...), lightBulb) {
		if _, err := env.Sampler.Sample(sampler.Request{Object: obj, Region: buttonBoundary, MinDistance: 0.1}); err != nil {
			return episode.Setup{}, err
		}
	}

	spare, err := palette.Buttons.ChooseDistinct(env.Rand, []int{spec.ColorIndex}, buttonCount-t.toPush)
	if err != nil {
		return episode.Setup{}, err
	}
	for i, idx := range spare {
		if err := paint(env.Scene, palette.Buttons[idx].RGB, buttons[t.toPush+i]); err != nil {
			return episode.Setup{}, err
		}
	}

	return episode.Setup{
		Descriptions: []string{
			"push the button with the same color as the light",
			"press the button with the color of the light",
			"press the button with the same color as the light",
		},
		Success:     success,
		TotalTarget: t.toPush,
		Observers:   []condition.Observer{lightPressed(env.Scene)},
	}, nil
}

// lightPressed turns a button's plate and wrap green while its joint is down.
// The first failed write of the episode is reported as system.error.
func lightPressed(w scene.Writer) condition.Observer {
	reported := false
	return func(s scene.Sensors) {
		for i, joint := range buttonJoints {
			if s.JointDisplacement(joint) <= buttonPressed {
				continue
			}
			err := paint(w, pressed, buttonPlates[i], buttonWraps[i])
			if err != nil && !reported {
				reported = true
				events.Emit("error", "system.error", "failed to light pressed button", map[string]interface{}{
					"button": buttons[i],
					"error":  err.Error(),
				})
			}
		}
	}
}

func (t *PushButtonsLight) Cleanup(*episode.Env) {
	t.toPush = 0
}
