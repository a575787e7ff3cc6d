package tasks

import (
	"fmt"
	"math"

	"github.com/AaronLay10/EpisodeEngine/internal/condition"
	"github.com/AaronLay10/EpisodeEngine/internal/episode"
	"github.com/AaronLay10/EpisodeEngine/internal/motion"
	"github.com/AaronLay10/EpisodeEngine/internal/palette"
	"github.com/AaronLay10/EpisodeEngine/internal/sampler"
	"github.com/AaronLay10/EpisodeEngine/internal/scene"
	"github.com/AaronLay10/EpisodeEngine/internal/sequencer"
	"github.com/AaronLay10/EpisodeEngine/internal/variation"
)

const (
	maxStackedBlocks   = 2
	stackSuccess       = "stack_blocks_success"
	stackPlane         = "stack_blocks_target_plane"
	stackBoundaries    = "stack_blocks_boundaries"
	blockSeparation    = 0.1
	dropBaseHeight     = 0.08 + 0.05
	dropLayerHeight    = 0.06
	indicatorBlockName = "stack_blocks_distractor0"
)

var (
	stackTargets     = indexed("stack_blocks_target%d", 4)
	stackDistractors = indexed("stack_blocks_distractor%d", 4)

	indicatorBlue   = scene.RGB{B: 1}
	indicatorYellow = scene.RGB{R: 1, G: 1}
)

// ConditionBlock: stack N blocks of one color; if the indicator block is
// blue it goes on top as well. The blue flag is its own variation digit.
type ConditionBlock struct {
	toStack int
	blue    bool
}

func (t *ConditionBlock) Name() string { return "condition_block" }

func (t *ConditionBlock) Layout() variation.Layout {
	return variation.NewLayout(
		variation.Colors(len(palette.Stacking)),
		variation.Targets(1, maxStackedBlocks),
		variation.Flag("blue"),
	)
}

var conditionBlockTemplate = motion.Template{Waypoints: []sequencer.Waypoint{
	{Index: 0, Name: "pre_grasp", Pose: scene.Pose{Position: scene.Vec3{X: 0.25, Z: 1.1}, Orientation: scene.Vec3{X: math.Pi, Z: math.Pi}}},
	{Index: 1, Name: "above_target", Pose: scene.Pose{Orientation: scene.Vec3{X: math.Pi}}},
	{Index: 2, Name: "lift", Pose: scene.Pose{Position: scene.Vec3{X: 0.25, Z: 1.0}, Orientation: scene.Vec3{X: math.Pi}}},
	{Index: 3, Name: "above_drop_zone", Pose: scene.Pose{Orientation: scene.Vec3{X: math.Pi}}},
	{Index: 4, Name: "release", Pose: scene.Pose{Position: scene.Vec3{X: 0.25, Z: 1.0}, Orientation: scene.Vec3{X: math.Pi}}},
	{Index: 5, Name: "retreat", Pose: scene.Pose{Position: scene.Vec3{X: 0.25, Z: 1.1}, Orientation: scene.Vec3{X: math.Pi}}},
}}

func (t *ConditionBlock) Template() motion.Template {
	return conditionBlockTemplate
}

func (t *ConditionBlock) Fixtures() []Fixture {
	plane := scene.Vec3{X: 0.3, Y: 0, Z: tableZ}
	return []Fixture{
		{Name: stackPlane, Pose: at(plane)},
		{Name: stackSuccess, Pose: at(plane.Add(scene.Vec3{Z: 0.05})), Radius: 0.12},
	}
}

func (t *ConditionBlock) Init(env *episode.Env) error {
	err := ensureRegion(env, sampler.Region{
		Name: stackBoundaries,
		Boxes: []sampler.Box{
			table(-0.1, -0.45, 0.15, -0.2),
			table(0.45, -0.45, 0.7, -0.2),
			table(-0.1, 0.2, 0.15, 0.45),
			table(0.45, 0.2, 0.7, 0.45),
		},
	})
	if err != nil {
		return err
	}

	env.Sequencer.Register(1, sequencer.Ability{Pose: func(st sequencer.State) (scene.Pose, error) {
		return t.aboveNextTarget(env, st)
	}})
	env.Sequencer.Register(3, sequencer.Ability{Pose: func(st sequencer.State) (scene.Pose, error) {
		plane, err := env.Scene.Position(stackPlane)
		if err != nil {
			return scene.Pose{}, err
		}
		z := plane.Z + dropBaseHeight + dropLayerHeight*float64(st.RepeatCount)
		return scene.Pose{
			Position:    scene.Vec3{X: plane.X, Y: plane.Y, Z: z},
			Orientation: conditionBlockTemplate.Waypoints[3].Pose.Orientation,
		}, nil
	}})
	env.Sequencer.Register(5, sequencer.Ability{Skip: sequencer.State.Last})
	return nil
}

// aboveNextTarget points the gripper at target block k on iteration k, and
// at the indicator block on the extra iteration of a blue episode.
func (t *ConditionBlock) aboveNextTarget(env *episode.Env, st sequencer.State) (scene.Pose, error) {
	var block string
	switch {
	case st.RepeatCount < t.toStack:
		block = stackTargets[st.RepeatCount]
	case st.RepeatCount == t.toStack && t.blue:
		block = indicatorBlockName
	default:
		return scene.Pose{}, fmt.Errorf("%w: no block for iteration %d", sequencer.ErrSequencingOverrun, st.RepeatCount)
	}

	p, err := env.Scene.Position(block)
	if err != nil {
		return scene.Pose{}, err
	}
	o, err := env.Scene.Orientation(block)
	if err != nil {
		return scene.Pose{}, err
	}
	base := conditionBlockTemplate.Waypoints[1].Pose.Orientation
	return scene.Pose{
		Position:    p,
		Orientation: scene.Vec3{X: base.X, Y: base.Y, Z: -o.Z},
	}, nil
}

func (t *ConditionBlock) InitEpisode(env *episode.Env, spec variation.Spec) (episode.Setup, error) {
	color, err := palette.Stacking.At(spec.ColorIndex)
	if err != nil {
		return episode.Setup{}, err
	}
	t.toStack = spec.TargetCount
	t.blue = spec.Flag("blue")

	if err := paint(env.Scene, color.RGB, stackTargets...); err != nil {
		return episode.Setup{}, err
	}
	others, err := palette.Stacking.ChooseDistinct(env.Rand, []int{spec.ColorIndex}, 1)
	if err != nil {
		return episode.Setup{}, err
	}
	if err := paint(env.Scene, palette.Stacking[others[0]].RGB, stackDistractors[1:]...); err != nil {
		return episode.Setup{}, err
	}

	stacked, err := condition.DetectedCount(stackTargets, stackSuccess, t.toStack)
	if err != nil {
		return episode.Setup{}, err
	}

	var success *condition.Node
	total := t.toStack
	if t.blue {
		if err := paint(env.Scene, indicatorBlue, indicatorBlockName); err != nil {
			return episode.Setup{}, err
		}
		indicator, err := condition.DetectedCount([]string{indicatorBlockName}, stackSuccess, 1)
		if err != nil {
			return episode.Setup{}, err
		}
		success, err = condition.Set(condition.And, true, stacked, indicator, condition.NothingGrasped(Gripper))
		if err != nil {
			return episode.Setup{}, err
		}
		total++
	} else {
		if err := paint(env.Scene, indicatorYellow, indicatorBlockName); err != nil {
			return episode.Setup{}, err
		}
		success, err = condition.Set(condition.And, false, stacked, condition.NothingGrasped(Gripper))
		if err != nil {
			return episode.Setup{}, err
		}
	}

	for _, block := range append(append([]string(nil), stackTargets...), stackDistractors...) {
		if _, err := env.Sampler.Sample(sampler.Request{Object: block, Region: stackBoundaries, MinDistance: blockSeparation}); err != nil {
			return episode.Setup{}, err
		}
	}

	return episode.Setup{
		Descriptions: []string{
			fmt.Sprintf("stack %d %s blocks and if blue block exists, add this blue block", t.toStack, color.Name),
			fmt.Sprintf("build a tall tower out of %d %s cubes, and add a blue block if it exists", t.toStack, color.Name),
		},
		Success:     success,
		TotalTarget: total,
	}, nil
}

func (t *ConditionBlock) Cleanup(*episode.Env) {
	t.toStack = 0
	t.blue = false
}
