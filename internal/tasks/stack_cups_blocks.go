package tasks

import (
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
	cupBoundary    = "boundary"
	cupSuccess     = "success"
	cupSeparation  = 0.05
	cupDistractors = 4
)

// StackCupsBlocks: the color shared by most blocks names the base cup; the
// other two cups go on top of it.
type StackCupsBlocks struct{}

func (t *StackCupsBlocks) Name() string { return "stack_cups_blocks" }

func (t *StackCupsBlocks) Layout() variation.Layout {
	return variation.NewLayout(variation.Colors(len(palette.Standard)))
}

// Both outer cups are carried onto cup2.
func (t *StackCupsBlocks) Template() motion.Template {
	return motion.Template{Waypoints: []sequencer.Waypoint{
		{Index: 0, Name: "above_cup1"},
		{Index: 1, Name: "grasp_cup1"},
		{Index: 2, Name: "above_base_1"},
		{Index: 3, Name: "release_cup1"},
		{Index: 4, Name: "above_cup3"},
		{Index: 5, Name: "grasp_cup3"},
		{Index: 6, Name: "above_base_2"},
		{Index: 7, Name: "release_cup3"},
	}}
}

func (t *StackCupsBlocks) Fixtures() []Fixture {
	return []Fixture{{Name: cupSuccess, Radius: 0.06}}
}

func (t *StackCupsBlocks) Init(env *episode.Env) error {
	err := ensureRegion(env, sampler.Region{
		Name:  cupBoundary,
		Boxes: []sampler.Box{table(-0.05, -0.35, 0.45, 0.35)},
	})
	if err != nil {
		return err
	}

	over := func(obj string, dz float64) func(sequencer.State) (scene.Pose, error) {
		return func(sequencer.State) (scene.Pose, error) {
			p, err := env.Scene.Position(obj)
			return at(p.Add(scene.Vec3{Z: dz})), err
		}
	}
	for i, cup := range []string{"cup1", "cup3"} {
		base := i * 4
		env.Sequencer.Register(base+0, sequencer.Ability{Pose: over(cup, 0.15)})
		env.Sequencer.Register(base+1, sequencer.Ability{Pose: over(cup, 0.05)})
		env.Sequencer.Register(base+2, sequencer.Ability{Pose: over("cup2", 0.2)})
		env.Sequencer.Register(base+3, sequencer.Ability{Pose: over("cup2", 0.1)})
	}
	return nil
}

func (t *StackCupsBlocks) InitEpisode(env *episode.Env, spec variation.Spec) (episode.Setup, error) {
	target, err := palette.Standard.At(spec.ColorIndex)
	if err != nil {
		return episode.Setup{}, err
	}
	others, err := palette.Standard.ChooseEach(env.Rand, []int{spec.ColorIndex}, 2)
	if err != nil {
		return episode.Setup{}, err
	}
	other1, other2 := palette.Standard[others[0]].RGB, palette.Standard[others[1]].RGB

	if err := paint(env.Scene, target.RGB, "cup2_visual"); err != nil {
		return episode.Setup{}, err
	}
	if err := paint(env.Scene, other1, "cup1_visual"); err != nil {
		return episode.Setup{}, err
	}
	if err := paint(env.Scene, other2, "cup3_visual"); err != nil {
		return episode.Setup{}, err
	}

	upright := scene.Vec3{}
	env.Sampler.Clear()
	for _, cup := range []string{"cup2", "cup1", "cup3"} {
		if _, err := env.Sampler.Sample(sampler.Request{
			Object:      cup,
			Region:      cupBoundary,
			MinDistance: cupSeparation,
			RotationMin: &upright,
			RotationMax: &upright,
		}); err != nil {
			return episode.Setup{}, err
		}
	}

	blocks := indexed("stack_blocks_distractor%d", cupDistractors)
	if err := paint(env.Scene, target.RGB, blocks[:cupDistractors-1]...); err != nil {
		return episode.Setup{}, err
	}
	if err := paint(env.Scene, other2, blocks[cupDistractors-1]); err != nil {
		return episode.Setup{}, err
	}
	for _, block := range blocks {
		if _, err := env.Sampler.Sample(sampler.Request{Object: block, Region: cupBoundary, MinDistance: 0.1}); err != nil {
			return episode.Setup{}, err
		}
	}

	base, err := env.Scene.Position("cup2")
	if err != nil {
		return episode.Setup{}, err
	}
	if err := env.Scene.SetPosition(cupSuccess, base.Add(scene.Vec3{Z: 0.05})); err != nil {
		return episode.Setup{}, err
	}

	success, err := condition.Set(condition.And, false,
		condition.Detected("cup1", cupSuccess),
		condition.Detected("cup3", cupSuccess),
		condition.NothingGrasped(Gripper),
	)
	if err != nil {
		return episode.Setup{}, err
	}

	return episode.Setup{
		Descriptions: []string{
			"identify the color with the most blocks, choose that color for the base cup, and stack the other cups on top of it.",
		},
		Success: success,
	}, nil
}

func (t *StackCupsBlocks) Cleanup(*episode.Env) {}
