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
	jarLid        = "jar_lid0"
	banana        = "banana"
	jarSuccess    = "success"
	jarBoundary0  = "spawn_boundary0"
	jarBoundary1  = "spawn_boundary1"
	jarSeparation = 0.01
)

var jars = indexed("jar%d", 2)

// CloseJarBanana: close the jar that is closer to the banana. Variation 0
// targets jar0 (spawned in boundary1), variation 1 targets jar1 (boundary0).
type CloseJarBanana struct {
	closer [2]sampler.Constraint // closer[i]: candidate nearer jars[i]
	target string
}

func (t *CloseJarBanana) Name() string { return "close_jar_banana" }

func (t *CloseJarBanana) Layout() variation.Layout {
	return variation.NewLayout(variation.Flag("second_jar"))
}

func (t *CloseJarBanana) Template() motion.Template {
	return motion.Template{Waypoints: []sequencer.Waypoint{
		{Index: 0, Name: "above_lid"},
		{Index: 1, Name: "grasp_lid"},
		{Index: 2, Name: "lift_lid"},
		{Index: 3, Name: "above_jar"},
		{Index: 4, Name: "screw_lid"},
	}}
}

func (t *CloseJarBanana) Fixtures() []Fixture {
	return []Fixture{
		{Name: jarLid, Pose: at(scene.Vec3{X: 0.25, Y: 0, Z: tableZ})},
		{Name: jarSuccess, Radius: 0.03},
	}
}

func (t *CloseJarBanana) Init(env *episode.Env) error {
	for _, r := range []sampler.Region{
		{Name: jarBoundary0, Boxes: []sampler.Box{table(0.0, -0.35, 0.3, -0.05)}},
		{Name: jarBoundary1, Boxes: []sampler.Box{table(0.0, 0.05, 0.3, 0.35)}},
	} {
		if err := ensureRegion(env, r); err != nil {
			return err
		}
	}

	for i := range jars {
		c, err := sampler.CompileConstraint(
			fmt.Sprintf(`Dist(%q) < Dist(%q)`, jars[i], jars[1-i]), env.Scene)
		if err != nil {
			return err
		}
		t.closer[i] = c
	}

	down := scene.Vec3{X: -math.Pi, Z: -math.Pi}
	lidOffset := func(dz float64) func(sequencer.State) (scene.Pose, error) {
		return func(sequencer.State) (scene.Pose, error) {
			p, err := env.Scene.Position(jarLid)
			return scene.Pose{Position: p.Add(scene.Vec3{Z: dz}), Orientation: down}, err
		}
	}
	env.Sequencer.Register(0, sequencer.Ability{Pose: lidOffset(0.1)})
	env.Sequencer.Register(1, sequencer.Ability{Pose: lidOffset(0)})
	env.Sequencer.Register(2, sequencer.Ability{Pose: lidOffset(0.15)})
	env.Sequencer.Register(3, sequencer.Ability{Pose: t.jarOffset(env, 0.125, down)})
	env.Sequencer.Register(4, sequencer.Ability{Pose: t.jarOffset(env, 0.08, down)})
	return nil
}

func (t *CloseJarBanana) jarOffset(env *episode.Env, dz float64, o scene.Vec3) func(sequencer.State) (scene.Pose, error) {
	return func(sequencer.State) (scene.Pose, error) {
		if t.target == "" {
			return scene.Pose{}, fmt.Errorf("no target jar")
		}
		p, err := env.Scene.Position(t.target)
		return scene.Pose{Position: p.Add(scene.Vec3{Z: dz}), Orientation: o}, err
	}
}

func (t *CloseJarBanana) InitEpisode(env *episode.Env, spec variation.Spec) (episode.Setup, error) {
	if _, err := env.Sampler.Sample(sampler.Request{Object: jars[0], Region: jarBoundary1, MinDistance: jarSeparation}); err != nil {
		return episode.Setup{}, err
	}
	if _, err := env.Sampler.Sample(sampler.Request{Object: jars[1], Region: jarBoundary0, MinDistance: jarSeparation}); err != nil {
		return episode.Setup{}, err
	}

	target, region := 0, jarBoundary1
	if spec.Flag("second_jar") {
		target, region = 1, jarBoundary0
	}
	if _, err := env.Sampler.Sample(sampler.Request{
		Object:      banana,
		Region:      region,
		MinDistance: jarSeparation,
		Constraint:  t.closer[target],
	}); err != nil {
		return episode.Setup{}, err
	}

	picks, err := palette.Standard.ChooseDistinct(env.Rand, nil, 2)
	if err != nil {
		return episode.Setup{}, err
	}
	if err := paint(env.Scene, palette.Standard[picks[0]].RGB, jars[target]); err != nil {
		return episode.Setup{}, err
	}
	if err := paint(env.Scene, palette.Standard[picks[1]].RGB, jars[1-target]); err != nil {
		return episode.Setup{}, err
	}

	t.target = jars[target]
	jarPos, err := env.Scene.Position(t.target)
	if err != nil {
		return episode.Setup{}, err
	}
	if err := env.Scene.SetPosition(jarSuccess, jarPos.Add(scene.Vec3{Z: 0.05})); err != nil {
		return episode.Setup{}, err
	}

	return episode.Setup{
		Descriptions: []string{
			"close the jar closer to the banana",
			"screw on the jar lid that is closest to the banana",
			"grasping the lid, lift it from the table and use it to seal the jar closer to the banana",
			"pick up the lid from the table and put it on the jar closest to the banana",
		},
		Success: condition.Detected(jarLid, jarSuccess),
	}, nil
}

func (t *CloseJarBanana) Cleanup(*episode.Env) {
	t.target = ""
}
