package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/AaronLay10/EpisodeEngine/internal/sampler"
	"github.com/AaronLay10/EpisodeEngine/internal/scene"
)

const (
	DefaultRetryCeiling     = sampler.DefaultRetryCeiling
	DefaultStepsPerWaypoint = 1
	DefaultMaxTicks         = 500
	DefaultMQTTPrefix       = "episodes"
	DefaultBenchID          = "bench0"
)

type SensorConfig struct {
	Position scene.Vec3 `yaml:"position"`
	Radius   float64    `yaml:"radius"`
}

type RegionConfig struct {
	Boxes       []sampler.Box `yaml:"boxes"`
	RotationMin *scene.Vec3   `yaml:"rotation_min"`
	RotationMax *scene.Vec3   `yaml:"rotation_max"`
}

type EngineConfig struct {
	Version int `yaml:"version"`
	Engine  struct {
		Seed             uint64 `yaml:"seed"`
		RetryCeiling     int    `yaml:"retry_ceiling"`
		StepsPerWaypoint int    `yaml:"steps_per_waypoint"`
		MaxTicks         int    `yaml:"max_ticks"`
	} `yaml:"engine"`
	Run struct {
		Task       string `yaml:"task"`
		Episodes   int    `yaml:"episodes"`
		StartIndex int    `yaml:"start_index"`
	} `yaml:"run"`
	Scene struct {
		Objects map[string]scene.Pose   `yaml:"objects"`
		Sensors map[string]SensorConfig `yaml:"sensors"`
		Regions map[string]RegionConfig `yaml:"regions"`
	} `yaml:"scene"`
	Storage struct {
		Enabled bool   `yaml:"enabled"`
		BenchID string `yaml:"bench_id"`
	} `yaml:"storage"`
	MQTT struct {
		Enabled  bool   `yaml:"enabled"`
		Prefix   string `yaml:"prefix"`
		ClientID string `yaml:"client_id"`
	} `yaml:"mqtt"`
	API struct {
		Listen string `yaml:"listen"`
	} `yaml:"api"`
}

// RetryCeiling returns the sampler retry ceiling, defaulting to 10000.
func (c *EngineConfig) RetryCeiling() int {
	if c.Engine.RetryCeiling <= 0 {
		return DefaultRetryCeiling
	}
	return c.Engine.RetryCeiling
}

// StepsPerWaypoint returns the simulation steps per waypoint, defaulting to 1.
func (c *EngineConfig) StepsPerWaypoint() int {
	if c.Engine.StepsPerWaypoint <= 0 {
		return DefaultStepsPerWaypoint
	}
	return c.Engine.StepsPerWaypoint
}

// MaxTicks returns the executor tick budget per episode, defaulting to 500.
func (c *EngineConfig) MaxTicks() int {
	if c.Engine.MaxTicks <= 0 {
		return DefaultMaxTicks
	}
	return c.Engine.MaxTicks
}

// Episodes returns the number of episodes to run, defaulting to 1.
func (c *EngineConfig) Episodes() int {
	if c.Run.Episodes <= 0 {
		return 1
	}
	return c.Run.Episodes
}

// BenchID returns the storage bench id, defaulting to "bench0".
func (c *EngineConfig) BenchID() string {
	if c.Storage.BenchID == "" {
		return DefaultBenchID
	}
	return c.Storage.BenchID
}

// MQTTPrefix returns the topic prefix, defaulting to "episodes".
func (c *EngineConfig) MQTTPrefix() string {
	if c.MQTT.Prefix == "" {
		return DefaultMQTTPrefix
	}
	return c.MQTT.Prefix
}

// Regions returns the configured sampling regions sorted by name.
func (c *EngineConfig) Regions() []sampler.Region {
	names := make([]string, 0, len(c.Scene.Regions))
	for name := range c.Scene.Regions {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]sampler.Region, 0, len(names))
	for _, name := range names {
		rc := c.Scene.Regions[name]
		out = append(out, sampler.Region{
			Name:        name,
			Boxes:       rc.Boxes,
			RotationMin: rc.RotationMin,
			RotationMax: rc.RotationMax,
		})
	}
	return out
}

// Apply adds the configured objects and sensors to m.
func (c *EngineConfig) Apply(m *scene.Memory) {
	for name, pose := range c.Scene.Objects {
		m.AddObject(name, pose)
	}
	for name, s := range c.Scene.Sensors {
		m.AddSensor(name, s.Position, s.Radius)
	}
}

func (c *EngineConfig) validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported engine.yaml version: %d", c.Version)
	}
	if c.Run.StartIndex < 0 {
		return fmt.Errorf("run.start_index must not be negative: %d", c.Run.StartIndex)
	}
	for name, s := range c.Scene.Sensors {
		if s.Radius <= 0 {
			return fmt.Errorf("sensor %s: radius must be positive", name)
		}
	}
	for _, r := range c.Regions() {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Parse decodes and validates an engine.yaml document.
func Parse(b []byte) (*EngineConfig, error) {
	var cfg EngineConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func LoadEngineConfig(path string) (*EngineConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}
