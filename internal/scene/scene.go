// Package scene defines the contract between the episode engine and the
// simulator that owns physics, rendering and object lookup.
package scene

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownObject is returned when a named object does not exist in the scene.
var ErrUnknownObject = errors.New("unknown scene object")

// Vec3 is a position or Euler orientation in world coordinates.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Distance returns the Euclidean distance between v and o.
func (v Vec3) Distance(o Vec3) float64 {
	return v.Sub(o).Norm()
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f)", v.X, v.Y, v.Z)
}

// Pose is a target position plus orientation.
type Pose struct {
	Position    Vec3 `json:"position" yaml:"position"`
	Orientation Vec3 `json:"orientation" yaml:"orientation"`
}

// RGB is a color with channels in [0, 1].
type RGB struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Reader answers position queries.
type Reader interface {
	Position(name string) (Vec3, error)
	Orientation(name string) (Vec3, error)
}

// Writer applies placement and color commands.
type Writer interface {
	SetPosition(name string, p Vec3) error
	SetOrientation(name string, o Vec3) error
	SetColor(name string, c RGB) error
}

// Sensors answers the per-tick queries used by success detection.
// Unknown names read as "not detected", "nothing grasped" and zero displacement.
type Sensors interface {
	Detected(sensor, object string) bool
	Grasped(gripper string) []string
	JointDisplacement(joint string) float64
}

// Scene is the full simulator collaborator.
type Scene interface {
	Reader
	Writer
	Sensors
}

// SetPose writes both parts of a pose.
func SetPose(w Writer, name string, p Pose) error {
	if err := w.SetPosition(name, p.Position); err != nil {
		return err
	}
	return w.SetOrientation(name, p.Orientation)
}
