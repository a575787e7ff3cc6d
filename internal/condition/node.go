// Package condition builds composite success predicates out of simulator
// sensor queries.
package condition

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AaronLay10/EpisodeEngine/internal/scene"
)

var (
	// ErrEmptyConditionSet is returned when a Set is built without children.
	ErrEmptyConditionSet = errors.New("empty condition set")
	// ErrInvalidNode is returned for malformed nodes.
	ErrInvalidNode = errors.New("invalid condition node")
)

// Kind tags the variant held by a Node.
type Kind string

const (
	KindDetected       Kind = "detected"
	KindNothingGrasped Kind = "nothing_grasped"
	KindJointPosition  Kind = "joint_position"
	KindDetectedCount  Kind = "detected_count"
	KindSet            Kind = "set"
)

// Combine folds the children of a Set.
type Combine string

const (
	And Combine = "and"
	Or  Combine = "or"
)

// Node is one condition. Only the fields of its Kind are meaningful.
type Node struct {
	Kind Kind

	Object  string
	Objects []string
	Sensor  string
	Gripper string
	Joint   string

	Threshold float64
	Below     bool
	Required  int

	Combine           Combine
	TerminalOnSuccess bool
	Children          []*Node
}

// Detected is met while object is inside sensor.
func Detected(object, sensor string) *Node {
	return &Node{Kind: KindDetected, Object: object, Sensor: sensor}
}

// NothingGrasped is met while gripper holds no object.
func NothingGrasped(gripper string) *Node {
	return &Node{Kind: KindNothingGrasped, Gripper: gripper}
}

// JointPosition is met while the joint's displacement from rest is above
// threshold, or below it when below is set.
func JointPosition(joint string, threshold float64, below bool) *Node {
	return &Node{Kind: KindJointPosition, Joint: joint, Threshold: threshold, Below: below}
}

// DetectedCount is met while at least required of objects are inside sensor.
func DetectedCount(objects []string, sensor string, required int) (*Node, error) {
	n := &Node{Kind: KindDetectedCount, Objects: append([]string(nil), objects...), Sensor: sensor, Required: required}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// Set combines children. When terminal is set, a satisfied set may stop
// being re-evaluated by a Tree.
func Set(combine Combine, terminal bool, children ...*Node) (*Node, error) {
	n := &Node{Kind: KindSet, Combine: combine, TerminalOnSuccess: terminal, Children: children}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// Validate checks n and all of its descendants.
func (n *Node) Validate() error {
	if n == nil {
		return fmt.Errorf("%w: nil node", ErrInvalidNode)
	}
	switch n.Kind {
	case KindDetected:
		if n.Object == "" || n.Sensor == "" {
			return fmt.Errorf("%w: detected needs object and sensor", ErrInvalidNode)
		}
	case KindNothingGrasped:
		if n.Gripper == "" {
			return fmt.Errorf("%w: nothing_grasped needs a gripper", ErrInvalidNode)
		}
	case KindJointPosition:
		if n.Joint == "" {
			return fmt.Errorf("%w: joint_position needs a joint", ErrInvalidNode)
		}
	case KindDetectedCount:
		if n.Sensor == "" || len(n.Objects) == 0 {
			return fmt.Errorf("%w: detected_count needs objects and a sensor", ErrInvalidNode)
		}
		if n.Required < 0 || n.Required > len(n.Objects) {
			return fmt.Errorf("%w: required count %d outside [0, %d]", ErrInvalidNode, n.Required, len(n.Objects))
		}
	case KindSet:
		if len(n.Children) == 0 {
			return ErrEmptyConditionSet
		}
		if n.Combine != And && n.Combine != Or {
			return fmt.Errorf("%w: unknown combinator %q", ErrInvalidNode, n.Combine)
		}
		for i, c := range n.Children {
			if err := c.Validate(); err != nil {
				return fmt.Errorf("child %d: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidNode, n.Kind)
	}
	return nil
}

// Evaluate reports whether n is met and whether it should keep being
// evaluated. Every child of a Set is evaluated, even once the result is known.
func (n *Node) Evaluate(s scene.Sensors) (met, keep bool) {
	return n.evaluate(s, nil)
}

// evaluate skips nodes found in latched and treats them as met.
func (n *Node) evaluate(s scene.Sensors, latched map[*Node]bool) (bool, bool) {
	if latched[n] {
		return true, false
	}

	switch n.Kind {
	case KindDetected:
		return s.Detected(n.Sensor, n.Object), true

	case KindNothingGrasped:
		return len(s.Grasped(n.Gripper)) == 0, true

	case KindJointPosition:
		d := s.JointDisplacement(n.Joint)
		if n.Below {
			return d < n.Threshold, true
		}
		return d > n.Threshold, true

	case KindDetectedCount:
		count := 0
		for _, obj := range n.Objects {
			if s.Detected(n.Sensor, obj) {
				count++
			}
		}
		return count >= n.Required, true

	case KindSet:
		met := n.Combine == And
		for _, c := range n.Children {
			childMet, _ := c.evaluate(s, latched)
			if n.Combine == And {
				met = met && childMet
			} else {
				met = met || childMet
			}
		}
		if met && n.TerminalOnSuccess {
			if latched != nil {
				latched[n] = true
			}
			return true, false
		}
		return met, true
	}
	return false, true
}

// String renders the tree in a compact prefix form for logs.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	switch n.Kind {
	case KindDetected:
		return fmt.Sprintf("detected(%s in %s)", n.Object, n.Sensor)
	case KindNothingGrasped:
		return fmt.Sprintf("nothing_grasped(%s)", n.Gripper)
	case KindJointPosition:
		op := ">"
		if n.Below {
			op = "<"
		}
		return fmt.Sprintf("joint(%s %s %g)", n.Joint, op, n.Threshold)
	case KindDetectedCount:
		return fmt.Sprintf("count(%d of [%s] in %s)", n.Required, strings.Join(n.Objects, " "), n.Sensor)
	case KindSet:
		parts := make([]string, len(n.Children))
		for i, c := range n.Children {
			parts[i] = c.String()
		}
		return fmt.Sprintf("%s(%s)", n.Combine, strings.Join(parts, ", "))
	}
	return string(n.Kind)
}
