package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/AaronLay10/EpisodeEngine/internal/events"
	"github.com/AaronLay10/EpisodeEngine/internal/scene"
)

// StateUpdate is one simulator report. Every field is optional; Object is
// required only when a pose or color is present.
type StateUpdate struct {
	Object      string              `json:"object,omitempty"`
	Position    *scene.Vec3         `json:"position,omitempty"`
	Orientation *scene.Vec3         `json:"orientation,omitempty"`
	Color       *scene.RGB          `json:"color,omitempty"`
	Grasped     map[string][]string `json:"grasped,omitempty"`
	Joints      map[string]float64  `json:"joints,omitempty"`
}

// StateSubscriber applies simulator state from <prefix>/state to the local
// scene mirror. Subscription is idempotent across reconnects.
type StateSubscriber struct {
	mu         sync.RWMutex
	transport  Transport
	mirror     *scene.Memory
	prefix     string
	subscribed map[string]bool
}

func NewStateSubscriber(t Transport, mirror *scene.Memory, prefix string) *StateSubscriber {
	return &StateSubscriber{
		transport:  t,
		mirror:     mirror,
		prefix:     prefix,
		subscribed: make(map[string]bool),
	}
}

func (s *StateSubscriber) Topic() string {
	return s.prefix + "/state"
}

// Subscribe subscribes to the state topic if not already subscribed.
func (s *StateSubscriber) Subscribe() error {
	topic := s.Topic()

	s.mu.Lock()
	if s.subscribed[topic] {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.transport.Subscribe(topic, s.handle); err != nil {
		return err
	}

	s.mu.Lock()
	s.subscribed[topic] = true
	s.mu.Unlock()
	return nil
}

func (s *StateSubscriber) handle(topic string, payload []byte) {
	u, err := s.Apply(payload)
	if err != nil {
		events.Emit("error", "bridge.error", "invalid state update", map[string]interface{}{
			"topic": topic,
			"error": err.Error(),
		})
		return
	}
	fields := map[string]interface{}{"topic": topic}
	if u.Object != "" {
		fields["object"] = u.Object
	}
	events.Emit("info", "bridge.state", "", fields)
}

// Apply decodes a state payload and writes it to the mirror.
func (s *StateSubscriber) Apply(payload []byte) (StateUpdate, error) {
	var u StateUpdate
	if err := json.Unmarshal(payload, &u); err != nil {
		return StateUpdate{}, err
	}
	if u.Object == "" && (u.Position != nil || u.Orientation != nil || u.Color != nil) {
		return StateUpdate{}, fmt.Errorf("state update without object")
	}

	if u.Object != "" && !s.mirror.Exists(u.Object) {
		s.mirror.AddObject(u.Object, scene.Pose{})
	}
	if u.Position != nil {
		if err := s.mirror.SetPosition(u.Object, *u.Position); err != nil {
			return StateUpdate{}, err
		}
	}
	if u.Orientation != nil {
		if err := s.mirror.SetOrientation(u.Object, *u.Orientation); err != nil {
			return StateUpdate{}, err
		}
	}
	if u.Color != nil {
		if err := s.mirror.SetColor(u.Object, *u.Color); err != nil {
			return StateUpdate{}, err
		}
	}
	for gripper, held := range u.Grasped {
		s.mirror.SetGrasped(gripper, held...)
	}
	for joint, d := range u.Joints {
		s.mirror.SetJointDisplacement(joint, d)
	}
	return u, nil
}

// ClearSubscriptions clears the subscription tracking.
// Call this on disconnect to allow re-subscription on reconnect.
func (s *StateSubscriber) ClearSubscriptions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribed = make(map[string]bool)
}
