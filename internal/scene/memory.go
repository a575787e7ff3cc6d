package scene

import (
	"fmt"
	"sync"
)

// Object holds the simulated state of one scene object.
type Object struct {
	Name        string
	Position    Vec3
	Orientation Vec3
	Color       RGB
}

// Memory is an in-process simulator used by tests, the CLI and as the
// local mirror behind the MQTT bridge. Sensors are spheres centred on the
// sensor object's position.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]*Object
	sensors map[string]float64 // sensor name -> radius
	grasped map[string][]string
	joints  map[string]float64
}

// NewMemory creates an empty in-memory scene.
func NewMemory() *Memory {
	return &Memory{
		objects: make(map[string]*Object),
		sensors: make(map[string]float64),
		grasped: make(map[string][]string),
		joints:  make(map[string]float64),
	}
}

// AddObject registers an object at the given pose, replacing any existing one.
func (m *Memory) AddObject(name string, p Pose) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = &Object{Name: name, Position: p.Position, Orientation: p.Orientation}
}

// AddSensor registers a spherical proximity sensor with the given radius.
// The sensor is also an object so that it can be moved like one.
func (m *Memory) AddSensor(name string, p Vec3, radius float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = &Object{Name: name, Position: p}
	m.sensors[name] = radius
}

// Get returns a copy of a named object, or nil if not found.
func (m *Memory) Get(name string) *Object {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if obj, ok := m.objects[name]; ok {
		cpy := *obj
		return &cpy
	}
	return nil
}

// Exists returns true if the object is present.
func (m *Memory) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[name]
	return ok
}

// Position implements Reader.
func (m *Memory) Position(name string) (Vec3, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[name]
	if !ok {
		return Vec3{}, fmt.Errorf("%w: %s", ErrUnknownObject, name)
	}
	return obj.Position, nil
}

// Orientation implements Reader.
func (m *Memory) Orientation(name string) (Vec3, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[name]
	if !ok {
		return Vec3{}, fmt.Errorf("%w: %s", ErrUnknownObject, name)
	}
	return obj.Orientation, nil
}

// Color returns the last color written to the object.
func (m *Memory) Color(name string) (RGB, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[name]
	if !ok {
		return RGB{}, fmt.Errorf("%w: %s", ErrUnknownObject, name)
	}
	return obj.Color, nil
}

// SetPosition implements Writer. Writing an unknown object creates it.
func (m *Memory) SetPosition(name string, p Vec3) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.object(name).Position = p
	return nil
}

// SetOrientation implements Writer.
func (m *Memory) SetOrientation(name string, o Vec3) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.object(name).Orientation = o
	return nil
}

// SetColor implements Writer.
func (m *Memory) SetColor(name string, c RGB) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.object(name).Color = c
	return nil
}

// object must be called with mu held for writing.
func (m *Memory) object(name string) *Object {
	obj, ok := m.objects[name]
	if !ok {
		obj = &Object{Name: name}
		m.objects[name] = obj
	}
	return obj
}

// Detected implements Sensors.
func (m *Memory) Detected(sensor, object string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	radius, ok := m.sensors[sensor]
	if !ok {
		return false
	}
	s, ok := m.objects[sensor]
	if !ok {
		return false
	}
	obj, ok := m.objects[object]
	if !ok {
		return false
	}
	return s.Position.Distance(obj.Position) <= radius
}

// Grasped implements Sensors.
func (m *Memory) Grasped(gripper string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string{}, m.grasped[gripper]...)
}

// SetGrasped replaces the set of objects held by a gripper.
func (m *Memory) SetGrasped(gripper string, objects ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(objects) == 0 {
		delete(m.grasped, gripper)
		return
	}
	m.grasped[gripper] = append([]string{}, objects...)
}

// JointDisplacement implements Sensors.
func (m *Memory) JointDisplacement(joint string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.joints[joint]
}

// SetJointDisplacement sets a joint's displacement from its rest position.
func (m *Memory) SetJointDisplacement(joint string, d float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.joints[joint] = d
}
