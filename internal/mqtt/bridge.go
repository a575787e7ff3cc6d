package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/AaronLay10/EpisodeEngine/internal/events"
	"github.com/AaronLay10/EpisodeEngine/internal/scene"
)

// Command is the payload published for every scene write.
type Command struct {
	Object      string      `json:"object"`
	Position    *scene.Vec3 `json:"position,omitempty"`
	Orientation *scene.Vec3 `json:"orientation,omitempty"`
	Color       *scene.RGB  `json:"color,omitempty"`
}

// outboundQueueSize bounds the messages waiting for the broker. Writes
// beyond it are dropped rather than stalling the motion loop.
const outboundQueueSize = 256

var (
	errNotConnected = errors.New("broker not connected")
	errQueueFull    = errors.New("outbound queue full")
)

type outbound struct {
	topic   string
	payload []byte
}

// connectivity is implemented by transports that know whether the broker
// is reachable. Writes are skipped while it reports false.
type connectivity interface {
	IsConnected() bool
}

// SceneBridge is a scene.Scene that applies writes locally and mirrors
// them to the simulator as commands on <prefix>/cmd/<object>. Reads and
// sensor queries are answered by the local scene. Commands are queued and
// sent by Run, so a slow or absent broker never blocks a write.
type SceneBridge struct {
	scene.Scene
	transport Transport
	prefix    string
	queue     chan outbound

	mu          sync.Mutex
	errorLogged bool
}

func NewSceneBridge(local scene.Scene, t Transport, prefix string) *SceneBridge {
	return &SceneBridge{
		Scene:     local,
		transport: t,
		prefix:    prefix,
		queue:     make(chan outbound, outboundQueueSize),
	}
}

// Run sends queued commands and events to the broker until ctx is done.
func (b *SceneBridge) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-b.queue:
			if err := b.transport.Publish(m.topic, m.payload); err != nil {
				b.reportOnce(m.topic, err)
			}
		}
	}
}

func (b *SceneBridge) CommandTopic(object string) string {
	return b.prefix + "/cmd/" + object
}

func (b *SceneBridge) EventTopic(name string) string {
	return b.prefix + "/events/" + name
}

func (b *SceneBridge) SetPosition(name string, p scene.Vec3) error {
	if err := b.Scene.SetPosition(name, p); err != nil {
		return err
	}
	b.publish(b.CommandTopic(name), Command{Object: name, Position: &p})
	return nil
}

func (b *SceneBridge) SetOrientation(name string, o scene.Vec3) error {
	if err := b.Scene.SetOrientation(name, o); err != nil {
		return err
	}
	b.publish(b.CommandTopic(name), Command{Object: name, Orientation: &o})
	return nil
}

func (b *SceneBridge) SetColor(name string, c scene.RGB) error {
	if err := b.Scene.SetColor(name, c); err != nil {
		return err
	}
	b.publish(b.CommandTopic(name), Command{Object: name, Color: &c})
	return nil
}

// ForwardEvents publishes every engine event to <prefix>/events/<name>
// until ctx is done or the subscription closes.
func (b *SceneBridge) ForwardEvents(ctx context.Context) {
	sub := events.Subscribe()
	defer events.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub:
			if !ok {
				return
			}
			// Our own failure reports would otherwise fail again.
			if e.Name == "bridge.error" {
				continue
			}
			b.publish(b.EventTopic(e.Name), e)
		}
	}
}

// publish never fails or blocks the caller: the local scene is
// authoritative, so a message that cannot be queued is dropped and the
// first failure is reported as bridge.error.
func (b *SceneBridge) publish(topic string, v interface{}) {
	if c, ok := b.transport.(connectivity); ok && !c.IsConnected() {
		b.reportOnce(topic, errNotConnected)
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		b.reportOnce(topic, err)
		return
	}
	select {
	case b.queue <- outbound{topic: topic, payload: payload}:
	default:
		b.reportOnce(topic, errQueueFull)
	}
}

func (b *SceneBridge) reportOnce(topic string, err error) {
	b.mu.Lock()
	logged := b.errorLogged
	b.errorLogged = true
	b.mu.Unlock()
	if !logged {
		events.Emit("error", "bridge.error", "publish failed", map[string]interface{}{
			"topic": topic,
			"error": err.Error(),
		})
	}
}
