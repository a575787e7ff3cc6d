// Package mqtt bridges the engine to a remote simulator over MQTT: scene
// writes and engine events are published, simulator state is applied to
// the local scene mirror.
package mqtt

import (
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/EpisodeEngine/internal/events"
)

const (
	DefaultBrokerURL = "tcp://localhost:1883"

	qos          = 1
	tokenTimeout = 10 * time.Second
)

// Handler receives one message.
type Handler func(topic string, payload []byte)

// Transport is the subset of a broker connection the bridge needs.
type Transport interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string, handler Handler) error
}

// Options configures a Client. Empty fields fall back to defaults.
type Options struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string

	// OnConnect runs after every successful connect, including reconnects.
	OnConnect func()
}

// Client wraps the Paho MQTT client.
type Client struct {
	client paho.Client
	broker string
	mu     sync.Mutex
}

// NewClient creates a new MQTT client but does not connect.
func NewClient(o Options) *Client {
	broker := o.BrokerURL
	if broker == "" {
		broker = DefaultBrokerURL
	}
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			events.Emit("warn", "bridge.disconnected", "", map[string]interface{}{
				"broker": broker,
				"error":  err.Error(),
			})
		})
	if o.OnConnect != nil {
		opts.SetOnConnectHandler(func(paho.Client) { o.OnConnect() })
	}
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}

	return &Client{
		client: paho.NewClient(opts),
		broker: broker,
	}
}

// Connect attempts to connect to the broker.
// Returns an error if connection fails, but does not block indefinitely.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Connect()
	if !token.WaitTimeout(tokenTimeout) {
		return &ConnectTimeoutError{}
	}
	return token.Error()
}

// Subscribe implements Transport.
func (c *Client) Subscribe(topic string, handler Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Subscribe(topic, qos, func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(tokenTimeout) {
		return &TimeoutError{Op: "subscribe", Topic: topic}
	}
	return token.Error()
}

// Publish implements Transport.
func (c *Client) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(tokenTimeout) {
		return &TimeoutError{Op: "publish", Topic: topic}
	}
	return token.Error()
}

// Disconnect cleanly disconnects from the broker.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.client.Disconnect(1000)
}

// IsConnected returns true if the client is connected.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// ConnectTimeoutError indicates connection timed out.
type ConnectTimeoutError struct{}

func (e *ConnectTimeoutError) Error() string {
	return "mqtt connect timeout"
}

// TimeoutError indicates a subscribe or publish was not acknowledged in time.
type TimeoutError struct {
	Op    string
	Topic string
}

func (e *TimeoutError) Error() string {
	return "mqtt " + e.Op + " timeout: " + e.Topic
}

// Start connects, logging failures instead of returning them.
// Returns true if connected.
func (c *Client) Start() bool {
	if err := c.Connect(); err != nil {
		log.Printf("mqtt: failed to connect to %s: %v", c.broker, err)
		return false
	}
	events.Emit("info", "bridge.connected", "", map[string]interface{}{
		"broker": c.broker,
	})
	log.Printf("mqtt: connected to %s", c.broker)
	return true
}
