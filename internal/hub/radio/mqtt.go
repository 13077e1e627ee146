package radio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTOptions configures the uplink to the fixed receiver.
type MQTTOptions struct {
	Broker        string
	Port          int
	ClientID      string
	UplinkTopic   string
	DownlinkTopic string

	// OnDownlink receives raw downlink payloads. The receive path carries
	// no protocol duties on the hub; callers typically just queue the
	// payload for logging. Optional.
	OnDownlink func(payload []byte)
}

// MQTT is the wireless link implementation. Uplink publishes are QoS 0 and
// never waited on: a failed or dropped publish is logged and superseded by
// the next cycle's snapshot.
type MQTT struct {
	client    mqtt.Client
	opts      MQTTOptions
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewMQTT(opts MQTTOptions) *MQTT {
	m := &MQTT{
		opts:   opts,
		stopCh: make(chan struct{}),
	}

	co := mqtt.NewClientOptions()
	co.AddBroker(fmt.Sprintf("tcp://%s:%d", opts.Broker, opts.Port))
	co.SetClientID(opts.ClientID)

	co.SetCleanSession(true)

	co.SetAutoReconnect(true)
	co.SetConnectRetry(true)
	co.SetConnectRetryInterval(5 * time.Second)
	co.SetMaxReconnectInterval(60 * time.Second)

	co.SetKeepAlive(30 * time.Second)
	co.SetPingTimeout(10 * time.Second)

	co.SetOnConnectHandler(func(c mqtt.Client) {
		m.setConnected(true)
		slog.Info("radio connected", "broker", opts.Broker, "port", opts.Port)
		if opts.DownlinkTopic != "" && opts.OnDownlink != nil {
			token := c.Subscribe(opts.DownlinkTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
				opts.OnDownlink(msg.Payload())
			})
			if token.WaitTimeout(5*time.Second) && token.Error() != nil {
				slog.Warn("downlink subscribe failed", "topic", opts.DownlinkTopic, "error", token.Error())
			}
		}
	})

	co.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		m.setConnected(false)
		slog.Warn("radio connection lost", "error", err)
	})

	m.client = mqtt.NewClient(co)
	return m
}

// Connect establishes the link, respecting ctx and Disconnect().
func (m *MQTT) Connect(ctx context.Context) error {
	select {
	case <-m.stopCh:
		return fmt.Errorf("radio stopped")
	default:
	}

	if m.IsConnected() {
		return nil
	}

	token := m.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("radio connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			// ConnectRetry keeps trying in the background; the OnConnect
			// handler picks up when the broker appears.
			return ctx.Err()
		case <-m.stopCh:
			return fmt.Errorf("radio stopped")
		default:
		}
	}
}

// Send publishes one snapshot to the fixed peer topic without waiting for
// delivery. Publish errors are surfaced asynchronously through the log
// only.
func (m *MQTT) Send(payload []byte) error {
	if !m.IsConnected() {
		return fmt.Errorf("radio not connected")
	}

	token := m.client.Publish(m.opts.UplinkTopic, 0, false, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			slog.Warn("uplink publish failed", "topic", m.opts.UplinkTopic, "error", token.Error())
		}
	}()
	return nil
}

// IsConnected returns whether the link is up.
func (m *MQTT) IsConnected() bool {
	m.mu.RLock()
	connected := m.connected
	m.mu.RUnlock()
	return connected && m.client.IsConnected()
}

// Disconnect tears the link down. Idempotent.
func (m *MQTT) Disconnect() {
	m.stopOnce.Do(func() { close(m.stopCh) })

	if m.client != nil {
		m.client.Disconnect(250)
	}

	m.setConnected(false)
	slog.Info("radio disconnected")
}

func (m *MQTT) setConnected(v bool) {
	m.mu.Lock()
	m.connected = v
	m.mu.Unlock()
}
