package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"heliotelligence/internal/domain"
	"heliotelligence/pkg/logger"
)

// telemetryTopic carries the farm id in the second segment.
const telemetryTopic = "telemetry/+/data"

// Sink receives mapped samples; the monitoring service implements it.
type Sink interface {
	Ingest(ctx context.Context, farmID int64, sample domain.TelemetrySample) (*domain.AnalysisResult, error)
}

// Bridge subscribes to field telemetry over MQTT and forwards it into the
// same ingest path as the HTTP API.
type Bridge struct {
	broker   string
	clientID string
	username string
	password string
	sink     Sink
	client   mqtt.Client
}

// NewBridge wires an MQTT subscriber to the sink
func NewBridge(broker, clientID, username, password string, sink Sink) *Bridge {
	return &Bridge{
		broker:   broker,
		clientID: clientID,
		username: username,
		password: password,
		sink:     sink,
	}
}

// Start connects to the broker. Subscriptions are established in the
// OnConnect handler so they survive reconnects.
func (b *Bridge) Start() error {
	broker := b.broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(b.clientID)
	opts.SetUsername(b.username)
	opts.SetPassword(b.password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(5 * time.Second)

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logger.Warnf("MQTT connection lost: %v", err)
	})

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logger.Infof("Connected to MQTT broker at %s", b.broker)

		token := client.Subscribe(telemetryTopic, 1, b.handleMessage)
		if token.Wait() && token.Error() != nil {
			logger.Errorf("Failed to subscribe to topic %s: %v", telemetryTopic, token.Error())
		} else {
			logger.Infof("Subscribed to topic: %s", telemetryTopic)
		}
	})

	b.client = mqtt.NewClient(opts)

	logger.Infof("Connecting to MQTT broker at %s...", b.broker)
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return nil
}

func (b *Bridge) handleMessage(client mqtt.Client, msg mqtt.Message) {
	farmID, err := farmIDFromTopic(msg.Topic())
	if err != nil {
		logger.Warnf("Ignoring MQTT message: %v", err)
		return
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		logger.Warnf("Invalid MQTT payload on %s: %v", msg.Topic(), err)
		return
	}

	sample, err := MapPayload(farmID, raw)
	if err != nil {
		logger.Warnf("Unmappable MQTT payload on %s: %v", msg.Topic(), err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := b.sink.Ingest(ctx, farmID, sample); err != nil {
		logger.Errorf("Failed to ingest MQTT sample for farm %d: %v", farmID, err)
	}
}

func farmIDFromTopic(topic string) (int64, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 {
		return 0, fmt.Errorf("unexpected topic shape: %s", topic)
	}

	farmID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("non-numeric farm id in topic %s", topic)
	}

	return farmID, nil
}

// Stop disconnects cleanly
func (b *Bridge) Stop() {
	if b.client != nil && b.client.IsConnected() {
		b.client.Disconnect(250)
		logger.Info("Disconnected from MQTT broker")
	}
}
