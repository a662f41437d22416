package telemetry

import (
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

const publishTimeout = 5 * time.Second

type MQTTConfig struct {
	Broker      string
	Username    string
	Password    string
	ClientID    string
	TopicPrefix string
}

// MQTTPublisher publishes through a paho client. It announces itself on
// <prefix>/availability and leaves "offline" there as its last will.
type MQTTPublisher struct {
	client pahomqtt.Client
	prefix string
	logger zerolog.Logger
}

// DialMQTT connects to the broker and waits up to 10 seconds for the
// first connection. The client reconnects on its own afterwards.
func DialMQTT(cfg MQTTConfig, logger zerolog.Logger) (*MQTTPublisher, error) {
	p := &MQTTPublisher{
		prefix: cfg.TopicPrefix,
		logger: logger.With().Str("component", "mqtt").Logger(),
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(p.availabilityTopic(), "offline", 1, true).
		SetOnConnectHandler(func(c pahomqtt.Client) {
			p.logger.Info().Str("broker", cfg.Broker).Msg("MQTT connected")
			c.Publish(p.availabilityTopic(), 1, true, "online")
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			p.logger.Warn().Err(err).Msg("MQTT connection lost")
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	p.client = client
	return p, nil
}

func (p *MQTTPublisher) availabilityTopic() string {
	return p.prefix + "/availability"
}

func (p *MQTTPublisher) Publish(topic string, payload []byte, retained bool) error {
	token := p.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt publish to %s timed out", topic)
	}
	return token.Error()
}

// Close publishes "offline" and disconnects.
func (p *MQTTPublisher) Close() {
	token := p.client.Publish(p.availabilityTopic(), 1, true, "offline")
	token.WaitTimeout(publishTimeout)
	p.client.Disconnect(1000)
	p.logger.Info().Msg("MQTT disconnected")
}
