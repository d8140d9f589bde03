package bridge

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// MQTTSource is an alternate Segment Source transport for scanner bridges
// that publish over MQTT instead of holding a direct socket open (spec.md
// §4.B: "transports are interchangeable"). Grounded on the connect/reconnect
// and message-dispatch shape trunk-recorder-style bridges use.
type MQTTSource struct {
	client mqtt.Client
	topics []string
	qos    byte
	intake *Intake
	log    zerolog.Logger
}

// MQTTOptions configures the MQTT transport.
type MQTTOptions struct {
	BrokerURL string
	ClientID  string
	Topics    string // comma-separated topic filters
	QOS       byte
}

// NewMQTTSource creates (but does not connect) an MQTT transport.
func NewMQTTSource(opts MQTTOptions, intake *Intake, log zerolog.Logger) *MQTTSource {
	log = log.With().Str("component", "mqtt-source").Str("broker", opts.BrokerURL).Logger()

	m := &MQTTSource{
		topics: parseTopics(opts.Topics),
		qos:    opts.QOS,
		intake: intake,
		log:    log,
	}

	copts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(60 * time.Second).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(m.onConnect).
		SetConnectionLostHandler(m.onConnectionLost)

	m.client = mqtt.NewClient(copts)
	return m
}

// Run connects and blocks until ctx is cancelled.
func (m *MQTTSource) Run(ctx context.Context) {
	token := m.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		m.log.Error().Err(err).Msg("initial mqtt connect failed, will auto-retry")
	}
	<-ctx.Done()
	m.client.Disconnect(500)
}

func (m *MQTTSource) onConnect(c mqtt.Client) {
	for _, topic := range m.topics {
		if token := c.Subscribe(topic, m.qos, m.onMessage); token.Wait() && token.Error() != nil {
			m.log.Error().Err(token.Error()).Str("topic", topic).Msg("mqtt subscribe failed")
		} else {
			m.log.Info().Str("topic", topic).Msg("subscribed to scanner bridge topic")
		}
	}
}

func (m *MQTTSource) onConnectionLost(c mqtt.Client, err error) {
	m.log.Warn().Err(err).Msg("mqtt connection lost, auto-reconnect in progress")
}

func (m *MQTTSource) onMessage(c mqtt.Client, msg mqtt.Message) {
	env, err := ParseEnvelope(msg.Payload())
	if err != nil {
		m.log.Warn().Err(err).Str("topic", msg.Topic()).Msg("dropping malformed mqtt frame")
		return
	}
	if env.Type != MessageCall {
		return
	}
	var d CallData
	if err := json.Unmarshal(env.Data, &d); err != nil {
		m.log.Warn().Err(err).Msg("malformed call payload")
		return
	}
	if err := m.intake.Accept(context.Background(), d); err != nil {
		m.log.Error().Err(err).Str("system", d.System).Int("talkgroup", d.Talkgroup).Msg("failed to ingest segment")
	}
}

func parseTopics(csv string) []string {
	var out []string
	for _, t := range strings.Split(csv, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		out = []string{"scanner/calls"}
	}
	return out
}
