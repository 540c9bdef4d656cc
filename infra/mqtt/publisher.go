// Package mqtt publishes re-dispatch signals for the booking orchestrator
// over MQTT.
package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/link-bedside-nurses/dispatch/core/fault"
	"github.com/link-bedside-nurses/dispatch/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Enabled     bool   `json:"enabled"`
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	TopicPrefix string `json:"topic_prefix"`
	QoS         byte   `json:"qos"`
	UseTLS      bool   `json:"use_tls"`
	ClientCert  string `json:"client_cert"`
	ClientKey   string `json:"client_key"`
	CABundle    string `json:"ca_bundle"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = "dispatch/appointments"
	}
	if c.ClientID == "" {
		c.ClientID = "dispatch-engine"
	}
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// RedispatchPublisher implements appointment.Redispatcher by publishing a
// message per declined appointment on <prefix>/<id>/redispatch.
type RedispatchPublisher struct {
	cli    pahoClient
	prefix string
	qos    byte
	log    logger.Logger
}

// NewRedispatchPublisher connects to the MQTT broker.
func NewRedispatchPublisher(cfg Config) (*RedispatchPublisher, error) {
	cfg.SetDefaults()
	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt-redispatch")
	opts.OnConnect = func(paho.Client) { log.Infof("MQTT connected") }
	opts.OnConnectionLost = func(_ paho.Client, err error) { log.Errorf("connection lost: %v", err) }
	opts.OnReconnecting = func(paho.Client, *paho.ClientOptions) { log.Warnf("reconnecting to MQTT broker") }

	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fault.Wrap(token.Error(), fault.KindDependency, "mqtt connect %s", cfg.Broker)
	}
	return &RedispatchPublisher{cli: c, prefix: cfg.TopicPrefix, qos: cfg.QoS, log: log}, nil
}

func clientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.loadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

func (c Config) loadTLSConfig() (*tls.Config, error) {
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// RequestRedispatch publishes the re-dispatch signal. The message id lets the
// consuming orchestrator deduplicate redeliveries.
func (p *RedispatchPublisher) RequestRedispatch(_ context.Context, appointmentID string) error {
	msg := struct {
		MessageID     string `json:"message_id"`
		AppointmentID string `json:"appointment_id"`
		RequestedAt   int64  `json:"requested_at"`
	}{
		MessageID:     uuid.NewString(),
		AppointmentID: appointmentID,
		RequestedAt:   time.Now().UnixMilli(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("%s/%s/redispatch", p.prefix, appointmentID)
	token := p.cli.Publish(topic, p.qos, false, payload)
	token.Wait()
	if token.Error() != nil {
		return fault.Wrap(token.Error(), fault.KindDependency, "publish redispatch for %s", appointmentID)
	}
	p.log.Infof("requested redispatch for %s", appointmentID)
	return nil
}

// Disconnect gracefully closes the MQTT connection.
func (p *RedispatchPublisher) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
