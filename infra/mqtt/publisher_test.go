package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/link-bedside-nurses/dispatch/core/fault"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type fakeClient struct {
	connectErr error
	publishErr error
	topics     []string
	payloads   [][]byte
}

func (c *fakeClient) IsConnected() bool { return true }
func (c *fakeClient) Connect() paho.Token {
	return &fakeToken{err: c.connectErr}
}
func (c *fakeClient) Disconnect(uint) {}
func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) paho.Token {
	c.topics = append(c.topics, topic)
	c.payloads = append(c.payloads, payload.([]byte))
	return &fakeToken{err: c.publishErr}
}

func withFakeClient(t *testing.T, cli *fakeClient) {
	t.Helper()
	orig := newMQTTClient
	newMQTTClient = func(*paho.ClientOptions) pahoClient { return cli }
	t.Cleanup(func() { newMQTTClient = orig })
}

func TestRedispatchPublisher_PublishesTopicAndPayload(t *testing.T) {
	cli := &fakeClient{}
	withFakeClient(t, cli)

	p, err := NewRedispatchPublisher(Config{Broker: "tcp://localhost:1883"})
	require.NoError(t, err)

	require.NoError(t, p.RequestRedispatch(context.Background(), "a1"))
	require.Len(t, cli.topics, 1)
	assert.Equal(t, "dispatch/appointments/a1/redispatch", cli.topics[0])

	var msg struct {
		MessageID     string `json:"message_id"`
		AppointmentID string `json:"appointment_id"`
		RequestedAt   int64  `json:"requested_at"`
	}
	require.NoError(t, json.Unmarshal(cli.payloads[0], &msg))
	assert.Equal(t, "a1", msg.AppointmentID)
	assert.NotEmpty(t, msg.MessageID)
	assert.NotZero(t, msg.RequestedAt)
}

func TestRedispatchPublisher_PublishFailureIsDependency(t *testing.T) {
	cli := &fakeClient{publishErr: errors.New("broker gone")}
	withFakeClient(t, cli)

	p, err := NewRedispatchPublisher(Config{Broker: "tcp://localhost:1883"})
	require.NoError(t, err)

	err = p.RequestRedispatch(context.Background(), "a1")
	require.Error(t, err)
	assert.True(t, fault.IsDependency(err))
}

func TestRedispatchPublisher_ConnectFailure(t *testing.T) {
	cli := &fakeClient{connectErr: errors.New("refused")}
	withFakeClient(t, cli)

	_, err := NewRedispatchPublisher(Config{Broker: "tcp://localhost:1883"})
	require.Error(t, err)
	assert.True(t, fault.IsDependency(err))
}
