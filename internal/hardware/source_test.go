package hardware

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Rover/internal/mqtt"
	"github.com/turtacn/Rover/pkg/consts"
	"github.com/turtacn/Rover/pkg/errors"
	"github.com/turtacn/Rover/pkg/protocol"
)

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.yaml")
	src := NewFileSource(path)

	// Missing file: unavailable, not fatal
	_, err := src.OperatingMode(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStatusUnavailable))
	require.Error(t, src.Probe(context.Background()))

	require.NoError(t, WriteStatusFile(path, protocol.StatusReport{Mode: "normal", Mission: "retrieval"}))
	require.NoError(t, src.Probe(context.Background()))

	mission, err := src.CommandedMission(context.Background())
	require.NoError(t, err)
	assert.Equal(t, consts.MissionExtremeRetrievalDelivery, mission)

	// Re-read on every poll
	require.NoError(t, WriteStatusFile(path, protocol.StatusReport{Mode: "diagnostic", Mission: "none"}))
	mode, err := src.OperatingMode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, consts.ModeDiagnostic, mode)

	// A frame without a mode is not normal
	require.NoError(t, WriteStatusFile(path, protocol.StatusReport{Mission: "science"}))
	mode, err = src.OperatingMode(context.Background())
	require.NoError(t, err)
	assert.False(t, mode.Known())

	require.NoError(t, os.WriteFile(path, []byte("mode: [unterminated"), 0o644))
	_, err = src.OperatingMode(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeStatusUnavailable))
}

func TestSocketSource(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "status.sock")
	src := NewSocketSource(socketPath, time.Minute)

	require.Error(t, src.Probe(context.Background()), "probe before start")
	require.NoError(t, src.Start())
	defer src.Close()
	require.NoError(t, src.Probe(context.Background()))

	_, err := src.CommandedMission(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeStatusUnavailable), "no frame yet")

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	encoder := json.NewEncoder(conn)
	require.NoError(t, encoder.Encode(protocol.StatusReport{Mode: "normal", Mission: "servicing"}))

	require.Eventually(t, func() bool {
		m, err := src.CommandedMission(context.Background())
		return err == nil && m == consts.MissionEquipmentServicing
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, encoder.Encode(protocol.StatusReport{Mode: "diagnostic", Mission: "servicing"}))
	require.Eventually(t, func() bool {
		m, err := src.OperatingMode(context.Background())
		return err == nil && m == consts.ModeDiagnostic
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSocketSource_StaleFrameIsUnavailable(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "status.sock")
	src := NewSocketSource(socketPath, time.Minute)
	require.NoError(t, src.Start())
	defer src.Close()

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	old := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	encoder := json.NewEncoder(conn)
	require.NoError(t, encoder.Encode(protocol.StatusReport{Mode: "normal", Mission: "science", Timestamp: old}))
	require.NoError(t, encoder.Encode(protocol.StatusReport{Mode: "normal", Mission: "science", Timestamp: old.Add(time.Second)}))

	// Wait until both frames are consumed, then every read is unavailable
	require.Eventually(t, func() bool {
		src.mu.RLock()
		defer src.mu.RUnlock()
		return src.latest != nil && src.latest.Timestamp.Equal(old.Add(time.Second))
	}, 2*time.Second, 10*time.Millisecond)

	_, err = src.CommandedMission(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStatusUnavailable))
	_, err = src.OperatingMode(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeStatusUnavailable))
}

func TestSocketSource_DisconnectDropsStatus(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "status.sock")
	src := NewSocketSource(socketPath, 0)
	require.NoError(t, src.Start())
	defer src.Close()

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	require.NoError(t, json.NewEncoder(conn).Encode(protocol.StatusReport{Mode: "normal", Mission: "science"}))
	require.Eventually(t, func() bool {
		m, err := src.CommandedMission(context.Background())
		return err == nil && m == consts.MissionScience
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		_, err := src.CommandedMission(context.Background())
		return errors.IsCode(err, errors.ErrCodeStatusUnavailable)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSocketSource_CloseRemovesSocket(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "status.sock")
	src := NewSocketSource(socketPath, time.Minute)
	require.NoError(t, src.Start())

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, src.Close())
	_, err = os.Stat(socketPath)
	assert.True(t, os.IsNotExist(err))
}

// fakeClient records subscriptions so tests can inject status frames.
type fakeClient struct {
	mu          sync.Mutex
	started     bool
	handlers    map[string]mqtt.MessageHandler
	published   map[string][][]byte
	connectErr  error
	startErr    error
	disconnects int
}

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: map[string]mqtt.MessageHandler{}, published: map[string][][]byte{}}
}

func (f *fakeClient) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return f.startErr
}

func (f *fakeClient) Disconnect(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
}

func (f *fakeClient) Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published[topic] = append(f.published[topic], payload)
	return nil
}

func (f *fakeClient) Subscribe(ctx context.Context, topic string, qos int, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakeClient) AwaitConnection(ctx context.Context) error {
	return f.connectErr
}

func (f *fakeClient) deliver(topic string, payload []byte) {
	f.mu.Lock()
	h := f.handlers[topic]
	f.mu.Unlock()
	h(context.Background(), topic, payload)
}

func TestMQTTSource(t *testing.T) {
	client := newFakeClient()
	topics := mqtt.NewTopics("rover/v1")
	src := NewMQTTSource(client, topics, "rover-01", time.Minute)

	require.Error(t, src.Probe(context.Background()), "probe before start")
	require.NoError(t, src.Start(context.Background()))
	require.NoError(t, src.Probe(context.Background()))

	_, err := src.OperatingMode(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeStatusUnavailable))

	client.deliver(topics.Status("rover-01"), []byte(`{"mode":"normal","mission":"autonomous"}`))
	mission, err := src.CommandedMission(context.Background())
	require.NoError(t, err)
	assert.Equal(t, consts.MissionAutonomousNavigation, mission)

	// Malformed frames keep the previous snapshot
	client.deliver(topics.Status("rover-01"), []byte(`not json`))
	mission, err = src.CommandedMission(context.Background())
	require.NoError(t, err)
	assert.Equal(t, consts.MissionAutonomousNavigation, mission)

	// A retained clear withdraws the command
	client.deliver(topics.Status("rover-01"), nil)
	_, err = src.CommandedMission(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeStatusUnavailable))

	require.NoError(t, src.Close())
	assert.Equal(t, 1, client.disconnects)
}

func TestMQTTSource_StaleFrameIsUnavailable(t *testing.T) {
	client := newFakeClient()
	topics := mqtt.NewTopics("rover/v1")
	src := NewMQTTSource(client, topics, "rover-01", 50*time.Millisecond)
	require.NoError(t, src.Start(context.Background()))

	client.deliver(topics.Status("rover-01"), []byte(`{"mode":"normal","mission":"science","timestamp":"2000-01-01T00:00:00Z"}`))
	_, err := src.CommandedMission(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStatusUnavailable))

	// Unstamped frames age from receipt
	client.deliver(topics.Status("rover-01"), []byte(`{"mode":"normal","mission":"science"}`))
	mission, err := src.CommandedMission(context.Background())
	require.NoError(t, err)
	assert.Equal(t, consts.MissionScience, mission)

	require.Eventually(t, func() bool {
		_, err := src.CommandedMission(context.Background())
		return errors.IsCode(err, errors.ErrCodeStatusUnavailable)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMQTTSource_MissingModeIsUnrecognized(t *testing.T) {
	client := newFakeClient()
	topics := mqtt.NewTopics("rover/v1")
	src := NewMQTTSource(client, topics, "rover-01", time.Minute)
	require.NoError(t, src.Start(context.Background()))

	client.deliver(topics.Status("rover-01"), []byte(`{"mission":"science"}`))
	mode, err := src.OperatingMode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, consts.OperatingMode(""), mode)
	assert.False(t, mode.Known())
}

func TestMQTTSource_ProbeFailsWhenBrokerUnreachable(t *testing.T) {
	client := newFakeClient()
	client.connectErr = context.DeadlineExceeded
	src := NewMQTTSource(client, mqtt.NewTopics("rover/v1"), "rover-01", time.Minute)
	require.NoError(t, src.Start(context.Background()))

	_, err := Open(context.Background(), "rover-01", src, 50*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConstruction))
}
