package hardware

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/turtacn/Rover/internal/mqtt"
	"github.com/turtacn/Rover/pkg/consts"
	"github.com/turtacn/Rover/pkg/errors"
	"github.com/turtacn/Rover/pkg/logger"
	"github.com/turtacn/Rover/pkg/protocol"
)

// MQTTSource tracks the retained status the base station publishes on
// {root}/status/{roverID}. A frame older than maxAge is not served.
type MQTTSource struct {
	client mqtt.Client
	topic  string
	maxAge time.Duration

	mu      sync.RWMutex
	latest  *protocol.StatusReport
	started bool
}

func NewMQTTSource(client mqtt.Client, topics *mqtt.Topics, roverID string, maxAge time.Duration) *MQTTSource {
	return &MQTTSource{
		client: client,
		topic:  topics.Status(roverID),
		maxAge: maxAge,
	}
}

// Start connects the client and subscribes to the status topic.
func (s *MQTTSource) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		return errors.New(errors.ErrCodeConstruction, "MQTTSource.Start", "starting mqtt client", err)
	}
	if err := s.client.Subscribe(ctx, s.topic, 1, s.onStatus); err != nil {
		return errors.New(errors.ErrCodeConstruction, "MQTTSource.Start", "subscribing to status", err)
	}
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	return nil
}

func (s *MQTTSource) onStatus(_ context.Context, topic string, payload []byte) {
	if len(payload) == 0 {
		// Retained status cleared by the base station
		s.mu.Lock()
		s.latest = nil
		s.mu.Unlock()
		logger.Log.Warn("MQTT status: Cleared by base station", "topic", topic)
		return
	}
	var report protocol.StatusReport
	if err := json.Unmarshal(payload, &report); err != nil {
		logger.Log.Warn("MQTT status: Dropping malformed frame", "topic", topic, "err", err)
		return
	}
	if report.Timestamp.IsZero() {
		report.Timestamp = time.Now()
	}
	s.mu.Lock()
	s.latest = &report
	s.mu.Unlock()
	logger.Log.Debug("MQTT status: Updated", "mode", report.Mode, "mission", report.Mission)
}

func (s *MQTTSource) snapshot(op string) (protocol.StatusReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return freshStatus(op, s.latest, s.maxAge)
}

func (s *MQTTSource) OperatingMode(ctx context.Context) (consts.OperatingMode, error) {
	r, err := s.snapshot("MQTTSource.OperatingMode")
	if err != nil {
		return "", err
	}
	return consts.ParseReportedMode(r.Mode), nil
}

func (s *MQTTSource) CommandedMission(ctx context.Context) (consts.MissionKind, error) {
	r, err := s.snapshot("MQTTSource.CommandedMission")
	if err != nil {
		return "", err
	}
	return consts.ParseMissionKind(r.Mission), nil
}

// Probe waits for the broker connection.
func (s *MQTTSource) Probe(ctx context.Context) error {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return errors.New(errors.ErrCodeStatusUnavailable, "MQTTSource.Probe", "source not started", nil)
	}
	return s.client.AwaitConnection(ctx)
}

func (s *MQTTSource) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.client.Disconnect(ctx)
	return nil
}

// Personal.AI order the ending
