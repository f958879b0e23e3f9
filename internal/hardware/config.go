package hardware

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/turtacn/Rover/internal/mqtt"
	"github.com/turtacn/Rover/pkg/consts"
	"github.com/turtacn/Rover/pkg/errors"
	"github.com/turtacn/Rover/pkg/protocol"
)

// NewSource builds and starts the status source named by cfg.Hardware.Source.
func NewSource(ctx context.Context, cfg protocol.Config) (StatusSource, error) {
	hw := cfg.Hardware
	switch hw.Source {
	case consts.SourceMemory, "":
		return NewMemorySource(consts.ParseOperatingMode(hw.Mode), consts.ParseMissionKind(hw.Mission)), nil

	case consts.SourceFile:
		return NewFileSource(hw.StatusFile), nil

	case consts.SourceSocket:
		s := NewSocketSource(hw.SocketPath, hw.MaxStatusAgeDuration())
		if err := s.Start(); err != nil {
			return nil, err
		}
		return s, nil

	case consts.SourceMQTT:
		client, err := NewMQTTClient(cfg, fmt.Sprintf("rover-%s", cfg.Rover.ID))
		if err != nil {
			return nil, errors.New(errors.ErrCodeConstruction, "NewSource", "creating mqtt client", err)
		}
		s := NewMQTTSource(client, mqtt.NewTopics(cfg.MQTT.TopicRoot), cfg.Rover.ID, hw.MaxStatusAgeDuration())
		if err := s.Start(ctx); err != nil {
			return nil, err
		}
		return s, nil

	default:
		return nil, errors.New(errors.ErrCodeConstruction, "NewSource", fmt.Sprintf("unknown hardware source %q", hw.Source), nil)
	}
}

// NewMQTTClient builds a client for cfg with the rover's offline last will.
// defaultClientID is used when the config does not name one.
func NewMQTTClient(cfg protocol.Config, defaultClientID string) (mqtt.Client, error) {
	clientCfg := mqtt.FromConfig(cfg.MQTT)
	if clientCfg.ClientID == "" {
		clientCfg.ClientID = defaultClientID
	}

	offline, _ := json.Marshal(map[string]any{"rover_id": cfg.Rover.ID, "online": false})
	clientCfg.WillTopic = mqtt.NewTopics(cfg.MQTT.TopicRoot).Online(cfg.Rover.ID)
	clientCfg.WillPayload = offline
	clientCfg.WillQoS = 1
	clientCfg.WillRetain = true

	return mqtt.NewClient(clientCfg)
}

// Personal.AI order the ending
