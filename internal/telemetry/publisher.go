package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/turtacn/Rover/internal/mqtt"
	"github.com/turtacn/Rover/internal/supervisor"
	"github.com/turtacn/Rover/pkg/logger"
)

const publishTimeout = 2 * time.Second

// Publisher sends every non-idle cycle report to the base station over MQTT.
type Publisher struct {
	client  mqtt.Client
	topic   string
	online  string
	roverID string
}

func NewPublisher(client mqtt.Client, topics *mqtt.Topics, roverID string) *Publisher {
	return &Publisher{
		client:  client,
		topic:   topics.Cycle(roverID),
		online:  topics.Online(roverID),
		roverID: roverID,
	}
}

// Start connects and announces the rover as online.
func (p *Publisher) Start(ctx context.Context) error {
	if err := p.client.Start(ctx); err != nil {
		return err
	}
	go func() {
		if err := p.client.AwaitConnection(ctx); err != nil {
			return
		}
		payload, _ := json.Marshal(map[string]any{"rover_id": p.roverID, "online": true})
		if err := p.client.Publish(ctx, p.online, 1, true, payload); err != nil {
			logger.Log.Warn("Telemetry: Online announcement failed", "err", err)
		}
	}()
	return nil
}

// Report implements supervisor.Reporter.
func (p *Publisher) Report(ctx context.Context, r supervisor.CycleReport) {
	if r.Quiet() {
		return
	}
	payload, err := json.Marshal(r.Record())
	if err != nil {
		logger.Log.Error("Telemetry: Encoding cycle failed", "cycle", r.ID, "err", err)
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.client.Publish(pubCtx, p.topic, 1, false, payload); err != nil {
		logger.Log.Warn("Telemetry: Publishing cycle failed", "cycle", r.ID, "err", err)
	}
}

func (p *Publisher) Close(ctx context.Context) {
	p.client.Disconnect(ctx)
}

// Personal.AI order the ending
