package mqtt

import (
	"errors"
	"net/url"
	"time"

	"github.com/turtacn/Rover/pkg/protocol"
)

// ClientConfig holds the configuration for creating a new MQTT Client.
type ClientConfig struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string

	// KeepAlive in seconds. Default is 60.
	KeepAlive uint16

	// ConnectTimeout for the initial connection. Default is 5s.
	ConnectTimeout time.Duration

	CleanStart         bool
	InsecureSkipVerify bool

	// Last will, published by the broker if the rover drops off.
	WillTopic   string
	WillPayload []byte
	WillQoS     byte
	WillRetain  bool
}

// FromConfig maps the rover's mqtt section onto a client config.
func FromConfig(c protocol.MQTTConfig) *ClientConfig {
	return &ClientConfig{
		BrokerURL:          c.Broker,
		ClientID:           c.ClientID,
		Username:           c.Username,
		Password:           c.Password,
		KeepAlive:          uint16(c.KeepAliveDuration().Seconds()),
		ConnectTimeout:     c.ConnectTimeoutDuration(),
		CleanStart:         c.CleanStart,
		InsecureSkipVerify: c.InsecureSkipVerify,
	}
}

func setDefaultConfig(cfg *ClientConfig) {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = 60
	}
}

// Validate checks if the configuration is valid.
func (c *ClientConfig) Validate() error {
	if c.BrokerURL == "" {
		return errors.New("broker url is required")
	}
	u, err := url.Parse(c.BrokerURL)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return errors.New("broker url must include scheme and host")
	}
	if c.ClientID == "" {
		return errors.New("client id is required")
	}
	return nil
}

// Personal.AI order the ending
