package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/turtacn/Rover/pkg/logger"
)

// reconnectBackoff paces redials after the base-station link drops.
const reconnectBackoff = 3 * time.Second

// route binds a topic filter to the handler that consumes it.
type route struct {
	filter  string
	qos     byte
	handler MessageHandler
}

// link is the rover's connection to the base-station broker. It holds few
// routes (the status topic, at most a handful more) so they live in a
// slice kept in subscription order.
type link struct {
	cfg *ClientConfig
	cm  *autopaho.ConnectionManager

	mu     sync.RWMutex
	routes []route
}

// NewClient validates cfg and returns an unstarted link.
func NewClient(cfg *ClientConfig) (Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mqtt: link config is required")
	}
	setDefaultConfig(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("mqtt: invalid link config: %w", err)
	}
	return &link{cfg: cfg}, nil
}

func (l *link) Start(ctx context.Context) error {
	brokerURL, _ := url.Parse(l.cfg.BrokerURL) // Validated in NewClient

	cm, err := autopaho.NewConnection(ctx, autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{brokerURL},
		KeepAlive:                     l.cfg.KeepAlive,
		CleanStartOnInitialConnection: l.cfg.CleanStart,
		ReconnectBackoff:              autopaho.NewConstantBackoff(reconnectBackoff),
		ConnectTimeout:                l.cfg.ConnectTimeout,
		ConnectUsername:               l.cfg.Username,
		ConnectPassword:               []byte(l.cfg.Password),
		TlsCfg:                        &tls.Config{InsecureSkipVerify: l.cfg.InsecureSkipVerify},
		WillMessage:                   l.will(),
		ClientConfig: paho.ClientConfig{
			ClientID:           l.cfg.ClientID,
			OnClientError:      func(err error) { logger.Log.Error("Base link: Client error", "err", err) },
			OnServerDisconnect: l.onBrokerDisconnect,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				func(p paho.PublishReceived) (bool, error) {
					l.dispatch(p.Packet.Topic, p.Packet.Payload)
					return true, nil
				},
			},
		},
		OnConnectionUp: l.onLinkUp,
		OnConnectError: func(err error) {
			logger.Log.Warn("Base link: Broker unreachable, redialing", "err", err, "backoff", reconnectBackoff)
		},
	})
	if err != nil {
		return err
	}
	l.cm = cm
	logger.Log.Info("Base link: Dialing broker", "broker", l.cfg.BrokerURL, "clientID", l.cfg.ClientID)
	return nil
}

func (l *link) Disconnect(ctx context.Context) {
	if l.cm == nil {
		return
	}
	if err := l.cm.Disconnect(ctx); err != nil {
		logger.Log.Debug("Base link: Disconnect did not complete cleanly", "err", err)
	}
	logger.Log.Info("Base link: Closed")
}

func (l *link) Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error {
	if l.cm == nil {
		return fmt.Errorf("mqtt: link not started")
	}
	_, err := l.cm.Publish(ctx, &paho.Publish{Topic: topic, QoS: byte(qos), Retain: retain, Payload: payload})
	return err
}

// Subscribe records the route before sending the packet so a reconnect
// restores it even if this attempt is lost. Subscribing the same filter
// again replaces its handler.
func (l *link) Subscribe(ctx context.Context, filter string, qos int, handler MessageHandler) error {
	if l.cm == nil {
		return fmt.Errorf("mqtt: link not started")
	}
	l.addRoute(route{filter: filter, qos: byte(qos), handler: handler})

	if _, err := l.cm.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: filter, QoS: byte(qos)}},
	}); err != nil {
		return fmt.Errorf("mqtt: subscribing %s: %w", filter, err)
	}
	logger.Log.Info("Base link: Subscribed", "topic", filter)
	return nil
}

func (l *link) AwaitConnection(ctx context.Context) error {
	if l.cm == nil {
		return fmt.Errorf("mqtt: link not started")
	}
	return l.cm.AwaitConnection(ctx)
}

func (l *link) addRoute(r route) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.routes {
		if l.routes[i].filter == r.filter {
			l.routes[i] = r
			return
		}
	}
	l.routes = append(l.routes, r)
}

// onLinkUp restores every route in a single SUBSCRIBE. With a clean start
// the broker forgot them, and the retained status arrives again right after.
func (l *link) onLinkUp(cm *autopaho.ConnectionManager, _ *paho.Connack) {
	l.mu.RLock()
	opts := make([]paho.SubscribeOptions, 0, len(l.routes))
	for _, r := range l.routes {
		opts = append(opts, paho.SubscribeOptions{Topic: r.filter, QoS: r.qos})
	}
	l.mu.RUnlock()

	logger.Log.Info("Base link: Connected", "routes", len(opts))
	if len(opts) == 0 {
		return
	}
	if _, err := cm.Subscribe(context.Background(), &paho.Subscribe{Subscriptions: opts}); err != nil {
		logger.Log.Error("Base link: Restoring subscriptions failed", "err", err)
	}
}

func (l *link) onBrokerDisconnect(d *paho.Disconnect) {
	reason := ""
	if d.Properties != nil {
		reason = d.Properties.ReasonString
	}
	logger.Log.Warn("Base link: Broker dropped the rover", "reason", reason, "code", d.ReasonCode)
}

// dispatch hands a received frame to every matching route. Matching
// handlers are collected under the lock and run after it is released, on
// paho's receive goroutine, so they must return quickly. An empty payload
// is a retained clear and is still delivered.
func (l *link) dispatch(topic string, payload []byte) bool {
	l.mu.RLock()
	var handlers []MessageHandler
	for _, r := range l.routes {
		if TopicMatches(r.filter, topic) {
			handlers = append(handlers, r.handler)
		}
	}
	l.mu.RUnlock()

	if len(handlers) == 0 {
		logger.Log.Debug("Base link: Frame on unrouted topic", "topic", topic)
		return false
	}
	for _, h := range handlers {
		h(context.Background(), topic, payload)
	}
	return true
}

func (l *link) will() *paho.WillMessage {
	if l.cfg.WillTopic == "" {
		return nil
	}
	return &paho.WillMessage{
		Topic:   l.cfg.WillTopic,
		Payload: l.cfg.WillPayload,
		QoS:     l.cfg.WillQoS,
		Retain:  l.cfg.WillRetain,
	}
}

// TopicMatches reports whether topic matches filter, honoring the + and # wildcards.
func TopicMatches(filter, topic string) bool {
	if filter == topic {
		return true
	}
	if !strings.ContainsAny(filter, "+#") {
		return false
	}

	want := strings.Split(filter, "/")
	got := strings.Split(topic, "/")
	for i, part := range want {
		switch {
		case part == "#":
			return true
		case i >= len(got):
			return false
		case part != "+" && part != got[i]:
			return false
		}
	}
	return len(want) == len(got)
}

// Personal.AI order the ending
