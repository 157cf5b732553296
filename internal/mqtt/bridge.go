// Package mqtt mirrors the entities onto an MQTT broker using Home Assistant
// MQTT discovery, and turns command topic messages into entity actions.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"eldom_bridge"
	"eldom_bridge/internal/entity"
	"eldom_bridge/internal/logger"
	"eldom_bridge/internal/service"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	qos            = 1
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	disconnectWait = 250 // milliseconds
	queueSize      = 64

	DefaultDiscoveryPrefix = "homeassistant"
	DefaultTopicPrefix     = "eldom_bridge"
)

var ErrConnect = errors.New("mqtt connect failed")

// Config selects the broker and topic layout.
type Config struct {
	Broker          string // tcp://host:1883
	Username        string
	Password        string
	ClientID        string
	DiscoveryPrefix string
	TopicPrefix     string
}

// Control is the part of the service layer the bridge drives.
type Control interface {
	ListEntities(ctx context.Context) ([]eldom_bridge.EntityState, error)
	Execute(ctx context.Context, uniqueID, action string, p service.ActionParams) (eldom_bridge.EntityState, error)
	SubscribeStates(fn service.StatesListener) (cancel func())
}

// client is the subset of paho.Client in use.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// Bridge publishes entity discovery and state and executes commands.
type Bridge struct {
	cfg     Config
	control Control
	log     *logger.Logger

	paho   paho.Client
	client client

	mu        sync.Mutex
	announced map[string]string // unique id -> kind
	kinds     map[string]string // object id -> unique id

	updates chan []eldom_bridge.EntityState
}

func New(cfg Config, control Control, log *logger.Logger) *Bridge {
	if cfg.DiscoveryPrefix == "" {
		cfg.DiscoveryPrefix = DefaultDiscoveryPrefix
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultTopicPrefix
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultTopicPrefix
	}
	return &Bridge{
		cfg:       cfg,
		control:   control,
		log:       log.Named("mqtt"),
		announced: make(map[string]string),
		kinds:     make(map[string]string),
		updates:   make(chan []eldom_bridge.EntityState, queueSize),
	}
}

// Start connects to the broker and mirrors state until ctx is canceled.
// The paho client reconnects on its own; every (re)connect re-announces.
func (b *Bridge) Start(ctx context.Context) error {
	opts := paho.NewClientOptions().
		AddBroker(b.cfg.Broker).
		SetClientID(b.cfg.ClientID).
		SetUsername(b.cfg.Username).
		SetPassword(b.cfg.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetWill(b.statusTopic(), offline, qos, true).
		SetOnConnectHandler(func(paho.Client) { b.onConnect(ctx) }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			b.log.Warnw("mqtt_connection_lost", "broker", b.cfg.Broker, "error", err)
		})

	c := paho.NewClient(opts)
	b.paho, b.client = c, c

	token := c.Connect()
	if !token.WaitTimeout(connectTimeout) {
		// SetConnectRetry keeps trying in the background
		b.log.Warnw("mqtt_connect_pending", "broker", b.cfg.Broker)
	} else if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}

	b.run(ctx)
	return nil
}

// run subscribes to state updates and publishes them from one goroutine.
func (b *Bridge) run(ctx context.Context) {
	cancel := b.control.SubscribeStates(func(_ string, states []eldom_bridge.EntityState) {
		select {
		case b.updates <- states:
		default:
			b.log.Warnw("mqtt_update_dropped", "entities", len(states))
		}
	})
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case states := <-b.updates:
				b.publishStates(states)
			}
		}
	}()
}

// Stop marks the bridge offline and disconnects.
func (b *Bridge) Stop() {
	if b.paho == nil {
		return
	}
	if b.paho.IsConnected() {
		b.publish(b.statusTopic(), true, offline)
	}
	b.paho.Disconnect(disconnectWait)
	b.log.Infow("mqtt_disconnected", "broker", b.cfg.Broker)
}

func (b *Bridge) onConnect(ctx context.Context) {
	b.log.Infow("mqtt_connected", "broker", b.cfg.Broker)
	b.subscribeCommands(ctx)
	b.publish(b.statusTopic(), true, online)

	// the broker may have lost retained configs, announce everything again
	b.mu.Lock()
	b.announced = make(map[string]string)
	b.mu.Unlock()

	states, err := b.control.ListEntities(ctx)
	if err != nil {
		b.log.Errorw("mqtt_list_entities_failed", "error", err)
		return
	}
	b.publishStates(states)
}

func (b *Bridge) subscribeCommands(ctx context.Context) {
	topic := b.cfg.TopicPrefix + "/+/+/set"
	token := b.client.Subscribe(topic, qos, func(_ paho.Client, msg paho.Message) {
		// paho delivers messages in order from one goroutine; do not block it
		go b.handleCommand(ctx, msg.Topic(), string(msg.Payload()))
	})
	if token.WaitTimeout(publishTimeout) && token.Error() != nil {
		b.log.Errorw("mqtt_subscribe_failed", "topic", topic, "error", token.Error())
	}
}

// publishStates announces unseen entities, then publishes state and availability.
func (b *Bridge) publishStates(states []eldom_bridge.EntityState) {
	for _, st := range states {
		b.announce(st)
		payload, err := json.Marshal(st)
		if err != nil {
			b.log.Errorw("mqtt_state_marshal_failed", "unique_id", st.UniqueID, "error", err)
			continue
		}
		b.publish(b.stateTopic(st.UniqueID), true, payload)
		avail := offline
		if st.Available {
			avail = online
		}
		b.publish(b.availabilityTopic(st.UniqueID), true, avail)
	}
}

func (b *Bridge) announce(st eldom_bridge.EntityState) {
	b.mu.Lock()
	_, done := b.announced[st.UniqueID]
	b.mu.Unlock()
	// an unavailable entity has no name or device yet
	if done || st.DeviceID == "" || st.Name == "" {
		return
	}
	cfg, ok := b.discovery(st)
	if !ok {
		return
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		b.log.Errorw("mqtt_discovery_marshal_failed", "unique_id", st.UniqueID, "error", err)
		return
	}
	b.publish(b.discoveryTopic(st), true, payload)

	b.mu.Lock()
	b.announced[st.UniqueID] = st.Kind
	b.kinds[objectID(st.UniqueID)] = st.UniqueID
	b.mu.Unlock()
	b.log.Debugw("mqtt_entity_announced", "unique_id", st.UniqueID, "kind", st.Kind)
}

func (b *Bridge) publish(topic string, retained bool, payload interface{}) {
	token := b.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		b.log.Warnw("mqtt_publish_timeout", "topic", topic)
		return
	}
	if err := token.Error(); err != nil {
		b.log.Errorw("mqtt_publish_failed", "topic", topic, "error", err)
	}
}

// handleCommand maps <prefix>/<object_id>/<command>/set onto an entity action.
func (b *Bridge) handleCommand(ctx context.Context, topic, payload string) {
	rest, ok := strings.CutPrefix(topic, b.cfg.TopicPrefix+"/")
	parts := strings.Split(rest, "/")
	if !ok || len(parts) != 3 || parts[2] != "set" {
		b.log.Debugw("mqtt_command_ignored", "topic", topic)
		return
	}

	b.mu.Lock()
	uniqueID, known := b.kinds[parts[0]]
	kind := b.announced[uniqueID]
	b.mu.Unlock()
	if !known {
		b.log.Warnw("mqtt_command_unknown_entity", "topic", topic)
		return
	}

	action, params, err := commandAction(entity.Kind(kind), parts[1], strings.TrimSpace(payload))
	if err != nil {
		b.log.Warnw("mqtt_command_invalid", "unique_id", uniqueID, "topic", topic, "payload", payload, "error", err)
		return
	}
	if _, err := b.control.Execute(ctx, uniqueID, action, params); err != nil {
		b.log.Errorw("mqtt_command_failed", "unique_id", uniqueID, "action", action, "error", err)
		return
	}
	b.log.Infow("mqtt_command", "unique_id", uniqueID, "action", action)
}

var errBadPayload = errors.New("unexpected payload")

func commandAction(kind entity.Kind, cmd, payload string) (string, service.ActionParams, error) {
	switch cmd {
	case cmdMode:
		switch kind {
		case entity.KindClimate:
			return service.ActionSetHVACMode, service.ActionParams{Mode: payload}, nil
		case entity.KindWaterHeater:
			return service.ActionSetOperationMode, service.ActionParams{Mode: entity.OperationForAlias(payload)}, nil
		}
	case cmdTemperature:
		t, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return "", service.ActionParams{}, fmt.Errorf("%w: %w", errBadPayload, err)
		}
		return service.ActionSetTemperature, service.ActionParams{Temperature: &t}, nil
	case cmdSwitch:
		switch payload {
		case payloadOn:
			return service.ActionTurnOn, service.ActionParams{}, nil
		case payloadOff:
			return service.ActionTurnOff, service.ActionParams{}, nil
		}
		return "", service.ActionParams{}, fmt.Errorf("%w: %q", errBadPayload, payload)
	case cmdPress:
		return service.ActionPress, service.ActionParams{}, nil
	}
	return "", service.ActionParams{}, fmt.Errorf("%w: %s on %s", errBadPayload, cmd, kind)
}
