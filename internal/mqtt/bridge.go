//go:build !no_mqtt

// Package mqtt exposes the setup flow over an MQTT broker: per-device command
// topics for calibration and input programming, retained report topics and a
// live event stream.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"zigbee-go-setup/internal/calibration"
	"zigbee-go-setup/internal/setup"
)

// Config holds MQTT bridge configuration.
type Config struct {
	Broker      string
	Username    string
	Password    string
	TopicPrefix string
}

// calibrationCommand is the set/calibration payload: either a full request or
// a report-only query.
type calibrationCommand struct {
	calibration.Request
	ReportOnly bool `json:"report,omitempty"`
}

// Bridge connects the setup service to MQTT.
type Bridge struct {
	client pahomqtt.Client
	svc    *setup.Service
	prefix string
	logger *slog.Logger
	unsub  func()
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBridge creates and connects an MQTT bridge.
func NewBridge(svc *setup.Service, cfg Config, logger *slog.Logger) (*Bridge, error) {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		svc:    svc,
		prefix: cfg.TopicPrefix,
		logger: logger.With("component", "mqtt"),
		ctx:    ctx,
		cancel: cancel,
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID("zigbee-go-setup").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(cfg.TopicPrefix+"/bridge/state", "offline", 1, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			b.logger.Info("MQTT connected")
			b.publishBridgeState("online")
			b.subscribeCommands()
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			b.logger.Warn("MQTT connection lost", "err", err)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		cancel()
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		cancel()
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	b.client = client
	return b, nil
}

// Start begins forwarding setup events to the event topic.
func (b *Bridge) Start() {
	b.unsub = b.svc.Events().OnAll(b.publishEvent)
	b.logger.Info("MQTT bridge started", "prefix", b.prefix)
}

// Stop cancels in-flight commands, waits for them to finish publishing,
// then announces offline state and disconnects.
func (b *Bridge) Stop() {
	b.cancel()
	b.wg.Wait()
	if b.unsub != nil {
		b.unsub()
	}
	b.publishBridgeState("offline")
	b.client.Disconnect(1000)
	b.logger.Info("MQTT bridge stopped")
}

func (b *Bridge) publishBridgeState(state string) {
	b.client.Publish(b.prefix+"/bridge/state", 1, true, state)
}

func (b *Bridge) subscribeCommands() {
	filter := b.prefix + "/+/set/+"
	token := b.client.Subscribe(filter, 0, b.handleCommand)
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		b.logger.Error("subscribe commands", "filter", filter, "err", token.Error())
	}
}

func (b *Bridge) handleCommand(_ pahomqtt.Client, msg pahomqtt.Message) {
	device, command, ok := parseCommandTopic(b.prefix, msg.Topic())
	if !ok {
		b.logger.Warn("unparseable command topic", "topic", msg.Topic())
		return
	}

	// Handlers run on paho's router goroutine; calibration takes minutes, so
	// every command gets its own goroutine. Stop waits for them before the
	// client disconnects.
	switch command {
	case commandCalibration:
		payload := msg.Payload()
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.runCalibration(device, payload)
		}()
	case commandInputActions:
		payload := msg.Payload()
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.applyActions(device, payload)
		}()
	default:
		b.logger.Warn("unknown command", "device", device, "command", command)
	}
}

func (b *Bridge) runCalibration(device string, payload []byte) {
	var cmd calibrationCommand
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &cmd); err != nil {
			b.logger.Error("bad calibration payload", "device", device, "err", err)
			return
		}
	}

	var report calibration.Report
	var err error
	if len(payload) == 0 || cmd.ReportOnly {
		report, err = b.svc.Report(b.ctx, device)
	} else {
		report, err = b.svc.Calibrate(b.ctx, device, &cmd.Request)
	}
	if err != nil {
		b.logger.Error("calibration command failed", "device", device, "err", err)
		return
	}
	b.publishReport(device, report)
}

func (b *Bridge) applyActions(device string, payload []byte) {
	var cmd setup.ActionsCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logger.Error("bad input_actions payload", "device", device, "err", err)
		return
	}
	if err := b.svc.ApplyActions(b.ctx, device, &cmd); err != nil {
		b.logger.Error("input_actions command failed", "device", device, "err", err)
	}
}

func (b *Bridge) publishReport(device string, report calibration.Report) {
	data, err := json.Marshal(report)
	if err != nil {
		b.logger.Error("marshal report", "device", device, "err", err)
		return
	}
	b.client.Publish(reportTopic(b.prefix, device), 0, true, data)
}

func (b *Bridge) publishEvent(event setup.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	b.client.Publish(eventTopic(b.prefix), 0, false, data)
}
