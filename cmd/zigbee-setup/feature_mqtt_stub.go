//go:build no_mqtt

package main

import (
	"log/slog"

	"zigbee-go-setup/internal/setup"
)

type mqttStopper struct{}

func (m *mqttStopper) Stop() {}

func initMQTT(_ *setup.Service, _ *Config, _ *slog.Logger) *mqttStopper {
	return &mqttStopper{}
}
