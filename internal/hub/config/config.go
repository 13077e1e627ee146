package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level

	MQTTBroker    string
	MQTTPort      int
	MQTTClientID  string
	UplinkTopic   string
	DownlinkTopic string

	// SerialPorts maps hub ports 1..8 to serial device names, in order.
	// Empty entries leave the port unpopulated.
	SerialPorts []string
	BaudRate    int

	IdentityPath string
	DefaultID    int

	// ProvisionID, when non-zero, writes a new identity and exits.
	ProvisionID int

	PortTimeout  time.Duration
	SendInterval time.Duration
	TickPeriod   time.Duration
	MaxPayload   int

	BatteryLevel   int
	SignalStrength int
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	mqttBroker := strings.TrimSpace(os.Getenv("MQTT_BROKER"))
	if mqttBroker == "" {
		mqttBroker = "localhost"
	}

	mqttPort, err := intEnv("MQTT_PORT", 1883)
	if err != nil {
		return Config{}, err
	}

	mqttClientID := strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID"))
	if mqttClientID == "" {
		mqttClientID = "ciren-hub"
	}

	uplinkTopic := strings.TrimSpace(os.Getenv("UPLINK_TOPIC"))
	if uplinkTopic == "" {
		uplinkTopic = "ciren/uplink"
	}

	downlinkTopic := strings.TrimSpace(os.Getenv("DOWNLINK_TOPIC"))
	if downlinkTopic == "" {
		downlinkTopic = "ciren/downlink"
	}

	var serialPorts []string
	if s := strings.TrimSpace(os.Getenv("SERIAL_PORTS")); s != "" {
		for _, name := range strings.Split(s, ",") {
			serialPorts = append(serialPorts, strings.TrimSpace(name))
		}
		if len(serialPorts) > 8 {
			return Config{}, fmt.Errorf("SERIAL_PORTS lists %d devices (max 8)", len(serialPorts))
		}
	}

	baudRate, err := intEnv("BAUD_RATE", 115200)
	if err != nil {
		return Config{}, err
	}

	identityPath := strings.TrimSpace(os.Getenv("IDENTITY_PATH"))
	if identityPath == "" {
		identityPath = "identity.nv"
	}

	defaultID, err := intEnv("HUB_DEFAULT_ID", 1)
	if err != nil {
		return Config{}, err
	}
	if defaultID < 1 || defaultID > 9 {
		return Config{}, fmt.Errorf("HUB_DEFAULT_ID %d outside [1,9]", defaultID)
	}

	provisionID, err := intEnv("HUB_PROVISION_ID", 0)
	if err != nil {
		return Config{}, err
	}

	portTimeout, err := durationEnv("PORT_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	sendInterval, err := durationEnv("SEND_INTERVAL", 2*time.Second)
	if err != nil {
		return Config{}, err
	}
	tickPeriod, err := durationEnv("TICK_PERIOD", 20*time.Millisecond)
	if err != nil {
		return Config{}, err
	}

	maxPayload, err := intEnv("MAX_PAYLOAD", 250)
	if err != nil {
		return Config{}, err
	}

	batteryLevel, err := intEnv("BATTERY_LEVEL", 100)
	if err != nil {
		return Config{}, err
	}
	signalStrength, err := intEnv("SIGNAL_STRENGTH", -70)
	if err != nil {
		return Config{}, err
	}

	return Config{
		AppEnv:         appEnv,
		LogLevel:       level,
		MQTTBroker:     mqttBroker,
		MQTTPort:       mqttPort,
		MQTTClientID:   mqttClientID,
		UplinkTopic:    uplinkTopic,
		DownlinkTopic:  downlinkTopic,
		SerialPorts:    serialPorts,
		BaudRate:       baudRate,
		IdentityPath:   identityPath,
		DefaultID:      defaultID,
		ProvisionID:    provisionID,
		PortTimeout:    portTimeout,
		SendInterval:   sendInterval,
		TickPeriod:     tickPeriod,
		MaxPayload:     maxPayload,
		BatteryLevel:   batteryLevel,
		SignalStrength: signalStrength,
	}, nil
}

func intEnv(name string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(name))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return n, nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(os.Getenv(name))
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", name, d)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
