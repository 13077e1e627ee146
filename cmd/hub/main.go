package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nakayama-software/ciren-sub000/internal/hub"
	"github.com/nakayama-software/ciren-sub000/internal/hub/channel"
	"github.com/nakayama-software/ciren-sub000/internal/hub/config"
	"github.com/nakayama-software/ciren-sub000/internal/hub/identity"
	"github.com/nakayama-software/ciren-sub000/internal/hub/radio"
	"github.com/nakayama-software/ciren-sub000/internal/logging"
)

var version = "dev"
var appName = "ciren-hub"

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.AppEnv, version, appName)
	slog.SetDefault(logger)

	slog.Info("starting",
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
		"log_level", cfg.LogLevel.String(),
	)

	store := identity.NewStore(cfg.IdentityPath, cfg.DefaultID)

	if cfg.ProvisionID != 0 {
		if err := store.Provision(cfg.ProvisionID); err != nil {
			slog.Error("provision failed", "err", err)
			os.Exit(1)
		}
		slog.Info("identity provisioned", "hub_id", cfg.ProvisionID, "path", cfg.IdentityPath)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, store); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}

	slog.Info("shutting down")
}

func run(ctx context.Context, cfg config.Config, store *identity.Store) error {
	hubID := store.Load()
	slog.Info("identity loaded", "hub_id", hubID, "path", cfg.IdentityPath)

	var channels [hub.NumPorts]channel.Channel
	for i, name := range cfg.SerialPorts {
		if name == "" {
			continue
		}
		sc, err := channel.OpenSerial(name, cfg.BaudRate)
		if err != nil {
			// A missing sensor module is not fatal; the port stays offline.
			slog.Warn("serial open failed", "port", i+1, "device", name, "error", err)
			continue
		}
		defer sc.Close()
		channels[i] = sc
		slog.Info("serial channel open", "port", i+1, "device", name, "baud", cfg.BaudRate)
	}

	var h *hub.Hub
	link := radio.NewMQTT(radio.MQTTOptions{
		Broker:        cfg.MQTTBroker,
		Port:          cfg.MQTTPort,
		ClientID:      fmt.Sprintf("%s-%d", cfg.MQTTClientID, hubID),
		UplinkTopic:   cfg.UplinkTopic,
		DownlinkTopic: cfg.DownlinkTopic,
		OnDownlink: func(payload []byte) {
			h.PushDownlink(payload)
		},
	})
	defer link.Disconnect()

	h = hub.New(hub.Options{
		ID:          hubID,
		Channels:    channels,
		Transmitter: link,
		Health:      hub.StaticHealth{Battery: cfg.BatteryLevel, Signal: cfg.SignalStrength},

		PortTimeout:  cfg.PortTimeout,
		SendInterval: cfg.SendInterval,
		TickPeriod:   cfg.TickPeriod,
		MaxPayload:   cfg.MaxPayload,
	})

	// Connect after the hub exists: the downlink subscription fires on a
	// client goroutine and may deliver a message immediately.
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err := link.Connect(connectCtx)
	cancel()
	if err != nil {
		// The link auto-reconnects; snapshots fail harmlessly until it does.
		slog.Warn("radio connect failed (continuing, will retry in background)", "error", err)
	}

	return h.Run(ctx)
}
