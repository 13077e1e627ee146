package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nakayama-software/ciren-sub000/internal/receiver/config"
	"github.com/nakayama-software/ciren-sub000/internal/receiver/db"
	"github.com/nakayama-software/ciren-sub000/internal/receiver/history"
	"github.com/nakayama-software/ciren-sub000/internal/receiver/httpapi"
	"github.com/nakayama-software/ciren-sub000/internal/receiver/migrate"
	"github.com/nakayama-software/ciren-sub000/internal/receiver/mqtt"
	"github.com/nakayama-software/ciren-sub000/internal/receiver/normalizer"
	"github.com/nakayama-software/ciren-sub000/internal/receiver/reassembly"
)

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"sqliteDriver", cfg.SQLiteDriver,
		"sqlitePath", cfg.SQLitePath,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
		"reassemblyTimeout", cfg.ReassemblyTimeout,
	)

	dbConn, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(dbConn); err != nil {
		return err
	}

	var ok int
	if err := dbConn.QueryRow(`SELECT 1`).Scan(&ok); err != nil {
		return err
	}
	if ok != 1 {
		return errors.New("database connection failed")
	}
	slog.Info("database connection successful")

	repo := history.NewRepository(dbConn)
	buf := reassembly.NewBuffer(cfg.ReassemblyTimeout)

	// Handler must be set before Connect so the OnConnect subscription can
	// deliver queued messages into the pipeline immediately.
	subscriber := mqtt.NewSubscriber(cfg)
	subscriber.MessageHandler = func(obj map[string]any) error {
		return ingest(buf, repo, obj)
	}

	connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
	err = subscriber.Connect(connectCtx)
	connectCancel()
	if err != nil {
		slog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
	}

	// Drop stale partial snapshots so a lost radio part cannot pin memory.
	cleanupDone := make(chan struct{})
	go func() {
		defer close(cleanupDone)
		ticker := time.NewTicker(cfg.ReassemblyTimeout)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if dropped := buf.Cleanup(); dropped > 0 {
					slog.Warn("dropped incomplete snapshots", "count", dropped)
				}
			}
		}
	}()

	mux := httpapi.NewMux(dbConn, repo)
	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slog.Info("mqtt disconnecting")
	subscriber.Disconnect()
	<-cleanupDone

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

// ingest runs one decoded uplink object through reassembly, normalization
// and storage. Rejections are logged and swallowed; they are expected
// traffic, not pipeline failures.
func ingest(buf *reassembly.Buffer, repo history.Repository, obj map[string]any) error {
	whole := buf.Add(obj)
	if whole == nil {
		return nil
	}

	rec, err := normalizer.Normalize(whole)
	if err != nil {
		switch {
		case errors.Is(err, normalizer.ErrNotHubTelemetry):
			slog.Debug("skipping non-telemetry message", "reason", err)
		case errors.Is(err, normalizer.ErrMalformedPort):
			slog.Warn("rejected malformed snapshot", "reason", err)
		default:
			slog.Warn("rejected snapshot", "reason", err)
		}
		return nil
	}

	id, err := repo.InsertRecord(rec, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store record for %s: %w", rec.HubID, err)
	}
	slog.Debug("record stored", "id", id, "hub_id", rec.HubID, "nodes", len(rec.Nodes))
	return nil
}
