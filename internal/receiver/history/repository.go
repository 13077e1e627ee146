// Package history persists normalized hub records and answers queries over
// them.
package history

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nakayama-software/ciren-sub000/internal/receiver/normalizer"
)

//go:embed sql/insert-record.sql
var insertRecordSQL string

//go:embed sql/insert-node.sql
var insertNodeSQL string

//go:embed sql/get-hubs.sql
var getHubsSQL string

//go:embed sql/get-latest-records.sql
var getLatestRecordsSQL string

//go:embed sql/get-record-nodes.sql
var getRecordNodesSQL string

// HubSummary is one known hub and its activity.
type HubSummary struct {
	HubID      string    `json:"hub_id"`
	Records    int       `json:"records"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// StoredRecord is one persisted hub record with its nodes.
type StoredRecord struct {
	ID             int64             `json:"id"`
	HubID          string            `json:"hub_id"`
	ReceivedAt     time.Time         `json:"received_at"`
	SignalStrength *float64          `json:"signal_strength"`
	BatteryLevel   *float64          `json:"battery_level"`
	Latitude       *float64          `json:"latitude"`
	Longitude      *float64          `json:"longitude"`
	Nodes          []normalizer.Node `json:"nodes"`
}

type Repository interface {
	InsertRecord(rec *normalizer.HubRecord, receivedAt time.Time) (int64, error)
	GetHubs() ([]HubSummary, error)
	GetLatestRecords(hubID string, limit int) ([]StoredRecord, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repositoryImpl{db: db}
}

// InsertRecord stores one record and its nodes in a single transaction and
// returns the new record id.
func (r *repositoryImpl) InsertRecord(rec *normalizer.HubRecord, receivedAt time.Time) (int64, error) {
	raw, err := json.Marshal(rec.Raw)
	if err != nil {
		return 0, fmt.Errorf("marshal raw: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			slog.Error("rollback insert record", "error", err)
		}
	}()

	tsStr := receivedAt.UTC().Format(time.RFC3339Nano)
	res, err := tx.Exec(insertRecordSQL,
		rec.HubID, tsStr,
		nullable(rec.SignalStrength), nullable(rec.BatteryLevel),
		nullable(rec.Latitude), nullable(rec.Longitude),
		string(raw),
	)
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}
	recordID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record id: %w", err)
	}

	for _, n := range rec.Nodes {
		if _, err := tx.Exec(insertNodeSQL, recordID, n.NodeID, n.SensorType, n.Value); err != nil {
			return 0, fmt.Errorf("insert node %s: %w", n.NodeID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return recordID, nil
}

func (r *repositoryImpl) GetHubs() ([]HubSummary, error) {
	rows, err := r.db.Query(getHubsSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close hubs rows", "error", err)
		}
	}()

	var out []HubSummary
	for rows.Next() {
		var h HubSummary
		var ts string
		if err := rows.Scan(&h.HubID, &h.Records, &ts); err != nil {
			return nil, err
		}
		t, err := parseDBTime(ts)
		if err != nil {
			return nil, err
		}
		h.LastSeenAt = t
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) GetLatestRecords(hubID string, limit int) ([]StoredRecord, error) {
	rows, err := r.db.Query(getLatestRecordsSQL, hubID, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close records rows", "error", err)
		}
	}()

	var out []StoredRecord
	byID := make(map[int64]int)
	for rows.Next() {
		var rec StoredRecord
		var ts string
		if err := rows.Scan(&rec.ID, &rec.HubID, &ts,
			&rec.SignalStrength, &rec.BatteryLevel, &rec.Latitude, &rec.Longitude); err != nil {
			return nil, err
		}
		t, err := parseDBTime(ts)
		if err != nil {
			return nil, err
		}
		rec.ReceivedAt = t
		byID[rec.ID] = len(out)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	nodeRows, err := r.db.Query(getRecordNodesSQL, hubID, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := nodeRows.Close(); err != nil {
			slog.Error("close nodes rows", "error", err)
		}
	}()
	for nodeRows.Next() {
		var recordID int64
		var n normalizer.Node
		if err := nodeRows.Scan(&recordID, &n.NodeID, &n.SensorType, &n.Value); err != nil {
			return nil, err
		}
		if i, ok := byID[recordID]; ok {
			out[i].Nodes = append(out[i].Nodes, n)
		}
	}
	return out, nodeRows.Err()
}

func nullable(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func parseDBTime(ts string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		var err2 error
		t, err2 = time.Parse(time.RFC3339, ts)
		if err2 != nil {
			return time.Time{}, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
	}
	return t, nil
}
