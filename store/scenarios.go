package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"fdsbridge/scenario"
)

// ErrNoScenario reports a load for an id that was never saved.
var ErrNoScenario = errors.New("store: scenario not found")

// ScenarioInfo is the listing row for a saved scenario.
type ScenarioInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ACFile    string `json:"ac_file"`
	ACPath    string `json:"ac_path"`
	UpdatedAt string `json:"updated_at"`
}

// SaveScenario upserts a scenario snapshot.
func (db *DB) SaveScenario(s *scenario.Scenario) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal scenario %s: %w", s.ID, err)
	}
	_, err = db.Exec(`
		INSERT INTO scenarios (id, name, ac_file, ac_path, data, updated_at)
		VALUES (?, ?, ?, ?, ?, datetime('now','localtime'))
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			ac_file = excluded.ac_file,
			ac_path = excluded.ac_path,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		s.ID, s.Name, s.ACFile, s.ACPath, string(data))
	return err
}

// LoadScenario reads a scenario snapshot back.
func (db *DB) LoadScenario(id string) (*scenario.Scenario, error) {
	var data string
	err := db.QueryRow(`SELECT data FROM scenarios WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNoScenario
	}
	if err != nil {
		return nil, err
	}
	var s scenario.Scenario
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("unmarshal scenario %s: %w", id, err)
	}
	return &s, nil
}

// ListScenarios returns saved scenarios, most recently updated first.
func (db *DB) ListScenarios() ([]ScenarioInfo, error) {
	rows, err := db.Query(`
		SELECT id, name, ac_file, ac_path, updated_at
		FROM scenarios ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var infos []ScenarioInfo
	for rows.Next() {
		var info ScenarioInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.ACFile, &info.ACPath, &info.UpdatedAt); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// DeleteScenario removes a snapshot and its journal rows.
func (db *DB) DeleteScenario(id string) error {
	if _, err := db.Exec(`DELETE FROM sync_journal WHERE scenario_id = ?`, id); err != nil {
		return err
	}
	_, err := db.Exec(`DELETE FROM scenarios WHERE id = ?`, id)
	return err
}

// SyncEntry is one applied geometry export.
type SyncEntry struct {
	ID         int64  `json:"id"`
	ScenarioID string `json:"scenario_id"`
	ACFile     string `json:"ac_file"`
	ACPath     string `json:"ac_path"`
	Counts     string `json:"counts"`   // JSON object, elements per kind
	Failures   string `json:"failures"` // comma-separated failed kinds
	AppliedAt  string `json:"applied_at"`
}

// AppendSyncJournal records one applied export.
func (db *DB) AppendSyncJournal(scenarioID, acFile, acPath string, counts map[scenario.Kind]int, failed []scenario.Kind) error {
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return err
	}
	failures := make([]string, 0, len(failed))
	for _, k := range failed {
		failures = append(failures, string(k))
	}
	_, err = db.Exec(`
		INSERT INTO sync_journal (scenario_id, ac_file, ac_path, counts, failures)
		VALUES (?, ?, ?, ?, ?)`,
		scenarioID, acFile, acPath, string(countsJSON), strings.Join(failures, ","))
	return err
}

// ListSyncJournal returns the latest journal entries for a scenario.
func (db *DB) ListSyncJournal(scenarioID string, limit int) ([]SyncEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, scenario_id, ac_file, ac_path, counts, failures, applied_at
		FROM sync_journal WHERE scenario_id = ?
		ORDER BY id DESC LIMIT ?`, scenarioID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []SyncEntry
	for rows.Next() {
		var e SyncEntry
		if err := rows.Scan(&e.ID, &e.ScenarioID, &e.ACFile, &e.ACPath, &e.Counts, &e.Failures, &e.AppliedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
