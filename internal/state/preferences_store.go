/*

This file persists named preference profiles and the rank snapshots produced
under them. Profiles are stored as JSONB so the preferences shape can evolve
without migrations; the profile name is the natural key.

*/

package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stableyield/autopilot/internal/types"
)

var ErrProfileNotFound = errors.New("preference profile not found")

// SavePreferences upserts a named profile.
func SavePreferences(name string, prefs types.Preferences) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	if name == "" {
		return fmt.Errorf("profile name cannot be empty")
	}

	payload, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	query := `
		INSERT INTO preference_profiles (profile_name, preferences, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (profile_name) DO UPDATE
		SET preferences = EXCLUDED.preferences, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := DB.Exec(query, name, payload); err != nil {
		log.Error().Err(err).Str("profile", name).Msg("Failed to save preference profile")
		return fmt.Errorf("failed to save preference profile: %w", err)
	}
	return nil
}

// LoadPreferences fetches a named profile.
func LoadPreferences(name string) (types.Preferences, error) {
	var prefs types.Preferences
	if DB == nil {
		return prefs, fmt.Errorf("database not initialized")
	}

	var payload []byte
	query := `SELECT preferences FROM preference_profiles WHERE profile_name = $1`
	err := DB.QueryRow(query, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return prefs, ErrProfileNotFound
	}
	if err != nil {
		return prefs, fmt.Errorf("failed to load preference profile: %w", err)
	}

	if err := json.Unmarshal(payload, &prefs); err != nil {
		return prefs, fmt.Errorf("failed to unmarshal preference profile: %w", err)
	}
	return prefs, nil
}

// ListProfiles returns all profile names, newest first.
func ListProfiles() ([]string, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.Query(`SELECT profile_name FROM preference_profiles ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list preference profiles: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan profile name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// SaveRankSnapshot records one ranking result for later inspection.
func SaveRankSnapshot(profileName string, result types.RankResult) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal rank result: %w", err)
	}

	query := `
		INSERT INTO rank_snapshots (profile_name, candidate_count, data_quality, result)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := DB.Exec(query, profileName, result.Count, result.DataQuality, payload); err != nil {
		log.Error().Err(err).Str("profile", profileName).Msg("Failed to save rank snapshot")
		return fmt.Errorf("failed to save rank snapshot: %w", err)
	}
	return nil
}

// RecentRankSnapshots returns the latest snapshots for a profile.
func RecentRankSnapshots(profileName string, limit int) ([]types.RankResult, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	query := `
		SELECT result FROM rank_snapshots
		WHERE profile_name = $1
		ORDER BY snapshot_timestamp DESC
		LIMIT $2
	`
	rows, err := DB.Query(query, profileName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rank snapshots: %w", err)
	}
	defer rows.Close()

	var results []types.RankResult
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan rank snapshot: %w", err)
		}
		var result types.RankResult
		if err := json.Unmarshal(payload, &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rank snapshot: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// PruneRankSnapshots deletes snapshots older than the retention window.
func PruneRankSnapshots(retention time.Duration) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	res, err := DB.Exec(`DELETE FROM rank_snapshots WHERE snapshot_timestamp < $1`, time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to prune rank snapshots: %w", err)
	}
	deleted, _ := res.RowsAffected()
	return deleted, nil
}
