// Package matchstore persists per-participant match records and serves the
// read path the analytics engine aggregates over.
package matchstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/riftscope/riftscope/internal/database"
	"github.com/riftscope/riftscope/internal/domain"
)

// Repository handles match participant persistence in matches.db.
// Records are keyed by (match_id, player_id) so re-ingesting a match is a
// harmless upsert.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new match store repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "matchstore").Logger(),
	}
}

// ListParticipantRecords returns one record per match the player appeared in,
// ordered most recent first. The [since, until) bounds are half-open.
func (r *Repository) ListParticipantRecords(playerID string, since, until time.Time) ([]domain.MatchParticipantRecord, error) {
	query := `
		SELECT match_id, player_id, champion_id, champion_name, role,
			kills, deaths, assists, creep_score, vision_score,
			gold_earned, damage_to_champions, duration_minutes, win, played_at
		FROM match_participants
		WHERE player_id = ? AND played_at >= ? AND played_at < ?
		ORDER BY played_at DESC
	`

	rows, err := r.db.Query(query, playerID, since.Unix(), until.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query participant records: %w", err)
	}
	defer rows.Close()

	var records []domain.MatchParticipantRecord
	for rows.Next() {
		var rec domain.MatchParticipantRecord
		var win int
		var playedAt int64
		err := rows.Scan(
			&rec.MatchID,
			&rec.PlayerID,
			&rec.ChampionID,
			&rec.ChampionName,
			&rec.Role,
			&rec.Kills,
			&rec.Deaths,
			&rec.Assists,
			&rec.CreepScore,
			&rec.VisionScore,
			&rec.GoldEarned,
			&rec.DamageToChampions,
			&rec.DurationMinutes,
			&win,
			&playedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant record: %w", err)
		}
		rec.Win = win != 0
		rec.PlayedAt = time.Unix(playedAt, 0).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participant records: %w", err)
	}

	return records, nil
}

// UpsertRecords inserts or replaces a batch of participant records in a
// single transaction.
func (r *Repository) UpsertRecords(records []domain.MatchParticipantRecord) error {
	if len(records) == 0 {
		return nil
	}

	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT OR REPLACE INTO match_participants (
				match_id, player_id, champion_id, champion_name, role,
				kills, deaths, assists, creep_score, vision_score,
				gold_earned, damage_to_champions, duration_minutes, win, played_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, rec := range records {
			win := 0
			if rec.Win {
				win = 1
			}
			_, err := stmt.Exec(
				rec.MatchID,
				rec.PlayerID,
				rec.ChampionID,
				rec.ChampionName,
				rec.Role,
				rec.Kills,
				rec.Deaths,
				rec.Assists,
				rec.CreepScore,
				rec.VisionScore,
				rec.GoldEarned,
				rec.DamageToChampions,
				rec.DurationMinutes,
				win,
				rec.PlayedAt.Unix(),
			)
			if err != nil {
				return fmt.Errorf("failed to upsert record %s/%s: %w", rec.MatchID, rec.PlayerID, err)
			}
		}
		return nil
	})
}

// CountRecords returns the number of stored records for a player.
func (r *Repository) CountRecords(playerID string) (int, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM match_participants WHERE player_id = ?", playerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// LatestPlayedAt returns the played_at of the player's most recent stored
// match, or the zero time if none exist.
func (r *Repository) LatestPlayedAt(playerID string) (time.Time, error) {
	var playedAt sql.NullInt64
	err := r.db.QueryRow(
		"SELECT MAX(played_at) FROM match_participants WHERE player_id = ?", playerID,
	).Scan(&playedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest played_at: %w", err)
	}
	if !playedAt.Valid {
		return time.Time{}, nil
	}
	return time.Unix(playedAt.Int64, 0).UTC(), nil
}
