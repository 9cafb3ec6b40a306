// Package domain contains the core data types shared across the application.
// The domain layer is pure: no infrastructure dependencies.
package domain

import "time"

// Role identifies the position a participant played in a match.
type Role string

const (
	RoleTop     Role = "TOP"
	RoleJungle  Role = "JUNGLE"
	RoleMiddle  Role = "MIDDLE"
	RoleBottom  Role = "BOTTOM"
	RoleUtility Role = "UTILITY"
)

// CanonicalRoles is the fixed iteration order used wherever per-role results
// must be deterministic (tie-breaks, response ordering).
var CanonicalRoles = []Role{RoleTop, RoleJungle, RoleMiddle, RoleBottom, RoleUtility}

// MatchParticipantRecord is a single player's performance in one match.
// Records are owned by the record store and treated as immutable inputs;
// the analytics engine never mutates them.
type MatchParticipantRecord struct {
	MatchID           string    `json:"match_id"`
	PlayerID          string    `json:"player_id"`
	ChampionID        int       `json:"champion_id"`
	ChampionName      string    `json:"champion_name"`
	Role              Role      `json:"role"`
	Kills             int       `json:"kills"`
	Deaths            int       `json:"deaths"`
	Assists           int       `json:"assists"`
	CreepScore        int       `json:"creep_score"`
	VisionScore       int       `json:"vision_score"`
	GoldEarned        int       `json:"gold_earned"`
	DamageToChampions int       `json:"damage_to_champions"`
	DurationMinutes   float64   `json:"duration_minutes"`
	Win               bool      `json:"win"`
	PlayedAt          time.Time `json:"played_at"`
}

// KDA returns (kills+assists)/deaths, or kills+assists when deaths is zero.
func (r MatchParticipantRecord) KDA() float64 {
	if r.Deaths == 0 {
		return float64(r.Kills + r.Assists)
	}
	return float64(r.Kills+r.Assists) / float64(r.Deaths)
}

// CSPerMinute returns creep score per minute, or 0 for zero-length games.
func (r MatchParticipantRecord) CSPerMinute() float64 {
	if r.DurationMinutes <= 0 {
		return 0
	}
	return float64(r.CreepScore) / r.DurationMinutes
}

// RecordStore is the read path to the durable match record store.
type RecordStore interface {
	ListParticipantRecords(playerID string, since, until time.Time) ([]MatchParticipantRecord, error)
}
