// Package profile resolves player identity and static reference data through
// the upstream provider. Account lookups route continentally, summoner and
// rotation lookups route to the platform host.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/riftscope/riftscope/internal/gateway"
)

// Account is the provider's account record for a Riot ID.
type Account struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"game_name"`
	TagLine  string `json:"tag_line"`
}

// Summoner is the platform-level summoner record for a PUUID.
type Summoner struct {
	PUUID         string `json:"puuid"`
	ProfileIconID int    `json:"profile_icon_id"`
	RevisionDate  int64  `json:"revision_date"`
	SummonerLevel int    `json:"summoner_level"`
}

// Profile combines the account and summoner records, mirroring the
// two-step lookup the provider requires since by-name was retired.
type Profile struct {
	Account
	ProfileIconID int    `json:"profile_icon_id"`
	SummonerLevel int    `json:"summoner_level"`
	Region        string `json:"region"`
}

// Rotation is the free champion rotation, the one piece of static reference
// data served through the keyed API.
type Rotation struct {
	FreeChampionIDs              []int `json:"free_champion_ids"`
	FreeChampionIDsForNewPlayers []int `json:"free_champion_ids_for_new_players"`
	MaxNewPlayerLevel            int   `json:"max_new_player_level"`
}

// accountWire and summonerWire mirror the upstream payload field names.
type accountWire struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

type summonerWire struct {
	PUUID         string `json:"puuid"`
	ProfileIconID int    `json:"profileIconId"`
	RevisionDate  int64  `json:"revisionDate"`
	SummonerLevel int    `json:"summonerLevel"`
}

type rotationWire struct {
	FreeChampionIDs              []int `json:"freeChampionIds"`
	FreeChampionIDsForNewPlayers []int `json:"freeChampionIdsForNewPlayers"`
	MaxNewPlayerLevel            int   `json:"maxNewPlayerLevel"`
}

// Service performs identity and static lookups. All traffic goes through the
// gateway, so rate limiting, caching and retries apply transparently.
type Service struct {
	gw     *gateway.Gateway
	region string
	log    zerolog.Logger
}

// NewService creates a profile service.
func NewService(gw *gateway.Gateway, region string, log zerolog.Logger) *Service {
	return &Service{
		gw:     gw,
		region: region,
		log:    log.With().Str("component", "profile").Logger(),
	}
}

// ResolveAccount looks up the account for a Riot ID (gameName#tagLine).
// Returns nil, nil when the account does not exist.
func (s *Service) ResolveAccount(ctx context.Context, gameName, tagLine string) (*Account, error) {
	payload, err := s.gw.Fetch(ctx, gateway.Request{
		Family:      gateway.FamilyAccount,
		Region:      s.region,
		Path:        "/riot/account/v1/accounts/by-riot-id/" + url.PathEscape(gameName) + "/" + url.PathEscape(tagLine),
		Continental: true,
	})
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}

	var wire accountWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode account: %w", err)
	}
	return &Account{PUUID: wire.PUUID, GameName: wire.GameName, TagLine: wire.TagLine}, nil
}

// SummonerByPUUID looks up the platform summoner record for a PUUID.
// Returns nil, nil when none exists on this platform.
func (s *Service) SummonerByPUUID(ctx context.Context, puuid string) (*Summoner, error) {
	payload, err := s.gw.Fetch(ctx, gateway.Request{
		Family: gateway.FamilySummoner,
		Region: s.region,
		Path:   "/lol/summoner/v4/summoners/by-puuid/" + url.PathEscape(puuid),
	})
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}

	var wire summonerWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode summoner: %w", err)
	}
	return &Summoner{
		PUUID:         wire.PUUID,
		ProfileIconID: wire.ProfileIconID,
		RevisionDate:  wire.RevisionDate,
		SummonerLevel: wire.SummonerLevel,
	}, nil
}

// Lookup resolves a Riot ID to a full profile: account first, then the
// summoner record for the resulting PUUID. Returns nil, nil when either
// half is missing.
func (s *Service) Lookup(ctx context.Context, gameName, tagLine string) (*Profile, error) {
	account, err := s.ResolveAccount(ctx, gameName, tagLine)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, nil
	}

	summoner, err := s.SummonerByPUUID(ctx, account.PUUID)
	if err != nil {
		return nil, err
	}
	if summoner == nil {
		return nil, nil
	}

	return &Profile{
		Account:       *account,
		ProfileIconID: summoner.ProfileIconID,
		SummonerLevel: summoner.SummonerLevel,
		Region:        s.region,
	}, nil
}

// Rotation returns the current free champion rotation.
func (s *Service) Rotation(ctx context.Context) (*Rotation, error) {
	payload, err := s.gw.Fetch(ctx, gateway.Request{
		Family: gateway.FamilyStatic,
		Region: s.region,
		Path:   "/lol/platform/v3/champion-rotations",
	})
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, fmt.Errorf("champion rotation unavailable")
	}

	var wire rotationWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode champion rotation: %w", err)
	}
	return &Rotation{
		FreeChampionIDs:              wire.FreeChampionIDs,
		FreeChampionIDsForNewPlayers: wire.FreeChampionIDsForNewPlayers,
		MaxNewPlayerLevel:            wire.MaxNewPlayerLevel,
	}, nil
}
