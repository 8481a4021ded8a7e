// Package storage defines the persistence interfaces for campaign state.
//
// Stores persist campaign metadata, players, characters and the message
// transcript. Save methods upsert so replaying an in-memory snapshot is
// idempotent. Implementations live in subpackages.
package storage

import (
	"context"

	"github.com/hearthside/hearthside/internal/game/domain"
	apperrors "github.com/hearthside/hearthside/internal/platform/errors"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// CampaignStore persists campaign metadata.
type CampaignStore interface {
	SaveCampaign(ctx context.Context, campaign domain.Campaign) error
	GetCampaign(ctx context.Context, campaignID string) (domain.Campaign, error)
	ListCampaigns(ctx context.Context) ([]domain.Campaign, error)
	DeleteCampaign(ctx context.Context, campaignID string) error
}

// PlayerStore persists campaign rosters.
type PlayerStore interface {
	SavePlayers(ctx context.Context, campaignID string, players []domain.Player) error
	ListPlayers(ctx context.Context, campaignID string) ([]domain.Player, error)
}

// CharacterStore persists player characters.
type CharacterStore interface {
	SaveCharacters(ctx context.Context, campaignID string, characters []domain.Character) error
	ListCharacters(ctx context.Context, campaignID string) ([]domain.Character, error)
}

// MessageStore persists campaign transcripts.
type MessageStore interface {
	SaveMessages(ctx context.Context, campaignID string, messages []domain.Message) error
	// ListMessages returns messages with Seq greater than afterSeq in
	// ascending order. limit of zero means no limit.
	ListMessages(ctx context.Context, campaignID string, afterSeq uint64, limit int) ([]domain.Message, error)
}

// Store aggregates every persistence surface behind one handle.
type Store interface {
	CampaignStore
	PlayerStore
	CharacterStore
	MessageStore
	Close() error
}
