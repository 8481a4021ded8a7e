package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/hearthside/hearthside/internal/platform/errors"

	"github.com/hearthside/hearthside/internal/game/domain"
)

// Persistence is the storage surface the registry needs. Save methods
// upsert, so replaying a snapshot is idempotent.
type Persistence interface {
	GetCampaign(ctx context.Context, campaignID string) (domain.Campaign, error)
	SaveCampaign(ctx context.Context, campaign domain.Campaign) error
	DeleteCampaign(ctx context.Context, campaignID string) error
	ListCampaigns(ctx context.Context) ([]domain.Campaign, error)

	ListPlayers(ctx context.Context, campaignID string) ([]domain.Player, error)
	SavePlayers(ctx context.Context, campaignID string, players []domain.Player) error

	ListCharacters(ctx context.Context, campaignID string) ([]domain.Character, error)
	SaveCharacters(ctx context.Context, campaignID string, characters []domain.Character) error

	ListMessages(ctx context.Context, campaignID string, afterSeq uint64, limit int) ([]domain.Message, error)
	SaveMessages(ctx context.Context, campaignID string, messages []domain.Message) error
}

// Registry maps campaign IDs to their live stores. The registry lock only
// guards the map; campaign mutations go through the per-campaign store
// lock, so traffic in one campaign never waits on another.
type Registry struct {
	mu     sync.RWMutex
	stores map[string]*Store

	db          Persistence
	now         func() time.Time
	idGenerator func() (string, error)
}

// NewRegistry creates a registry. db may be nil for memory-only operation,
// in which case campaigns live until the process exits.
func NewRegistry(db Persistence, now func() time.Time, idGenerator func() (string, error)) *Registry {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = domain.NewID
	}
	return &Registry{
		stores:      map[string]*Store{},
		db:          db,
		now:         now,
		idGenerator: idGenerator,
	}
}

// Create creates a campaign, registers its store and persists the
// campaign row.
func (r *Registry) Create(ctx context.Context, name string) (*Store, error) {
	campaign, err := domain.CreateCampaign(domain.CreateCampaignInput{Name: name}, r.now, r.idGenerator)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeCampaignNameEmpty, "create campaign", err)
	}

	if r.db != nil {
		if err := r.db.SaveCampaign(ctx, campaign); err != nil {
			return nil, fmt.Errorf("persist campaign: %w", err)
		}
	}

	store := NewStore(campaign, r.now)
	r.mu.Lock()
	r.stores[campaign.ID] = store
	r.mu.Unlock()
	return store, nil
}

// Get returns the live store for a campaign, hydrating it from
// persistence on first access.
func (r *Registry) Get(ctx context.Context, campaignID string) (*Store, error) {
	r.mu.RLock()
	store, ok := r.stores[campaignID]
	r.mu.RUnlock()
	if ok {
		return store, nil
	}

	if r.db == nil {
		return nil, apperrors.New(apperrors.CodeCampaignNotFound, "campaign not found")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if store, ok := r.stores[campaignID]; ok {
		return store, nil
	}

	campaign, err := r.db.GetCampaign(ctx, campaignID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			return nil, apperrors.New(apperrors.CodeCampaignNotFound, "campaign not found")
		}
		return nil, fmt.Errorf("load campaign: %w", err)
	}
	players, err := r.db.ListPlayers(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	characters, err := r.db.ListCharacters(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load characters: %w", err)
	}
	messages, err := r.db.ListMessages(ctx, campaignID, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	store = NewStore(campaign, r.now)
	store.Hydrate(players, characters, messages)
	r.stores[campaignID] = store
	return store, nil
}

// Save persists the campaign's full state.
func (r *Registry) Save(ctx context.Context, campaignID string) error {
	if r.db == nil {
		return nil
	}
	r.mu.RLock()
	store, ok := r.stores[campaignID]
	r.mu.RUnlock()
	if !ok {
		return apperrors.New(apperrors.CodeCampaignNotFound, "campaign not found")
	}

	snap := store.Snapshot()
	if err := r.db.SaveCampaign(ctx, snap.Campaign); err != nil {
		return fmt.Errorf("save campaign: %w", err)
	}
	if err := r.db.SavePlayers(ctx, campaignID, snap.Players); err != nil {
		return fmt.Errorf("save players: %w", err)
	}
	if err := r.db.SaveCharacters(ctx, campaignID, snap.Characters); err != nil {
		return fmt.Errorf("save characters: %w", err)
	}
	if err := r.db.SaveMessages(ctx, campaignID, snap.Messages); err != nil {
		return fmt.Errorf("save messages: %w", err)
	}
	return nil
}

// SaveAll persists every live campaign, used on shutdown.
func (r *Registry) SaveAll(ctx context.Context) error {
	r.mu.RLock()
	ids := make([]string, 0, len(r.stores))
	for id := range r.stores {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	for _, id := range ids {
		if err := r.Save(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a campaign from the registry and persistence.
func (r *Registry) Delete(ctx context.Context, campaignID string) error {
	r.mu.Lock()
	delete(r.stores, campaignID)
	r.mu.Unlock()

	if r.db != nil {
		if err := r.db.DeleteCampaign(ctx, campaignID); err != nil {
			return fmt.Errorf("delete campaign: %w", err)
		}
	}
	return nil
}

// List returns the campaigns known to persistence, falling back to the
// live set when persistence is absent.
func (r *Registry) List(ctx context.Context) ([]domain.Campaign, error) {
	if r.db != nil {
		return r.db.ListCampaigns(ctx)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Campaign, 0, len(r.stores))
	for _, store := range r.stores {
		out = append(out, store.Campaign())
	}
	return out, nil
}

// HasPlayer reports whether the player is registered in the campaign,
// hydrating the campaign if needed so tokens survive a server restart.
func (r *Registry) HasPlayer(campaignID, playerID string) bool {
	store, err := r.Get(context.Background(), campaignID)
	if err != nil {
		return false
	}
	return store.HasPlayer(playerID)
}
