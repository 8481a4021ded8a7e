// Package sqlite implements campaign persistence over a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hearthside/hearthside/internal/game/domain"
	"github.com/hearthside/hearthside/internal/platform/storage/sqlitemigrate"
	"github.com/hearthside/hearthside/internal/storage"
	"github.com/hearthside/hearthside/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store implements storage.Store over SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens the campaign SQLite store and applies bundled migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveCampaign upserts a campaign row.
func (s *Store) SaveCampaign(ctx context.Context, campaign domain.Campaign) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO campaigns (id, name, dm_player_id, paused, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    dm_player_id = excluded.dm_player_id,
    paused = excluded.paused,
    updated_at = excluded.updated_at
`, campaign.ID, campaign.Name, campaign.DMPlayerID, boolToInt(campaign.Paused), toMillis(campaign.CreatedAt), toMillis(campaign.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save campaign: %w", err)
	}
	return nil
}

// GetCampaign loads a campaign row.
func (s *Store) GetCampaign(ctx context.Context, campaignID string) (domain.Campaign, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, name, dm_player_id, paused, created_at, updated_at
FROM campaigns WHERE id = ?
`, campaignID)

	var campaign domain.Campaign
	var paused int
	var createdAt, updatedAt int64
	if err := row.Scan(&campaign.ID, &campaign.Name, &campaign.DMPlayerID, &paused, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.Campaign{}, storage.ErrNotFound
		}
		return domain.Campaign{}, fmt.Errorf("get campaign: %w", err)
	}
	campaign.Paused = paused != 0
	campaign.CreatedAt = fromMillis(createdAt)
	campaign.UpdatedAt = fromMillis(updatedAt)
	return campaign, nil
}

// ListCampaigns lists campaigns ordered by creation time.
func (s *Store) ListCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, name, dm_player_id, paused, created_at, updated_at
FROM campaigns ORDER BY created_at ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		var campaign domain.Campaign
		var paused int
		var createdAt, updatedAt int64
		if err := rows.Scan(&campaign.ID, &campaign.Name, &campaign.DMPlayerID, &paused, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		campaign.Paused = paused != 0
		campaign.CreatedAt = fromMillis(createdAt)
		campaign.UpdatedAt = fromMillis(updatedAt)
		out = append(out, campaign)
	}
	return out, rows.Err()
}

// DeleteCampaign removes a campaign and all of its dependent rows.
func (s *Store) DeleteCampaign(ctx context.Context, campaignID string) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	for _, stmt := range []string{
		"DELETE FROM messages WHERE campaign_id = ?",
		"DELETE FROM characters WHERE campaign_id = ?",
		"DELETE FROM players WHERE campaign_id = ?",
		"DELETE FROM campaigns WHERE id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, campaignID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("delete campaign: %w", err)
		}
	}
	return tx.Commit()
}

// SavePlayers replaces the campaign roster.
func (s *Store) SavePlayers(ctx context.Context, campaignID string, players []domain.Player) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save players: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM players WHERE campaign_id = ?", campaignID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear players: %w", err)
	}
	for _, player := range players {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO players (campaign_id, id, name, is_dm, joined_at)
VALUES (?, ?, ?, ?, ?)
`, campaignID, player.ID, player.Name, boolToInt(player.IsDM), toMillis(player.JoinedAt)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("save player %s: %w", player.ID, err)
		}
	}
	return tx.Commit()
}

// ListPlayers loads the campaign roster. Connection and readiness flags are
// runtime state and always come back false.
func (s *Store) ListPlayers(ctx context.Context, campaignID string) ([]domain.Player, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, name, is_dm, joined_at
FROM players WHERE campaign_id = ? ORDER BY joined_at ASC, id ASC
`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var out []domain.Player
	for rows.Next() {
		var player domain.Player
		var isDM int
		var joinedAt int64
		if err := rows.Scan(&player.ID, &player.Name, &isDM, &joinedAt); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		player.IsDM = isDM != 0
		player.JoinedAt = fromMillis(joinedAt)
		out = append(out, player)
	}
	return out, rows.Err()
}

// characterSheet is the JSON blob for slice and map character fields.
type characterSheet struct {
	Abilities   domain.AbilityScores `json:"abilities"`
	Skills      map[string]bool      `json:"skills,omitempty"`
	Actions     []string             `json:"actions,omitempty"`
	KnownSpells []string             `json:"known_spells,omitempty"`
	Inventory   []domain.Item        `json:"inventory,omitempty"`
	Conditions  map[string]int       `json:"conditions,omitempty"`
}

// SaveCharacters replaces the campaign's characters.
func (s *Store) SaveCharacters(ctx context.Context, campaignID string, characters []domain.Character) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save characters: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM characters WHERE campaign_id = ?", campaignID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear characters: %w", err)
	}
	for _, character := range characters {
		sheet, err := json.Marshal(characterSheet{
			Abilities:   character.Abilities,
			Skills:      character.Skills,
			Actions:     character.Actions,
			KnownSpells: character.KnownSpells,
			Inventory:   character.Inventory,
			Conditions:  character.Conditions,
		})
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode character sheet: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO characters (campaign_id, id, player_id, name, race, class, background,
    level, max_hp, current_hp, temp_hp, armor_class, proficiency_bonus, sheet,
    created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, campaignID, character.ID, character.PlayerID, character.Name, character.Race,
			character.Class, character.Background, character.Level, character.MaxHP,
			character.CurrentHP, character.TempHP, character.ArmorClass,
			character.ProficiencyBonus, string(sheet),
			toMillis(character.CreatedAt), toMillis(character.UpdatedAt)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("save character %s: %w", character.ID, err)
		}
	}
	return tx.Commit()
}

// ListCharacters loads the campaign's characters.
func (s *Store) ListCharacters(ctx context.Context, campaignID string) ([]domain.Character, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, player_id, name, race, class, background, level, max_hp, current_hp,
    temp_hp, armor_class, proficiency_bonus, sheet, created_at, updated_at
FROM characters WHERE campaign_id = ? ORDER BY created_at ASC, id ASC
`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	defer rows.Close()

	var out []domain.Character
	for rows.Next() {
		var character domain.Character
		var sheetJSON string
		var createdAt, updatedAt int64
		if err := rows.Scan(&character.ID, &character.PlayerID, &character.Name,
			&character.Race, &character.Class, &character.Background, &character.Level,
			&character.MaxHP, &character.CurrentHP, &character.TempHP,
			&character.ArmorClass, &character.ProficiencyBonus, &sheetJSON,
			&createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan character: %w", err)
		}
		var sheet characterSheet
		if err := json.Unmarshal([]byte(sheetJSON), &sheet); err != nil {
			return nil, fmt.Errorf("decode character sheet: %w", err)
		}
		character.Abilities = sheet.Abilities
		character.Skills = sheet.Skills
		character.Actions = sheet.Actions
		character.KnownSpells = sheet.KnownSpells
		character.Inventory = sheet.Inventory
		character.Conditions = sheet.Conditions
		character.CreatedAt = fromMillis(createdAt)
		character.UpdatedAt = fromMillis(updatedAt)
		out = append(out, character)
	}
	return out, rows.Err()
}

// SaveMessages upserts transcript rows keyed by (campaign, seq).
func (s *Store) SaveMessages(ctx context.Context, campaignID string, messages []domain.Message) error {
	if len(messages) == 0 {
		return nil
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save messages: %w", err)
	}
	for _, msg := range messages {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO messages (campaign_id, seq, kind, sender_id, sender_name, body, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(campaign_id, seq) DO UPDATE SET
    kind = excluded.kind,
    sender_id = excluded.sender_id,
    sender_name = excluded.sender_name,
    body = excluded.body,
    created_at = excluded.created_at
`, campaignID, msg.Seq, string(msg.Kind), msg.SenderID, msg.SenderName, msg.Text, toMillis(msg.CreatedAt)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("save message %d: %w", msg.Seq, err)
		}
	}
	return tx.Commit()
}

// ListMessages loads transcript rows after afterSeq in ascending order.
func (s *Store) ListMessages(ctx context.Context, campaignID string, afterSeq uint64, limit int) ([]domain.Message, error) {
	query := `
SELECT seq, kind, sender_id, sender_name, body, created_at
FROM messages WHERE campaign_id = ? AND seq > ? ORDER BY seq ASC
`
	args := []any{campaignID, afterSeq}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var msg domain.Message
		var kind string
		var createdAt int64
		if err := rows.Scan(&msg.Seq, &kind, &msg.SenderID, &msg.SenderName, &msg.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Kind = domain.MessageKind(kind)
		msg.CreatedAt = fromMillis(createdAt)
		out = append(out, msg)
	}
	return out, rows.Err()
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
