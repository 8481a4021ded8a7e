// Package bbolt implements campaign persistence over a BoltDB file.
//
// It is the zero-dependency-daemon alternative to the SQLite backend:
// records are stored as JSON values, with one sub-bucket per campaign for
// roster, characters and transcript rows. Message keys are big-endian
// sequence numbers so range scans come back in order.
package bbolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hearthside/hearthside/internal/game/domain"
	"github.com/hearthside/hearthside/internal/storage"
	"go.etcd.io/bbolt"
)

const (
	campaignBucket  = "campaigns"
	playerBucket    = "players"
	characterBucket = "characters"
	messageBucket   = "messages"
)

// Store provides a BoltDB-backed campaign store.
type Store struct {
	db *bbolt.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{campaignBucket, playerBucket, characterBucket, messageBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

// SaveCampaign persists a campaign record.
func (s *Store) SaveCampaign(ctx context.Context, campaign domain.Campaign) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(campaign.ID) == "" {
		return fmt.Errorf("campaign id is required")
	}

	payload, err := json.Marshal(campaign)
	if err != nil {
		return fmt.Errorf("marshal campaign: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(campaignBucket)).Put([]byte(campaign.ID), payload)
	})
}

// GetCampaign fetches a campaign record by ID.
func (s *Store) GetCampaign(ctx context.Context, campaignID string) (domain.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return domain.Campaign{}, err
	}

	var campaign domain.Campaign
	err := s.db.View(func(tx *bbolt.Tx) error {
		payload := tx.Bucket([]byte(campaignBucket)).Get([]byte(campaignID))
		if payload == nil {
			return storage.ErrNotFound
		}
		if err := json.Unmarshal(payload, &campaign); err != nil {
			return fmt.Errorf("unmarshal campaign: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Campaign{}, err
	}
	return campaign, nil
}

// ListCampaigns returns every campaign record.
func (s *Store) ListCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []domain.Campaign
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(campaignBucket)).ForEach(func(_, payload []byte) error {
			var campaign domain.Campaign
			if err := json.Unmarshal(payload, &campaign); err != nil {
				return fmt.Errorf("unmarshal campaign: %w", err)
			}
			out = append(out, campaign)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteCampaign removes a campaign and all of its dependent records.
func (s *Store) DeleteCampaign(ctx context.Context, campaignID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket([]byte(campaignBucket)).Delete([]byte(campaignID)); err != nil {
			return fmt.Errorf("delete campaign: %w", err)
		}
		for _, name := range []string{playerBucket, characterBucket, messageBucket} {
			bucket := tx.Bucket([]byte(name))
			if bucket.Bucket([]byte(campaignID)) == nil {
				continue
			}
			if err := bucket.DeleteBucket([]byte(campaignID)); err != nil {
				return fmt.Errorf("delete %s for campaign: %w", name, err)
			}
		}
		return nil
	})
}

// SavePlayers replaces the campaign roster.
func (s *Store) SavePlayers(ctx context.Context, campaignID string, players []domain.Player) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.replaceJSONBucket(playerBucket, campaignID, len(players), func(i int) (string, any) {
		return players[i].ID, players[i]
	})
}

// ListPlayers loads the campaign roster. Connection and readiness flags
// are runtime state and always come back false.
func (s *Store) ListPlayers(ctx context.Context, campaignID string) ([]domain.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []domain.Player
	err := s.forEachJSON(playerBucket, campaignID, func(payload []byte) error {
		var player domain.Player
		if err := json.Unmarshal(payload, &player); err != nil {
			return fmt.Errorf("unmarshal player: %w", err)
		}
		player.Connected = false
		player.Ready = false
		out = append(out, player)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SaveCharacters replaces the campaign's characters.
func (s *Store) SaveCharacters(ctx context.Context, campaignID string, characters []domain.Character) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.replaceJSONBucket(characterBucket, campaignID, len(characters), func(i int) (string, any) {
		return characters[i].ID, characters[i]
	})
}

// ListCharacters loads the campaign's characters.
func (s *Store) ListCharacters(ctx context.Context, campaignID string) ([]domain.Character, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []domain.Character
	err := s.forEachJSON(characterBucket, campaignID, func(payload []byte) error {
		var character domain.Character
		if err := json.Unmarshal(payload, &character); err != nil {
			return fmt.Errorf("unmarshal character: %w", err)
		}
		out = append(out, character)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SaveMessages upserts transcript records keyed by sequence number.
func (s *Store) SaveMessages(ctx context.Context, campaignID string, messages []domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.Bucket([]byte(messageBucket)).CreateBucketIfNotExists([]byte(campaignID))
		if err != nil {
			return fmt.Errorf("create message bucket: %w", err)
		}
		for _, msg := range messages {
			payload, err := json.Marshal(msg)
			if err != nil {
				return fmt.Errorf("marshal message: %w", err)
			}
			if err := bucket.Put(seqKey(msg.Seq), payload); err != nil {
				return fmt.Errorf("put message %d: %w", msg.Seq, err)
			}
		}
		return nil
	})
}

// ListMessages loads transcript records after afterSeq in ascending order.
func (s *Store) ListMessages(ctx context.Context, campaignID string, afterSeq uint64, limit int) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []domain.Message
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(messageBucket)).Bucket([]byte(campaignID))
		if bucket == nil {
			return nil
		}
		cursor := bucket.Cursor()
		for key, payload := cursor.Seek(seqKey(afterSeq + 1)); key != nil; key, payload = cursor.Next() {
			var msg domain.Message
			if err := json.Unmarshal(payload, &msg); err != nil {
				return fmt.Errorf("unmarshal message: %w", err)
			}
			out = append(out, msg)
			if limit > 0 && len(out) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// replaceJSONBucket drops a campaign's sub-bucket and refills it with the
// provided records.
func (s *Store) replaceJSONBucket(name, campaignID string, count int, record func(i int) (string, any)) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		parent := tx.Bucket([]byte(name))
		if parent.Bucket([]byte(campaignID)) != nil {
			if err := parent.DeleteBucket([]byte(campaignID)); err != nil {
				return fmt.Errorf("clear %s bucket: %w", name, err)
			}
		}
		bucket, err := parent.CreateBucket([]byte(campaignID))
		if err != nil {
			return fmt.Errorf("create %s bucket: %w", name, err)
		}
		for i := 0; i < count; i++ {
			key, value := record(i)
			payload, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("marshal %s record: %w", name, err)
			}
			if err := bucket.Put([]byte(key), payload); err != nil {
				return fmt.Errorf("put %s record: %w", name, err)
			}
		}
		return nil
	})
}

func (s *Store) forEachJSON(name, campaignID string, fn func(payload []byte) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(name)).Bucket([]byte(campaignID))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(_, payload []byte) error {
			return fn(payload)
		})
	})
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
