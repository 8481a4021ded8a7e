// Package cursor provides opaque pagination tokens for transcript history.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Cursor is the decoded state of a transcript pagination token.
type Cursor struct {
	// Seq is the last sequence number the client has seen; the next page
	// starts after it.
	Seq uint64 `json:"seq"`
	// CampaignID pins the token to one campaign so a token replayed
	// against another campaign is rejected.
	CampaignID string `json:"cid"`
}

// Encode encodes a cursor to an opaque base64 string.
func Encode(c Cursor) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// Decode decodes an opaque token. An empty token yields the zero cursor,
// meaning the start of the transcript.
func Decode(token, campaignID string) (Cursor, error) {
	if token == "" {
		return Cursor{CampaignID: campaignID}, nil
	}
	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode cursor: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, fmt.Errorf("unmarshal cursor: %w", err)
	}
	if c.CampaignID != campaignID {
		return Cursor{}, fmt.Errorf("cursor belongs to another campaign")
	}
	return c, nil
}
