package domain

import "time"

// MessageKind identifies who authored a transcript message.
type MessageKind string

const (
	// MessageKindPlayer is a message typed by a player or the DM.
	MessageKindPlayer MessageKind = "player"
	// MessageKindNarrator is narration, generated or written by the DM.
	MessageKindNarrator MessageKind = "narrator"
	// MessageKindSystem is produced by the server itself, such as turn
	// advancement or generator failure notices.
	MessageKindSystem MessageKind = "system"
)

// Message is one entry in a campaign transcript. Seq is assigned by the
// state store and is strictly increasing with no gaps within a campaign.
type Message struct {
	Seq        uint64
	Kind       MessageKind
	SenderID   string
	SenderName string
	Text       string
	CreatedAt  time.Time
}
