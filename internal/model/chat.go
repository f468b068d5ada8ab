package model

import (
	"slices"
	"time"
)

// Chat is a conversation between two (direct) or more (group) users
type Chat struct {
	ID            string    `json:"id" bson:"_id"`
	Participants  []string  `json:"participants" bson:"participants"`
	Title         string    `json:"title,omitempty" bson:"title,omitempty"`
	Topics        []string  `json:"topics,omitempty" bson:"topics,omitempty"`
	MessageCount  int64     `json:"messageCount" bson:"messageCount"`
	LastMessageAt time.Time `json:"lastMessageAt" bson:"lastMessageAt"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
}

func (c *Chat) IsDirect() bool { return len(c.Participants) == 2 }

// IsGroup reports whether health scoring applies (more than two participants)
func (c *Chat) IsGroup() bool { return len(c.Participants) > 2 }

func (c *Chat) HasParticipant(userID string) bool {
	return slices.Contains(c.Participants, userID)
}

// Peer returns the other participant of a direct chat, or "" for groups
func (c *Chat) Peer(userID string) string {
	if !c.IsDirect() {
		return ""
	}
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// Recipients returns every participant except the sender
func (c *Chat) Recipients(senderID string) []string {
	out := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p != senderID {
			out = append(out, p)
		}
	}
	return out
}

// Message is a single chat message. Text is empty when the body is sealed in Envelope.
type Message struct {
	ID       string    `json:"id" bson:"_id"`
	ChatID   string    `json:"chatId" bson:"chatId"`
	SenderID string    `json:"senderId" bson:"senderId"`
	Text     string    `json:"text,omitempty" bson:"text,omitempty"`
	Envelope *Envelope `json:"envelope,omitempty" bson:"envelope,omitempty"`
	SentAt   time.Time `json:"sentAt" bson:"sentAt"`
}

// SendMessageRequest is the body of POST /chats/{chatId}/messages
type SendMessageRequest struct {
	Text string `json:"text"`
}

// SendResult is returned by the send pipeline
type SendResult struct {
	Message       *Message           `json:"message"`
	Health        *HealthScore       `json:"health,omitempty"`
	Icebreakers   []string           `json:"icebreakers,omitempty"`
	Notifications []NotificationPlan `json:"notifications"`
}
