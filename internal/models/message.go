package models

import (
	"encoding/json"
	"time"
)

// MessageType classifies a message sent to the admins.
type MessageType string

const (
	MessageSuggestion MessageType = "suggestion"
	MessageFeedback   MessageType = "feedback"
	MessageReview     MessageType = "review"
	MessageQuestion   MessageType = "question"
)

// MessageStatus tracks admin handling of a message.
type MessageStatus string

const (
	StatusPending MessageStatus = "pending"
	StatusRead    MessageStatus = "read"
	StatusReplied MessageStatus = "replied"
)

// Message is a user-to-admin message.
type Message struct {
	ID        string        `json:"_id"`
	Type      MessageType   `json:"type"`
	Title     string        `json:"title"`
	Content   string        `json:"content"`
	Image     string        `json:"image,omitempty"`
	Status    MessageStatus `json:"status"`
	User      UserRef       `json:"user"`
	Reply     string        `json:"reply,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

func (m *Message) UnmarshalJSON(data []byte) error {
	type alias Message
	aux := struct {
		*alias
		AltID string `json:"id"`
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = aux.AltID
	}
	return nil
}
