package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// DefaultCapacity bounds how many notifications are kept.
const DefaultCapacity = 50

// Notification is a dismissible message for the view layer.
type Notification struct {
	ID      string    `json:"id"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier accepts notifications.
type Notifier interface {
	Push(level Level, message string) Notification
}

// Center keeps the most recent notifications until dismissed.
type Center struct {
	mu       sync.Mutex
	items    []Notification
	capacity int
	now      func() time.Time
}

// NewCenter creates a center keeping at most capacity notifications.
func NewCenter(capacity int) *Center {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Center{capacity: capacity, now: time.Now}
}

// Push records a notification, dropping the oldest beyond capacity.
func (c *Center) Push(level Level, message string) Notification {
	n := Notification{ID: uuid.NewString(), Level: level, Message: message, At: c.now()}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, n)
	if over := len(c.items) - c.capacity; over > 0 {
		c.items = append([]Notification(nil), c.items[over:]...)
	}
	return n
}

// Success is Push(LevelSuccess, message).
func (c *Center) Success(message string) Notification { return c.Push(LevelSuccess, message) }

// Error is Push(LevelError, message).
func (c *Center) Error(message string) Notification { return c.Push(LevelError, message) }

// List returns the pending notifications, oldest first.
func (c *Center) List() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification(nil), c.items...)
}

// Dismiss removes a notification; it reports whether it existed.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, n := range c.items {
		if n.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// Discard drops notifications; useful where no view is attached.
type Discard struct{}

func (Discard) Push(level Level, message string) Notification {
	return Notification{Level: level, Message: message}
}
