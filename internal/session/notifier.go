package session

import (
	"time"

	"github.com/google/uuid"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// successDismiss is how long a success confirmation stays up. Errors stay until dismissed.
const successDismiss = 2 * time.Second

type Notification struct {
	ID    string `json:"id"`
	Level Level  `json:"level"`
	Title string `json:"title"`
	Text  string `json:"text"`
	// AutoDismissMS is zero for notifications that stay until dismissed.
	AutoDismissMS int64     `json:"autoDismissMs,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Notifier interface {
	Notify(n Notification)
}

type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

func successNotification(title, text string) Notification {
	return Notification{
		ID:            uuid.NewString(),
		Level:         LevelSuccess,
		Title:         title,
		Text:          text,
		AutoDismissMS: successDismiss.Milliseconds(),
		CreatedAt:     time.Now(),
	}
}

func errorNotification(e *AuthError) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Level:     LevelError,
		Title:     e.Title,
		Text:      e.Message,
		CreatedAt: time.Now(),
	}
}
