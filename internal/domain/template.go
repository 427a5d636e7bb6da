package domain

import "time"

// Template is a reusable (subject, content) pair with a personalization
// placeholder. Content is captured by the dispatcher at send time, so later
// edits never retroactively alter delivery history.
type Template struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Subject   string    `json:"subject" db:"subject"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NamePlaceholder is the personalization tag substituted with the
// subscriber's display name during rendering.
const NamePlaceholder = "{{name}}"
