package api

import (
	"context"
	"encoding/json"
)

// HeartsSnapshot is the server's authoritative view of the hearts pool.
// Every mutation endpoint returns the full snapshot; callers replace their
// local copy wholesale rather than patching individual fields.
type HeartsSnapshot struct {
	Hearts    int `json:"hearts"`
	MaxHearts int `json:"max_hearts"`

	// NextHeartInSeconds is nil when the pool is full or regeneration is
	// disabled server-side.
	NextHeartInSeconds *int `json:"next_heart_in_seconds"`
}

// FlowPosition is the saved progression index for one course.
type FlowPosition struct {
	// CurrentIndex is nil when the learner has never opened the course.
	CurrentIndex *int `json:"current_index"`
}

// Section is one published unit of lesson content.
type Section struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Order       int             `json:"order"`
	IsPublished bool            `json:"is_published"`
	Content     string          `json:"content"`
	VideoURL    string          `json:"video_url"`
	Exercise    json.RawMessage `json:"exercise,omitempty"`
	IsCompleted bool            `json:"is_completed"`
}

// Lesson is one entry of the lessons-with-progress tree. Legacy lessons
// predate sections and carry their content and exercise directly.
type Lesson struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Content     string          `json:"content"`
	VideoURL    string          `json:"video_url"`
	Exercise    json.RawMessage `json:"exercise,omitempty"`
	IsCompleted bool            `json:"is_completed"`
	Sections    []Section       `json:"sections"`
}

// HeartsAPI covers the hearts pool endpoints. The server owns the count and
// the regeneration clock; the client only mirrors what these calls return.
type HeartsAPI interface {
	FetchHearts(ctx context.Context) (HeartsSnapshot, error)
	DecrementHearts(ctx context.Context, amount int) (HeartsSnapshot, error)
	GrantHearts(ctx context.Context, amount int) (HeartsSnapshot, error)
	RefillHearts(ctx context.Context) (HeartsSnapshot, error)
}

// ProgressAPI covers position persistence and completion reporting.
//
// SavePosition carries no version token: if the same account saves from two
// devices, the later write wins. Adding an ETag would be a server contract
// change and is out of scope here.
type ProgressAPI interface {
	FetchPosition(ctx context.Context, courseID string) (FlowPosition, error)
	SavePosition(ctx context.Context, courseID string, index int) error
	CompleteSection(ctx context.Context, sectionID string) error
	CompleteLesson(ctx context.Context, lessonID string) error
}

// ContentAPI fetches the ordered lesson tree with per-item progress flags.
type ContentAPI interface {
	FetchLessons(ctx context.Context, courseID string) ([]Lesson, error)
}
