package flow

import "encoding/json"

// StepKind identifies what a flow step presents.
type StepKind string

const (
	// StepSection is one published section of a lesson.
	StepSection StepKind = "section"

	// StepLessonText is the fallback for a legacy lesson without sections
	// whose content is plain text or video.
	StepLessonText StepKind = "lesson-text"

	// StepLessonExercise is the fallback for a legacy lesson without
	// sections that carries an exercise.
	StepLessonExercise StepKind = "lesson-exercise"
)

// Step is one atomic unit of progression. Steps are immutable once
// flattened; a saved position index is an offset into the flattened array,
// so the order must not change within one content fetch.
type Step struct {
	// Key is unique within one flattened flow. Section steps use the
	// section ID, lesson fallbacks the lesson ID, each prefixed with the
	// kind namespace so the two can never collide.
	Key string

	Kind StepKind

	// LessonID and LessonIndex point back at the owning lesson.
	LessonID    string
	LessonIndex int

	// SectionID is empty for lesson-fallback steps.
	SectionID string

	Title    string
	Content  string
	VideoURL string

	// Exercise is the raw exercise definition, nil for text/video steps.
	Exercise json.RawMessage

	// ExerciseInvalid marks an exercise payload that failed schema
	// validation. The step still appears in the flow but completes by
	// acknowledgement instead of answer submission.
	ExerciseInvalid bool

	// IsCompleted mirrors the server's progress flag at flatten time.
	IsCompleted bool
}

// HasExercise reports whether the step expects an answer submission.
func (s Step) HasExercise() bool {
	return len(s.Exercise) > 0 && !s.ExerciseInvalid
}
