package flow

import (
	"sort"

	"github.com/lumova/learnflow/internal/api"
)

// Flatten converts a lesson tree into the ordered list of flow steps.
//
// It is a pure function of its input: the same lesson list always yields an
// identical array. Saved position indices are offsets into this array, so
// determinism here is what keeps them meaningful across reloads.
//
// Rules:
//   - Unpublished sections are dropped.
//   - A lesson with at least one published section contributes one step per
//     section, ordered by the section Order field (ties keep input order).
//   - A lesson with no published sections contributes exactly one fallback
//     step carrying the lesson's own content, so no lesson is ever skipped.
func Flatten(lessons []api.Lesson) []Step {
	steps := make([]Step, 0, len(lessons))

	for li, lesson := range lessons {
		published := make([]api.Section, 0, len(lesson.Sections))
		for _, sec := range lesson.Sections {
			if sec.IsPublished {
				published = append(published, sec)
			}
		}
		sort.SliceStable(published, func(i, j int) bool {
			return published[i].Order < published[j].Order
		})

		if len(published) == 0 {
			steps = append(steps, lessonFallback(lesson, li))
			continue
		}

		for _, sec := range published {
			step := Step{
				Key:         "section:" + sec.ID,
				Kind:        StepSection,
				LessonID:    lesson.ID,
				LessonIndex: li,
				SectionID:   sec.ID,
				Title:       sec.Title,
				Content:     sec.Content,
				VideoURL:    sec.VideoURL,
				Exercise:    sec.Exercise,
				IsCompleted: sec.IsCompleted,
			}
			if len(sec.Exercise) > 0 {
				step.ExerciseInvalid = ValidateExercise(sec.Exercise) != nil
			}
			steps = append(steps, step)
		}
	}

	return steps
}

func lessonFallback(lesson api.Lesson, index int) Step {
	step := Step{
		Key:         "lesson:" + lesson.ID,
		Kind:        StepLessonText,
		LessonID:    lesson.ID,
		LessonIndex: index,
		Title:       lesson.Title,
		Content:     lesson.Content,
		VideoURL:    lesson.VideoURL,
		IsCompleted: lesson.IsCompleted,
	}
	if len(lesson.Exercise) > 0 {
		step.Kind = StepLessonExercise
		step.Exercise = lesson.Exercise
		step.ExerciseInvalid = ValidateExercise(lesson.Exercise) != nil
	}
	return step
}

// FirstIncomplete returns the index of the first step whose server-side
// completion flag is false, or 0 if every step is already complete.
func FirstIncomplete(steps []Step) int {
	for i, s := range steps {
		if !s.IsCompleted {
			return i
		}
	}
	return 0
}
