package flow

import (
	"reflect"
	"testing"

	"github.com/lumova/learnflow/internal/api"
)

func section(id string, order int, published bool) api.Section {
	return api.Section{
		ID:          id,
		Title:       "Section " + id,
		Order:       order,
		IsPublished: published,
		Content:     "body",
	}
}

func TestFlattenSectionsOrderedWithinLesson(t *testing.T) {
	lessons := []api.Lesson{
		{
			ID: "l1",
			Sections: []api.Section{
				section("s2", 2, true),
				section("s1", 1, true),
				section("s3", 3, true),
			},
		},
	}

	steps := Flatten(lessons)
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}
	wantKeys := []string{"section:s1", "section:s2", "section:s3"}
	for i, want := range wantKeys {
		if steps[i].Key != want {
			t.Errorf("step %d: key = %q, want %q", i, steps[i].Key, want)
		}
		if steps[i].Kind != StepSection {
			t.Errorf("step %d: kind = %q, want %q", i, steps[i].Kind, StepSection)
		}
		if steps[i].LessonID != "l1" || steps[i].LessonIndex != 0 {
			t.Errorf("step %d: lesson backref = (%q, %d)", i, steps[i].LessonID, steps[i].LessonIndex)
		}
	}
}

func TestFlattenFiltersUnpublished(t *testing.T) {
	lessons := []api.Lesson{
		{
			ID: "l1",
			Sections: []api.Section{
				section("s1", 1, true),
				section("s2", 2, false),
				section("s3", 3, true),
			},
		},
	}

	steps := Flatten(lessons)
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[0].SectionID != "s1" || steps[1].SectionID != "s3" {
		t.Errorf("got sections %q, %q", steps[0].SectionID, steps[1].SectionID)
	}
}

func TestFlattenLegacyLessonFallback(t *testing.T) {
	tests := []struct {
		name     string
		lesson   api.Lesson
		wantKind StepKind
	}{
		{
			name:     "text lesson",
			lesson:   api.Lesson{ID: "l1", Title: "T", Content: "body"},
			wantKind: StepLessonText,
		},
		{
			name: "exercise lesson",
			lesson: api.Lesson{
				ID:       "l2",
				Exercise: []byte(`{"type":"fill-in","prompt":"2+2?","answer":"4"}`),
			},
			wantKind: StepLessonExercise,
		},
		{
			name: "all sections unpublished",
			lesson: api.Lesson{
				ID:       "l3",
				Content:  "body",
				Sections: []api.Section{section("s1", 1, false)},
			},
			wantKind: StepLessonText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps := Flatten([]api.Lesson{tt.lesson})
			if len(steps) != 1 {
				t.Fatalf("expected exactly 1 fallback step, got %d", len(steps))
			}
			if steps[0].Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", steps[0].Kind, tt.wantKind)
			}
			if steps[0].Key != "lesson:"+tt.lesson.ID {
				t.Errorf("key = %q", steps[0].Key)
			}
		})
	}
}

// Two lessons, lesson A with 2 published sections, lesson B with none:
// the flow is section, section, lesson-text.
func TestFlattenFreshCourseShape(t *testing.T) {
	lessons := []api.Lesson{
		{
			ID: "a",
			Sections: []api.Section{
				section("a1", 1, true),
				section("a2", 2, true),
			},
		},
		{ID: "b", Content: "legacy body"},
	}

	steps := Flatten(lessons)
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}
	wantKinds := []StepKind{StepSection, StepSection, StepLessonText}
	for i, want := range wantKinds {
		if steps[i].Kind != want {
			t.Errorf("step %d: kind = %q, want %q", i, steps[i].Kind, want)
		}
	}
}

func TestFlattenDeterministic(t *testing.T) {
	lessons := []api.Lesson{
		{
			ID: "l1",
			Sections: []api.Section{
				section("s2", 2, true),
				section("s1", 1, true),
			},
		},
		{ID: "l2", Content: "legacy"},
	}

	first := Flatten(lessons)
	second := Flatten(lessons)
	if !reflect.DeepEqual(first, second) {
		t.Error("flattening the same input twice produced different arrays")
	}
}

func TestFlattenInvalidExerciseFlagged(t *testing.T) {
	lessons := []api.Lesson{
		{
			ID:       "l1",
			Exercise: []byte(`{"prompt":"missing type and answer"}`),
		},
	}

	steps := Flatten(lessons)
	if len(steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(steps))
	}
	if !steps[0].ExerciseInvalid {
		t.Error("invalid exercise payload not flagged")
	}
	if steps[0].HasExercise() {
		t.Error("invalid exercise should degrade to acknowledgement completion")
	}
}

func TestFirstIncomplete(t *testing.T) {
	tests := []struct {
		name      string
		completed []bool
		want      int
	}{
		{"none complete", []bool{false, false, false}, 0},
		{"resume after two", []bool{true, true, false}, 2},
		{"all complete", []bool{true, true, true}, 0},
		{"empty flow", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps := make([]Step, len(tt.completed))
			for i, done := range tt.completed {
				steps[i].IsCompleted = done
			}
			if got := FirstIncomplete(steps); got != tt.want {
				t.Errorf("FirstIncomplete = %d, want %d", got, tt.want)
			}
		})
	}
}
