package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/lumova/learnflow/internal/api"
)

// fakeBackend is an in-process stand-in for the learning API, good enough
// to exercise the engine end to end from the command line.
type fakeBackend struct {
	mu        sync.Mutex
	lessons   []api.Lesson
	hearts    int
	maxHearts int
	regenSecs int
	positions map[string]int
	saved     map[string]bool
}

func newFakeBackend(lessonCount, sectionsPerLesson, maxHearts int) *fakeBackend {
	b := &fakeBackend{
		hearts:    maxHearts,
		maxHearts: maxHearts,
		regenSecs: 120,
		positions: make(map[string]int),
		saved:     make(map[string]bool),
	}
	for i := 0; i < lessonCount; i++ {
		lesson := api.Lesson{
			ID:    fmt.Sprintf("lesson-%d", i+1),
			Title: fmt.Sprintf("Lesson %d", i+1),
		}
		if sectionsPerLesson == 0 {
			lesson.Content = "Legacy lesson body"
			lesson.Exercise = []byte(`{"type":"true-false","prompt":"Saving beats spending?","answer":true}`)
		}
		for j := 0; j < sectionsPerLesson; j++ {
			sec := api.Section{
				ID:          fmt.Sprintf("sec-%d-%d", i+1, j+1),
				Title:       fmt.Sprintf("Section %d.%d", i+1, j+1),
				Order:       j + 1,
				IsPublished: true,
				Content:     "Section body",
			}
			// Last section of each lesson carries the quiz.
			if j == sectionsPerLesson-1 {
				sec.Exercise = []byte(`{"type":"multiple-choice","prompt":"Pick one","choices":["a","b"],"answer":"a"}`)
			}
			lesson.Sections = append(lesson.Sections, sec)
		}
		b.lessons = append(b.lessons, lesson)
	}
	return b
}

func (b *fakeBackend) snapshot() api.HeartsSnapshot {
	snap := api.HeartsSnapshot{Hearts: b.hearts, MaxHearts: b.maxHearts}
	if b.hearts < b.maxHearts {
		secs := b.regenSecs
		snap.NextHeartInSeconds = &secs
	}
	return snap
}

func (b *fakeBackend) FetchHearts(context.Context) (api.HeartsSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot(), nil
}

func (b *fakeBackend) DecrementHearts(_ context.Context, amount int) (api.HeartsSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hearts -= amount
	if b.hearts < 0 {
		b.hearts = 0
	}
	return b.snapshot(), nil
}

func (b *fakeBackend) GrantHearts(_ context.Context, amount int) (api.HeartsSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hearts += amount
	if b.hearts > b.maxHearts {
		b.hearts = b.maxHearts
	}
	return b.snapshot(), nil
}

func (b *fakeBackend) RefillHearts(context.Context) (api.HeartsSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hearts = b.maxHearts
	return b.snapshot(), nil
}

func (b *fakeBackend) FetchPosition(_ context.Context, courseID string) (api.FlowPosition, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if idx, ok := b.positions[courseID]; ok {
		return api.FlowPosition{CurrentIndex: &idx}, nil
	}
	return api.FlowPosition{}, nil
}

func (b *fakeBackend) SavePosition(_ context.Context, courseID string, index int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.positions[courseID] = index
	return nil
}

func (b *fakeBackend) CompleteSection(_ context.Context, sectionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saved["section:"+sectionID] = true
	return nil
}

func (b *fakeBackend) CompleteLesson(_ context.Context, lessonID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saved["lesson:"+lessonID] = true
	return nil
}

func (b *fakeBackend) FetchLessons(_ context.Context, _ string) ([]api.Lesson, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lessons, nil
}
