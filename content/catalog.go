/*
Package content supplies canonical lesson and quiz data.

PURPOSE:
  The engine treats lesson content as an external collaborator: the
  daily challenge needs quiz items keyed by lesson id, and the XP
  reconciler needs per-lesson rewards. This package provides the two
  sources the app runs with: a YAML catalog file for local/offline use
  and an HTTP client against the lesson service.

SEE ALSO:
  - engine/daily.go: QuizSource consumer
  - remote: The push (write) direction of the backend integration
*/
package content

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/finesse/gamify-engine/engine"
)

// =============================================================================
// TYPES
// =============================================================================

// Quiz is a single multiple-choice question inside a lesson.
type Quiz struct {
	ID           int      `yaml:"id" json:"id"`
	LessonID     int      `yaml:"lesson_id" json:"lesson_id"`
	Question     string   `yaml:"question" json:"question"`
	Options      []string `yaml:"options" json:"options"`
	CorrectIndex int      `yaml:"correct_index" json:"correct_index"`
}

// Lesson is a unit of learning content with its quiz items.
type Lesson struct {
	ID          int    `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	XPReward    int    `yaml:"xp_reward" json:"xp_reward"`
	Quizzes     []Quiz `yaml:"quizzes" json:"quizzes"`
}

// Source supplies lessons by id and in catalog order.
type Source interface {
	Lesson(ctx context.Context, id int) (Lesson, error)
	Lessons(ctx context.Context) ([]Lesson, error)
}

// =============================================================================
// CATALOG - YAML-file-backed Source
// =============================================================================

// Catalog is an in-memory Source, typically loaded from a YAML file.
type Catalog struct {
	byID  map[int]Lesson
	order []int
}

var _ Source = (*Catalog)(nil)
var _ engine.QuizSource = (*Catalog)(nil)

// NewCatalog builds a catalog from lessons, preserving order.
func NewCatalog(lessons []Lesson) *Catalog {
	c := &Catalog{byID: make(map[int]Lesson, len(lessons))}
	for _, l := range lessons {
		if _, dup := c.byID[l.ID]; dup {
			continue
		}
		c.byID[l.ID] = l
		c.order = append(c.order, l.ID)
	}
	return c
}

type catalogFile struct {
	Lessons []Lesson `yaml:"lessons"`
}

// LoadCatalog reads a YAML catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes YAML catalog bytes.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return NewCatalog(f.Lessons), nil
}

func (c *Catalog) Lesson(_ context.Context, id int) (Lesson, error) {
	l, ok := c.byID[id]
	if !ok {
		return Lesson{}, fmt.Errorf("lesson %d: %w", id, engine.ErrLessonNotFound)
	}
	return l, nil
}

func (c *Catalog) Lessons(context.Context) ([]Lesson, error) {
	lessons := make([]Lesson, 0, len(c.order))
	for _, id := range c.order {
		lessons = append(lessons, c.byID[id])
	}
	return lessons, nil
}

// LessonQuizzes implements engine.QuizSource.
func (c *Catalog) LessonQuizzes(ctx context.Context, lessonID int) ([]engine.QuizQuestion, error) {
	lesson, err := c.Lesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	return QuizQuestions(lesson), nil
}

// QuizQuestions converts a lesson's quizzes to the engine's quiz type.
func QuizQuestions(lesson Lesson) []engine.QuizQuestion {
	out := make([]engine.QuizQuestion, len(lesson.Quizzes))
	for i, q := range lesson.Quizzes {
		lessonID := q.LessonID
		if lessonID == 0 {
			lessonID = lesson.ID
		}
		out[i] = engine.QuizQuestion{
			ID:           q.ID,
			LessonID:     lessonID,
			Question:     q.Question,
			Options:      q.Options,
			CorrectIndex: q.CorrectIndex,
		}
	}
	return out
}

// Default returns the built-in two-lesson starter catalog used when no
// catalog file is configured. The daily challenge rotation expects
// lessons 1 and 2 to exist.
func Default() *Catalog {
	return NewCatalog([]Lesson{
		{
			ID: 1, Title: "Budgeting Basics", XPReward: 50,
			Quizzes: []Quiz{
				{ID: 101, LessonID: 1, Question: "What is the 50/30/20 rule's savings share?",
					Options: []string{"10%", "20%", "30%", "50%"}, CorrectIndex: 1},
				{ID: 102, LessonID: 1, Question: "Which expense is fixed?",
					Options: []string{"Rent", "Dining out", "Concert tickets", "Gifts"}, CorrectIndex: 0},
			},
		},
		{
			ID: 2, Title: "Saving & Interest", XPReward: 75,
			Quizzes: []Quiz{
				{ID: 201, LessonID: 2, Question: "Compound interest is interest on...",
					Options: []string{"Principal only", "Principal and accrued interest", "Fees", "Deposits"}, CorrectIndex: 1},
				{ID: 202, LessonID: 2, Question: "An emergency fund should typically cover...",
					Options: []string{"1 week", "1 month", "3-6 months", "5 years"}, CorrectIndex: 2},
			},
		},
	})
}
