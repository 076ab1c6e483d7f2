package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/finesse/gamify-engine/engine"
)

// =============================================================================
// API SOURCE - Lesson service client
// =============================================================================

// APISource fetches lessons from the remote lesson service.
type APISource struct {
	BaseURL string
	HTTP    *http.Client
}

var _ Source = (*APISource)(nil)
var _ engine.QuizSource = (*APISource)(nil)

// NewAPISource creates a source against baseURL (e.g. "http://api:8000/api").
func NewAPISource(baseURL string) *APISource {
	return &APISource{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *APISource) Lesson(ctx context.Context, id int) (Lesson, error) {
	var lesson Lesson
	if err := s.getJSON(ctx, fmt.Sprintf("%s/lessons/%d", s.BaseURL, id), &lesson); err != nil {
		return Lesson{}, err
	}
	if lesson.ID == 0 {
		return Lesson{}, fmt.Errorf("lesson %d: %w", id, engine.ErrLessonNotFound)
	}
	return lesson, nil
}

func (s *APISource) Lessons(ctx context.Context) ([]Lesson, error) {
	var lessons []Lesson
	if err := s.getJSON(ctx, s.BaseURL+"/lessons", &lessons); err != nil {
		return nil, err
	}
	return lessons, nil
}

// LessonQuizzes implements engine.QuizSource.
func (s *APISource) LessonQuizzes(ctx context.Context, lessonID int) ([]engine.QuizQuestion, error) {
	lesson, err := s.Lesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	return QuizQuestions(lesson), nil
}

func (s *APISource) getJSON(ctx context.Context, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := s.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return engine.ErrLessonNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lesson service returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
