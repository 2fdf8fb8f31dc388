package catalog

import (
	"context"
	"net/url"
	"testing"

	"github.com/google/uuid"

	"github.com/vietlearn/backend-academy/internal/common"
)

type stubQueries struct {
	courses    map[string]Course
	categories []Category
}

func (s *stubQueries) GetCourseBySlug(ctx context.Context, slug string) (Course, error) {
	c, ok := s.courses[slug]
	if !ok {
		return Course{}, ErrCourseNotFound
	}
	return c, nil
}

func (s *stubQueries) GetCourseByID(ctx context.Context, id uuid.UUID) (Course, error) {
	for _, c := range s.courses {
		if c.ID == id {
			return c, nil
		}
	}
	return Course{}, ErrCourseNotFound
}

func (s *stubQueries) ListCourses(ctx context.Context, f ListFilter) ([]Course, int64, error) {
	out := make([]Course, 0, len(s.courses))
	for _, c := range s.courses {
		out = append(out, c)
	}
	return out, int64(len(out)), nil
}

func (s *stubQueries) ListCategories(ctx context.Context) ([]Category, error) {
	return s.categories, nil
}

func (s *stubQueries) CourseExists(ctx context.Context, courseID uuid.UUID) (bool, error) {
	_, err := s.GetCourseByID(ctx, courseID)
	return err == nil, nil
}

func (s *stubQueries) CoursePrice(ctx context.Context, courseID uuid.UUID) (int64, error) {
	c, err := s.GetCourseByID(ctx, courseID)
	if err != nil {
		return 0, err
	}
	return c.Price, nil
}

func (s *stubQueries) CourseCategoryIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	c, err := s.GetCourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return c.CategoryIDs, nil
}

func newTestService(t *testing.T, q queryProvider) *Service {
	t.Helper()
	svc, err := NewService(ServiceConfig{Queries: q, DefaultPage: 1, DefaultLimit: 20, MaxLimit: 50})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestParseListParamsDefaults(t *testing.T) {
	svc := newTestService(t, &stubQueries{})
	params, err := svc.ParseListParams(url.Values{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.Page != 1 || params.Limit != 20 {
		t.Fatalf("unexpected defaults: page %d limit %d", params.Page, params.Limit)
	}
}

func TestParseListParamsLimitClamped(t *testing.T) {
	svc := newTestService(t, &stubQueries{})
	params, err := svc.ParseListParams(url.Values{"limit": []string{"500"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.Limit != 50 {
		t.Fatalf("expected limit clamped to 50, got %d", params.Limit)
	}
}

func TestParseListParamsInvalidPriceRange(t *testing.T) {
	svc := newTestService(t, &stubQueries{})
	_, err := svc.ParseListParams(url.Values{"minPrice": []string{"500"}, "maxPrice": []string{"100"}})
	if !common.IsAppError(err) {
		t.Fatalf("expected AppError, got %v", err)
	}
}

func TestGetCourseDetailNotFound(t *testing.T) {
	svc := newTestService(t, &stubQueries{courses: map[string]Course{}})
	_, err := svc.GetCourseDetail(context.Background(), "missing")
	if !common.IsAppError(err) {
		t.Fatalf("expected AppError, got %v", err)
	}
}

func TestGetCourseDetail(t *testing.T) {
	category := uuid.New()
	course := Course{ID: uuid.New(), Slug: "go-basics", Title: "Go Basics", Price: 150_000, CategoryIDs: []uuid.UUID{category}}
	svc := newTestService(t, &stubQueries{courses: map[string]Course{"go-basics": course}})
	detail, err := svc.GetCourseDetail(context.Background(), "go-basics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.ID != course.ID || len(detail.CategoryIDs) != 1 {
		t.Fatalf("unexpected detail: %+v", detail)
	}
}
