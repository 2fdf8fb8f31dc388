package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vietlearn/backend-academy/internal/common"
)

type queryProvider interface {
	GetCourseBySlug(ctx context.Context, slug string) (Course, error)
	GetCourseByID(ctx context.Context, id uuid.UUID) (Course, error)
	ListCourses(ctx context.Context, f ListFilter) ([]Course, int64, error)
	ListCategories(ctx context.Context) ([]Category, error)
	CourseExists(ctx context.Context, courseID uuid.UUID) (bool, error)
	CoursePrice(ctx context.Context, courseID uuid.UUID) (int64, error)
	CourseCategoryIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error)
}

// Service orchestrates course queries, DTO assembly, and caching.
type Service struct {
	queries      queryProvider
	cache        *Cache
	defaultPage  int
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries      queryProvider
	Cache        *Cache
	DefaultPage  int
	DefaultLimit int
	MaxLimit     int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	defaultPage := cfg.DefaultPage
	if defaultPage < 1 {
		defaultPage = 1
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		queries:      cfg.Queries,
		cache:        cfg.Cache,
		defaultPage:  defaultPage,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// ListParams captures filters for course listing.
type ListParams struct {
	Query    string
	Category string
	MinPrice *int64
	MaxPrice *int64
	Sort     string
	Page     int
	Limit    int
}

// CourseListItem represents an entry in list responses.
type CourseListItem struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Price     int64     `json:"price"`
	Thumbnail *string   `json:"thumbnail,omitempty"`
}

// CourseDetail aggregates the full detail payload.
type CourseDetail struct {
	ID              uuid.UUID   `json:"id"`
	Title           string      `json:"title"`
	Slug            string      `json:"slug"`
	Description     string      `json:"description"`
	Price           int64       `json:"price"`
	InstructorID    uuid.UUID   `json:"instructorId"`
	DurationSeconds int32       `json:"durationSeconds"`
	Thumbnail       *string     `json:"thumbnail,omitempty"`
	CategoryIDs     []uuid.UUID `json:"categoryIds"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// CategoryView represents the public category payload.
type CategoryView struct {
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	Slug     string     `json:"slug"`
	ParentID *uuid.UUID `json:"parentId,omitempty"`
}

// CourseListResult contains list data and pagination metadata.
type CourseListResult struct {
	Items []CourseListItem
	Total int64
	Page  int
	Limit int
}

// ParseListParams normalises raw query values into strongly typed filters.
func (s *Service) ParseListParams(values url.Values) (ListParams, error) {
	params := ListParams{Page: s.defaultPage, Limit: s.defaultLimit}
	params.Query = strings.TrimSpace(values.Get("q"))
	params.Category = strings.TrimSpace(values.Get("category"))

	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return params, badRequest("page", "page must be a positive integer", err)
		}
		params.Page = page
	}
	limit := s.defaultLimit
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 1 {
			return params, badRequest("limit", "limit must be a positive integer", err)
		}
		limit = l
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	params.Limit = limit

	if v := strings.TrimSpace(values.Get("minPrice")); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return params, badRequest("minPrice", "minPrice must be a valid integer", err)
		}
		params.MinPrice = &parsed
	}
	if v := strings.TrimSpace(values.Get("maxPrice")); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return params, badRequest("maxPrice", "maxPrice must be a valid integer", err)
		}
		params.MaxPrice = &parsed
	}
	if params.MinPrice != nil && params.MaxPrice != nil && *params.MinPrice > *params.MaxPrice {
		return params, badRequest("price", "minPrice cannot be greater than maxPrice", fmt.Errorf("invalid price range"))
	}
	params.Sort = normalizeSort(values.Get("sort"))
	return params, nil
}

// ListCourses returns the filtered course list with pagination metadata.
func (s *Service) ListCourses(ctx context.Context, params ListParams) (CourseListResult, error) {
	key, shouldUseCache := s.listCacheKey(params)
	if shouldUseCache {
		var cached cachedList
		ok, err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil && ok {
			return CourseListResult{Items: cached.Items, Total: cached.Total, Page: params.Page, Limit: params.Limit}, nil
		}
	}

	offset := int32((params.Page - 1) * params.Limit)
	if offset < 0 {
		offset = 0
	}
	courses, total, err := s.queries.ListCourses(ctx, ListFilter{
		Query:        params.Query,
		CategorySlug: params.Category,
		MinPrice:     params.MinPrice,
		MaxPrice:     params.MaxPrice,
		Sort:         params.Sort,
		Limit:        int32(params.Limit),
		Offset:       offset,
	})
	if err != nil {
		return CourseListResult{}, fmt.Errorf("list courses: %w", err)
	}
	items := make([]CourseListItem, 0, len(courses))
	for _, c := range courses {
		items = append(items, CourseListItem{
			ID: c.ID, Title: c.Title, Slug: c.Slug, Price: c.Price, Thumbnail: c.Thumbnail,
		})
	}
	result := CourseListResult{Items: items, Total: total, Page: params.Page, Limit: params.Limit}
	if shouldUseCache {
		_ = s.cache.SetJSON(ctx, key, cachedList{Items: items, Total: total})
	}
	return result, nil
}

// GetCourseDetail returns the full course payload, cached by slug.
func (s *Service) GetCourseDetail(ctx context.Context, slug string) (CourseDetail, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return CourseDetail{}, badRequest("slug", "slug is required", nil)
	}
	cacheKey := detailCacheKey(slug)
	var cached CourseDetail
	if ok, err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil && ok {
		return cached, nil
	}
	course, err := s.queries.GetCourseBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrCourseNotFound) {
			return CourseDetail{}, &common.AppError{Code: "NOT_FOUND", Message: "course not found", HTTPStatus: http.StatusNotFound, Err: err}
		}
		return CourseDetail{}, fmt.Errorf("get course by slug: %w", err)
	}
	detail := CourseDetail{
		ID:              course.ID,
		Title:           course.Title,
		Slug:            course.Slug,
		Description:     course.Description,
		Price:           course.Price,
		InstructorID:    course.InstructorID,
		DurationSeconds: course.DurationSeconds,
		Thumbnail:       course.Thumbnail,
		CategoryIDs:     course.CategoryIDs,
		CreatedAt:       course.CreatedAt,
	}
	_ = s.cache.SetJSON(ctx, cacheKey, detail)
	return detail, nil
}

// ListCategories returns all categories with parent linkage.
func (s *Service) ListCategories(ctx context.Context) ([]CategoryView, error) {
	rows, err := s.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	result := make([]CategoryView, 0, len(rows))
	for _, row := range rows {
		result = append(result, CategoryView{ID: row.ID, Name: row.Name, Slug: row.Slug, ParentID: row.ParentID})
	}
	return result, nil
}

// CourseExists reports whether a published course exists.
func (s *Service) CourseExists(ctx context.Context, courseID uuid.UUID) (bool, error) {
	return s.queries.CourseExists(ctx, courseID)
}

// CoursePrice returns the course price in minor units.
func (s *Service) CoursePrice(ctx context.Context, courseID uuid.UUID) (int64, error) {
	return s.queries.CoursePrice(ctx, courseID)
}

// CourseCategoryIDs returns the category ids linked to a course.
func (s *Service) CourseCategoryIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	return s.queries.CourseCategoryIDs(ctx, courseID)
}

type cachedList struct {
	Items []CourseListItem `json:"items"`
	Total int64            `json:"total"`
}

func (s *Service) listCacheKey(params ListParams) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	if params.Page != s.defaultPage || params.Limit != s.defaultLimit {
		return "", false
	}
	if params.Query != "" || params.Category != "" || params.MinPrice != nil || params.MaxPrice != nil || params.Sort != "" {
		return "", false
	}
	return "catalog:courses:list:popular", true
}

func detailCacheKey(slug string) string {
	return "catalog:courses:detail:" + slug
}

func normalizeSort(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "price:asc", "price:desc", "title:asc":
		return s
	default:
		return ""
	}
}

func badRequest(field, message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details:    map[string]any{"field": field},
	}
}
