package catalog

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCourseNotFound is returned when no course matches the lookup.
var ErrCourseNotFound = errors.New("course not found")

// Course is the stored course row.
type Course struct {
	ID              uuid.UUID
	Slug            string
	Title           string
	Description     string
	InstructorID    uuid.UUID
	Price           int64
	DurationSeconds int32
	Thumbnail       *string
	IsPublished     bool
	CategoryIDs     []uuid.UUID
	CreatedAt       time.Time
}

// Category is a course category with optional parent linkage.
type Category struct {
	ID       uuid.UUID
	Name     string
	Slug     string
	ParentID *uuid.UUID
}

// ListFilter captures list query filters.
type ListFilter struct {
	Query        string
	CategorySlug string
	InstructorID *uuid.UUID
	MinPrice     *int64
	MaxPrice     *int64
	Sort         string
	Limit        int32
	Offset       int32
}

// Repo is the pgx-backed catalog store.
type Repo struct {
	Pool *pgxpool.Pool
}

const courseColumns = `c.id, c.slug, c.title, c.description, c.instructor_id, c.price,
	c.duration_seconds, c.thumbnail, c.is_published, c.created_at`

func scanCourse(row pgx.Row) (Course, error) {
	var c Course
	err := row.Scan(
		&c.ID, &c.Slug, &c.Title, &c.Description, &c.InstructorID, &c.Price,
		&c.DurationSeconds, &c.Thumbnail, &c.IsPublished, &c.CreatedAt,
	)
	return c, err
}

// GetCourseBySlug loads a published course with its category ids.
func (r *Repo) GetCourseBySlug(ctx context.Context, slug string) (Course, error) {
	row := r.Pool.QueryRow(ctx,
		`SELECT `+courseColumns+` FROM courses c WHERE c.slug = $1 AND c.is_published`, slug)
	c, err := scanCourse(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Course{}, ErrCourseNotFound
	}
	if err != nil {
		return Course{}, err
	}
	c.CategoryIDs, err = r.CourseCategoryIDs(ctx, c.ID)
	return c, err
}

// GetCourseByID loads a course regardless of publication state.
func (r *Repo) GetCourseByID(ctx context.Context, id uuid.UUID) (Course, error) {
	row := r.Pool.QueryRow(ctx,
		`SELECT `+courseColumns+` FROM courses c WHERE c.id = $1`, id)
	c, err := scanCourse(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Course{}, ErrCourseNotFound
	}
	if err != nil {
		return Course{}, err
	}
	c.CategoryIDs, err = r.CourseCategoryIDs(ctx, c.ID)
	return c, err
}

// ListCourses returns published courses matching the filter.
func (r *Repo) ListCourses(ctx context.Context, f ListFilter) ([]Course, int64, error) {
	where := []string{"c.is_published"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if strings.TrimSpace(f.Query) != "" {
		where = append(where, "c.title ILIKE "+arg("%"+strings.TrimSpace(f.Query)+"%"))
	}
	if strings.TrimSpace(f.CategorySlug) != "" {
		where = append(where, `EXISTS (
			SELECT 1 FROM course_categories cc
			JOIN categories cat ON cat.id = cc.category_id
			WHERE cc.course_id = c.id AND cat.slug = `+arg(strings.TrimSpace(f.CategorySlug))+`)`)
	}
	if f.InstructorID != nil {
		where = append(where, "c.instructor_id = "+arg(*f.InstructorID))
	}
	if f.MinPrice != nil {
		where = append(where, "c.price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		where = append(where, "c.price <= "+arg(*f.MaxPrice))
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.Pool.QueryRow(ctx,
		`SELECT count(*) FROM courses c WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "c.created_at DESC"
	switch f.Sort {
	case "price:asc":
		order = "c.price ASC"
	case "price:desc":
		order = "c.price DESC"
	case "title:asc":
		order = "c.title ASC"
	}
	query := `SELECT ` + courseColumns + ` FROM courses c WHERE ` + cond +
		` ORDER BY ` + order + ` LIMIT ` + arg(f.Limit) + ` OFFSET ` + arg(f.Offset)
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// ListCategories returns every category sorted by name.
func (r *Repo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.Pool.Query(ctx,
		`SELECT id, name, slug, parent_id FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var cat Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Slug, &cat.ParentID); err != nil {
			return nil, err
		}
		out = append(out, cat)
	}
	return out, rows.Err()
}

// CourseExists reports whether a published course with the id exists.
func (r *Repo) CourseExists(ctx context.Context, courseID uuid.UUID) (bool, error) {
	var exists bool
	err := r.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1 AND is_published)`, courseID).
		Scan(&exists)
	return exists, err
}

// CoursePrice returns the current price of a course in minor units.
func (r *Repo) CoursePrice(ctx context.Context, courseID uuid.UUID) (int64, error) {
	var price int64
	err := r.Pool.QueryRow(ctx,
		`SELECT price FROM courses WHERE id = $1`, courseID).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrCourseNotFound
	}
	return price, err
}

// CourseCategoryIDs returns the category ids linked to a course.
func (r *Repo) CourseCategoryIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.Pool.Query(ctx,
		`SELECT category_id FROM course_categories WHERE course_id = $1`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
