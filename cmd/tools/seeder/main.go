package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	seedUsers(ctx, pool)
	seedCatalog(ctx, pool)
	seedVouchers(ctx, pool)

	log.Println("Seeding completed successfully!")
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool) {
	users := []struct {
		Name  string
		Email string
		Role  string
	}{
		{"Admin User", "admin@vietlearn.com", "admin"},
		{"Linh Instructor", "linh@vietlearn.com", "instructor"},
		{"An Nguyen", "an@example.com", "student"},
		{"Binh Tran", "binh@example.com", "student"},
		{"Chi Pham", "chi@example.com", "student"},
	}

	hash, err := argon2id.CreateHash("password123", argon2id.DefaultParams)
	if err != nil {
		log.Fatalf("Failed to hash seed password: %v", err)
	}

	log.Println("Seeding users...")
	for _, u := range users {
		_, err := pool.Exec(ctx, `
			INSERT INTO users (id, name, email, password_hash, roles)
			VALUES (gen_random_uuid(), $1, $2, $3, ARRAY[$4])
			ON CONFLICT (email) DO NOTHING`,
			u.Name, u.Email, hash, u.Role)
		if err != nil {
			log.Printf("Failed to seed user %s: %v", u.Email, err)
		}
	}
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool) {
	categories := []struct {
		Name string
		Slug string
	}{
		{"Programming", "programming"},
		{"Languages", "languages"},
		{"Mathematics", "mathematics"},
		{"Design", "design"},
		{"Business", "business"},
	}

	log.Println("Seeding categories...")
	for _, c := range categories {
		if _, err := pool.Exec(ctx, `
			INSERT INTO categories (id, name, slug)
			VALUES (gen_random_uuid(), $1, $2)
			ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name`,
			c.Name, c.Slug); err != nil {
			log.Printf("Failed to upsert category %s: %v", c.Name, err)
		}
	}

	courses := []struct {
		Slug     string
		Title    string
		Category string
		Price    int64
		Duration int
	}{
		{"go-for-backend", "Go for Backend Engineers", "programming", 499000, 36000},
		{"practical-sql", "Practical SQL", "programming", 299000, 21600},
		{"ielts-writing", "IELTS Writing Masterclass", "languages", 399000, 28800},
		{"calculus-1", "Calculus I", "mathematics", 199000, 43200},
		{"figma-basics", "Figma Basics", "design", 149000, 10800},
	}

	log.Println("Seeding courses...")
	for _, c := range courses {
		if _, err := pool.Exec(ctx, `
			INSERT INTO courses (id, slug, title, description, instructor_id, price, duration_seconds, is_published)
			VALUES (gen_random_uuid(), $1, $2, $2,
				(SELECT id FROM users WHERE email = 'linh@vietlearn.com'),
				$3, $4, true)
			ON CONFLICT (slug) DO NOTHING`,
			c.Slug, c.Title, c.Price, c.Duration); err != nil {
			log.Printf("Failed to seed course %s: %v", c.Slug, err)
			continue
		}
		if _, err := pool.Exec(ctx, `
			INSERT INTO course_categories (course_id, category_id)
			SELECT c.id, cat.id FROM courses c, categories cat
			WHERE c.slug = $1 AND cat.slug = $2
			ON CONFLICT DO NOTHING`,
			c.Slug, c.Category); err != nil {
			log.Printf("Failed to link course %s to category: %v", c.Slug, err)
		}
	}
}

func seedVouchers(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("Seeding vouchers...")
	vouchers := []struct {
		Code  string
		Scope string
		Type  string
		Value int64
	}{
		{"WELCOME10", "SITE_WIDE", "PERCENTAGE", 10},
		{"CODER50K", "CATEGORY", "FIXED", 50000},
	}
	for _, v := range vouchers {
		_, err := pool.Exec(ctx, `
			INSERT INTO vouchers (code, description, scope, discount_type, value,
				start_date, end_date, is_active, creator_id, creator_role, category_id)
			VALUES ($1, $1, $2, $3, $4, now(), now() + interval '90 days', true,
				(SELECT id FROM users WHERE email = 'admin@vietlearn.com'), 'admin',
				CASE WHEN $2 = 'CATEGORY' THEN (SELECT id FROM categories WHERE slug = 'programming') END)
			ON CONFLICT DO NOTHING`,
			v.Code, v.Scope, v.Type, v.Value)
		if err != nil {
			log.Printf("Failed to seed voucher %s: %v", v.Code, err)
		}
	}
}
