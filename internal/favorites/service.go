package favorites

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Service stores per-user favorite courses as a Redis set.
type Service struct {
	R *redis.Client
}

func key(userID uuid.UUID) string {
	return "favorites:" + userID.String()
}

// Toggle flips the favorite state for a course and reports the new state.
func (s *Service) Toggle(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	if s == nil || s.R == nil {
		return false, errors.New("favorites service not configured")
	}
	member := courseID.String()
	exists, err := s.R.SIsMember(ctx, key(userID), member).Result()
	if err != nil {
		return false, err
	}
	if exists {
		if err := s.R.SRem(ctx, key(userID), member).Err(); err != nil {
			return false, err
		}
		return false, nil
	}
	if err := s.R.SAdd(ctx, key(userID), member).Err(); err != nil {
		return false, err
	}
	return true, nil
}

// List returns the user's favorite course ids.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if s == nil || s.R == nil {
		return nil, errors.New("favorites service not configured")
	}
	members, err := s.R.SMembers(ctx, key(userID)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// Check reports whether a course is favorited by the user.
func (s *Service) Check(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	if s == nil || s.R == nil {
		return false, errors.New("favorites service not configured")
	}
	return s.R.SIsMember(ctx, key(userID), courseID.String()).Result()
}
