package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/saurabh1e/pos-api/internal/cache"
)

// ErrPrincipalNotFound is returned when no active user backs the token subject
var ErrPrincipalNotFound = errors.New("principal not found")

// Source loads principals from storage, caching lookups between requests
type Source struct {
	db    *sql.DB
	cache cache.Cache
	ttl   time.Duration
}

// NewSource creates a principal source backed by the given database and cache
func NewSource(db *sql.DB, c cache.Cache, ttl time.Duration) *Source {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &Source{db: db, cache: c, ttl: ttl}
}

// Load returns the principal for the given user id, from cache when possible
func (s *Source) Load(ctx context.Context, userID int64) (*Principal, error) {
	key := cacheKey(userID)

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var p Principal
			if err := json.Unmarshal(data, &p); err == nil {
				return &p, nil
			}
		}
	}

	p, err := s.loadFromDB(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(p); err == nil {
			s.cache.Set(ctx, key, data, s.ttl)
		}
	}

	return p, nil
}

// Invalidate drops the cached principal for the given user id
func (s *Source) Invalidate(ctx context.Context, userID int64) {
	if s.cache != nil {
		s.cache.Delete(ctx, cacheKey(userID))
	}
}

func (s *Source) loadFromDB(ctx context.Context, userID int64) (*Principal, error) {
	p := &Principal{ID: userID}

	var orgID sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT email, name, organisation_id FROM users WHERE id = $1 AND active = TRUE",
		userID,
	).Scan(&p.Email, &p.Name, &orgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	p.OrganisationID = orgID.Int64

	p.StoreIDs, err = s.loadStoreIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	p.Roles, err = s.loadStrings(ctx,
		"SELECT r.name FROM roles r JOIN user_roles ur ON ur.role_id = r.id WHERE ur.user_id = $1",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles for user %d: %w", userID, err)
	}

	// Permissions granted directly plus those carried by the user's roles
	p.Permissions, err = s.loadStrings(ctx,
		`SELECT p.name FROM permissions p
		 JOIN user_permissions up ON up.permission_id = p.id
		 WHERE up.user_id = $1
		 UNION
		 SELECT p.name FROM permissions p
		 JOIN user_roles ur ON ur.role_id = p.role_id
		 WHERE ur.user_id = $1`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions for user %d: %w", userID, err)
	}

	return p, nil
}

func (s *Source) loadStoreIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT store_id FROM user_stores WHERE user_id = $1 ORDER BY store_id",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load store membership for user %d: %w", userID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Source) loadStrings(ctx context.Context, query string, userID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func cacheKey(userID int64) string {
	return "principal:" + strconv.FormatInt(userID, 10)
}
