package users

import (
	"context"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Lister returns directory users. Satisfied by *Repository.
type Lister interface {
	ListActiveUsers(ctx context.Context) ([]User, error)
}

// Service exposes the user directory with stable, locale-aware ordering.
type Service struct {
	repo     Lister
	collator *collate.Collator
}

// NewService constructs a new Service.
func NewService(repo Lister) *Service {
	return &Service{
		repo:     repo,
		collator: collate.New(language.English, collate.IgnoreCase),
	}
}

// ListUsers returns active users ordered by display name.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.repo.ListActiveUsers(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool {
		if c := s.collator.CompareString(users[i].Name, users[j].Name); c != 0 {
			return c < 0
		}
		return users[i].Email < users[j].Email
	})
	return users, nil
}
