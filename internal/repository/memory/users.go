package memory

import (
	"context"
	"strings"

	"foundermatch/internal/model"
	"foundermatch/pkg/apperr"
)

type Users struct{ s *Store }

func (r *Users) Create(ctx context.Context, u *model.User) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return 0, apperr.New(apperr.CodeConflict, "email %s is already registered", u.Email)
		}
	}
	cp := *u
	cp.ID = r.s.nextID("users")
	r.s.users[cp.ID] = &cp
	return cp.ID, nil
}

func (r *Users) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.New(apperr.CodeNotFound, "user %s not found", email)
}

func (r *Users) GetByID(ctx context.Context, id int64) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, apperr.NotFound("user", id)
	}
	cp := *u
	return &cp, nil
}
