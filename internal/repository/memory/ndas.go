package memory

import (
	"context"
	"time"

	"foundermatch/internal/model"
)

type NDAs struct{ s *Store }

// Accept 已存在时返回原记录
func (r *NDAs) Accept(ctx context.Context, ideaID, developerID int64, at time.Time) (*model.NDAAcceptance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := ndaKey{ideaID, developerID}
	if a, ok := r.s.ndas[key]; ok {
		return &a, nil
	}
	a := model.NDAAcceptance{IdeaID: ideaID, DeveloperID: developerID, AcceptedAt: at}
	r.s.ndas[key] = a
	return &a, nil
}

func (r *NDAs) HasAccepted(ctx context.Context, ideaID, developerID int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.ndas[ndaKey{ideaID, developerID}]
	return ok, nil
}
