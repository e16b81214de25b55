package content

import (
	"context"
	"fmt"
	"sort"
)

// StaticSource serves a fixed set of quests from memory.
type StaticSource struct {
	quests map[string]Quest
	order  []string
}

// NewStaticSource indexes quests by id. FirstEligible follows slice order.
func NewStaticSource(quests ...Quest) *StaticSource {
	s := &StaticSource{quests: make(map[string]Quest, len(quests))}
	for _, q := range quests {
		s.quests[q.ID] = q
		s.order = append(s.order, q.ID)
	}
	return s
}

// Resolve implements Source.
func (s *StaticSource) Resolve(_ context.Context, id string) (Quest, error) {
	q, ok := s.quests[id]
	if !ok {
		return Quest{}, fmt.Errorf("resolve %s: %w", id, ErrNotFound)
	}
	if !q.Eligible {
		return Quest{}, fmt.Errorf("resolve %s: %w", id, ErrNoEligibleContent)
	}
	return q, nil
}

// FirstEligible implements Source.
func (s *StaticSource) FirstEligible(context.Context) (Quest, error) {
	for _, id := range s.order {
		if q := s.quests[id]; q.Eligible {
			return q, nil
		}
	}
	return Quest{}, ErrNoEligibleContent
}

// IDs lists the known quest ids in sorted order.
func (s *StaticSource) IDs() []string {
	ids := make([]string, 0, len(s.quests))
	for id := range s.quests {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
