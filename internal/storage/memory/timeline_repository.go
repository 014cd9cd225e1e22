package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/sales/internal/domain"
)

// timelineStore хранит хронологию продаж в памяти процесса.
// Срез по каждой продаже поддерживается отсортированным по Occurred.
type timelineStore struct {
	mu     sync.RWMutex
	bySale map[string][]domain.TimelineEvent
}

// NewTimelineRepository создаёт in-memory реализацию TimelineRepository.
func NewTimelineRepository() domain.TimelineRepository {
	return &timelineStore{bySale: make(map[string][]domain.TimelineEvent)}
}

// Append добавляет событие в хронологию продажи.
func (s *timelineStore) Append(event domain.TimelineEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := append(s.bySale[event.SaleID], event)
	sort.Slice(events, func(i, j int) bool {
		return events[i].Occurred.Before(events[j].Occurred)
	})
	s.bySale[event.SaleID] = events

	return nil
}

// List возвращает копию событий продажи в хронологическом порядке.
func (s *timelineStore) List(saleID string) ([]domain.TimelineEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.TimelineEvent, len(s.bySale[saleID]))
	copy(result, s.bySale[saleID])
	return result, nil
}

var _ domain.TimelineRepository = (*timelineStore)(nil)
