// Package memory 提供进程内的存储实现，用于本地开发和测试；
// 与 postgres 实现遵循同样的唯一性和条件更新语义。
package memory

import (
	"sync"
	"time"

	"foundermatch/internal/model"
	"foundermatch/pkg/outbox"
)

type ndaKey struct{ ideaID, developerID int64 }

type bookmarkKey struct{ developerID, ideaID int64 }

// Store 所有实体共用一把锁，保证跨实体的检查与写入是原子的
type Store struct {
	mu  sync.RWMutex
	seq map[string]int64

	users         map[int64]*model.User
	ideas         map[int64]*model.Idea
	ndas          map[ndaKey]model.NDAAcceptance
	proposals     map[int64]*model.Proposal
	contracts     map[int64]*model.Contract
	tasks         map[int64]*model.Task
	bookmarks     map[bookmarkKey]time.Time
	notifications map[int64]*model.Notification
	events        map[int64]*outbox.Event

	now func() time.Time
}

func New() *Store {
	return &Store{
		seq:           make(map[string]int64),
		users:         make(map[int64]*model.User),
		ideas:         make(map[int64]*model.Idea),
		ndas:          make(map[ndaKey]model.NDAAcceptance),
		proposals:     make(map[int64]*model.Proposal),
		contracts:     make(map[int64]*model.Contract),
		tasks:         make(map[int64]*model.Task),
		bookmarks:     make(map[bookmarkKey]time.Time),
		notifications: make(map[int64]*model.Notification),
		events:        make(map[int64]*outbox.Event),
		now:           time.Now,
	}
}

func (s *Store) nextID(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// writeEvents 与状态变更在同一把锁内写入 outbox，对应 postgres 中的同事务写入
func (s *Store) writeEvents(msgs []model.OutboxMessage) error {
	for _, m := range msgs {
		event, err := outbox.NewEvent(m.AggregateType, m.AggregateID, m.RoutingKey, m.Payload)
		if err != nil {
			return err
		}
		event.ID = s.nextID("outbox")
		event.CreatedAt = s.now()
		event.UpdatedAt = event.CreatedAt
		s.events[event.ID] = event
	}
	return nil
}

func (s *Store) Users() *Users                 { return &Users{s} }
func (s *Store) Ideas() *Ideas                 { return &Ideas{s} }
func (s *Store) NDAs() *NDAs                   { return &NDAs{s} }
func (s *Store) Proposals() *Proposals         { return &Proposals{s} }
func (s *Store) Contracts() *Contracts         { return &Contracts{s} }
func (s *Store) Tasks() *Tasks                 { return &Tasks{s} }
func (s *Store) Bookmarks() *Bookmarks         { return &Bookmarks{s} }
func (s *Store) Notifications() *Notifications { return &Notifications{s} }
func (s *Store) Outbox() *Outbox               { return &Outbox{s} }
func (s *Store) Dashboard() *Dashboard         { return &Dashboard{s} }
