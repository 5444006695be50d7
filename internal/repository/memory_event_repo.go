package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/hitoshi/calman/internal/model"
)

// MemoryEventRepo はインメモリの予定リポジトリ。
// 元実装のモックAPIルート（モジュールレベルの配列）に相当するが、
// EventRepositoryの背後に置くことでライフサイクルマネージャの契約を
// 変えずにPostgreSQL実装と差し替えられる。テストでも使用する。
type MemoryEventRepo struct {
	mu     sync.RWMutex
	events map[string]*model.Event
	seq    int // 挿入順の安定ソートに使用
	order  map[string]int
}

// NewMemoryEventRepo はMemoryEventRepoを生成する。
func NewMemoryEventRepo() *MemoryEventRepo {
	return &MemoryEventRepo{
		events: make(map[string]*model.Event),
		order:  make(map[string]int),
	}
}

// FindByID は指定IDの予定を取得する。見つからない場合はnilを返す。
func (r *MemoryEventRepo) FindByID(_ context.Context, id string) (*model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.events[id]
	if !ok {
		return nil, nil
	}
	copied := *event
	return &copied, nil
}

// List は全予定をstart昇順（同時刻は挿入順）で返す。
func (r *MemoryEventRepo) List(_ context.Context) ([]*model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]*model.Event, 0, len(r.events))
	for _, event := range r.events {
		copied := *event
		events = append(events, &copied)
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Start.Equal(events[j].Start) {
			return r.order[events[i].ID] < r.order[events[j].ID]
		}
		return events[i].Start.Before(events[j].Start)
	})

	return events, nil
}

// Create は予定を作成する。
func (r *MemoryEventRepo) Create(_ context.Context, event *model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *event
	r.events[event.ID] = &copied
	r.order[event.ID] = r.seq
	r.seq++
	return nil
}

// CreateBatch は複数の予定を一括作成する。
func (r *MemoryEventRepo) CreateBatch(ctx context.Context, events []*model.Event) error {
	for _, event := range events {
		if err := r.Create(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Update は予定を上書き更新する。対象IDが存在しない場合はfalseを返す。
func (r *MemoryEventRepo) Update(_ context.Context, event *model.Event) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[event.ID]; !ok {
		return false, nil
	}
	copied := *event
	r.events[event.ID] = &copied
	return true, nil
}

// Delete は指定IDの予定を削除する。対象が存在しない場合はfalseを返す。
func (r *MemoryEventRepo) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[id]; !ok {
		return false, nil
	}
	delete(r.events, id)
	delete(r.order, id)
	return true, nil
}

// DeleteByFeedID は指定ICS購読由来の予定を全て削除する。
func (r *MemoryEventRepo) DeleteByFeedID(_ context.Context, feedID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, event := range r.events {
		if event.FeedID == feedID {
			delete(r.events, id)
			delete(r.order, id)
		}
	}
	return nil
}

// compile-time interface check
var _ EventRepository = (*MemoryEventRepo)(nil)
