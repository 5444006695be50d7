package event

import (
	"sort"
	"sync"

	"github.com/hitoshi/calman/internal/model"
)

// Cache はストアの権威コピーを写すインメモリの予定コレクション。
// ストアが操作を確定した後にのみ変更される（楽観的更新はしない）。
// ウィンドウイングエンジンはこのコレクションを読むだけで、直接変更しない。
//
// 仕様上の実行モデルは単一スレッドだが、GoのHTTPサーバーは並行に
// リクエストを処理するためRWMutexで保護する。
type Cache struct {
	mu     sync.RWMutex
	events []*model.Event
	seq    int
	order  map[string]int // 同時刻イベントの安定順（挿入順）
}

// NewCache は空のCacheを生成する。
func NewCache() *Cache {
	return &Cache{order: make(map[string]int)}
}

// ReplaceAll はキャッシュ全体をstoreの内容で置き換える。
// eventsはstart昇順で渡されることを前提とし、その順を挿入順として記録する。
func (c *Cache) ReplaceAll(events []*model.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = make([]*model.Event, len(events))
	c.order = make(map[string]int, len(events))
	c.seq = 0
	for i, event := range events {
		copied := *event
		c.events[i] = &copied
		c.order[event.ID] = c.seq
		c.seq++
	}
}

// Insert は確定済みの新規予定をキャッシュに追加する。
func (c *Cache) Insert(event *model.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	copied := *event
	c.events = append(c.events, &copied)
	c.order[event.ID] = c.seq
	c.seq++
	c.resort()
}

// Replace はIDが一致するエントリをその場で置き換える。
// 対象が存在しない場合は何もしない（呼び出し側がstoreで存在確認済み）。
func (c *Cache) Replace(event *model.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, cached := range c.events {
		if cached.ID == event.ID {
			copied := *event
			c.events[i] = &copied
			c.resort()
			return
		}
	}
}

// Remove はIDが一致するエントリを取り除く。
func (c *Cache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, cached := range c.events {
		if cached.ID == id {
			c.events = append(c.events[:i], c.events[i+1:]...)
			delete(c.order, id)
			return
		}
	}
}

// Snapshot はキャッシュ内容のコピーをstart昇順で返す。
func (c *Cache) Snapshot() []*model.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make([]*model.Event, len(c.events))
	for i, event := range c.events {
		copied := *event
		snapshot[i] = &copied
	}
	return snapshot
}

// Len はキャッシュ内の予定数を返す。
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.events)
}

// resort はstart昇順・同時刻は挿入順の安定ソートを保つ。
// 呼び出し側でロック済みであること。
func (c *Cache) resort() {
	sort.SliceStable(c.events, func(i, j int) bool {
		if c.events[i].Start.Equal(c.events[j].Start) {
			return c.order[c.events[i].ID] < c.order[c.events[j].ID]
		}
		return c.events[i].Start.Before(c.events[j].Start)
	})
}
