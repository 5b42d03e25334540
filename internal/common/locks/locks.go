package locks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/evrental/evrental/internal/common/errs"
)

// Manager 按 key 串行化操作的实体锁管理器。
//
// 每个 key（如 "vehicle/<id>"）对应一把互斥锁，获取带超时：等待超过上限返回
// Busy 而不是挂起。一次 Acquire 可申请多把锁，内部会按全局固定顺序排序后
// 逐个获取（booking → vehicle → station → 其他），避免交叉操作互相死锁。
type Manager struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	sem  chan struct{} // 容量 1 的信号量
	refs int
}

func NewManager() *Manager {
	return &Manager{entries: make(map[string]*entry)}
}

// Key 生成实体锁 key。
func Key(kind, id string) string {
	return kind + "/" + id
}

// kindRank 锁获取的全局顺序：booking 行、vehicle 行、station 行。
func kindRank(key string) int {
	switch {
	case strings.HasPrefix(key, "booking/"):
		return 0
	case strings.HasPrefix(key, "vehicle/"):
		return 1
	case strings.HasPrefix(key, "station/"):
		return 2
	default:
		return 3
	}
}

// Acquire 获取一组实体锁，返回统一的释放函数。
// 任意一把锁在 wait 内未获取到（或 ctx 先取消）即整体失败，已持有的锁全部回退。
func (m *Manager) Acquire(ctx context.Context, wait time.Duration, keys ...string) (func(), error) {
	ordered := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		ordered = append(ordered, k)
	}
	sort.Slice(ordered, func(i, j int) bool {
		ri, rj := kindRank(ordered[i]), kindRank(ordered[j])
		if ri != rj {
			return ri < rj
		}
		return ordered[i] < ordered[j]
	})

	deadline := time.Now().Add(wait)
	held := make([]string, 0, len(ordered))

	releaseHeld := func() {
		// 逆序释放
		for i := len(held) - 1; i >= 0; i-- {
			m.release(held[i])
		}
	}

	for _, k := range ordered {
		if err := m.acquireOne(ctx, k, time.Until(deadline)); err != nil {
			releaseHeld()
			return nil, err
		}
		held = append(held, k)
	}

	var once sync.Once
	return func() { once.Do(releaseHeld) }, nil
}

func (m *Manager) acquireOne(ctx context.Context, key string, wait time.Duration) error {
	e := m.retain(key)

	if wait <= 0 {
		// 配额已耗尽，只做一次非阻塞尝试
		select {
		case e.sem <- struct{}{}:
			return nil
		default:
			m.put(key)
			return errs.New(errs.KindBusy, "lock wait timeout on %s", key)
		}
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case e.sem <- struct{}{}:
		return nil
	case <-timer.C:
		m.put(key)
		return errs.New(errs.KindBusy, "lock wait timeout on %s", key)
	case <-ctx.Done():
		m.put(key)
		return errs.Wrap(errs.KindBusy, ctx.Err(), "lock wait canceled on %s", key)
	}
}

func (m *Manager) release(key string) {
	m.mu.Lock()
	e, ok := m.entries[key]
	m.mu.Unlock()
	if !ok {
		return
	}
	<-e.sem
	m.put(key)
}

// retain 取出（或创建）entry 并增加引用计数。
func (m *Manager) retain(key string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		m.entries[key] = e
	}
	e.refs++
	return e
}

// put 减少引用计数，归零即回收。
func (m *Manager) put(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(m.entries, key)
	}
}
