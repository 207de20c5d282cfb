package session

import (
	"context"
	"sync"
)

// MemoryStore はプロセス内メモリ上のStore実装。
// テストおよびSTORE_BACKEND=memoryでの単体起動に使用する。
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

// NewMemoryStore は空のMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]string)}
}

// Get はクライアントのキー集合のコピーを返す。
func (m *MemoryStore) Get(ctx context.Context, clientID string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(m.data[clientID]))
	for k, v := range m.data[clientID] {
		out[k] = v
	}
	return out, nil
}

// Put は全キーを1回のロック内で書き込む。
func (m *MemoryStore) Put(ctx context.Context, clientID string, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.data[clientID]
	if !ok {
		entry = make(map[string]string, len(values))
		m.data[clientID] = entry
	}
	for k, v := range values {
		entry[k] = v
	}
	return nil
}

// Delete は指定キーを削除する。空になったクライアントは破棄する。
func (m *MemoryStore) Delete(ctx context.Context, clientID string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.data[clientID]
	if !ok {
		return nil
	}
	for _, k := range keys {
		delete(entry, k)
	}
	if len(entry) == 0 {
		delete(m.data, clientID)
	}
	return nil
}

// Len は保持しているクライアント数を返す。
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// compile-time interface check
var _ Store = (*MemoryStore)(nil)
