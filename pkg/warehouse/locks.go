package warehouse

import (
	"context"
	"sync"
	"time"
)

// lockTable provides keyed exclusive locks with a bounded acquisition timeout.
// Entries are reference counted and removed once the last waiter releases.
// キー付き排他ロックを上限付きタイムアウトで提供する。
// エントリは参照カウントされ、最後の利用者が解放した時点で削除される。
type lockTable struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
	timeout time.Duration
}

type lockEntry struct {
	ch   chan struct{} // 容量1、トークン保持中はロック中
	refs int
}

func newLockTable(timeout time.Duration) *lockTable {
	return &lockTable{
		entries: make(map[string]*lockEntry),
		timeout: timeout,
	}
}

// acquire takes the lock for key, failing with ErrLockTimeout after the bound.
// キーのロックを取得する。上限時間を超えるとErrLockTimeoutで失敗する。
func (t *lockTable) acquire(ctx context.Context, operation, key string) error {
	t.mu.Lock()
	e, ok := t.entries[key]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		t.entries[key] = e
	}
	e.refs++
	t.mu.Unlock()

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()

	select {
	case e.ch <- struct{}{}:
		return nil
	case <-timer.C:
		t.unref(key, e)
		return NewConcurrencyError(operation, key, "ロック取得がタイムアウトしました")
	case <-ctx.Done():
		t.unref(key, e)
		return &ConcurrencyError{
			Operation: operation,
			Resource:  key,
			Message:   "ロック取得待機中にコンテキストがキャンセルされました",
			Cause:     ctx.Err(),
		}
	}
}

// release frees the lock for key.
// キーのロックを解放する
func (t *lockTable) release(key string) {
	t.mu.Lock()
	e, ok := t.entries[key]
	t.mu.Unlock()
	if !ok {
		return
	}
	<-e.ch
	t.unref(key, e)
}

func (t *lockTable) unref(key string, e *lockEntry) {
	t.mu.Lock()
	e.refs--
	if e.refs <= 0 {
		delete(t.entries, key)
	}
	t.mu.Unlock()
}

// pairLockKey builds a deadlock-free lock key for a (product, cell) pair by
// ordering the two identifiers consistently regardless of call direction.
// (商品, セル)ペアのロックキーを、呼び出し方向に依存しない一貫した順序で生成する
func pairLockKey(productID, cellID string) string {
	if productID <= cellID {
		return productID + "|" + cellID
	}
	return cellID + "|" + productID
}
