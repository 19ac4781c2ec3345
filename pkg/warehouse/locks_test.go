package warehouse

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLockTableAcquireRelease(t *testing.T) {
	table := newLockTable(100 * time.Millisecond)
	ctx := context.Background()

	// 取得と解放
	assert.NoError(t, table.acquire(ctx, "test", "key1"))
	table.release("key1")

	// 解放後は再取得できる
	assert.NoError(t, table.acquire(ctx, "test", "key1"))
	table.release("key1")

	// 全エントリが解放されるとテーブルは空になる
	table.mu.Lock()
	assert.Empty(t, table.entries)
	table.mu.Unlock()
}

func TestLockTableTimeout(t *testing.T) {
	table := newLockTable(50 * time.Millisecond)
	ctx := context.Background()

	assert.NoError(t, table.acquire(ctx, "test", "key1"))

	// 保持中のキーは上限時間後にErrLockTimeoutで失敗する
	err := table.acquire(ctx, "test", "key1")
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrLockTimeout)

	table.release("key1")

	// 解放後は取得可能
	assert.NoError(t, table.acquire(ctx, "test", "key1"))
	table.release("key1")
}

func TestLockTableContextCancel(t *testing.T) {
	table := newLockTable(10 * time.Second)

	assert.NoError(t, table.acquire(context.Background(), "test", "key1"))
	defer table.release("key1")

	// 待機中のキャンセルは即座にエラーを返す
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- table.acquire(ctx, "test", "key1")
	}()
	cancel()

	select {
	case err := <-done:
		// キャンセルはタイムアウトではなくコンテキストエラーとして報告される
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrLockTimeout)
		var ce *ConcurrencyError
		assert.ErrorAs(t, err, &ce)
	case <-time.After(time.Second):
		t.Fatal("キャンセルが取得待機を解除しませんでした")
	}
}

func TestLockTableMutualExclusion(t *testing.T) {
	table := newLockTable(5 * time.Second)
	ctx := context.Background()

	// 同一キーの並行クリティカルセクションが重ならないこと
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := table.acquire(ctx, "test", "shared"); err != nil {
				t.Error(err)
				return
			}
			counter++
			table.release("shared")
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestPairLockKeyOrdering(t *testing.T) {
	// 呼び出し方向に依存しない一貫したキー
	assert.Equal(t, pairLockKey("a", "b"), pairLockKey("b", "a"))
	assert.Equal(t, "a|b", pairLockKey("a", "b"))
	assert.Equal(t, "cell-1|product-9", pairLockKey("product-9", "cell-1"))
}
