package warehouse

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StockLedger maintains the append-only movement log per product.
// A product's current quantity is defined as the new_quantity of its most
// recent movement; the ledger caches that value per product, and the cache
// is only updated when the enclosing transaction commits.
// 商品ごとの追記専用移動ログを管理する。商品の現在数量は最新移動の
// new_quantityとして定義される。台帳はその値を商品ごとにキャッシュし、
// キャッシュの更新は外側のトランザクションがコミットした時点でのみ行われる。
type StockLedger struct {
	store  Store
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]int64 // 商品ID → 現在数量
}

// インターフェースを実装することを明示
var _ Ledger = (*StockLedger)(nil)

// NewStockLedger creates a new stock ledger
// 新しい在庫台帳を作成
func NewStockLedger(store Store, logger *zap.Logger) *StockLedger {
	return &StockLedger{
		store:  store,
		logger: logger,
		cache:  make(map[string]int64),
	}
}

// Append validates and stages a movement inside the given transaction.
// The quantity snapshots are chained off the latest movement visible in the
// transaction; a delta that would drive the product negative is rejected with
// ErrInsufficientStock and nothing is staged.
// 指定トランザクション内で移動を検証しステージングする。数量スナップショットは
// トランザクション内で見える最新移動に連鎖する。商品数量が負になる差分は
// ErrInsufficientStockで拒否され、何もステージングされない。
func (l *StockLedger) Append(ctx context.Context, tx Tx, productID string, kind MovementKind, delta int64, cellID *string, actor, notes string) (*StockMovement, error) {
	if err := ValidateProductID(productID); err != nil {
		return nil, err
	}
	if err := ValidateQuantityDelta(delta); err != nil {
		return nil, err
	}
	if err := ValidateMovementKind(kind, delta); err != nil {
		return nil, err
	}
	if err := ValidateActor(actor); err != nil {
		return nil, err
	}

	// 移動記録がない商品の現在数量は0
	current := int64(0)
	latest, err := tx.LatestMovement(ctx, productID)
	if err != nil {
		return nil, NewStorageError("latest_movement", "最新移動の取得に失敗しました", err)
	}
	if latest != nil {
		current = latest.NewQuantity
	}

	newQuantity := current + delta
	if newQuantity < 0 {
		return nil, &InsufficientStockError{ProductID: productID, Current: current, Requested: delta}
	}

	m := &StockMovement{
		ID:               NewEntityID(),
		ProductID:        productID,
		Kind:             kind,
		Quantity:         delta,
		PreviousQuantity: current,
		NewQuantity:      newQuantity,
		CellID:           cellID,
		Notes:            notes,
		CreatedBy:        actor,
		CreatedAt:        time.Now(),
	}

	if err := tx.AppendMovement(ctx, m); err != nil {
		return nil, NewStorageError("append_movement", "移動記録の追加に失敗しました", err)
	}

	return m, nil
}

// CurrentQuantity returns the product's current stock quantity,
// served from the per-product cache when present.
// 商品の現在在庫数量を返す。キャッシュがあればそこから返す。
func (l *StockLedger) CurrentQuantity(ctx context.Context, productID string) (int64, error) {
	l.mu.RLock()
	qty, ok := l.cache[productID]
	l.mu.RUnlock()
	if ok {
		return qty, nil
	}

	latest, err := l.store.LatestMovement(ctx, productID)
	if err != nil {
		return 0, NewStorageError("latest_movement", "最新移動の取得に失敗しました", err)
	}
	if latest == nil {
		return 0, nil
	}
	return latest.NewQuantity, nil
}

// History retrieves movement history for a product, newest first
// 商品の移動履歴を新しい順で取得
func (l *StockLedger) History(ctx context.Context, productID string, limit int) ([]StockMovement, error) {
	if err := ValidateProductID(productID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100 // デフォルト値
	}
	movements, err := l.store.ListMovementsByProduct(ctx, productID, limit)
	if err != nil {
		return nil, NewStorageError("list_movements", "移動履歴取得に失敗しました", err)
	}
	return movements, nil
}

// commitQuantity records the committed quantity in the cache.
// Called by the coordinator after a successful transaction commit.
// コミット済み数量をキャッシュに記録する。
// トランザクションコミット成功後にコーディネータから呼ばれる。
func (l *StockLedger) commitQuantity(productID string, quantity int64) {
	l.mu.Lock()
	l.cache[productID] = quantity
	l.mu.Unlock()
}

// invalidate drops a product's cached quantity.
// Called by the coordinator after a rollback.
// 商品のキャッシュ数量を破棄する。ロールバック後にコーディネータから呼ばれる。
func (l *StockLedger) invalidate(productID string) {
	l.mu.Lock()
	delete(l.cache, productID)
	l.mu.Unlock()
}
