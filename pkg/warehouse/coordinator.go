package warehouse

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PlacementRequest describes a single stock change against one cell
// 単一セルに対する在庫変更要求を表現
type PlacementRequest struct {
	ProductID     string           `json:"product_id"`     // 商品ID
	CellID        string           `json:"cell_id"`        // 対象セルID
	QuantityDelta int64            `json:"quantity_delta"` // 符号付き数量差分
	Kind          MovementKind     `json:"kind"`           // 移動種別（省略時は符号から推定）
	BatchNumber   string           `json:"batch_number"`   // バッチ番号（空文字はバッチなし）
	ExpiryDate    *time.Time       `json:"expiry_date"`    // 有効期限
	UnitWeight    *decimal.Decimal `json:"unit_weight"`    // 単位重量（kg）
	UnitVolume    *decimal.Decimal `json:"unit_volume"`    // 単位容積（cm³）
	Notes         string           `json:"notes"`          // 備考
	Actor         string           `json:"actor"`          // 実行者
}

// PlacementResult reports the committed outcome of a placement
// コミット済み配置操作の結果を表現
type PlacementResult struct {
	Movement           *StockMovement   `json:"movement"`             // 記録された移動
	NewProductQuantity int64            `json:"new_product_quantity"` // 商品全体の新数量
	CellOccupied       bool             `json:"cell_occupied"`        // コミット後のセル占有状態
	Placement          *ProductLocation `json:"placement"`            // 更新後の配置（0到達で削除された場合はnil）
}

// RelocationRequest describes an atomic move of stock between two cells
// 2セル間の原子的な在庫移動要求を表現
type RelocationRequest struct {
	ProductID   string `json:"product_id"`   // 商品ID
	FromCellID  string `json:"from_cell_id"` // 元セルID
	ToCellID    string `json:"to_cell_id"`   // 先セルID
	Quantity    int64  `json:"quantity"`     // 移動数量（正の値）
	BatchNumber string `json:"batch_number"` // バッチ番号
	Notes       string `json:"notes"`        // 備考
	Actor       string `json:"actor"`        // 実行者
}

// RelocationResult reports the committed outcome of a relocation
// コミット済み再配置操作の結果を表現
type RelocationResult struct {
	OutboundMovement *StockMovement `json:"outbound_movement"` // 元セルからの出庫移動
	InboundMovement  *StockMovement `json:"inbound_movement"`  // 先セルへの入庫移動
	SourceOccupied   bool           `json:"source_occupied"`   // コミット後の元セル占有状態
	DestOccupied     bool           `json:"dest_occupied"`     // コミット後の先セル占有状態
}

// PlacementCoordinator serializes stock changes against the (product, cell)
// pairs they touch and applies each change as one scoped transaction: the
// ledger entry, the placement row and the cell occupancy flag commit together
// or not at all.
// 在庫変更を対象の（商品, セル）ペアごとに直列化し、各変更を単一の
// スコープ付きトランザクションとして適用する。台帳エントリ・配置行・
// セル占有フラグは全て一緒にコミットされるか、全てロールバックされる。
type PlacementCoordinator struct {
	store     Store
	ledger    *StockLedger
	capacity  *CapacityPolicy
	publisher EventPublisher
	metrics   *Metrics
	logger    *zap.Logger
	config    *Config

	// pairLocksは（商品, セル）ペアの外側ロック、productLocksは
	// 台帳直列化用の内側ロック。productLocksは常に最後に取得されるため
	// 循環待ちは発生しない
	pairLocks    *lockTable
	productLocks *lockTable
}

// インターフェースを実装することを明示
var _ Coordinator = (*PlacementCoordinator)(nil)

// NewPlacementCoordinator creates a new placement coordinator.
// publisher and metrics may be nil when eventing / instrumentation is not wired.
// 新しい配置コーディネータを作成。イベントや計測を使わない場合、
// publisherとmetricsはnilでよい。
func NewPlacementCoordinator(store Store, ledger *StockLedger, capacity *CapacityPolicy, publisher EventPublisher, metrics *Metrics, logger *zap.Logger, config *Config) *PlacementCoordinator {
	if config == nil {
		config = DefaultConfig()
	}
	return &PlacementCoordinator{
		store:        store,
		ledger:       ledger,
		capacity:     capacity,
		publisher:    publisher,
		metrics:      metrics,
		logger:       logger,
		config:       config,
		pairLocks:    newLockTable(config.LockTimeout),
		productLocks: newLockTable(config.LockTimeout),
	}
}

// Place applies one quantity change to a (product, cell, batch) placement.
// Positive deltas add stock (capacity checked first), negative deltas remove
// stock (rejected when the placement or the product would go negative).
// A placement reaching zero is deleted; the cell occupancy flag is recomputed
// from the surviving placements in the same transaction.
// （商品, セル, バッチ）配置に対して1つの数量変更を適用する。
// 正の差分は在庫追加（先に容量検証）、負の差分は在庫引き落とし
// （配置または商品数量が負になる場合は拒否）。数量0に達した配置は削除され、
// セル占有フラグは同一トランザクション内で残存配置から再計算される。
func (c *PlacementCoordinator) Place(ctx context.Context, req PlacementRequest) (*PlacementResult, error) {
	start := time.Now()

	if err := c.validatePlaceRequest(&req); err != nil {
		c.metrics.observeFailure("validation")
		return nil, err
	}

	// 外側: ペアロックで同一（商品, セル）の変更を直列化
	pairKey := pairLockKey(req.ProductID, req.CellID)
	if err := c.pairLocks.acquire(ctx, "place", pairKey); err != nil {
		c.recordLockFailure("place", pairKey, err)
		return nil, err
	}
	defer c.pairLocks.release(pairKey)

	// 内側: 商品ロックで台帳の連鎖を直列化
	if err := c.productLocks.acquire(ctx, "place", req.ProductID); err != nil {
		c.recordLockFailure("place", req.ProductID, err)
		return nil, err
	}
	defer c.productLocks.release(req.ProductID)

	var result *PlacementResult
	err := c.store.WithinTx(ctx, func(tx Tx) error {
		cell, err := tx.GetCell(ctx, req.CellID)
		if err != nil {
			return err
		}

		// 容量と可用性の検証は在庫追加時のみ。引き落としは非アクティブ・
		// 予約済みセルに対しても許可する（残庫の払い出しを妨げない）
		if req.QuantityDelta > 0 {
			w, v := incomingLoad(req.UnitWeight, req.UnitVolume, req.QuantityDelta)
			if err := c.capacity.ValidatePlacement(ctx, tx, cell, w, v); err != nil {
				return err
			}
		}

		movement, err := c.ledger.Append(ctx, tx, req.ProductID, req.Kind, req.QuantityDelta, &req.CellID, req.Actor, req.Notes)
		if err != nil {
			return err
		}

		placement, err := c.applyPlacementDelta(ctx, tx, &req)
		if err != nil {
			return err
		}

		occupied, err := c.refreshOccupancy(ctx, tx, cell)
		if err != nil {
			return err
		}

		// コミット直前のキャンセル確認（キャンセル済みなら全てロールバック）
		if err := ctx.Err(); err != nil {
			return err
		}

		result = &PlacementResult{
			Movement:           movement,
			NewProductQuantity: movement.NewQuantity,
			CellOccupied:       occupied,
			Placement:          placement,
		}
		return nil
	})
	if err != nil {
		c.ledger.invalidate(req.ProductID)
		c.metrics.observeFailure(failureReason(err))
		c.logger.Warn("配置操作が失敗しました",
			zap.String("product_id", req.ProductID),
			zap.String("cell_id", req.CellID),
			zap.Int64("quantity_delta", req.QuantityDelta),
			zap.Error(err))
		return nil, err
	}

	c.ledger.commitQuantity(req.ProductID, result.NewProductQuantity)
	c.metrics.observeMovement(result.Movement.Kind)
	c.metrics.observeDuration(time.Since(start).Seconds())
	c.publishMovement(ctx, result.Movement)
	c.publishOccupancy(ctx, req.CellID, result.CellOccupied)

	c.logger.Info("配置操作が完了しました",
		zap.String("movement_id", result.Movement.ID),
		zap.String("product_id", req.ProductID),
		zap.String("cell_id", req.CellID),
		zap.Int64("quantity_delta", req.QuantityDelta),
		zap.Int64("new_quantity", result.NewProductQuantity),
		zap.Bool("cell_occupied", result.CellOccupied))

	return result, nil
}

// Relocate moves stock between two cells as one transaction: an outbound
// movement against the source and an inbound movement against the destination
// commit together, so the product's total quantity is unchanged on success
// and untouched on failure.
// 2セル間の在庫移動を単一トランザクションとして実行する。元セルへの出庫移動と
// 先セルへの入庫移動は一緒にコミットされるため、成功時は商品総数量が不変で、
// 失敗時は何も変更されない。
func (c *PlacementCoordinator) Relocate(ctx context.Context, req RelocationRequest) (*RelocationResult, error) {
	start := time.Now()

	if err := c.validateRelocateRequest(&req); err != nil {
		c.metrics.observeFailure("validation")
		return nil, err
	}

	// 両ペアキーを辞書順に取得してデッドロックを回避
	keys := []string{
		pairLockKey(req.ProductID, req.FromCellID),
		pairLockKey(req.ProductID, req.ToCellID),
	}
	if keys[1] < keys[0] {
		keys[0], keys[1] = keys[1], keys[0]
	}
	for i, key := range keys {
		if err := c.pairLocks.acquire(ctx, "relocate", key); err != nil {
			for j := 0; j < i; j++ {
				c.pairLocks.release(keys[j])
			}
			c.recordLockFailure("relocate", key, err)
			return nil, err
		}
	}
	defer func() {
		for _, key := range keys {
			c.pairLocks.release(key)
		}
	}()

	if err := c.productLocks.acquire(ctx, "relocate", req.ProductID); err != nil {
		c.recordLockFailure("relocate", req.ProductID, err)
		return nil, err
	}
	defer c.productLocks.release(req.ProductID)

	var result *RelocationResult
	err := c.store.WithinTx(ctx, func(tx Tx) error {
		source, err := tx.GetPlacement(ctx, req.ProductID, req.FromCellID, req.BatchNumber)
		if err != nil {
			return err
		}
		if source.Quantity < req.Quantity {
			return &InsufficientStockError{
				ProductID: req.ProductID,
				CellID:    req.FromCellID,
				Current:   source.Quantity,
				Requested: -req.Quantity,
			}
		}

		fromCell, err := tx.GetCell(ctx, req.FromCellID)
		if err != nil {
			return err
		}
		toCell, err := tx.GetCell(ctx, req.ToCellID)
		if err != nil {
			return err
		}

		// 先セルの容量は元配置の単位重量・容積で検証
		w, v := incomingLoad(source.UnitWeight, source.UnitVolume, req.Quantity)
		if err := c.capacity.ValidatePlacement(ctx, tx, toCell, w, v); err != nil {
			return err
		}

		outbound, err := c.ledger.Append(ctx, tx, req.ProductID, MovementOutbound, -req.Quantity, &req.FromCellID, req.Actor, req.Notes)
		if err != nil {
			return err
		}
		inbound, err := c.ledger.Append(ctx, tx, req.ProductID, MovementInbound, req.Quantity, &req.ToCellID, req.Actor, req.Notes)
		if err != nil {
			return err
		}

		// 元配置から引き落とし（0到達で削除）
		now := time.Now()
		source.Quantity -= req.Quantity
		source.LastUpdated = now
		if source.Quantity == 0 {
			if err := tx.DeletePlacement(ctx, source.ID); err != nil {
				return err
			}
		} else if err := tx.UpsertPlacement(ctx, source); err != nil {
			return err
		}

		// 先配置へ積み増し（なければ新規作成、バッチ属性は元配置を引き継ぐ）
		dest, err := tx.GetPlacement(ctx, req.ProductID, req.ToCellID, req.BatchNumber)
		if errors.Is(err, ErrPlacementNotFound) {
			dest = &ProductLocation{
				ID:          NewEntityID(),
				ProductID:   req.ProductID,
				CellID:      req.ToCellID,
				BatchNumber: req.BatchNumber,
				ExpiryDate:  source.ExpiryDate,
				UnitWeight:  source.UnitWeight,
				UnitVolume:  source.UnitVolume,
				PlacedBy:    req.Actor,
				PlacedAt:    now,
			}
		} else if err != nil {
			return err
		}
		dest.Quantity += req.Quantity
		dest.LastUpdated = now
		if err := tx.UpsertPlacement(ctx, dest); err != nil {
			return err
		}

		sourceOccupied, err := c.refreshOccupancy(ctx, tx, fromCell)
		if err != nil {
			return err
		}
		destOccupied, err := c.refreshOccupancy(ctx, tx, toCell)
		if err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		result = &RelocationResult{
			OutboundMovement: outbound,
			InboundMovement:  inbound,
			SourceOccupied:   sourceOccupied,
			DestOccupied:     destOccupied,
		}
		return nil
	})
	if err != nil {
		c.ledger.invalidate(req.ProductID)
		c.metrics.observeFailure(failureReason(err))
		c.logger.Warn("再配置操作が失敗しました",
			zap.String("product_id", req.ProductID),
			zap.String("from_cell_id", req.FromCellID),
			zap.String("to_cell_id", req.ToCellID),
			zap.Int64("quantity", req.Quantity),
			zap.Error(err))
		return nil, err
	}

	c.ledger.commitQuantity(req.ProductID, result.InboundMovement.NewQuantity)
	c.metrics.observeMovement(MovementOutbound)
	c.metrics.observeMovement(MovementInbound)
	c.metrics.observeDuration(time.Since(start).Seconds())
	c.publishMovement(ctx, result.OutboundMovement)
	c.publishMovement(ctx, result.InboundMovement)
	c.publishOccupancy(ctx, req.FromCellID, result.SourceOccupied)
	c.publishOccupancy(ctx, req.ToCellID, result.DestOccupied)

	c.logger.Info("再配置操作が完了しました",
		zap.String("product_id", req.ProductID),
		zap.String("from_cell_id", req.FromCellID),
		zap.String("to_cell_id", req.ToCellID),
		zap.Int64("quantity", req.Quantity))

	return result, nil
}

// applyPlacementDelta loads (or creates) the (product, cell, batch) placement,
// applies the delta, and stages the upsert or the delete-at-zero.
// （商品, セル, バッチ）配置を取得（または新規作成）し、差分を適用して
// 更新または0到達時の削除をステージングする。
func (c *PlacementCoordinator) applyPlacementDelta(ctx context.Context, tx Tx, req *PlacementRequest) (*ProductLocation, error) {
	now := time.Now()
	placement, err := tx.GetPlacement(ctx, req.ProductID, req.CellID, req.BatchNumber)
	if errors.Is(err, ErrPlacementNotFound) {
		if req.QuantityDelta < 0 {
			// 存在しない配置からの引き落とし
			return nil, &InsufficientStockError{
				ProductID: req.ProductID,
				CellID:    req.CellID,
				Current:   0,
				Requested: req.QuantityDelta,
			}
		}
		placement = &ProductLocation{
			ID:          NewEntityID(),
			ProductID:   req.ProductID,
			CellID:      req.CellID,
			BatchNumber: req.BatchNumber,
			ExpiryDate:  req.ExpiryDate,
			UnitWeight:  req.UnitWeight,
			UnitVolume:  req.UnitVolume,
			PlacedBy:    req.Actor,
			PlacedAt:    now,
		}
	} else if err != nil {
		return nil, err
	}

	newQuantity := placement.Quantity + req.QuantityDelta
	if newQuantity < 0 {
		return nil, &InsufficientStockError{
			ProductID: req.ProductID,
			CellID:    req.CellID,
			Current:   placement.Quantity,
			Requested: req.QuantityDelta,
		}
	}

	placement.Quantity = newQuantity
	placement.LastUpdated = now
	if req.ExpiryDate != nil {
		placement.ExpiryDate = req.ExpiryDate
	}
	if req.UnitWeight != nil {
		placement.UnitWeight = req.UnitWeight
	}
	if req.UnitVolume != nil {
		placement.UnitVolume = req.UnitVolume
	}

	if newQuantity == 0 {
		if err := tx.DeletePlacement(ctx, placement.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if err := tx.UpsertPlacement(ctx, placement); err != nil {
		return nil, err
	}
	return placement, nil
}

// refreshOccupancy recomputes the occupancy flag from the placements staged
// in the transaction and updates the cell when the flag changed.
// トランザクション内にステージングされた配置から占有フラグを再計算し、
// 変化があった場合のみセルを更新する。
func (c *PlacementCoordinator) refreshOccupancy(ctx context.Context, tx Tx, cell *Cell) (bool, error) {
	placements, err := tx.ListPlacementsByCell(ctx, cell.ID)
	if err != nil {
		return false, err
	}
	occupied := false
	for i := range placements {
		if placements[i].Quantity > 0 {
			occupied = true
			break
		}
	}
	if occupied != cell.IsOccupied {
		if err := tx.SetCellOccupancy(ctx, cell.ID, occupied); err != nil {
			return false, err
		}
	}
	return occupied, nil
}

func (c *PlacementCoordinator) validatePlaceRequest(req *PlacementRequest) error {
	if err := ValidateProductID(req.ProductID); err != nil {
		return err
	}
	if req.CellID == "" {
		return NewValidationError("cell_id", "セルIDが空です", req.CellID)
	}
	if err := ValidateQuantityDelta(req.QuantityDelta); err != nil {
		return err
	}
	if err := ValidateActor(req.Actor); err != nil {
		return err
	}
	if req.Kind == "" {
		// 種別省略時は符号から推定
		if req.QuantityDelta > 0 {
			req.Kind = MovementInbound
		} else {
			req.Kind = MovementOutbound
		}
	}
	return ValidateMovementKind(req.Kind, req.QuantityDelta)
}

func (c *PlacementCoordinator) validateRelocateRequest(req *RelocationRequest) error {
	if err := ValidateProductID(req.ProductID); err != nil {
		return err
	}
	if req.FromCellID == "" {
		return NewValidationError("from_cell_id", "元セルIDが空です", req.FromCellID)
	}
	if req.ToCellID == "" {
		return NewValidationError("to_cell_id", "先セルIDが空です", req.ToCellID)
	}
	if req.FromCellID == req.ToCellID {
		return NewValidationError("to_cell_id", "元セルと先セルが同一です", req.ToCellID)
	}
	if req.Quantity <= 0 {
		return NewValidationError("quantity", "移動数量は正の値が必要です", "")
	}
	return ValidateActor(req.Actor)
}

// recordLockFailure logs and counts a failed lock acquisition
// ロック取得失敗をログ出力しカウントする
func (c *PlacementCoordinator) recordLockFailure(operation, resource string, err error) {
	if errors.Is(err, ErrLockTimeout) {
		c.metrics.observeLockTimeout()
	}
	c.metrics.observeFailure("lock")
	c.logger.Warn("ロック取得に失敗しました",
		zap.String("operation", operation),
		zap.String("resource", resource),
		zap.Error(err))
}

// publishMovement emits a movement-recorded event. Publish failures are
// logged, never propagated: the transaction has already committed.
// 移動記録イベントを発行する。トランザクションは既にコミット済みのため、
// 発行失敗はログのみで伝播しない。
func (c *PlacementCoordinator) publishMovement(ctx context.Context, m *StockMovement) {
	if c.publisher == nil {
		return
	}
	event := MovementRecordedEvent{
		MovementID:       m.ID,
		ProductID:        m.ProductID,
		Kind:             m.Kind,
		Quantity:         m.Quantity,
		PreviousQuantity: m.PreviousQuantity,
		NewQuantity:      m.NewQuantity,
		Actor:            m.CreatedBy,
		Timestamp:        m.CreatedAt,
	}
	if m.CellID != nil {
		event.CellID = *m.CellID
	}
	if err := c.publisher.PublishMovementRecorded(ctx, event); err != nil {
		c.logger.Warn("移動イベントの発行に失敗しました",
			zap.String("movement_id", m.ID),
			zap.Error(err))
	}
}

// publishOccupancy emits a cell occupancy event, logging failures
// セル占有イベントを発行する（失敗はログのみ）
func (c *PlacementCoordinator) publishOccupancy(ctx context.Context, cellID string, occupied bool) {
	if c.publisher == nil {
		return
	}
	event := OccupancyChangedEvent{
		CellID:    cellID,
		Occupied:  occupied,
		Timestamp: time.Now(),
	}
	if err := c.publisher.PublishOccupancyChanged(ctx, event); err != nil {
		c.logger.Warn("占有イベントの発行に失敗しました",
			zap.String("cell_id", cellID),
			zap.Error(err))
	}
}

// incomingLoad computes the weight/volume a quantity of units would add
// 指定数量が追加する重量・容積を計算
func incomingLoad(unitWeight, unitVolume *decimal.Decimal, quantity int64) (weight, volume decimal.Decimal) {
	qty := decimal.NewFromInt(quantity)
	if unitWeight != nil {
		weight = unitWeight.Mul(qty)
	}
	if unitVolume != nil {
		volume = unitVolume.Mul(qty)
	}
	return weight, volume
}

// failureReason buckets an error for the failure counter
// 失敗カウンタ用にエラーを分類
func failureReason(err error) string {
	var ve *ValidationError
	switch {
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, ErrCellUnavailable):
		return "cell_unavailable"
	case errors.Is(err, ErrCellNotFound):
		return "cell_not_found"
	case errors.Is(err, ErrPlacementNotFound):
		return "placement_not_found"
	case errors.Is(err, ErrLockTimeout):
		return "lock_timeout"
	case errors.As(err, &ve):
		return "validation"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "storage"
	}
}
