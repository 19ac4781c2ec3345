package warehouse_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nemonet1337/soukoGoFramework/pkg/warehouse"
	"github.com/nemonet1337/soukoGoFramework/pkg/warehouse/storage"
)

// testCore bundles a fully wired warehouse core on the in-memory store
// インメモリストア上に構築した倉庫コア一式
type testCore struct {
	store       *storage.MemoryStore
	hierarchy   *warehouse.HierarchyManager
	ledger      *warehouse.StockLedger
	coordinator *warehouse.PlacementCoordinator
	reporter    *warehouse.ReportingService
}

func newTestCore(config *warehouse.Config) *testCore {
	logger := zap.NewNop()
	store := storage.NewMemoryStore()
	ledger := warehouse.NewStockLedger(store, logger)
	capacity := warehouse.NewCapacityPolicy(logger)
	return &testCore{
		store:       store,
		hierarchy:   warehouse.NewHierarchyManager(store, logger, config),
		ledger:      ledger,
		coordinator: warehouse.NewPlacementCoordinator(store, ledger, capacity, nil, nil, logger, config),
		reporter:    warehouse.NewReportingService(store, logger),
	}
}

// makeWarehouse creates a warehouse and returns it with the first corridor's cells
// 倉庫を作成し、先頭コリドーのセル一覧とともに返す
func makeWarehouse(t *testing.T, core *testCore, corridorCount int) (*warehouse.Warehouse, []warehouse.Cell) {
	t.Helper()
	ctx := context.Background()

	wh, err := core.hierarchy.CreateWarehouse(ctx, "SHOP-01", "テスト倉庫", "TEST1", corridorCount)
	require.NoError(t, err)

	corridors, err := core.hierarchy.ListCorridors(ctx, wh.ID)
	require.NoError(t, err)
	require.NotEmpty(t, corridors)

	cells, err := core.hierarchy.ListCells(ctx, corridors[0].ID)
	require.NoError(t, err)
	require.NotEmpty(t, cells)

	return wh, cells
}

func TestPlaceLifecycle(t *testing.T) {
	core := newTestCore(nil)
	_, cells := makeWarehouse(t, core, 1)
	ctx := context.Background()
	cellID := cells[0].ID

	// 入庫: 0 → 100、セルは占有状態に遷移
	result, err := core.coordinator.Place(ctx, warehouse.PlacementRequest{
		ProductID:     "PRODUCT-A",
		CellID:        cellID,
		QuantityDelta: 100,
		Actor:         "tester",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), result.NewProductQuantity)
	assert.Equal(t, warehouse.MovementInbound, result.Movement.Kind)
	assert.Equal(t, int64(0), result.Movement.PreviousQuantity)
	assert.True(t, result.CellOccupied)
	require.NotNil(t, result.Placement)
	assert.Equal(t, int64(100), result.Placement.Quantity)

	// 出庫: 100 → 70、セルは占有のまま
	result, err = core.coordinator.Place(ctx, warehouse.PlacementRequest{
		ProductID:     "PRODUCT-A",
		CellID:        cellID,
		QuantityDelta: -30,
		Actor:         "tester",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(70), result.NewProductQuantity)
	assert.Equal(t, warehouse.MovementOutbound, result.Movement.Kind)
	assert.True(t, result.CellOccupied)

	// 全量出庫: 70 → 0、配置は削除されセルは空きに遷移
	result, err = core.coordinator.Place(ctx, warehouse.PlacementRequest{
		ProductID:     "PRODUCT-A",
		CellID:        cellID,
		QuantityDelta: -70,
		Actor:         "tester",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.NewProductQuantity)
	assert.False(t, result.CellOccupied)
	assert.Nil(t, result.Placement)

	// ストア上でも占有フラグと配置削除が反映されている
	cell, err := core.store.GetCell(ctx, cellID)
	require.NoError(t, err)
	assert.False(t, cell.IsOccupied)
	placements, err := core.store.ListPlacementsByCell(ctx, cellID)
	require.NoError(t, err)
	assert.Empty(t, placements)

	// さらに引き落とすと在庫不足で拒否
	_, err = core.coordinator.Place(ctx, warehouse.PlacementRequest{
		ProductID:     "PRODUCT-A",
		CellID:        cellID,
		QuantityDelta: -1,
		Actor:         "tester",
	})
	assert.ErrorIs(t, err, warehouse.ErrInsufficientStock)
}

func TestPlaceMovementChain(t *testing.T) {
	core := newTestCore(nil)
	_, cells := makeWarehouse(t, core, 1)
	ctx := context.Background()

	deltas := []int64{50, -20, 30, -10}
	for _, delta := range deltas {
		_, err := core.coordinator.Place(ctx, warehouse.PlacementRequest{
			ProductID:     "CHAIN-P",
			CellID:        cells[0].ID,
			QuantityDelta: delta,
			Actor:         "tester",
		})
		require.NoError(t, err)
	}

	history, err := core.ledger.History(ctx, "CHAIN-P", 10)
	require.NoError(t, err)
	require.Len(t, history, 4)

	// 新しい順で返る。各移動のprevious_quantityは直前の移動のnew_quantityに連鎖する
	for i := 0; i < len(history)-1; i++ {
		assert.Equal(t, history[i+1].NewQuantity, history[i].PreviousQuantity)
		assert.Greater(t, history[i].Sequence, history[i+1].Sequence)
	}
	// 50 - 20 + 30 - 10 = 50
	assert.Equal(t, int64(50), history[0].NewQuantity)
	assert.Equal(t, int64(50), history[len(history)-1].NewQuantity)
}

func TestPlaceRejectionsRollBackEverything(t *testing.T) {
	core := newTestCore(nil)
	_, cells := makeWarehouse(t, core, 1)
	ctx := context.Background()

	// セルAに置いた在庫をセルBから引き落とそうとするとセル局所の在庫不足になる
	_, err := core.coordinator.Place(ctx, warehouse.PlacementRequest{
		ProductID:     "PRODUCT-B",
		CellID:        cells[0].ID,
		QuantityDelta: 40,
		Actor:         "tester",
	})
	require.NoError(t, err)

	_, err = core.coordinator.Place(ctx, warehouse.PlacementRequest{
		ProductID:     "PRODUCT-B",
		CellID:        cells[1].ID,
		QuantityDelta: -10,
		Actor:         "tester",
	})
	require.Error(t, err)
	var insufficient *warehouse.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, cells[1].ID, insufficient.CellID)

	// 失敗した操作は台帳に痕跡を残さない
	quantity, err := core.ledger.CurrentQuantity(ctx, "PRODUCT-B")
	require.NoError(t, err)
	assert.Equal(t, int64(40), quantity)
	history, err := core.ledger.History(ctx, "PRODUCT-B", 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestPlaceRespectsReservedAndInactiveCells(t *testing.T) {
	core := newTestCore(nil)
	_, cells := makeWarehouse(t, core, 1)
	ctx := context.Background()

	// 予約済みセルへの配置は拒否
	require.NoError(t, core.hierarchy.ReserveCell(ctx, cells[0].ID))
	_, err := core.coordinator.Place(ctx, warehouse.PlacementRequest{
		ProductID:     "PRODUCT-C",
		CellID:        cells[0].ID,
		QuantityDelta: 10,
		Actor:         "tester",
	})
	assert.ErrorIs(t, err, warehouse.ErrCellUnavailable)

	// 予約解除後は配置できる
	require.NoError(t, core.hierarchy.ReleaseCell(ctx, cells[0].ID))
	_, err = core.coordinator.Place(ctx, warehouse.PlacementRequest{
		ProductID:     "PRODUCT-C",
		CellID:        cells[0].ID,
		QuantityDelta: 10,
		Actor:         "tester",
	})
	assert.NoError(t, err)

	// 無効化セルへの配置は拒否
	require.NoError(t, core.hierarchy.DeactivateCell(ctx, cells[1].ID))
	_, err = core.coordinator.Place(ctx, warehouse.PlacementRequest{
		ProductID:     "PRODUCT-C",
		CellID:        cells[1].ID,
		QuantityDelta: 10,
		Actor:         "tester",
	})
	assert.ErrorIs(t, err, warehouse.ErrCellUnavailable)
}

func TestPlaceDebitsDeactivatedCell(t *testing.T) {
	core := newTestCore(nil)
	_, cells := makeWarehouse(t, core, 1)
	ctx := context.Background()

	// 入庫後にセルを無効化
	_, err := core.coordinator.Place(ctx, warehouse.PlacementRequest{
		ProductID:     "PRODUCT-D",
		CellID:        cells[0].ID,
		QuantityDelta: 50,
		Actor:         "tester",
	})
	require.NoError(t, err)
	require.NoError(t, core.hierarchy.DeactivateCell(ctx, cells[0].ID))

	// 無効化セルからの引き落としは許可される（残庫の払い出し）
	result, err := core.coordinator.Place(ctx, warehouse.PlacementRequest{
		ProductID:     "PRODUCT-D",
		CellID:        cells[0].ID,
		QuantityDelta: -10,
		Actor:         "tester",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(40), result.NewProductQuantity)

	// 破損計上など明示的な種別の引き落としも同様
	result, err = core.coordinator.Place(ctx, warehouse.PlacementRequest{
		ProductID:     "PRODUCT-D",
		CellID:        cells[0].ID,
		QuantityDelta: -5,
		Kind:          warehouse.MovementDamage,
		Actor:         "tester",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(35), result.NewProductQuantity)

	// 在庫追加の方は引き続き拒否される
	_, err = core.coordinator.Place(ctx, warehouse.PlacementRequest{
		ProductID:     "PRODUCT-D",
		CellID:        cells[0].ID,
		QuantityDelta: 10,
		Actor:         "tester",
	})
	assert.ErrorIs(t, err, warehouse.ErrCellUnavailable)
}

func TestPlaceCapacityBounds(t *testing.T) {
	core := newTestCore(nil)
	_, cells := makeWarehouse(t, core, 1)
	ctx := context.Background()

	// セルに最大重量10kgを設定
	cell, err := core.store.GetCell(ctx, cells[0].ID)
	require.NoError(t, err)
	maxWeight := decimal.NewFromInt(10)
	cell.MaxWeight = &maxWeight
	require.NoError(t, core.store.UpdateCell(ctx, cell))

	unitWeight := decimal.NewFromInt(1)

	// 8kg分は収まる
	_, err = core.coordinator.Place(ctx, warehouse.PlacementRequest{
		ProductID:     "HEAVY-P",
		CellID:        cell.ID,
		QuantityDelta: 8,
		UnitWeight:    &unitWeight,
		Actor:         "tester",
	})
	require.NoError(t, err)

	// さらに3kgは超過（8+3 > 10）
	_, err = core.coordinator.Place(ctx, warehouse.PlacementRequest{
		ProductID:     "HEAVY-Q",
		CellID:        cell.ID,
		QuantityDelta: 3,
		UnitWeight:    &unitWeight,
		Actor:         "tester",
	})
	assert.ErrorIs(t, err, warehouse.ErrCapacityExceeded)

	// 2kgはちょうど収まる（8+2 = 10）
	_, err = core.coordinator.Place(ctx, warehouse.PlacementRequest{
		ProductID:     "HEAVY-Q",
		CellID:        cell.ID,
		QuantityDelta: 2,
		UnitWeight:    &unitWeight,
		Actor:         "tester",
	})
	assert.NoError(t, err)
}

func TestPlaceConcurrentDeltasSumCorrectly(t *testing.T) {
	core := newTestCore(nil)
	_, cells := makeWarehouse(t, core, 1)
	ctx := context.Background()

	// 初期在庫
	_, err := core.coordinator.Place(ctx, warehouse.PlacementRequest{
		ProductID:     "CONC-P",
		CellID:        cells[0].ID,
		QuantityDelta: 1000,
		Actor:         "tester",
	})
	require.NoError(t, err)

	// 並行の増減は直列化され、失われる更新なしに合計される
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		delta := int64(5)
		if i%2 == 1 {
			delta = -5
		}
		wg.Add(1)
		go func(d int64) {
			defer wg.Done()
			_, err := core.coordinator.Place(ctx, warehouse.PlacementRequest{
				ProductID:     "CONC-P",
				CellID:        cells[0].ID,
				QuantityDelta: d,
				Actor:         "tester",
			})
			assert.NoError(t, err)
		}(delta)
	}
	wg.Wait()

	quantity, err := core.ledger.CurrentQuantity(ctx, "CONC-P")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), quantity)

	// 台帳の連鎖も途切れていない
	history, err := core.ledger.History(ctx, "CONC-P", 50)
	require.NoError(t, err)
	require.Len(t, history, 21)
	for i := 0; i < len(history)-1; i++ {
		assert.Equal(t, history[i+1].NewQuantity, history[i].PreviousQuantity)
	}
}

func TestPlaceBatchesAreIndependent(t *testing.T) {
	core := newTestCore(nil)
	_, cells := makeWarehouse(t, core, 1)
	ctx := context.Background()

	// 同一商品・同一セルでもバッチごとに配置行が分かれる
	for _, batch := range []string{"LOT-A", "LOT-B"} {
		_, err := core.coordinator.Place(ctx, warehouse.PlacementRequest{
			ProductID:     "BATCH-P",
			CellID:        cells[0].ID,
			QuantityDelta: 10,
			BatchNumber:   batch,
			Actor:         "tester",
		})
		require.NoError(t, err)
	}

	placements, err := core.store.ListPlacementsByCell(ctx, cells[0].ID)
	require.NoError(t, err)
	assert.Len(t, placements, 2)

	// 商品全体の数量はバッチ横断で合算
	quantity, err := core.ledger.CurrentQuantity(ctx, "BATCH-P")
	require.NoError(t, err)
	assert.Equal(t, int64(20), quantity)
}

func TestRelocate(t *testing.T) {
	core := newTestCore(nil)
	_, cells := makeWarehouse(t, core, 1)
	ctx := context.Background()

	_, err := core.coordinator.Place(ctx, warehouse.PlacementRequest{
		ProductID:     "MOVE-P",
		CellID:        cells[0].ID,
		QuantityDelta: 50,
		Actor:         "tester",
	})
	require.NoError(t, err)

	// 一部を別セルへ移動
	result, err := core.coordinator.Relocate(ctx, warehouse.RelocationRequest{
		ProductID:  "MOVE-P",
		FromCellID: cells[0].ID,
		ToCellID:   cells[1].ID,
		Quantity:   20,
		Actor:      "tester",
	})
	require.NoError(t, err)
	assert.True(t, result.SourceOccupied)
	assert.True(t, result.DestOccupied)
	assert.Equal(t, warehouse.MovementOutbound, result.OutboundMovement.Kind)
	assert.Equal(t, warehouse.MovementInbound, result.InboundMovement.Kind)

	// 商品総数量は不変
	quantity, err := core.ledger.CurrentQuantity(ctx, "MOVE-P")
	require.NoError(t, err)
	assert.Equal(t, int64(50), quantity)

	// 残りを全量移動すると元セルは空きに遷移
	result, err = core.coordinator.Relocate(ctx, warehouse.RelocationRequest{
		ProductID:  "MOVE-P",
		FromCellID: cells[0].ID,
		ToCellID:   cells[1].ID,
		Quantity:   30,
		Actor:      "tester",
	})
	require.NoError(t, err)
	assert.False(t, result.SourceOccupied)
	assert.True(t, result.DestOccupied)

	placements, err := core.store.ListPlacementsByCell(ctx, cells[1].ID)
	require.NoError(t, err)
	require.Len(t, placements, 1)
	assert.Equal(t, int64(50), placements[0].Quantity)
}

func TestRelocateFailureLeavesNothingBehind(t *testing.T) {
	core := newTestCore(nil)
	_, cells := makeWarehouse(t, core, 1)
	ctx := context.Background()

	_, err := core.coordinator.Place(ctx, warehouse.PlacementRequest{
		ProductID:     "MOVE-Q",
		CellID:        cells[0].ID,
		QuantityDelta: 10,
		Actor:         "tester",
	})
	require.NoError(t, err)

	// 在庫以上の移動は拒否
	_, err = core.coordinator.Relocate(ctx, warehouse.RelocationRequest{
		ProductID:  "MOVE-Q",
		FromCellID: cells[0].ID,
		ToCellID:   cells[1].ID,
		Quantity:   25,
		Actor:      "tester",
	})
	assert.ErrorIs(t, err, warehouse.ErrInsufficientStock)

	// 先セルが無効でも同様に全体がロールバック
	require.NoError(t, core.hierarchy.DeactivateCell(ctx, cells[1].ID))
	_, err = core.coordinator.Relocate(ctx, warehouse.RelocationRequest{
		ProductID:  "MOVE-Q",
		FromCellID: cells[0].ID,
		ToCellID:   cells[1].ID,
		Quantity:   5,
		Actor:      "tester",
	})
	assert.ErrorIs(t, err, warehouse.ErrCellUnavailable)

	// 失敗後も元の状態のまま
	quantity, err := core.ledger.CurrentQuantity(ctx, "MOVE-Q")
	require.NoError(t, err)
	assert.Equal(t, int64(10), quantity)
	history, err := core.ledger.History(ctx, "MOVE-Q", 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	placements, err := core.store.ListPlacementsByCell(ctx, cells[1].ID)
	require.NoError(t, err)
	assert.Empty(t, placements)
}

func TestPlaceValidation(t *testing.T) {
	core := newTestCore(nil)
	_, cells := makeWarehouse(t, core, 1)
	ctx := context.Background()

	var ve *warehouse.ValidationError

	// 0差分
	_, err := core.coordinator.Place(ctx, warehouse.PlacementRequest{
		ProductID:     "P",
		CellID:        cells[0].ID,
		QuantityDelta: 0,
		Actor:         "tester",
	})
	assert.ErrorAs(t, err, &ve)

	// 実行者なし
	_, err = core.coordinator.Place(ctx, warehouse.PlacementRequest{
		ProductID:     "P",
		CellID:        cells[0].ID,
		QuantityDelta: 10,
	})
	assert.ErrorAs(t, err, &ve)

	// 種別と符号の不整合
	_, err = core.coordinator.Place(ctx, warehouse.PlacementRequest{
		ProductID:     "P",
		CellID:        cells[0].ID,
		QuantityDelta: -10,
		Kind:          warehouse.MovementInbound,
		Actor:         "tester",
	})
	assert.ErrorAs(t, err, &ve)

	// 存在しないセル
	_, err = core.coordinator.Place(ctx, warehouse.PlacementRequest{
		ProductID:     "P",
		CellID:        "missing-cell",
		QuantityDelta: 10,
		Actor:         "tester",
	})
	assert.ErrorIs(t, err, warehouse.ErrCellNotFound)
}

func TestPlaceLockTimeout(t *testing.T) {
	config := warehouse.DefaultConfig()
	config.LockTimeout = 50 * time.Millisecond
	core := newTestCore(config)
	_, cells := makeWarehouse(t, core, 1)

	// 長時間トランザクションを保持してペアロックを塞ぐ
	blocked := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = core.store.WithinTx(context.Background(), func(tx warehouse.Tx) error {
			close(blocked)
			<-release
			return nil
		})
	}()
	<-blocked

	// ストアの書き込みロックが保持されている間、配置はトランザクション開始前の
	// ペアロック取得には成功するがコミットできない。ここではペアロック自体の競合を検証する
	ctx := context.Background()
	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := core.coordinator.Place(ctx, warehouse.PlacementRequest{
				ProductID:     "LOCK-P",
				CellID:        cells[0].ID,
				QuantityDelta: 1,
				Actor:         "tester",
			})
			done <- err
		}()
	}

	close(release)
	err1 := <-done
	err2 := <-done
	// 両方成功するか、片方がロックタイムアウトで失敗するかのいずれか
	for _, err := range []error{err1, err2} {
		if err != nil {
			assert.ErrorIs(t, err, warehouse.ErrLockTimeout)
		}
	}
}
