package warehouse_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nemonet1337/soukoGoFramework/pkg/warehouse"
)

func TestCreateWarehouseFansOutHierarchy(t *testing.T) {
	config := warehouse.DefaultConfig()
	config.DefaultCellCount = 4
	core := newTestCore(config)
	ctx := context.Background()

	wh, err := core.hierarchy.CreateWarehouse(ctx, "SHOP-01", "第一倉庫", "MAIN1", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, wh.CorridorCount)
	assert.True(t, wh.IsActive)

	// コリドーは1..3の連番で生成される
	corridors, err := core.hierarchy.ListCorridors(ctx, wh.ID)
	require.NoError(t, err)
	require.Len(t, corridors, 3)
	for i, c := range corridors {
		assert.Equal(t, i+1, c.Number)
		assert.Equal(t, 4, c.CellCount)

		// 各コリドーに設定のデフォルトセル数が生成される
		cells, err := core.hierarchy.ListCells(ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, cells, 4)
		for j, cell := range cells {
			assert.Equal(t, j+1, cell.Number)
			assert.False(t, cell.IsOccupied)
		}
	}
}

func TestCreateWarehouseDefaultsCorridorCount(t *testing.T) {
	core := newTestCore(nil)
	ctx := context.Background()

	// corridorCount 0は設定のデフォルト（5）にフォールバック
	wh, err := core.hierarchy.CreateWarehouse(ctx, "SHOP-01", "倉庫", "DEF1", 0)
	require.NoError(t, err)
	assert.Equal(t, 5, wh.CorridorCount)

	corridors, err := core.hierarchy.ListCorridors(ctx, wh.ID)
	require.NoError(t, err)
	assert.Len(t, corridors, 5)
}

func TestCreateWarehouseDuplicateCode(t *testing.T) {
	core := newTestCore(nil)
	ctx := context.Background()

	_, err := core.hierarchy.CreateWarehouse(ctx, "SHOP-01", "倉庫A", "DUP1", 1)
	require.NoError(t, err)

	// 同一店舗内のコード重複は拒否
	_, err = core.hierarchy.CreateWarehouse(ctx, "SHOP-01", "倉庫B", "DUP1", 1)
	assert.ErrorIs(t, err, warehouse.ErrDuplicateCode)

	// 別店舗なら同じコードを使える
	_, err = core.hierarchy.CreateWarehouse(ctx, "SHOP-02", "倉庫C", "DUP1", 1)
	assert.NoError(t, err)
}

func TestLocationCodes(t *testing.T) {
	config := warehouse.DefaultConfig()
	config.DefaultCellCount = 3
	core := newTestCore(config)
	ctx := context.Background()

	wh, err := core.hierarchy.CreateWarehouse(ctx, "SHOP-01", "倉庫", "CODE1", 2)
	require.NoError(t, err)

	corridors, err := core.hierarchy.ListCorridors(ctx, wh.ID)
	require.NoError(t, err)

	// 全セルのロケーションコードは一意で決定的
	seen := make(map[string]bool)
	for _, corridor := range corridors {
		cells, err := core.hierarchy.ListCells(ctx, corridor.ID)
		require.NoError(t, err)
		for _, cell := range cells {
			code, err := core.hierarchy.LocationCode(ctx, cell.ID)
			require.NoError(t, err)
			assert.False(t, seen[code], "ロケーションコードが重複: %s", code)
			seen[code] = true

			expected := fmt.Sprintf("WCODE1-C%02d-H%03d", corridor.Number, cell.Number)
			assert.Equal(t, expected, code)
		}
	}
	assert.Len(t, seen, 6)
}

func TestCreateCorridorSequencing(t *testing.T) {
	core := newTestCore(nil)
	ctx := context.Background()

	wh, err := core.hierarchy.CreateWarehouse(ctx, "SHOP-01", "倉庫", "SEQ1", 2)
	require.NoError(t, err)

	// 追加コリドーは次の連番を受け取る
	c, err := core.hierarchy.CreateCorridor(ctx, wh.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Number)
	assert.Equal(t, 5, c.CellCount)

	cells, err := core.hierarchy.ListCells(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, cells, 5)
}

func TestCreateCellSequencing(t *testing.T) {
	config := warehouse.DefaultConfig()
	config.DefaultCellCount = 2
	core := newTestCore(config)
	ctx := context.Background()

	wh, err := core.hierarchy.CreateWarehouse(ctx, "SHOP-01", "倉庫", "CELL1", 1)
	require.NoError(t, err)
	corridors, err := core.hierarchy.ListCorridors(ctx, wh.ID)
	require.NoError(t, err)

	cell, err := core.hierarchy.CreateCell(ctx, corridors[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 3, cell.Number)
}

func TestHierarchyNotFound(t *testing.T) {
	core := newTestCore(nil)
	ctx := context.Background()

	_, err := core.hierarchy.GetWarehouse(ctx, "missing")
	assert.ErrorIs(t, err, warehouse.ErrWarehouseNotFound)

	_, err = core.hierarchy.GetCorridor(ctx, "missing")
	assert.ErrorIs(t, err, warehouse.ErrCorridorNotFound)

	_, err = core.hierarchy.GetCell(ctx, "missing")
	assert.ErrorIs(t, err, warehouse.ErrCellNotFound)

	_, err = core.hierarchy.CreateCorridor(ctx, "missing", 0)
	assert.ErrorIs(t, err, warehouse.ErrWarehouseNotFound)

	_, err = core.hierarchy.LocationCode(ctx, "missing")
	assert.ErrorIs(t, err, warehouse.ErrCellNotFound)
}

func TestDeactivateWarehouseCascades(t *testing.T) {
	config := warehouse.DefaultConfig()
	config.DefaultCellCount = 2
	core := newTestCore(config)
	ctx := context.Background()

	wh, err := core.hierarchy.CreateWarehouse(ctx, "SHOP-01", "倉庫", "DEACT1", 2)
	require.NoError(t, err)

	require.NoError(t, core.hierarchy.DeactivateWarehouse(ctx, wh.ID))

	// 無効化は下位までカスケードする
	got, err := core.hierarchy.GetWarehouse(ctx, wh.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	corridors, err := core.hierarchy.ListCorridors(ctx, wh.ID)
	require.NoError(t, err)
	for _, corridor := range corridors {
		assert.False(t, corridor.IsActive)
		cells, err := core.hierarchy.ListCells(ctx, corridor.ID)
		require.NoError(t, err)
		for _, cell := range cells {
			assert.False(t, cell.IsActive)
		}
	}
}

func TestReserveAndReleaseCell(t *testing.T) {
	core := newTestCore(nil)
	_, cells := makeWarehouse(t, core, 1)
	ctx := context.Background()

	require.NoError(t, core.hierarchy.ReserveCell(ctx, cells[0].ID))
	got, err := core.hierarchy.GetCell(ctx, cells[0].ID)
	require.NoError(t, err)
	assert.True(t, got.IsReserved)

	require.NoError(t, core.hierarchy.ReleaseCell(ctx, cells[0].ID))
	got, err = core.hierarchy.GetCell(ctx, cells[0].ID)
	require.NoError(t, err)
	assert.False(t, got.IsReserved)
}

func TestCreateWarehouseValidation(t *testing.T) {
	core := newTestCore(nil)
	ctx := context.Background()
	var ve *warehouse.ValidationError

	// 店舗IDなし
	_, err := core.hierarchy.CreateWarehouse(ctx, "", "倉庫", "V1", 1)
	assert.ErrorAs(t, err, &ve)

	// 名前なし
	_, err = core.hierarchy.CreateWarehouse(ctx, "SHOP-01", "  ", "V1", 1)
	assert.ErrorAs(t, err, &ve)

	// コード不正
	_, err = core.hierarchy.CreateWarehouse(ctx, "SHOP-01", "倉庫", "V-1", 1)
	assert.ErrorAs(t, err, &ve)

	// コリドー数上限超過
	_, err = core.hierarchy.CreateWarehouse(ctx, "SHOP-01", "倉庫", "V1", 101)
	assert.ErrorAs(t, err, &ve)
}
