package warehouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Config holds configuration for the warehouse core
// 倉庫コアの設定を保持
type Config struct {
	DefaultCorridorCount int           `yaml:"default_corridor_count"` // 倉庫作成時のデフォルトコリドー数
	DefaultCellCount     int           `yaml:"default_cell_count"`     // コリドー作成時のデフォルトセル数
	LockTimeout          time.Duration `yaml:"lock_timeout"`           // 調整ロックの取得上限時間
}

// DefaultConfig returns the default core configuration
// デフォルトのコア設定を返す
func DefaultConfig() *Config {
	return &Config{
		DefaultCorridorCount: 5,
		DefaultCellCount:     10,
		LockTimeout:          5 * time.Second,
	}
}

// HierarchyManager implements the LocationHierarchy interface
// LocationHierarchyインターフェースの実装
type HierarchyManager struct {
	store  Store
	logger *zap.Logger
	config *Config
}

// インターフェースを実装することを明示
var _ LocationHierarchy = (*HierarchyManager)(nil)

// NewHierarchyManager creates a new hierarchy manager
// 新しい階層マネージャーを作成
func NewHierarchyManager(store Store, logger *zap.Logger, config *Config) *HierarchyManager {
	if config == nil {
		config = DefaultConfig()
	}
	return &HierarchyManager{
		store:  store,
		logger: logger,
		config: config,
	}
}

// CreateWarehouse creates a warehouse and generates its initial corridors,
// each populated with the configured default cell fan-out.
// 倉庫を作成し、初期コリドーを生成する。
// 各コリドーには設定されたデフォルトセル数のセルが生成される。
func (h *HierarchyManager) CreateWarehouse(ctx context.Context, shopID, name, code string, corridorCount int) (*Warehouse, error) {
	if shopID == "" {
		return nil, NewValidationError("shop_id", "店舗IDが空です", shopID)
	}
	if err := ValidateWarehouseName(name); err != nil {
		return nil, err
	}
	if err := ValidateWarehouseCode(code); err != nil {
		return nil, err
	}
	if corridorCount == 0 {
		corridorCount = h.config.DefaultCorridorCount
	}
	if err := ValidateCorridorCount(corridorCount); err != nil {
		return nil, err
	}

	now := time.Now()
	w := &Warehouse{
		ID:            NewEntityID(),
		ShopID:        shopID,
		Name:          name,
		Code:          code,
		CorridorCount: corridorCount,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.store.CreateWarehouse(ctx, w); err != nil {
		if errors.Is(err, ErrDuplicateCode) {
			return nil, err
		}
		return nil, NewStorageError("create_warehouse", "倉庫作成に失敗しました", err)
	}

	// 初期コリドーとセルの生成（明示的なファクトリ呼び出し）
	for i := 1; i <= corridorCount; i++ {
		if _, err := h.createCorridorAt(ctx, w.ID, i, h.config.DefaultCellCount); err != nil {
			return nil, err
		}
	}

	h.logger.Info("倉庫作成完了",
		zap.String("warehouse_id", w.ID),
		zap.String("shop_id", shopID),
		zap.String("code", code),
		zap.Int("corridor_count", corridorCount),
		zap.Int("cells_per_corridor", h.config.DefaultCellCount),
	)

	return w, nil
}

// CreateCorridor creates a corridor with the next sequence number and
// generates its cells. Fails with ErrCapacityExceeded past the limit.
// 次の連番でコリドーを作成し、セルを生成する。
// 上限超過時はErrCapacityExceededで失敗する。
func (h *HierarchyManager) CreateCorridor(ctx context.Context, warehouseID string, cellCount int) (*Corridor, error) {
	if cellCount == 0 {
		cellCount = h.config.DefaultCellCount
	}
	if err := ValidateCellCount(cellCount); err != nil {
		return nil, err
	}

	if _, err := h.getWarehouse(ctx, warehouseID); err != nil {
		return nil, err
	}

	existing, err := h.store.ListCorridorsByWarehouse(ctx, warehouseID)
	if err != nil {
		return nil, NewStorageError("list_corridors", "コリドー一覧取得に失敗しました", err)
	}
	if len(existing) >= MaxCorridorsPerWarehouse {
		return nil, NewCapacityError(warehouseID, "corridors",
			fmt.Sprintf("倉庫あたりのコリドー数上限（%d）に達しています", MaxCorridorsPerWarehouse))
	}

	number := 1
	for _, c := range existing {
		if c.Number >= number {
			number = c.Number + 1
		}
	}

	return h.createCorridorAt(ctx, warehouseID, number, cellCount)
}

// createCorridorAt creates a corridor with an explicit sequence number
// 明示的な連番でコリドーを作成
func (h *HierarchyManager) createCorridorAt(ctx context.Context, warehouseID string, number, cellCount int) (*Corridor, error) {
	now := time.Now()
	c := &Corridor{
		ID:          NewEntityID(),
		WarehouseID: warehouseID,
		Number:      number,
		Name:        fmt.Sprintf("コリドー %d", number),
		CellCount:   cellCount,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.store.CreateCorridor(ctx, c); err != nil {
		return nil, NewStorageError("create_corridor", "コリドー作成に失敗しました", err)
	}

	for i := 1; i <= cellCount; i++ {
		if _, err := h.createCellAt(ctx, c.ID, i); err != nil {
			return nil, err
		}
	}

	h.logger.Info("コリドー作成完了",
		zap.String("corridor_id", c.ID),
		zap.String("warehouse_id", warehouseID),
		zap.Int("number", number),
		zap.Int("cell_count", cellCount),
	)

	return c, nil
}

// CreateCell creates a cell with the next sequence number.
// Fails with ErrCapacityExceeded past the limit.
// 次の連番でセルを作成する。上限超過時はErrCapacityExceededで失敗する。
func (h *HierarchyManager) CreateCell(ctx context.Context, corridorID string) (*Cell, error) {
	if _, err := h.getCorridor(ctx, corridorID); err != nil {
		return nil, err
	}

	existing, err := h.store.ListCellsByCorridor(ctx, corridorID)
	if err != nil {
		return nil, NewStorageError("list_cells", "セル一覧取得に失敗しました", err)
	}
	if len(existing) >= MaxCellsPerCorridor {
		return nil, NewCapacityError(corridorID, "cells",
			fmt.Sprintf("コリドーあたりのセル数上限（%d）に達しています", MaxCellsPerCorridor))
	}

	number := 1
	for _, c := range existing {
		if c.Number >= number {
			number = c.Number + 1
		}
	}

	return h.createCellAt(ctx, corridorID, number)
}

// createCellAt creates a cell with an explicit sequence number
// 明示的な連番でセルを作成
func (h *HierarchyManager) createCellAt(ctx context.Context, corridorID string, number int) (*Cell, error) {
	now := time.Now()
	c := &Cell{
		ID:         NewEntityID(),
		CorridorID: corridorID,
		Number:     number,
		Name:       fmt.Sprintf("セル %d", number),
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := h.store.CreateCell(ctx, c); err != nil {
		return nil, NewStorageError("create_cell", "セル作成に失敗しました", err)
	}

	return c, nil
}

// GetWarehouse retrieves a warehouse by ID
// IDで倉庫を取得
func (h *HierarchyManager) GetWarehouse(ctx context.Context, warehouseID string) (*Warehouse, error) {
	return h.getWarehouse(ctx, warehouseID)
}

// GetCorridor retrieves a corridor by ID
// IDでコリドーを取得
func (h *HierarchyManager) GetCorridor(ctx context.Context, corridorID string) (*Corridor, error) {
	return h.getCorridor(ctx, corridorID)
}

// GetCell retrieves a cell by ID
// IDでセルを取得
func (h *HierarchyManager) GetCell(ctx context.Context, cellID string) (*Cell, error) {
	return h.getCell(ctx, cellID)
}

// ListCorridors retrieves all corridors of a warehouse ordered by number
// 倉庫のすべてのコリドーを番号順で取得
func (h *HierarchyManager) ListCorridors(ctx context.Context, warehouseID string) ([]Corridor, error) {
	if _, err := h.getWarehouse(ctx, warehouseID); err != nil {
		return nil, err
	}
	corridors, err := h.store.ListCorridorsByWarehouse(ctx, warehouseID)
	if err != nil {
		return nil, NewStorageError("list_corridors", "コリドー一覧取得に失敗しました", err)
	}
	return corridors, nil
}

// ListCells retrieves all cells of a corridor ordered by number
// コリドーのすべてのセルを番号順で取得
func (h *HierarchyManager) ListCells(ctx context.Context, corridorID string) ([]Cell, error) {
	if _, err := h.getCorridor(ctx, corridorID); err != nil {
		return nil, err
	}
	cells, err := h.store.ListCellsByCorridor(ctx, corridorID)
	if err != nil {
		return nil, NewStorageError("list_cells", "セル一覧取得に失敗しました", err)
	}
	return cells, nil
}

// LocationCode resolves the deterministic location code of a cell.
// The code is stable for the cell's lifetime and is the payload handed
// to the QR collaborator.
// セルの決定的なロケーションコードを解決する。
// コードはセルの生存期間を通じて安定しており、QR連携先に渡されるペイロードとなる。
func (h *HierarchyManager) LocationCode(ctx context.Context, cellID string) (string, error) {
	cell, err := h.getCell(ctx, cellID)
	if err != nil {
		return "", err
	}
	corridor, err := h.getCorridor(ctx, cell.CorridorID)
	if err != nil {
		return "", err
	}
	w, err := h.getWarehouse(ctx, corridor.WarehouseID)
	if err != nil {
		return "", err
	}
	return LocationCode(w.Code, corridor.Number, cell.Number), nil
}

// DeactivateWarehouse soft-disables a warehouse and cascades downward.
// Data and existing placements are kept readable.
// 倉庫をソフト無効化し、下位へカスケードする。
// データと既存配置は読み取り可能なまま残る。
func (h *HierarchyManager) DeactivateWarehouse(ctx context.Context, warehouseID string) error {
	w, err := h.getWarehouse(ctx, warehouseID)
	if err != nil {
		return err
	}

	w.IsActive = false
	w.UpdatedAt = time.Now()
	if err := h.store.UpdateWarehouse(ctx, w); err != nil {
		return NewStorageError("update_warehouse", "倉庫更新に失敗しました", err)
	}

	corridors, err := h.store.ListCorridorsByWarehouse(ctx, warehouseID)
	if err != nil {
		return NewStorageError("list_corridors", "コリドー一覧取得に失敗しました", err)
	}
	for i := range corridors {
		if err := h.DeactivateCorridor(ctx, corridors[i].ID); err != nil {
			return err
		}
	}

	h.logger.Info("倉庫を無効化しました", zap.String("warehouse_id", warehouseID))
	return nil
}

// DeactivateCorridor soft-disables a corridor and its cells
// コリドーとそのセルをソフト無効化
func (h *HierarchyManager) DeactivateCorridor(ctx context.Context, corridorID string) error {
	c, err := h.getCorridor(ctx, corridorID)
	if err != nil {
		return err
	}

	c.IsActive = false
	c.UpdatedAt = time.Now()
	if err := h.store.UpdateCorridor(ctx, c); err != nil {
		return NewStorageError("update_corridor", "コリドー更新に失敗しました", err)
	}

	cells, err := h.store.ListCellsByCorridor(ctx, corridorID)
	if err != nil {
		return NewStorageError("list_cells", "セル一覧取得に失敗しました", err)
	}
	for i := range cells {
		if err := h.DeactivateCell(ctx, cells[i].ID); err != nil {
			return err
		}
	}

	h.logger.Info("コリドーを無効化しました", zap.String("corridor_id", corridorID))
	return nil
}

// DeactivateCell soft-disables a single cell
// 単一セルをソフト無効化
func (h *HierarchyManager) DeactivateCell(ctx context.Context, cellID string) error {
	c, err := h.getCell(ctx, cellID)
	if err != nil {
		return err
	}

	c.IsActive = false
	c.UpdatedAt = time.Now()
	if err := h.store.UpdateCell(ctx, c); err != nil {
		return NewStorageError("update_cell", "セル更新に失敗しました", err)
	}
	return nil
}

// ReserveCell places an administrative hold on a cell. A reserved cell keeps
// its stock but rejects new placements.
// セルに管理上のホールドを設定する。予約済みセルは在庫を保持したまま
// 新規配置を拒否する。
func (h *HierarchyManager) ReserveCell(ctx context.Context, cellID string) error {
	return h.setReserved(ctx, cellID, true)
}

// ReleaseCell removes the administrative hold from a cell
// セルの管理上のホールドを解除
func (h *HierarchyManager) ReleaseCell(ctx context.Context, cellID string) error {
	return h.setReserved(ctx, cellID, false)
}

func (h *HierarchyManager) setReserved(ctx context.Context, cellID string, reserved bool) error {
	c, err := h.getCell(ctx, cellID)
	if err != nil {
		return err
	}

	c.IsReserved = reserved
	c.UpdatedAt = time.Now()
	if err := h.store.UpdateCell(ctx, c); err != nil {
		return NewStorageError("update_cell", "セル更新に失敗しました", err)
	}

	h.logger.Info("セル予約状態を変更しました",
		zap.String("cell_id", cellID),
		zap.Bool("reserved", reserved),
	)
	return nil
}

// ヘルパーメソッド

func (h *HierarchyManager) getWarehouse(ctx context.Context, warehouseID string) (*Warehouse, error) {
	w, err := h.store.GetWarehouse(ctx, warehouseID)
	if err != nil {
		if errors.Is(err, ErrWarehouseNotFound) {
			return nil, ErrWarehouseNotFound
		}
		return nil, NewStorageError("get_warehouse", "倉庫取得に失敗しました", err)
	}
	return w, nil
}

func (h *HierarchyManager) getCorridor(ctx context.Context, corridorID string) (*Corridor, error) {
	c, err := h.store.GetCorridor(ctx, corridorID)
	if err != nil {
		if errors.Is(err, ErrCorridorNotFound) {
			return nil, ErrCorridorNotFound
		}
		return nil, NewStorageError("get_corridor", "コリドー取得に失敗しました", err)
	}
	return c, nil
}

func (h *HierarchyManager) getCell(ctx context.Context, cellID string) (*Cell, error) {
	c, err := h.store.GetCell(ctx, cellID)
	if err != nil {
		if errors.Is(err, ErrCellNotFound) {
			return nil, ErrCellNotFound
		}
		return nil, NewStorageError("get_cell", "セル取得に失敗しました", err)
	}
	return c, nil
}
