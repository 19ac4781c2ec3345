// Package storage provides persistence implementations for the warehouse core
package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/nemonet1337/soukoGoFramework/pkg/warehouse"
)

// MemoryStore implements warehouse.Store with in-process maps.
// Intended for tests and examples; a transaction holds the write lock for
// its whole duration, so commits are trivially atomic and isolated.
// warehouse.Storeのインメモリ実装。テストとサンプル用。
// トランザクションは実行中ずっと書き込みロックを保持するため、
// コミットは自明に原子的かつ隔離される。
type MemoryStore struct {
	mu         sync.RWMutex
	warehouses map[string]*warehouse.Warehouse
	corridors  map[string]*warehouse.Corridor
	cells      map[string]*warehouse.Cell
	placements map[string]*warehouse.ProductLocation
	movements  map[string][]warehouse.StockMovement // 商品ID → 追記順
}

// インターフェースを実装することを明示
var _ warehouse.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
// 空のインメモリストアを作成
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		warehouses: make(map[string]*warehouse.Warehouse),
		corridors:  make(map[string]*warehouse.Corridor),
		cells:      make(map[string]*warehouse.Cell),
		placements: make(map[string]*warehouse.ProductLocation),
		movements:  make(map[string][]warehouse.StockMovement),
	}
}

// CreateWarehouse stores a new warehouse, enforcing code uniqueness per shop
// 新しい倉庫を保存する（店舗内のコード一意性を保証）
func (s *MemoryStore) CreateWarehouse(ctx context.Context, w *warehouse.Warehouse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.warehouses {
		if existing.ShopID == w.ShopID && existing.Code == w.Code {
			return warehouse.ErrDuplicateCode
		}
	}
	cp := *w
	s.warehouses[w.ID] = &cp
	return nil
}

func (s *MemoryStore) GetWarehouse(ctx context.Context, warehouseID string) (*warehouse.Warehouse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.warehouses[warehouseID]
	if !ok {
		return nil, warehouse.ErrWarehouseNotFound
	}
	cp := *w
	return &cp, nil
}

func (s *MemoryStore) UpdateWarehouse(ctx context.Context, w *warehouse.Warehouse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.warehouses[w.ID]; !ok {
		return warehouse.ErrWarehouseNotFound
	}
	cp := *w
	s.warehouses[w.ID] = &cp
	return nil
}

func (s *MemoryStore) CreateCorridor(ctx context.Context, c *warehouse.Corridor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.warehouses[c.WarehouseID]; !ok {
		return warehouse.ErrWarehouseNotFound
	}
	cp := *c
	s.corridors[c.ID] = &cp
	return nil
}

func (s *MemoryStore) GetCorridor(ctx context.Context, corridorID string) (*warehouse.Corridor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.corridors[corridorID]
	if !ok {
		return nil, warehouse.ErrCorridorNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) ListCorridorsByWarehouse(ctx context.Context, warehouseID string) ([]warehouse.Corridor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []warehouse.Corridor
	for _, c := range s.corridors {
		if c.WarehouseID == warehouseID {
			out = append(out, *c)
		}
	}
	sortCorridors(out)
	return out, nil
}

func (s *MemoryStore) UpdateCorridor(ctx context.Context, c *warehouse.Corridor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.corridors[c.ID]; !ok {
		return warehouse.ErrCorridorNotFound
	}
	cp := *c
	s.corridors[c.ID] = &cp
	return nil
}

func (s *MemoryStore) CreateCell(ctx context.Context, c *warehouse.Cell) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.corridors[c.CorridorID]; !ok {
		return warehouse.ErrCorridorNotFound
	}
	cp := *c
	s.cells[c.ID] = &cp
	return nil
}

func (s *MemoryStore) GetCell(ctx context.Context, cellID string) (*warehouse.Cell, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getCellLocked(cellID)
}

func (s *MemoryStore) getCellLocked(cellID string) (*warehouse.Cell, error) {
	c, ok := s.cells[cellID]
	if !ok {
		return nil, warehouse.ErrCellNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) ListCellsByCorridor(ctx context.Context, corridorID string) ([]warehouse.Cell, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []warehouse.Cell
	for _, c := range s.cells {
		if c.CorridorID == corridorID {
			out = append(out, *c)
		}
	}
	sortCells(out)
	return out, nil
}

func (s *MemoryStore) UpdateCell(ctx context.Context, c *warehouse.Cell) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cells[c.ID]; !ok {
		return warehouse.ErrCellNotFound
	}
	cp := *c
	s.cells[c.ID] = &cp
	return nil
}

func (s *MemoryStore) ListPlacementsByCell(ctx context.Context, cellID string) ([]warehouse.ProductLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []warehouse.ProductLocation
	for _, p := range s.placements {
		if p.CellID == cellID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListPlacementsByProduct(ctx context.Context, productID string) ([]warehouse.ProductLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []warehouse.ProductLocation
	for _, p := range s.placements {
		if p.ProductID == productID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *MemoryStore) LatestMovement(ctx context.Context, productID string) (*warehouse.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chain := s.movements[productID]
	if len(chain) == 0 {
		return nil, nil
	}
	cp := chain[len(chain)-1]
	return &cp, nil
}

func (s *MemoryStore) ListMovementsByProduct(ctx context.Context, productID string, limit int) ([]warehouse.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chain := s.movements[productID]
	// 新しい順で返す
	out := make([]warehouse.StockMovement, 0, limit)
	for i := len(chain) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, chain[i])
	}
	return out, nil
}

// WithinTx runs fn while holding the write lock. Writes are staged on the
// transaction and applied to the base maps only when fn returns nil.
// 書き込みロックを保持したままfnを実行する。書き込みはトランザクション上に
// ステージングされ、fnがnilを返した場合のみベースマップへ適用される。
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx warehouse.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:      s,
		placements: make(map[string]*warehouse.ProductLocation),
		occupancy:  make(map[string]bool),
		movements:  make(map[string][]warehouse.StockMovement),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.apply()
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }
func (s *MemoryStore) Close() error                   { return nil }

// memTx stages writes against a MemoryStore. Reads through the transaction
// observe the staged writes, matching read-your-writes semantics of a real
// database transaction.
// MemoryStoreに対する書き込みをステージングする。トランザクション経由の
// 読み取りはステージング済み書き込みを観測し、実DBトランザクションの
// read-your-writesセマンティクスに一致する。
type memTx struct {
	store      *MemoryStore
	placements map[string]*warehouse.ProductLocation // 配置ID → 更新（nilは削除）
	occupancy  map[string]bool                       // セルID → 占有フラグ
	movements  map[string][]warehouse.StockMovement  // 商品ID → 追記分
}

var _ warehouse.Tx = (*memTx)(nil)

func (t *memTx) GetCell(ctx context.Context, cellID string) (*warehouse.Cell, error) {
	c, err := t.store.getCellLocked(cellID)
	if err != nil {
		return nil, err
	}
	if occupied, ok := t.occupancy[cellID]; ok {
		c.IsOccupied = occupied
	}
	return c, nil
}

func (t *memTx) LatestMovement(ctx context.Context, productID string) (*warehouse.StockMovement, error) {
	if staged := t.movements[productID]; len(staged) > 0 {
		cp := staged[len(staged)-1]
		return &cp, nil
	}
	chain := t.store.movements[productID]
	if len(chain) == 0 {
		return nil, nil
	}
	cp := chain[len(chain)-1]
	return &cp, nil
}

// AppendMovement stages a movement and assigns its per-product sequence
// 移動をステージングし、商品ごとの連番を採番する
func (t *memTx) AppendMovement(ctx context.Context, m *warehouse.StockMovement) error {
	seq := int64(len(t.store.movements[m.ProductID]) + len(t.movements[m.ProductID]) + 1)
	m.Sequence = seq
	t.movements[m.ProductID] = append(t.movements[m.ProductID], *m)
	return nil
}

func (t *memTx) GetPlacement(ctx context.Context, productID, cellID, batchNumber string) (*warehouse.ProductLocation, error) {
	// ステージング分を優先（削除マーカー含む）
	for id, p := range t.placements {
		if p == nil {
			continue
		}
		if p.ProductID == productID && p.CellID == cellID && p.BatchNumber == batchNumber {
			cp := *p
			cp.ID = id
			return &cp, nil
		}
	}
	for id, p := range t.store.placements {
		if p.ProductID == productID && p.CellID == cellID && p.BatchNumber == batchNumber {
			if staged, ok := t.placements[id]; ok && staged == nil {
				continue // トランザクション内で削除済み
			}
			cp := *p
			return &cp, nil
		}
	}
	return nil, warehouse.ErrPlacementNotFound
}

func (t *memTx) UpsertPlacement(ctx context.Context, p *warehouse.ProductLocation) error {
	cp := *p
	t.placements[p.ID] = &cp
	return nil
}

func (t *memTx) DeletePlacement(ctx context.Context, placementID string) error {
	t.placements[placementID] = nil
	return nil
}

func (t *memTx) ListPlacementsByCell(ctx context.Context, cellID string) ([]warehouse.ProductLocation, error) {
	var out []warehouse.ProductLocation
	for id, p := range t.store.placements {
		if p.CellID != cellID {
			continue
		}
		if staged, ok := t.placements[id]; ok {
			if staged == nil || staged.CellID != cellID {
				continue
			}
			out = append(out, *staged)
			continue
		}
		out = append(out, *p)
	}
	// ベースに存在しない新規ステージング分
	for id, p := range t.placements {
		if p == nil || p.CellID != cellID {
			continue
		}
		if _, ok := t.store.placements[id]; ok {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (t *memTx) SetCellOccupancy(ctx context.Context, cellID string, occupied bool) error {
	if _, ok := t.store.cells[cellID]; !ok {
		return warehouse.ErrCellNotFound
	}
	t.occupancy[cellID] = occupied
	return nil
}

// apply commits the staged writes to the base maps (write lock already held)
// ステージング済み書き込みをベースマップへ適用（書き込みロックは取得済み）
func (t *memTx) apply() {
	for productID, staged := range t.movements {
		t.store.movements[productID] = append(t.store.movements[productID], staged...)
	}
	for id, p := range t.placements {
		if p == nil {
			delete(t.store.placements, id)
			continue
		}
		cp := *p
		t.store.placements[id] = &cp
	}
	for cellID, occupied := range t.occupancy {
		if c, ok := t.store.cells[cellID]; ok {
			c.IsOccupied = occupied
		}
	}
}

// sortCorridors orders corridors by number ascending
// コリドーを番号昇順に整列
func sortCorridors(cs []warehouse.Corridor) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].Number < cs[j].Number })
}

// sortCells orders cells by number ascending
// セルを番号昇順に整列
func sortCells(cs []warehouse.Cell) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].Number < cs[j].Number })
}
