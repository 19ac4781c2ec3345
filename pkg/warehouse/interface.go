package warehouse

import (
	"context"
	"time"
)

// LocationHierarchy defines the interface for warehouse/corridor/cell management
// 倉庫・コリドー・セル階層管理のインターフェースを定義
type LocationHierarchy interface {
	// 階層作成 - Hierarchy creation
	CreateWarehouse(ctx context.Context, shopID, name, code string, corridorCount int) (*Warehouse, error)
	CreateCorridor(ctx context.Context, warehouseID string, cellCount int) (*Corridor, error)
	CreateCell(ctx context.Context, corridorID string) (*Cell, error)

	// 階層照会 - Hierarchy inquiry
	GetWarehouse(ctx context.Context, warehouseID string) (*Warehouse, error)
	GetCorridor(ctx context.Context, corridorID string) (*Corridor, error)
	GetCell(ctx context.Context, cellID string) (*Cell, error)
	ListCorridors(ctx context.Context, warehouseID string) ([]Corridor, error)
	ListCells(ctx context.Context, corridorID string) ([]Cell, error)
	LocationCode(ctx context.Context, cellID string) (string, error)

	// ソフト無効化 - Soft deactivation (cascades downward)
	DeactivateWarehouse(ctx context.Context, warehouseID string) error
	DeactivateCorridor(ctx context.Context, corridorID string) error
	DeactivateCell(ctx context.Context, cellID string) error

	// 予約管理 - Administrative hold
	ReserveCell(ctx context.Context, cellID string) error
	ReleaseCell(ctx context.Context, cellID string) error
}

// Coordinator defines the transactional placement interface
// トランザクショナルな配置操作のインターフェースを定義
type Coordinator interface {
	Place(ctx context.Context, req PlacementRequest) (*PlacementResult, error)
	Relocate(ctx context.Context, req RelocationRequest) (*RelocationResult, error)
}

// Ledger defines the append-only stock ledger interface
// 追記専用在庫台帳のインターフェースを定義
type Ledger interface {
	CurrentQuantity(ctx context.Context, productID string) (int64, error)
	History(ctx context.Context, productID string, limit int) ([]StockMovement, error)
}

// Reporter defines the read-only occupancy reporting interface
// 読み取り専用の占有レポートインターフェースを定義
type Reporter interface {
	CorridorOccupancy(ctx context.Context, corridorID string) (*OccupancyReport, error)
	WarehouseOccupancy(ctx context.Context, warehouseID string) (*OccupancyReport, error)
}

// OccupancyReport is a derived aggregate view of cell occupancy
// セル占有状況の導出された集計ビュー
type OccupancyReport struct {
	TotalCells    int     `json:"total_cells"`    // 総セル数
	OccupiedCells int     `json:"occupied_cells"` // 占有セル数
	Rate          float64 `json:"rate"`           // 占有率（%）
}

// Store defines the interface for the data persistence layer
// データ永続化層のインターフェースを定義
type Store interface {
	// Warehouse operations
	CreateWarehouse(ctx context.Context, w *Warehouse) error
	GetWarehouse(ctx context.Context, warehouseID string) (*Warehouse, error)
	UpdateWarehouse(ctx context.Context, w *Warehouse) error

	// Corridor operations
	CreateCorridor(ctx context.Context, c *Corridor) error
	GetCorridor(ctx context.Context, corridorID string) (*Corridor, error)
	ListCorridorsByWarehouse(ctx context.Context, warehouseID string) ([]Corridor, error)
	UpdateCorridor(ctx context.Context, c *Corridor) error

	// Cell operations
	CreateCell(ctx context.Context, c *Cell) error
	GetCell(ctx context.Context, cellID string) (*Cell, error)
	ListCellsByCorridor(ctx context.Context, corridorID string) ([]Cell, error)
	UpdateCell(ctx context.Context, c *Cell) error

	// Placement / movement reads (read-committed, no locks)
	// LatestMovementは移動記録がない商品に対して (nil, nil) を返す
	ListPlacementsByCell(ctx context.Context, cellID string) ([]ProductLocation, error)
	ListPlacementsByProduct(ctx context.Context, productID string) ([]ProductLocation, error)
	LatestMovement(ctx context.Context, productID string) (*StockMovement, error)
	ListMovementsByProduct(ctx context.Context, productID string, limit int) ([]StockMovement, error)

	// WithinTx runs fn inside a scoped transaction. Any error (or panic)
	// rolls back every staged write; nil commits them atomically.
	// fnをスコープ付きトランザクション内で実行する。エラーまたはpanicで
	// 全ステージング済み書き込みをロールバックし、nilで原子的にコミットする。
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	// Health check
	Ping(ctx context.Context) error
	Close() error
}

// Tx is the write view available inside a Store transaction
// Storeトランザクション内で利用できる書き込みビュー
type Tx interface {
	GetCell(ctx context.Context, cellID string) (*Cell, error)
	LatestMovement(ctx context.Context, productID string) (*StockMovement, error)
	AppendMovement(ctx context.Context, m *StockMovement) error
	GetPlacement(ctx context.Context, productID, cellID, batchNumber string) (*ProductLocation, error)
	UpsertPlacement(ctx context.Context, p *ProductLocation) error
	DeletePlacement(ctx context.Context, placementID string) error
	ListPlacementsByCell(ctx context.Context, cellID string) ([]ProductLocation, error)
	SetCellOccupancy(ctx context.Context, cellID string, occupied bool) error
}

// EventPublisher defines the interface for publishing warehouse events
// 倉庫イベント発行のインターフェースを定義
type EventPublisher interface {
	PublishMovementRecorded(ctx context.Context, event MovementRecordedEvent) error
	PublishOccupancyChanged(ctx context.Context, event OccupancyChangedEvent) error
}

// MovementRecordedEvent represents a committed stock movement
// コミット済み在庫移動イベントを表現
type MovementRecordedEvent struct {
	MovementID       string       `json:"movement_id"`
	ProductID        string       `json:"product_id"`
	Kind             MovementKind `json:"kind"`
	Quantity         int64        `json:"quantity"`
	PreviousQuantity int64        `json:"previous_quantity"`
	NewQuantity      int64        `json:"new_quantity"`
	CellID           string       `json:"cell_id,omitempty"`
	Actor            string       `json:"actor"`
	Timestamp        time.Time    `json:"timestamp"`
}

// OccupancyChangedEvent represents a change of a cell's occupancy flag
// セル占有フラグの変化イベントを表現
type OccupancyChangedEvent struct {
	CellID    string    `json:"cell_id"`
	Occupied  bool      `json:"occupied"`
	Timestamp time.Time `json:"timestamp"`
}
