package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nemonet1337/soukoGoFramework/pkg/warehouse"
)

// PostgreSQLStore implements the Store interface using PostgreSQL
// PostgreSQLを使用したStoreインターフェースの実装
type PostgreSQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// インターフェースを実装することを明示
var _ warehouse.Store = (*PostgreSQLStore)(nil)

// NewPostgreSQLStore creates a new PostgreSQL store instance
// 新しいPostgreSQLストアインスタンスを作成
func NewPostgreSQLStore(dsn string, logger *zap.Logger) (*PostgreSQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗しました: %w", err)
	}

	// 接続テスト
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("データベースpingに失敗しました: %w", err)
	}

	// 接続プール設定
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgreSQLStore{db: db, logger: logger}, nil
}

// CreateWarehouse creates a new warehouse record
// 新しい倉庫記録を作成
func (s *PostgreSQLStore) CreateWarehouse(ctx context.Context, w *warehouse.Warehouse) error {
	query := `
		INSERT INTO warehouses (id, shop_id, name, code, description, corridor_count,
			temperature_controlled, min_temperature, max_temperature, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.db.ExecContext(ctx, query,
		w.ID, w.ShopID, w.Name, w.Code, w.Description, w.CorridorCount,
		w.TemperatureControlled, nullDecimal(w.MinTemperature), nullDecimal(w.MaxTemperature),
		w.IsActive, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return warehouse.ErrDuplicateCode
		}
		return fmt.Errorf("倉庫記録作成に失敗しました: %w", err)
	}
	return nil
}

// GetWarehouse retrieves a warehouse by ID
// IDで倉庫を取得
func (s *PostgreSQLStore) GetWarehouse(ctx context.Context, warehouseID string) (*warehouse.Warehouse, error) {
	query := `
		SELECT id, shop_id, name, code, description, corridor_count,
			temperature_controlled, min_temperature, max_temperature, is_active, created_at, updated_at
		FROM warehouses WHERE id = $1`

	return scanWarehouse(s.db.QueryRowContext(ctx, query, warehouseID))
}

// UpdateWarehouse updates an existing warehouse record
// 既存の倉庫記録を更新
func (s *PostgreSQLStore) UpdateWarehouse(ctx context.Context, w *warehouse.Warehouse) error {
	query := `
		UPDATE warehouses
		SET name = $2, description = $3, temperature_controlled = $4,
			min_temperature = $5, max_temperature = $6, is_active = $7, updated_at = $8
		WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query,
		w.ID, w.Name, w.Description, w.TemperatureControlled,
		nullDecimal(w.MinTemperature), nullDecimal(w.MaxTemperature), w.IsActive, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("倉庫記録更新に失敗しました: %w", err)
	}
	return requireRow(result, warehouse.ErrWarehouseNotFound)
}

// CreateCorridor creates a new corridor record
// 新しいコリドー記録を作成
func (s *PostgreSQLStore) CreateCorridor(ctx context.Context, c *warehouse.Corridor) error {
	query := `
		INSERT INTO corridors (id, warehouse_id, number, name, cell_count, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.WarehouseID, c.Number, c.Name, c.CellCount, c.IsActive, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("コリドー記録作成に失敗しました: %w", err)
	}
	return nil
}

// GetCorridor retrieves a corridor by ID
// IDでコリドーを取得
func (s *PostgreSQLStore) GetCorridor(ctx context.Context, corridorID string) (*warehouse.Corridor, error) {
	query := `
		SELECT id, warehouse_id, number, name, cell_count, is_active, created_at, updated_at
		FROM corridors WHERE id = $1`

	return scanCorridor(s.db.QueryRowContext(ctx, query, corridorID))
}

// ListCorridorsByWarehouse lists corridors of a warehouse ordered by number
// 倉庫のコリドーを番号順で一覧取得
func (s *PostgreSQLStore) ListCorridorsByWarehouse(ctx context.Context, warehouseID string) ([]warehouse.Corridor, error) {
	query := `
		SELECT id, warehouse_id, number, name, cell_count, is_active, created_at, updated_at
		FROM corridors WHERE warehouse_id = $1 ORDER BY number`

	rows, err := s.db.QueryContext(ctx, query, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("コリドー一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var corridors []warehouse.Corridor
	for rows.Next() {
		var c warehouse.Corridor
		if err := rows.Scan(&c.ID, &c.WarehouseID, &c.Number, &c.Name, &c.CellCount,
			&c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("コリドー行の読み取りに失敗しました: %w", err)
		}
		corridors = append(corridors, c)
	}
	return corridors, rows.Err()
}

// UpdateCorridor updates an existing corridor record
// 既存のコリドー記録を更新
func (s *PostgreSQLStore) UpdateCorridor(ctx context.Context, c *warehouse.Corridor) error {
	query := `
		UPDATE corridors SET name = $2, is_active = $3, updated_at = $4 WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, c.ID, c.Name, c.IsActive, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("コリドー記録更新に失敗しました: %w", err)
	}
	return requireRow(result, warehouse.ErrCorridorNotFound)
}

// CreateCell creates a new cell record
// 新しいセル記録を作成
func (s *PostgreSQLStore) CreateCell(ctx context.Context, c *warehouse.Cell) error {
	query := `
		INSERT INTO cells (id, corridor_id, number, name, max_weight, max_volume,
			is_occupied, is_reserved, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.CorridorID, c.Number, c.Name, nullDecimal(c.MaxWeight), nullDecimal(c.MaxVolume),
		c.IsOccupied, c.IsReserved, c.IsActive, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("セル記録作成に失敗しました: %w", err)
	}
	return nil
}

// GetCell retrieves a cell by ID
// IDでセルを取得
func (s *PostgreSQLStore) GetCell(ctx context.Context, cellID string) (*warehouse.Cell, error) {
	return scanCell(s.db.QueryRowContext(ctx, cellSelect+` WHERE id = $1`, cellID))
}

// ListCellsByCorridor lists cells of a corridor ordered by number
// コリドーのセルを番号順で一覧取得
func (s *PostgreSQLStore) ListCellsByCorridor(ctx context.Context, corridorID string) ([]warehouse.Cell, error) {
	rows, err := s.db.QueryContext(ctx, cellSelect+` WHERE corridor_id = $1 ORDER BY number`, corridorID)
	if err != nil {
		return nil, fmt.Errorf("セル一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var cells []warehouse.Cell
	for rows.Next() {
		c, err := scanCellRows(rows)
		if err != nil {
			return nil, err
		}
		cells = append(cells, *c)
	}
	return cells, rows.Err()
}

// UpdateCell updates an existing cell record
// 既存のセル記録を更新
func (s *PostgreSQLStore) UpdateCell(ctx context.Context, c *warehouse.Cell) error {
	query := `
		UPDATE cells
		SET name = $2, max_weight = $3, max_volume = $4,
			is_occupied = $5, is_reserved = $6, is_active = $7, updated_at = $8
		WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query,
		c.ID, c.Name, nullDecimal(c.MaxWeight), nullDecimal(c.MaxVolume),
		c.IsOccupied, c.IsReserved, c.IsActive, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("セル記録更新に失敗しました: %w", err)
	}
	return requireRow(result, warehouse.ErrCellNotFound)
}

// ListPlacementsByCell lists placements residing in a cell
// セル内の配置を一覧取得
func (s *PostgreSQLStore) ListPlacementsByCell(ctx context.Context, cellID string) ([]warehouse.ProductLocation, error) {
	return queryPlacements(ctx, s.db, placementSelect+` WHERE cell_id = $1`, cellID)
}

// ListPlacementsByProduct lists placements of a product across all cells
// 商品の配置を全セル横断で一覧取得
func (s *PostgreSQLStore) ListPlacementsByProduct(ctx context.Context, productID string) ([]warehouse.ProductLocation, error) {
	return queryPlacements(ctx, s.db, placementSelect+` WHERE product_id = $1`, productID)
}

// LatestMovement returns the most recent movement of a product, or (nil, nil)
// when the product has no movements
// 商品の最新移動を返す。移動記録がない場合は (nil, nil) を返す
func (s *PostgreSQLStore) LatestMovement(ctx context.Context, productID string) (*warehouse.StockMovement, error) {
	return latestMovement(ctx, s.db, productID)
}

// ListMovementsByProduct lists a product's movements, newest first
// 商品の移動を新しい順で一覧取得
func (s *PostgreSQLStore) ListMovementsByProduct(ctx context.Context, productID string, limit int) ([]warehouse.StockMovement, error) {
	query := movementSelect + ` WHERE product_id = $1 ORDER BY sequence DESC LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("移動一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var movements []warehouse.StockMovement
	for rows.Next() {
		m, err := scanMovementRows(rows)
		if err != nil {
			return nil, err
		}
		movements = append(movements, *m)
	}
	return movements, rows.Err()
}

// WithinTx runs fn inside a database transaction. Any error or panic rolls
// the transaction back; a nil return commits it.
// fnをデータベーストランザクション内で実行する。エラーまたはpanicで
// ロールバックし、nilでコミットする。
func (s *PostgreSQLStore) WithinTx(ctx context.Context, fn func(tx warehouse.Tx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗しました: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(&pgTx{tx: sqlTx}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("トランザクションコミットに失敗しました: %w", err)
	}
	return nil
}

// Ping checks database connectivity
// データベース接続を確認
func (s *PostgreSQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection pool
// データベース接続プールを閉じる
func (s *PostgreSQLStore) Close() error {
	return s.db.Close()
}

// pgTx implements the Tx interface on top of *sql.Tx
// *sql.Tx上のTxインターフェース実装
type pgTx struct {
	tx *sql.Tx
}

var _ warehouse.Tx = (*pgTx)(nil)

func (t *pgTx) GetCell(ctx context.Context, cellID string) (*warehouse.Cell, error) {
	return scanCell(t.tx.QueryRowContext(ctx, cellSelect+` WHERE id = $1`, cellID))
}

func (t *pgTx) LatestMovement(ctx context.Context, productID string) (*warehouse.StockMovement, error) {
	return latestMovement(ctx, t.tx, productID)
}

// AppendMovement inserts a movement, assigning the next per-product sequence
// 移動を挿入し、商品ごとの次の連番を採番する
func (t *pgTx) AppendMovement(ctx context.Context, m *warehouse.StockMovement) error {
	query := `
		INSERT INTO stock_movements (id, sequence, product_id, kind, quantity,
			previous_quantity, new_quantity, cell_id, notes, created_by, created_at)
		VALUES ($1,
			COALESCE((SELECT MAX(sequence) FROM stock_movements WHERE product_id = $2), 0) + 1,
			$2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING sequence`

	err := t.tx.QueryRowContext(ctx, query,
		m.ID, m.ProductID, string(m.Kind), m.Quantity,
		m.PreviousQuantity, m.NewQuantity, nullString(m.CellID), m.Notes, m.CreatedBy, m.CreatedAt,
	).Scan(&m.Sequence)
	if err != nil {
		return fmt.Errorf("移動記録の挿入に失敗しました: %w", err)
	}
	return nil
}

func (t *pgTx) GetPlacement(ctx context.Context, productID, cellID, batchNumber string) (*warehouse.ProductLocation, error) {
	query := placementSelect + ` WHERE product_id = $1 AND cell_id = $2 AND batch_number = $3 FOR UPDATE`

	p, err := scanPlacement(t.tx.QueryRowContext(ctx, query, productID, cellID, batchNumber))
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpsertPlacement inserts or replaces the (product, cell, batch) placement row
// （商品, セル, バッチ）配置行を挿入または置換する
func (t *pgTx) UpsertPlacement(ctx context.Context, p *warehouse.ProductLocation) error {
	query := `
		INSERT INTO product_locations (id, product_id, cell_id, quantity, batch_number,
			expiry_date, unit_weight, unit_volume, placed_by, placed_at, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (product_id, cell_id, batch_number) DO UPDATE
		SET quantity = EXCLUDED.quantity,
			expiry_date = EXCLUDED.expiry_date,
			unit_weight = EXCLUDED.unit_weight,
			unit_volume = EXCLUDED.unit_volume,
			last_updated = EXCLUDED.last_updated`

	_, err := t.tx.ExecContext(ctx, query,
		p.ID, p.ProductID, p.CellID, p.Quantity, p.BatchNumber,
		nullTime(p.ExpiryDate), nullDecimal(p.UnitWeight), nullDecimal(p.UnitVolume),
		p.PlacedBy, p.PlacedAt, p.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("配置記録の更新に失敗しました: %w", err)
	}
	return nil
}

func (t *pgTx) DeletePlacement(ctx context.Context, placementID string) error {
	result, err := t.tx.ExecContext(ctx, `DELETE FROM product_locations WHERE id = $1`, placementID)
	if err != nil {
		return fmt.Errorf("配置記録の削除に失敗しました: %w", err)
	}
	return requireRow(result, warehouse.ErrPlacementNotFound)
}

func (t *pgTx) ListPlacementsByCell(ctx context.Context, cellID string) ([]warehouse.ProductLocation, error) {
	return queryPlacements(ctx, t.tx, placementSelect+` WHERE cell_id = $1`, cellID)
}

func (t *pgTx) SetCellOccupancy(ctx context.Context, cellID string, occupied bool) error {
	query := `UPDATE cells SET is_occupied = $2, updated_at = $3 WHERE id = $1`

	result, err := t.tx.ExecContext(ctx, query, cellID, occupied, time.Now())
	if err != nil {
		return fmt.Errorf("セル占有フラグの更新に失敗しました: %w", err)
	}
	return requireRow(result, warehouse.ErrCellNotFound)
}

// querier abstracts *sql.DB and *sql.Tx for shared read helpers
// 共有読み取りヘルパーのため*sql.DBと*sql.Txを抽象化
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const cellSelect = `
	SELECT id, corridor_id, number, name, max_weight, max_volume,
		is_occupied, is_reserved, is_active, created_at, updated_at
	FROM cells`

const placementSelect = `
	SELECT id, product_id, cell_id, quantity, batch_number,
		expiry_date, unit_weight, unit_volume, placed_by, placed_at, last_updated
	FROM product_locations`

const movementSelect = `
	SELECT id, sequence, product_id, kind, quantity,
		previous_quantity, new_quantity, cell_id, notes, created_by, created_at
	FROM stock_movements`

func latestMovement(ctx context.Context, q querier, productID string) (*warehouse.StockMovement, error) {
	query := movementSelect + ` WHERE product_id = $1 ORDER BY sequence DESC LIMIT 1`

	m, err := scanMovement(q.QueryRowContext(ctx, query, productID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("移動行の読み取りに失敗しました: %w", err)
	}
	return m, nil
}

func queryPlacements(ctx context.Context, q querier, query string, args ...interface{}) ([]warehouse.ProductLocation, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("配置一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var placements []warehouse.ProductLocation
	for rows.Next() {
		p, err := scanPlacementRows(rows)
		if err != nil {
			return nil, err
		}
		placements = append(placements, *p)
	}
	return placements, rows.Err()
}

// rowScanner abstracts *sql.Row and *sql.Rows
// *sql.Rowと*sql.Rowsを抽象化
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWarehouse(row rowScanner) (*warehouse.Warehouse, error) {
	var w warehouse.Warehouse
	var minTemp, maxTemp decimal.NullDecimal
	err := row.Scan(&w.ID, &w.ShopID, &w.Name, &w.Code, &w.Description, &w.CorridorCount,
		&w.TemperatureControlled, &minTemp, &maxTemp, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, warehouse.ErrWarehouseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("倉庫行の読み取りに失敗しました: %w", err)
	}
	w.MinTemperature = fromNullDecimal(minTemp)
	w.MaxTemperature = fromNullDecimal(maxTemp)
	return &w, nil
}

func scanCorridor(row rowScanner) (*warehouse.Corridor, error) {
	var c warehouse.Corridor
	err := row.Scan(&c.ID, &c.WarehouseID, &c.Number, &c.Name, &c.CellCount,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, warehouse.ErrCorridorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("コリドー行の読み取りに失敗しました: %w", err)
	}
	return &c, nil
}

func scanCellInto(row rowScanner) (*warehouse.Cell, error) {
	var c warehouse.Cell
	var maxWeight, maxVolume decimal.NullDecimal
	err := row.Scan(&c.ID, &c.CorridorID, &c.Number, &c.Name, &maxWeight, &maxVolume,
		&c.IsOccupied, &c.IsReserved, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.MaxWeight = fromNullDecimal(maxWeight)
	c.MaxVolume = fromNullDecimal(maxVolume)
	return &c, nil
}

func scanCell(row rowScanner) (*warehouse.Cell, error) {
	c, err := scanCellInto(row)
	if err == sql.ErrNoRows {
		return nil, warehouse.ErrCellNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("セル行の読み取りに失敗しました: %w", err)
	}
	return c, nil
}

func scanCellRows(rows *sql.Rows) (*warehouse.Cell, error) {
	c, err := scanCellInto(rows)
	if err != nil {
		return nil, fmt.Errorf("セル行の読み取りに失敗しました: %w", err)
	}
	return c, nil
}

func scanPlacementInto(row rowScanner) (*warehouse.ProductLocation, error) {
	var p warehouse.ProductLocation
	var expiry sql.NullTime
	var unitWeight, unitVolume decimal.NullDecimal
	err := row.Scan(&p.ID, &p.ProductID, &p.CellID, &p.Quantity, &p.BatchNumber,
		&expiry, &unitWeight, &unitVolume, &p.PlacedBy, &p.PlacedAt, &p.LastUpdated)
	if err != nil {
		return nil, err
	}
	if expiry.Valid {
		t := expiry.Time
		p.ExpiryDate = &t
	}
	p.UnitWeight = fromNullDecimal(unitWeight)
	p.UnitVolume = fromNullDecimal(unitVolume)
	return &p, nil
}

func scanPlacement(row rowScanner) (*warehouse.ProductLocation, error) {
	p, err := scanPlacementInto(row)
	if err == sql.ErrNoRows {
		return nil, warehouse.ErrPlacementNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("配置行の読み取りに失敗しました: %w", err)
	}
	return p, nil
}

func scanPlacementRows(rows *sql.Rows) (*warehouse.ProductLocation, error) {
	p, err := scanPlacementInto(rows)
	if err != nil {
		return nil, fmt.Errorf("配置行の読み取りに失敗しました: %w", err)
	}
	return p, nil
}

func scanMovementInto(row rowScanner) (*warehouse.StockMovement, error) {
	var m warehouse.StockMovement
	var kind string
	var cellID sql.NullString
	err := row.Scan(&m.ID, &m.Sequence, &m.ProductID, &kind, &m.Quantity,
		&m.PreviousQuantity, &m.NewQuantity, &cellID, &m.Notes, &m.CreatedBy, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.Kind = warehouse.MovementKind(kind)
	if cellID.Valid {
		v := cellID.String
		m.CellID = &v
	}
	return &m, nil
}

func scanMovement(row rowScanner) (*warehouse.StockMovement, error) {
	m, err := scanMovementInto(row)
	if err == sql.ErrNoRows {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func scanMovementRows(rows *sql.Rows) (*warehouse.StockMovement, error) {
	m, err := scanMovementInto(rows)
	if err != nil {
		return nil, fmt.Errorf("移動行の読み取りに失敗しました: %w", err)
	}
	return m, nil
}

// requireRow maps a zero-row update/delete to the given not-found error
// 影響行数0の更新・削除を指定のnot-foundエラーに変換
func requireRow(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("影響行数の取得に失敗しました: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func fromNullDecimal(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
