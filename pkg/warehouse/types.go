// Package warehouse provides core warehouse storage and stock ledger functionality
package warehouse

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Warehouse represents a physical storage facility owned by a shop
// 店舗が所有する物理的な保管施設を表現
type Warehouse struct {
	ID                    string           `json:"id" db:"id"`                                         // 倉庫ID
	ShopID                string           `json:"shop_id" db:"shop_id"`                               // 所有店舗ID（コアでは不透明な参照）
	Name                  string           `json:"name" db:"name"`                                     // 倉庫名
	Code                  string           `json:"code" db:"code"`                                     // 倉庫コード（店舗内で一意）
	Description           string           `json:"description" db:"description"`                       // 説明
	CorridorCount         int              `json:"corridor_count" db:"corridor_count"`                 // 作成時のコリドー数
	TemperatureControlled bool             `json:"temperature_controlled" db:"temperature_controlled"` // 温度管理有無
	MinTemperature        *decimal.Decimal `json:"min_temperature" db:"min_temperature"`               // 最低温度（°C）
	MaxTemperature        *decimal.Decimal `json:"max_temperature" db:"max_temperature"`               // 最高温度（°C）
	IsActive              bool             `json:"is_active" db:"is_active"`                           // アクティブ状態
	CreatedAt             time.Time        `json:"created_at" db:"created_at"`                         // 作成日時
	UpdatedAt             time.Time        `json:"updated_at" db:"updated_at"`                         // 更新日時
}

// Corridor represents an aisle-like subdivision of a warehouse
// 倉庫内の通路状の区画を表現
type Corridor struct {
	ID          string    `json:"id" db:"id"`                     // コリドーID
	WarehouseID string    `json:"warehouse_id" db:"warehouse_id"` // 所属倉庫ID
	Number      int       `json:"number" db:"number"`             // コリドー番号（倉庫内で一意、1〜100）
	Name        string    `json:"name" db:"name"`                 // コリドー名
	CellCount   int       `json:"cell_count" db:"cell_count"`     // 作成時のセル数
	IsActive    bool      `json:"is_active" db:"is_active"`       // アクティブ状態
	CreatedAt   time.Time `json:"created_at" db:"created_at"`     // 作成日時
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`     // 更新日時
}

// Cell represents the smallest addressable storage unit within a corridor
// コリドー内の最小保管単位を表現
type Cell struct {
	ID         string           `json:"id" db:"id"`                   // セルID
	CorridorID string           `json:"corridor_id" db:"corridor_id"` // 所属コリドーID
	Number     int              `json:"number" db:"number"`           // セル番号（コリドー内で一意、1〜1000）
	Name       string           `json:"name" db:"name"`               // セル名
	MaxWeight  *decimal.Decimal `json:"max_weight" db:"max_weight"`   // 最大重量（kg、nilは無制限）
	MaxVolume  *decimal.Decimal `json:"max_volume" db:"max_volume"`   // 最大容積（cm³、nilは無制限）
	IsOccupied bool             `json:"is_occupied" db:"is_occupied"` // 占有フラグ（配置から導出、直接設定不可）
	IsReserved bool             `json:"is_reserved" db:"is_reserved"` // 予約フラグ（管理上のホールド）
	IsActive   bool             `json:"is_active" db:"is_active"`     // アクティブ状態
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`   // 作成日時
	UpdatedAt  time.Time        `json:"updated_at" db:"updated_at"`   // 更新日時
}

// ProductLocation represents a quantity of a product (and batch) residing in a cell
// 特定セルに置かれた商品（およびバッチ）の数量記録を表現
type ProductLocation struct {
	ID          string           `json:"id" db:"id"`                     // 配置ID
	ProductID   string           `json:"product_id" db:"product_id"`     // 商品ID（外部所有）
	CellID      string           `json:"cell_id" db:"cell_id"`           // セルID
	Quantity    int64            `json:"quantity" db:"quantity"`         // 数量（0以上）
	BatchNumber string           `json:"batch_number" db:"batch_number"` // バッチ番号（空文字はバッチなし）
	ExpiryDate  *time.Time       `json:"expiry_date" db:"expiry_date"`   // 有効期限
	UnitWeight  *decimal.Decimal `json:"unit_weight" db:"unit_weight"`   // 単位重量（kg）
	UnitVolume  *decimal.Decimal `json:"unit_volume" db:"unit_volume"`   // 単位容積（cm³）
	PlacedBy    string           `json:"placed_by" db:"placed_by"`       // 配置実行者
	PlacedAt    time.Time        `json:"placed_at" db:"placed_at"`       // 配置日時
	LastUpdated time.Time        `json:"last_updated" db:"last_updated"` // 最終更新日時
}

// MovementKind defines the kind of stock movement
// 在庫移動の種類を定義
type MovementKind string

const (
	MovementInbound    MovementKind = "inbound"    // 入庫
	MovementOutbound   MovementKind = "outbound"   // 出庫
	MovementAdjustment MovementKind = "adjustment" // 調整
	MovementReturn     MovementKind = "return"     // 返品
	MovementDamage     MovementKind = "damage"     // 破損
)

// IsValid reports whether the movement kind is one of the enumerated values
// 移動種別が定義された値のいずれかであるかを返す
func (k MovementKind) IsValid() bool {
	switch k {
	case MovementInbound, MovementOutbound, MovementAdjustment, MovementReturn, MovementDamage:
		return true
	}
	return false
}

// StockMovement represents an append-only ledger entry for a product's stock change
// 商品在庫変更の追記専用台帳エントリを表現
type StockMovement struct {
	ID               string       `json:"id" db:"id"`                               // 移動ID
	Sequence         int64        `json:"sequence" db:"sequence"`                   // 商品ごとの連番（ストレージが採番）
	ProductID        string       `json:"product_id" db:"product_id"`               // 商品ID
	Kind             MovementKind `json:"kind" db:"kind"`                           // 移動種別
	Quantity         int64        `json:"quantity" db:"quantity"`                   // 符号付き数量差分
	PreviousQuantity int64        `json:"previous_quantity" db:"previous_quantity"` // 直前の在庫数量
	NewQuantity      int64        `json:"new_quantity" db:"new_quantity"`           // 更新後の在庫数量
	CellID           *string      `json:"cell_id" db:"cell_id"`                     // 対象セル（任意）
	Notes            string       `json:"notes" db:"notes"`                         // 備考
	CreatedBy        string       `json:"created_by" db:"created_by"`               // 実行者
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`               // 作成日時
}

// NewEntityID generates a new entity ID
// 新しいエンティティIDを生成
func NewEntityID() string {
	return uuid.New().String()
}

// LocationCode builds the deterministic location code for a cell
// セルの決定的なロケーションコードを生成
// 形式: W<倉庫コード>-C<コリドー番号2桁>-H<セル番号3桁>
func LocationCode(warehouseCode string, corridorNumber, cellNumber int) string {
	return fmt.Sprintf("W%s-C%02d-H%03d", warehouseCode, corridorNumber, cellNumber)
}

// IsExpired checks if the placement has passed its expiry date
// 配置が有効期限切れかチェック
func (p *ProductLocation) IsExpired() bool {
	if p.ExpiryDate == nil {
		return false
	}
	return time.Now().After(*p.ExpiryDate)
}

// DaysToExpiry returns days until expiry, or nil when no expiry is set
// 有効期限までの日数を返す（期限未設定の場合はnil）
func (p *ProductLocation) DaysToExpiry() *int {
	if p.ExpiryDate == nil {
		return nil
	}
	days := int(time.Until(*p.ExpiryDate).Hours() / 24)
	return &days
}

// Load returns the total weight and volume this placement contributes to its cell.
// Unknown unit weight/volume contributes zero.
// この配置がセルに与える総重量・総容積を返す（単位重量・容積が不明な場合は0）
func (p *ProductLocation) Load() (weight, volume decimal.Decimal) {
	qty := decimal.NewFromInt(p.Quantity)
	if p.UnitWeight != nil {
		weight = p.UnitWeight.Mul(qty)
	}
	if p.UnitVolume != nil {
		volume = p.UnitVolume.Mul(qty)
	}
	return weight, volume
}
