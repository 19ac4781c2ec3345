package warehouse

import (
	"errors"
	"fmt"
)

// Common warehouse errors
// 共通の倉庫エラー定義

var (
	// ErrWarehouseNotFound is returned when a warehouse doesn't exist
	// 倉庫が存在しない場合のエラー
	ErrWarehouseNotFound = errors.New("倉庫が見つかりません")

	// ErrCorridorNotFound is returned when a corridor doesn't exist
	// コリドーが存在しない場合のエラー
	ErrCorridorNotFound = errors.New("コリドーが見つかりません")

	// ErrCellNotFound is returned when a cell doesn't exist
	// セルが存在しない場合のエラー
	ErrCellNotFound = errors.New("セルが見つかりません")

	// ErrPlacementNotFound is returned when a placement record doesn't exist
	// 配置記録が存在しない場合のエラー
	ErrPlacementNotFound = errors.New("配置記録が見つかりません")

	// ErrDuplicateCode is returned when a warehouse code already exists within the shop
	// 店舗内で倉庫コードが重複した場合のエラー
	ErrDuplicateCode = errors.New("倉庫コードは既に存在します")

	// ErrCapacityExceeded is returned when structural or physical capacity would be exceeded
	// 構造上または物理上の容量を超過する場合のエラー
	ErrCapacityExceeded = errors.New("容量を超過しています")

	// ErrCellUnavailable is returned when a cell is inactive or reserved
	// セルが非アクティブまたは予約済みの場合のエラー
	ErrCellUnavailable = errors.New("セルは利用できません")

	// ErrInsufficientStock is returned when a movement or placement would go negative
	// 在庫または配置数量が負になる場合のエラー
	ErrInsufficientStock = errors.New("在庫が不足しています")

	// ErrLockTimeout is returned when a coordination lock cannot be acquired in time
	// 調整ロックを時間内に取得できなかった場合のエラー
	ErrLockTimeout = errors.New("ロック取得がタイムアウトしました")
)

// ValidationError represents a validation error with details
// 詳細付きバリデーションエラーを表現
type ValidationError struct {
	Field   string `json:"field"`   // エラーフィールド
	Message string `json:"message"` // エラーメッセージ
	Value   string `json:"value"`   // 無効な値
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("バリデーションエラー [%s]: %s (値: %s)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new validation error
// 新しいバリデーションエラーを作成
func NewValidationError(field, message, value string) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// CapacityError reports which cell and which bound rejected a placement
// どのセルのどの制約が配置を拒否したかを表現
type CapacityError struct {
	CellID  string `json:"cell_id"`  // 対象セルID
	Bound   string `json:"bound"`    // 違反した制約（corridors, cells, weight, volume）
	Message string `json:"message"`  // エラーメッセージ
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("容量超過 [%s:%s]: %s", e.CellID, e.Bound, e.Message)
}

func (e *CapacityError) Unwrap() error {
	return ErrCapacityExceeded
}

// NewCapacityError creates a new capacity error
// 新しい容量超過エラーを作成
func NewCapacityError(cellID, bound, message string) *CapacityError {
	return &CapacityError{CellID: cellID, Bound: bound, Message: message}
}

// CellUnavailableError reports why a cell rejects new placements
// セルが新規配置を拒否する理由を表現
type CellUnavailableError struct {
	CellID string `json:"cell_id"` // 対象セルID
	Reason string `json:"reason"`  // 理由（inactive, reserved）
}

func (e *CellUnavailableError) Error() string {
	return fmt.Sprintf("セル利用不可 [%s]: %s", e.CellID, e.Reason)
}

func (e *CellUnavailableError) Unwrap() error {
	return ErrCellUnavailable
}

// InsufficientStockError reports the product, scope and quantities of a rejected debit
// 拒否された出庫の商品・範囲・数量を表現
type InsufficientStockError struct {
	ProductID string `json:"product_id"` // 商品ID
	CellID    string `json:"cell_id"`    // セルID（商品全体の不足の場合は空）
	Current   int64  `json:"current"`    // 現在数量
	Requested int64  `json:"requested"`  // 要求された差分
}

func (e *InsufficientStockError) Error() string {
	if e.CellID != "" {
		return fmt.Sprintf("在庫不足 [商品: %s, セル: %s]: 現在 %d, 要求 %d", e.ProductID, e.CellID, e.Current, e.Requested)
	}
	return fmt.Sprintf("在庫不足 [商品: %s]: 現在 %d, 要求 %d", e.ProductID, e.Current, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// ConcurrencyError represents a concurrency-related error
// 同時実行関連のエラーを表現
type ConcurrencyError struct {
	Operation string `json:"operation"` // 操作名
	Resource  string `json:"resource"`  // リソース
	Message   string `json:"message"`   // エラーメッセージ
	Cause     error  `json:"cause"`     // 原因エラー（nilの場合はタイムアウト）
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("同時実行エラー [%s:%s]: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap returns the cause when present (context cancellation during the
// wait), otherwise the timeout sentinel.
// 原因エラーがある場合（待機中のコンテキストキャンセル）はそれを、
// ない場合はタイムアウトのセンチネルを返す。
func (e *ConcurrencyError) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return ErrLockTimeout
}

// NewConcurrencyError creates a new concurrency error
// 新しい同時実行エラーを作成
func NewConcurrencyError(operation, resource, message string) *ConcurrencyError {
	return &ConcurrencyError{Operation: operation, Resource: resource, Message: message}
}

// StorageError represents a storage layer error
// ストレージ層のエラーを表現
type StorageError struct {
	Operation string `json:"operation"` // 操作名
	Message   string `json:"message"`   // エラーメッセージ
	Cause     error  `json:"cause"`     // 原因エラー
}

func (e *StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ストレージエラー [%s]: %s (原因: %v)", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("ストレージエラー [%s]: %s", e.Operation, e.Message)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new storage error
// 新しいストレージエラーを作成
func NewStorageError(operation, message string, cause error) *StorageError {
	return &StorageError{Operation: operation, Message: message, Cause: cause}
}
