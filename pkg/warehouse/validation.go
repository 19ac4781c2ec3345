package warehouse

import (
	"fmt"
	"regexp"
	"strings"
)

// 構造上の上限（仕様で固定）
const (
	// MaxCorridorsPerWarehouse is the hard limit of corridors per warehouse
	// 倉庫あたりのコリドー数上限
	MaxCorridorsPerWarehouse = 100

	// MaxCellsPerCorridor is the hard limit of cells per corridor
	// コリドーあたりのセル数上限
	MaxCellsPerCorridor = 1000
)

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
var codePattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// ValidateProductID 商品IDの形式をバリデーション
func ValidateProductID(productID string) error {
	if productID == "" {
		return NewValidationError("product_id", "商品IDが空です", productID)
	}
	if len(productID) > 255 {
		return NewValidationError("product_id", "商品IDが長すぎます", productID)
	}
	if !idPattern.MatchString(productID) {
		return NewValidationError("product_id", "商品IDに無効な文字が含まれています", productID)
	}
	return nil
}

// ValidateWarehouseCode 倉庫コードの形式をバリデーション
func ValidateWarehouseCode(code string) error {
	if code == "" {
		return NewValidationError("code", "倉庫コードが空です", code)
	}
	if len(code) > 20 {
		return NewValidationError("code", "倉庫コードが長すぎます", code)
	}
	// 英数字のみ許可（ロケーションコードの区切り文字と衝突しないように）
	if !codePattern.MatchString(code) {
		return NewValidationError("code", "倉庫コードに無効な文字が含まれています", code)
	}
	return nil
}

// ValidateWarehouseName 倉庫名をバリデーション
func ValidateWarehouseName(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewValidationError("name", "倉庫名が空です", name)
	}
	if len(name) > 100 {
		return NewValidationError("name", "倉庫名が長すぎます", name)
	}
	return nil
}

// ValidateCorridorCount コリドー数をバリデーション
func ValidateCorridorCount(count int) error {
	if count < 1 || count > MaxCorridorsPerWarehouse {
		return NewValidationError("corridor_count",
			fmt.Sprintf("コリドー数は1〜%dの範囲である必要があります", MaxCorridorsPerWarehouse),
			fmt.Sprintf("%d", count))
	}
	return nil
}

// ValidateCellCount セル数をバリデーション
func ValidateCellCount(count int) error {
	if count < 1 || count > MaxCellsPerCorridor {
		return NewValidationError("cell_count",
			fmt.Sprintf("セル数は1〜%dの範囲である必要があります", MaxCellsPerCorridor),
			fmt.Sprintf("%d", count))
	}
	return nil
}

// ValidateQuantityDelta 数量差分をバリデーション（0は不可）
func ValidateQuantityDelta(delta int64) error {
	if delta == 0 {
		return NewValidationError("quantity_delta", "数量差分に0は指定できません", "0")
	}
	if delta < -999999999 || delta > 999999999 {
		return NewValidationError("quantity_delta", "数量差分が有効範囲を超えています", fmt.Sprintf("%d", delta))
	}
	return nil
}

// ValidateActor 実行者IDをバリデーション
func ValidateActor(actor string) error {
	if actor == "" {
		return NewValidationError("actor", "実行者IDが空です", actor)
	}
	if len(actor) > 255 {
		return NewValidationError("actor", "実行者IDが長すぎます", actor)
	}
	return nil
}

// ValidateMovementKind 移動種別と数量差分の符号整合性をバリデーション
func ValidateMovementKind(kind MovementKind, delta int64) error {
	if !kind.IsValid() {
		return NewValidationError("kind", "未知の移動種別です", string(kind))
	}
	switch kind {
	case MovementInbound, MovementReturn:
		if delta < 0 {
			return NewValidationError("kind", "入庫・返品の差分は正の値である必要があります", fmt.Sprintf("%s: %d", kind, delta))
		}
	case MovementOutbound, MovementDamage:
		if delta > 0 {
			return NewValidationError("kind", "出庫・破損の差分は負の値である必要があります", fmt.Sprintf("%s: %d", kind, delta))
		}
	}
	// 調整は両方向を許可
	return nil
}
