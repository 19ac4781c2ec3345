package warehouse

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// placementLister is the read surface the capacity policy needs.
// Both Store and Tx satisfy it, so validation can run inside or
// outside a transaction.
// 容量ポリシーが必要とする読み取り面。StoreとTxの両方が満たすため、
// トランザクション内外のどちらでもバリデーションを実行できる。
type placementLister interface {
	ListPlacementsByCell(ctx context.Context, cellID string) ([]ProductLocation, error)
}

// CapacityPolicy validates physical constraints of a cell before placement.
// It is advisory-stateless: the existing load is recomputed from current
// placements at call time instead of a maintained counter, to avoid drift.
// 配置前にセルの物理制約を検証する。既存負荷は維持カウンタではなく
// 呼び出し時点の配置合計から再計算する（ずれを防ぐため）。
type CapacityPolicy struct {
	logger *zap.Logger
}

// NewCapacityPolicy creates a new capacity policy
// 新しい容量ポリシーを作成
func NewCapacityPolicy(logger *zap.Logger) *CapacityPolicy {
	return &CapacityPolicy{logger: logger}
}

// ValidatePlacement checks that the cell accepts new stock and that the
// incoming total weight/volume fits within the cell's bounds.
// A nil bound means unconstrained and always passes.
// セルが新規在庫を受け入れ可能で、搬入される総重量・総容積が
// セルの上限内に収まることを検証する。上限がnilの場合は無制限として常に通過する。
func (p *CapacityPolicy) ValidatePlacement(ctx context.Context, reader placementLister, cell *Cell, incomingWeight, incomingVolume decimal.Decimal) error {
	if !cell.IsActive {
		return &CellUnavailableError{CellID: cell.ID, Reason: "セルは非アクティブです"}
	}
	if cell.IsReserved {
		return &CellUnavailableError{CellID: cell.ID, Reason: "セルは予約済みです"}
	}
	if cell.MaxWeight == nil && cell.MaxVolume == nil {
		return nil
	}

	existing, err := reader.ListPlacementsByCell(ctx, cell.ID)
	if err != nil {
		return NewStorageError("list_placements", "セル配置一覧取得に失敗しました", err)
	}

	var existingWeight, existingVolume decimal.Decimal
	for i := range existing {
		w, v := existing[i].Load()
		existingWeight = existingWeight.Add(w)
		existingVolume = existingVolume.Add(v)
	}

	if cell.MaxWeight != nil {
		total := existingWeight.Add(incomingWeight)
		if total.GreaterThan(*cell.MaxWeight) {
			return NewCapacityError(cell.ID, "weight",
				fmt.Sprintf("最大重量 %s kg を超過します (現在 %s kg + 搬入 %s kg)",
					cell.MaxWeight.String(), existingWeight.String(), incomingWeight.String()))
		}
	}
	if cell.MaxVolume != nil {
		total := existingVolume.Add(incomingVolume)
		if total.GreaterThan(*cell.MaxVolume) {
			return NewCapacityError(cell.ID, "volume",
				fmt.Sprintf("最大容積 %s cm³ を超過します (現在 %s cm³ + 搬入 %s cm³)",
					cell.MaxVolume.String(), existingVolume.String(), incomingVolume.String()))
		}
	}

	return nil
}
