package warehouse

import (
	"context"

	"go.uber.org/zap"
)

// ReportingService implements the Reporter interface. Reads go straight to
// the store without taking coordination locks, so a report is a consistent
// snapshot per cell but may interleave with in-flight placements.
// Reporterインターフェースの実装。読み取りは調整ロックを取得せずに
// ストアへ直接行うため、レポートはセル単位では一貫するが、
// 進行中の配置操作と交錯することがある。
type ReportingService struct {
	store  Store
	logger *zap.Logger
}

// インターフェースを実装することを明示
var _ Reporter = (*ReportingService)(nil)

// NewReportingService creates a new reporting service
// 新しいレポートサービスを作成
func NewReportingService(store Store, logger *zap.Logger) *ReportingService {
	return &ReportingService{store: store, logger: logger}
}

// CorridorOccupancy reports occupied vs total cells in a corridor. Inactive
// cells count too: a deactivated cell still holding stock is real stock.
// A corridor with no cells reports a rate of 0.
// コリドー内の全セルの占有状況を集計する。非アクティブセルも対象
// （無効化されたセルに残る在庫も実在庫のため）。
// セルが存在しないコリドーの占有率は0とする。
func (r *ReportingService) CorridorOccupancy(ctx context.Context, corridorID string) (*OccupancyReport, error) {
	if _, err := r.store.GetCorridor(ctx, corridorID); err != nil {
		return nil, err
	}
	cells, err := r.store.ListCellsByCorridor(ctx, corridorID)
	if err != nil {
		return nil, NewStorageError("list_cells", "セル一覧取得に失敗しました", err)
	}
	report := countOccupancy(cells)

	r.logger.Debug("コリドー占有レポートを生成しました",
		zap.String("corridor_id", corridorID),
		zap.Int("total_cells", report.TotalCells),
		zap.Int("occupied_cells", report.OccupiedCells))
	return report, nil
}

// WarehouseOccupancy reports occupancy across every corridor of a warehouse,
// inactive corridors included. Cell counts are summed before computing the
// rate, never averaged per corridor, so corridors of different sizes weigh
// correctly.
// 倉庫内の全コリドー（非アクティブ含む）の占有状況を集計する。占有率は
// コリドーごとの率を平均するのではなくセル数を合算してから計算するため、
// サイズの異なるコリドーも正しく重み付けされる。
func (r *ReportingService) WarehouseOccupancy(ctx context.Context, warehouseID string) (*OccupancyReport, error) {
	if _, err := r.store.GetWarehouse(ctx, warehouseID); err != nil {
		return nil, err
	}
	corridors, err := r.store.ListCorridorsByWarehouse(ctx, warehouseID)
	if err != nil {
		return nil, NewStorageError("list_corridors", "コリドー一覧取得に失敗しました", err)
	}

	total := &OccupancyReport{}
	for i := range corridors {
		cells, err := r.store.ListCellsByCorridor(ctx, corridors[i].ID)
		if err != nil {
			return nil, NewStorageError("list_cells", "セル一覧取得に失敗しました", err)
		}
		part := countOccupancy(cells)
		total.TotalCells += part.TotalCells
		total.OccupiedCells += part.OccupiedCells
	}
	if total.TotalCells > 0 {
		total.Rate = float64(total.OccupiedCells) / float64(total.TotalCells) * 100
	}

	r.logger.Debug("倉庫占有レポートを生成しました",
		zap.String("warehouse_id", warehouseID),
		zap.Int("total_cells", total.TotalCells),
		zap.Int("occupied_cells", total.OccupiedCells))
	return total, nil
}

// countOccupancy tallies cells and their occupancy flags
// セルと占有フラグを集計
func countOccupancy(cells []Cell) *OccupancyReport {
	report := &OccupancyReport{}
	for i := range cells {
		report.TotalCells++
		if cells[i].IsOccupied {
			report.OccupiedCells++
		}
	}
	if report.TotalCells > 0 {
		report.Rate = float64(report.OccupiedCells) / float64(report.TotalCells) * 100
	}
	return report
}
