package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nemonet1337/soukoGoFramework/pkg/warehouse"
)

// Handlers holds HTTP handlers for the warehouse API
// 倉庫API用のHTTPハンドラーを保持
type Handlers struct {
	hierarchy   warehouse.LocationHierarchy
	coordinator warehouse.Coordinator
	ledger      warehouse.Ledger
	reporter    warehouse.Reporter
	store       warehouse.Store
	logger      *zap.Logger
}

// NewHandlers creates new HTTP handlers
// 新しいHTTPハンドラーを作成
func NewHandlers(hierarchy warehouse.LocationHierarchy, coordinator warehouse.Coordinator, ledger warehouse.Ledger, reporter warehouse.Reporter, store warehouse.Store, logger *zap.Logger) *Handlers {
	return &Handlers{
		hierarchy:   hierarchy,
		coordinator: coordinator,
		ledger:      ledger,
		reporter:    reporter,
		store:       store,
		logger:      logger,
	}
}

// APIResponse represents standard API response format
// 標準的なAPIレスポンス形式を表現
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CreateWarehouseRequest represents request to create a warehouse
// 倉庫作成リクエストを表現
type CreateWarehouseRequest struct {
	ShopID        string `json:"shop_id"`
	Name          string `json:"name"`
	Code          string `json:"code"`
	CorridorCount int    `json:"corridor_count"`
}

// CreateCorridorRequest represents request to create a corridor
// コリドー作成リクエストを表現
type CreateCorridorRequest struct {
	CellCount int `json:"cell_count"`
}

// PlaceRequest represents the body of a placement request
// 配置リクエストのボディを表現
type PlaceRequest struct {
	ProductID     string           `json:"product_id"`
	CellID        string           `json:"cell_id"`
	QuantityDelta int64            `json:"quantity_delta"`
	Kind          string           `json:"kind"`
	BatchNumber   string           `json:"batch_number"`
	ExpiryDate    *time.Time       `json:"expiry_date"`
	UnitWeight    *decimal.Decimal `json:"unit_weight"`
	UnitVolume    *decimal.Decimal `json:"unit_volume"`
	Notes         string           `json:"notes"`
	ActorID       string           `json:"actor_id"`
}

// RelocateRequest represents the body of a relocation request
// 再配置リクエストのボディを表現
type RelocateRequest struct {
	ProductID   string `json:"product_id"`
	FromCellID  string `json:"from_cell_id"`
	ToCellID    string `json:"to_cell_id"`
	Quantity    int64  `json:"quantity"`
	BatchNumber string `json:"batch_number"`
	Notes       string `json:"notes"`
	ActorID     string `json:"actor_id"`
}

// HealthCheck handles health check requests
// ヘルスチェックリクエストを処理
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.sendError(w, http.StatusServiceUnavailable, "データベースに接続できません")
		return
	}
	h.sendSuccess(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"service":   "soukoGoFramework",
	})
}

// CreateWarehouse handles warehouse creation requests
// 倉庫作成リクエストを処理
func (h *Handlers) CreateWarehouse(w http.ResponseWriter, r *http.Request) {
	var req CreateWarehouseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	created, err := h.hierarchy.CreateWarehouse(r.Context(), req.ShopID, req.Name, req.Code, req.CorridorCount)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, created)
}

// GetWarehouse handles warehouse retrieval requests
// 倉庫取得リクエストを処理
func (h *Handlers) GetWarehouse(w http.ResponseWriter, r *http.Request) {
	warehouseID := mux.Vars(r)["warehouseId"]

	found, err := h.hierarchy.GetWarehouse(r.Context(), warehouseID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, found)
}

// DeactivateWarehouse handles warehouse deactivation requests
// 倉庫無効化リクエストを処理
func (h *Handlers) DeactivateWarehouse(w http.ResponseWriter, r *http.Request) {
	warehouseID := mux.Vars(r)["warehouseId"]

	if err := h.hierarchy.DeactivateWarehouse(r.Context(), warehouseID); err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, map[string]string{"message": "倉庫を無効化しました"})
}

// CreateCorridor handles corridor creation requests
// コリドー作成リクエストを処理
func (h *Handlers) CreateCorridor(w http.ResponseWriter, r *http.Request) {
	warehouseID := mux.Vars(r)["warehouseId"]

	var req CreateCorridorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	created, err := h.hierarchy.CreateCorridor(r.Context(), warehouseID, req.CellCount)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, created)
}

// ListCorridors handles corridor listing requests
// コリドー一覧リクエストを処理
func (h *Handlers) ListCorridors(w http.ResponseWriter, r *http.Request) {
	warehouseID := mux.Vars(r)["warehouseId"]

	corridors, err := h.hierarchy.ListCorridors(r.Context(), warehouseID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, corridors)
}

// GetCorridor handles corridor retrieval requests
// コリドー取得リクエストを処理
func (h *Handlers) GetCorridor(w http.ResponseWriter, r *http.Request) {
	corridorID := mux.Vars(r)["corridorId"]

	found, err := h.hierarchy.GetCorridor(r.Context(), corridorID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, found)
}

// DeactivateCorridor handles corridor deactivation requests
// コリドー無効化リクエストを処理
func (h *Handlers) DeactivateCorridor(w http.ResponseWriter, r *http.Request) {
	corridorID := mux.Vars(r)["corridorId"]

	if err := h.hierarchy.DeactivateCorridor(r.Context(), corridorID); err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, map[string]string{"message": "コリドーを無効化しました"})
}

// CreateCell handles cell creation requests
// セル作成リクエストを処理
func (h *Handlers) CreateCell(w http.ResponseWriter, r *http.Request) {
	corridorID := mux.Vars(r)["corridorId"]

	created, err := h.hierarchy.CreateCell(r.Context(), corridorID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, created)
}

// ListCells handles cell listing requests
// セル一覧リクエストを処理
func (h *Handlers) ListCells(w http.ResponseWriter, r *http.Request) {
	corridorID := mux.Vars(r)["corridorId"]

	cells, err := h.hierarchy.ListCells(r.Context(), corridorID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, cells)
}

// GetCell handles cell retrieval requests
// セル取得リクエストを処理
func (h *Handlers) GetCell(w http.ResponseWriter, r *http.Request) {
	cellID := mux.Vars(r)["cellId"]

	found, err := h.hierarchy.GetCell(r.Context(), cellID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, found)
}

// DeactivateCell handles cell deactivation requests
// セル無効化リクエストを処理
func (h *Handlers) DeactivateCell(w http.ResponseWriter, r *http.Request) {
	cellID := mux.Vars(r)["cellId"]

	if err := h.hierarchy.DeactivateCell(r.Context(), cellID); err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, map[string]string{"message": "セルを無効化しました"})
}

// GetLocationCode handles location code requests
// ロケーションコード取得リクエストを処理
func (h *Handlers) GetLocationCode(w http.ResponseWriter, r *http.Request) {
	cellID := mux.Vars(r)["cellId"]

	code, err := h.hierarchy.LocationCode(r.Context(), cellID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, map[string]string{"location_code": code})
}

// ReserveCell handles cell reservation requests
// セル予約リクエストを処理
func (h *Handlers) ReserveCell(w http.ResponseWriter, r *http.Request) {
	cellID := mux.Vars(r)["cellId"]

	if err := h.hierarchy.ReserveCell(r.Context(), cellID); err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, map[string]string{"message": "セルを予約しました"})
}

// ReleaseCell handles cell reservation release requests
// セル予約解除リクエストを処理
func (h *Handlers) ReleaseCell(w http.ResponseWriter, r *http.Request) {
	cellID := mux.Vars(r)["cellId"]

	if err := h.hierarchy.ReleaseCell(r.Context(), cellID); err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, map[string]string{"message": "セル予約を解除しました"})
}

// ListPlacementsByCell handles cell placement listing requests
// セル配置一覧リクエストを処理
func (h *Handlers) ListPlacementsByCell(w http.ResponseWriter, r *http.Request) {
	cellID := mux.Vars(r)["cellId"]

	placements, err := h.store.ListPlacementsByCell(r.Context(), cellID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, placements)
}

// Place handles placement requests
// 配置リクエストを処理
func (h *Handlers) Place(w http.ResponseWriter, r *http.Request) {
	var req PlaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	result, err := h.coordinator.Place(r.Context(), warehouse.PlacementRequest{
		ProductID:     req.ProductID,
		CellID:        req.CellID,
		QuantityDelta: req.QuantityDelta,
		Kind:          warehouse.MovementKind(req.Kind),
		BatchNumber:   req.BatchNumber,
		ExpiryDate:    req.ExpiryDate,
		UnitWeight:    req.UnitWeight,
		UnitVolume:    req.UnitVolume,
		Notes:         req.Notes,
		Actor:         req.ActorID,
	})
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendSuccess(w, map[string]interface{}{
		"movement_id":          result.Movement.ID,
		"new_product_quantity": result.NewProductQuantity,
		"cell_occupied":        result.CellOccupied,
		"placement":            result.Placement,
	})
}

// Relocate handles relocation requests
// 再配置リクエストを処理
func (h *Handlers) Relocate(w http.ResponseWriter, r *http.Request) {
	var req RelocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	result, err := h.coordinator.Relocate(r.Context(), warehouse.RelocationRequest{
		ProductID:   req.ProductID,
		FromCellID:  req.FromCellID,
		ToCellID:    req.ToCellID,
		Quantity:    req.Quantity,
		BatchNumber: req.BatchNumber,
		Notes:       req.Notes,
		Actor:       req.ActorID,
	})
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, result)
}

// CurrentQuantity handles current quantity requests
// 現在数量リクエストを処理
func (h *Handlers) CurrentQuantity(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["productId"]

	quantity, err := h.ledger.CurrentQuantity(r.Context(), productID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, map[string]interface{}{
		"product_id": productID,
		"quantity":   quantity,
	})
}

// MovementHistory handles movement history requests
// 移動履歴リクエストを処理
func (h *Handlers) MovementHistory(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["productId"]

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	movements, err := h.ledger.History(r.Context(), productID, limit)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, movements)
}

// ListPlacementsByProduct handles product placement listing requests
// 商品配置一覧リクエストを処理
func (h *Handlers) ListPlacementsByProduct(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["productId"]

	placements, err := h.store.ListPlacementsByProduct(r.Context(), productID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, placements)
}

// CorridorOccupancy handles corridor occupancy report requests
// コリドー占有レポートリクエストを処理
func (h *Handlers) CorridorOccupancy(w http.ResponseWriter, r *http.Request) {
	corridorID := mux.Vars(r)["corridorId"]

	report, err := h.reporter.CorridorOccupancy(r.Context(), corridorID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, report)
}

// WarehouseOccupancy handles warehouse occupancy report requests
// 倉庫占有レポートリクエストを処理
func (h *Handlers) WarehouseOccupancy(w http.ResponseWriter, r *http.Request) {
	warehouseID := mux.Vars(r)["warehouseId"]

	report, err := h.reporter.WarehouseOccupancy(r.Context(), warehouseID)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, report)
}

// ヘルパーメソッド

// sendDomainError maps a domain error to an HTTP status code
// ドメインエラーをHTTPステータスコードに変換して送信
func (h *Handlers) sendDomainError(w http.ResponseWriter, err error) {
	var ve *warehouse.ValidationError
	switch {
	case errors.As(err, &ve):
		h.sendError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, warehouse.ErrWarehouseNotFound),
		errors.Is(err, warehouse.ErrCorridorNotFound),
		errors.Is(err, warehouse.ErrCellNotFound),
		errors.Is(err, warehouse.ErrPlacementNotFound):
		h.sendError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, warehouse.ErrDuplicateCode),
		errors.Is(err, warehouse.ErrInsufficientStock),
		errors.Is(err, warehouse.ErrCapacityExceeded),
		errors.Is(err, warehouse.ErrCellUnavailable):
		h.sendError(w, http.StatusConflict, err.Error())
	case errors.Is(err, warehouse.ErrLockTimeout):
		h.sendError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error("内部エラー", zap.Error(err))
		h.sendError(w, http.StatusInternalServerError, "内部エラーが発生しました")
	}
}

// sendSuccess sends a successful API response
// 成功APIレスポンスを送信
func (h *Handlers) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := APIResponse{
		Success: true,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("レスポンス送信に失敗しました", zap.Error(err))
	}
}

// sendError sends an error API response
// エラーAPIレスポンスを送信
func (h *Handlers) sendError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{
		Success: false,
		Error:   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("エラーレスポンス送信に失敗しました", zap.Error(err))
	}
}
