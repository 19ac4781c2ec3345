package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nemonet1337/soukoGoFramework/internal/config"
	"github.com/nemonet1337/soukoGoFramework/pkg/warehouse"
	"github.com/nemonet1337/soukoGoFramework/pkg/warehouse/events"
	"github.com/nemonet1337/soukoGoFramework/pkg/warehouse/storage"
)

func main() {
	// ログ設定
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("ログ初期化に失敗しました:", err)
	}
	defer logger.Sync()

	// 設定読み込み
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("設定読み込みに失敗しました", zap.Error(err))
	}

	// データベース接続
	store, err := storage.NewPostgreSQLStore(cfg.DSN(), logger)
	if err != nil {
		logger.Fatal("データベース接続に失敗しました", zap.Error(err))
	}
	defer store.Close()

	// イベント発行（任意）
	var publisher warehouse.EventPublisher
	if cfg.AMQP.Enabled {
		rabbit, err := events.NewRabbitMQPublisher(cfg.AMQP.URL, logger)
		if err != nil {
			logger.Fatal("RabbitMQ接続に失敗しました", zap.Error(err))
		}
		defer rabbit.Close()
		publisher = rabbit
	}

	// メトリクス登録
	var metrics *warehouse.Metrics
	registry := prometheus.NewRegistry()
	if cfg.API.EnableMetrics {
		metrics = warehouse.NewMetrics(registry)
	}

	// 倉庫コア初期化
	coreConfig := &warehouse.Config{
		DefaultCorridorCount: cfg.Warehouse.DefaultCorridorCount,
		DefaultCellCount:     cfg.Warehouse.DefaultCellCount,
		LockTimeout:          cfg.Warehouse.LockTimeout,
	}
	hierarchy := warehouse.NewHierarchyManager(store, logger, coreConfig)
	ledger := warehouse.NewStockLedger(store, logger)
	capacity := warehouse.NewCapacityPolicy(logger)
	coordinator := warehouse.NewPlacementCoordinator(store, ledger, capacity, publisher, metrics, logger, coreConfig)
	reporter := warehouse.NewReportingService(store, logger)

	// HTTPハンドラー設定
	handlers := NewHandlers(hierarchy, coordinator, ledger, reporter, store, logger)
	router := setupRouter(handlers, registry, cfg.API.EnableCORS)

	// HTTPサーバー設定
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.API.Port),
		Handler:      router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}

	// グレースフルシャットダウン設定
	go func() {
		logger.Info("倉庫管理APIサーバーを開始します", zap.Int("port", cfg.API.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー開始に失敗しました", zap.Error(err))
		}
	}()

	// シャットダウンシグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	// グレースフルシャットダウン
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("サーバーシャットダウンに失敗しました", zap.Error(err))
	}

	logger.Info("サーバーが正常に停止しました")
}

// setupRouter sets up HTTP routes
// HTTPルートを設定
func setupRouter(handlers *Handlers, registry *prometheus.Registry, enableCORS bool) *mux.Router {
	router := mux.NewRouter()

	// ヘルスチェック・メトリクス
	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods("GET")

	// API v1ルート
	api := router.PathPrefix("/api/v1").Subrouter()

	// 倉庫階層管理
	api.HandleFunc("/warehouses", handlers.CreateWarehouse).Methods("POST")
	api.HandleFunc("/warehouses/{warehouseId}", handlers.GetWarehouse).Methods("GET")
	api.HandleFunc("/warehouses/{warehouseId}", handlers.DeactivateWarehouse).Methods("DELETE")
	api.HandleFunc("/warehouses/{warehouseId}/corridors", handlers.CreateCorridor).Methods("POST")
	api.HandleFunc("/warehouses/{warehouseId}/corridors", handlers.ListCorridors).Methods("GET")
	api.HandleFunc("/warehouses/{warehouseId}/occupancy", handlers.WarehouseOccupancy).Methods("GET")
	api.HandleFunc("/corridors/{corridorId}", handlers.GetCorridor).Methods("GET")
	api.HandleFunc("/corridors/{corridorId}", handlers.DeactivateCorridor).Methods("DELETE")
	api.HandleFunc("/corridors/{corridorId}/cells", handlers.CreateCell).Methods("POST")
	api.HandleFunc("/corridors/{corridorId}/cells", handlers.ListCells).Methods("GET")
	api.HandleFunc("/corridors/{corridorId}/occupancy", handlers.CorridorOccupancy).Methods("GET")
	api.HandleFunc("/cells/{cellId}", handlers.GetCell).Methods("GET")
	api.HandleFunc("/cells/{cellId}", handlers.DeactivateCell).Methods("DELETE")
	api.HandleFunc("/cells/{cellId}/location-code", handlers.GetLocationCode).Methods("GET")
	api.HandleFunc("/cells/{cellId}/reserve", handlers.ReserveCell).Methods("POST")
	api.HandleFunc("/cells/{cellId}/release", handlers.ReleaseCell).Methods("POST")
	api.HandleFunc("/cells/{cellId}/placements", handlers.ListPlacementsByCell).Methods("GET")

	// 配置操作
	api.HandleFunc("/placements", handlers.Place).Methods("POST")
	api.HandleFunc("/relocations", handlers.Relocate).Methods("POST")

	// 在庫台帳
	api.HandleFunc("/products/{productId}/quantity", handlers.CurrentQuantity).Methods("GET")
	api.HandleFunc("/products/{productId}/movements", handlers.MovementHistory).Methods("GET")
	api.HandleFunc("/products/{productId}/placements", handlers.ListPlacementsByProduct).Methods("GET")

	// CORS設定（開発用）
	if enableCORS {
		router.Use(corsMiddleware)
	}

	// ログ機能
	router.Use(loggingMiddleware(handlers.logger))

	return router
}

// corsMiddleware sets permissive CORS headers
// 許容的なCORSヘッダーを設定するミドルウェア
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
// HTTPリクエストをログ出力するミドルウェア
func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// リクエスト処理
			next.ServeHTTP(w, r)

			// ログ出力
			logger.Info("HTTPリクエスト",
				zap.String("method", r.Method),
				zap.String("url", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
