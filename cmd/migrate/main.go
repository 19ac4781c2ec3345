package main

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/nemonet1337/soukoGoFramework/internal/config"
)

// migrator applies pending SQL files in name order, one transaction per file.
// Applied files are recorded in schema_migrations with a content checksum so
// later edits to an applied file are detected.
// SQLファイルを名前順に、1ファイル1トランザクションで適用する。
// 適用済みファイルはチェックサム付きでschema_migrationsに記録され、
// 適用後の改変を検出できる。
type migrator struct {
	db     *sql.DB
	logger *zap.Logger
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ロガー初期化に失敗しました: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("設定読み込みに失敗しました", zap.Error(err))
	}

	dir := "migrations"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		logger.Fatal("マイグレーションディレクトリが見つかりません", zap.String("dir", dir))
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		logger.Fatal("データベース接続に失敗しました", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal("データベースpingに失敗しました", zap.Error(err))
	}

	m := &migrator{db: db, logger: logger}
	if err := m.run(dir); err != nil {
		logger.Fatal("マイグレーションに失敗しました", zap.Error(err))
	}
	logger.Info("すべてのマイグレーションが完了しました")
}

func (m *migrator) run(dir string) error {
	if err := m.ensureHistoryTable(); err != nil {
		return err
	}
	applied, err := m.appliedChecksums()
	if err != nil {
		return err
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return fmt.Errorf("マイグレーションファイル検索に失敗しました: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		name := filepath.Base(file)
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("%s の読み込みに失敗しました: %w", name, err)
		}
		sum := sha256.Sum256(content)
		checksum := hex.EncodeToString(sum[:])

		if prev, ok := applied[name]; ok {
			// 適用済みファイルの改変は適用せず警告のみ
			if prev != checksum {
				m.logger.Warn("適用済みマイグレーションが変更されています",
					zap.String("file", name),
					zap.String("recorded_checksum", prev),
					zap.String("current_checksum", checksum))
			}
			continue
		}

		if err := m.apply(name, string(content), checksum); err != nil {
			return err
		}
		m.logger.Info("マイグレーションを適用しました", zap.String("file", name))
	}
	return nil
}

func (m *migrator) ensureHistoryTable() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			filename VARCHAR(255) NOT NULL UNIQUE,
			executed_at TIMESTAMP NOT NULL DEFAULT NOW(),
			checksum VARCHAR(64) NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("マイグレーション履歴テーブル作成に失敗しました: %w", err)
	}
	return nil
}

func (m *migrator) appliedChecksums() (map[string]string, error) {
	rows, err := m.db.Query("SELECT filename, checksum FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("マイグレーション履歴の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]string)
	for rows.Next() {
		var name, checksum string
		if err := rows.Scan(&name, &checksum); err != nil {
			return nil, fmt.Errorf("マイグレーション履歴の読み取りに失敗しました: %w", err)
		}
		applied[name] = checksum
	}
	return applied, rows.Err()
}

func (m *migrator) apply(name, content, checksum string) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("%s のトランザクション開始に失敗しました: %w", name, err)
	}
	if _, err := tx.Exec(content); err != nil {
		tx.Rollback()
		return fmt.Errorf("%s の適用に失敗しました: %w", name, err)
	}
	if _, err := tx.Exec(
		"INSERT INTO schema_migrations (filename, checksum) VALUES ($1, $2)",
		name, checksum,
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("%s の履歴記録に失敗しました: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s のコミットに失敗しました: %w", name, err)
	}
	return nil
}
