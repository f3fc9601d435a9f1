package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/duartefn/mercado/internal/config"
	"github.com/duartefn/mercado/internal/database"
	mercadoHttp "github.com/duartefn/mercado/internal/http"
	importHandler "github.com/duartefn/mercado/internal/http/importcsv"
	purchaseHandler "github.com/duartefn/mercado/internal/http/purchase"
	"github.com/duartefn/mercado/internal/importer"
	"github.com/duartefn/mercado/internal/purchase"
	"github.com/duartefn/mercado/internal/purchase/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, repo, err := openStore(cfg)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.DB.Driver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var (
		purchaseService = purchase.NewService(repo)
		importService   = importer.NewService()
	)

	var (
		purchaseH = purchaseHandler.NewHandler(purchaseService)
		importH   = importHandler.NewHandler(importService, purchaseService)
	)

	router := mercadoHttp.New(cfg.Auth.Secret, cfg.CORS.Origins, purchaseH, importH)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "port", port, "driver", cfg.DB.Driver)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func openStore(cfg *config.Config) (*sql.DB, purchase.Repository, error) {
	ctx := context.Background()

	switch cfg.DB.Driver {
	case "postgres":
		db, err := database.NewPostgres(cfg.ConnectionString())
		if err != nil {
			return nil, nil, err
		}

		st := store.NewPostgres(db)
		if err := st.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}

		return db, st, nil
	case "sqlite":
		db, err := database.NewSQLite(cfg.DB.Path)
		if err != nil {
			return nil, nil, err
		}

		st := store.NewSQLite(db)
		if err := st.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}

		return db, st, nil
	default:
		return nil, nil, fmt.Errorf("unknown db driver %q", cfg.DB.Driver)
	}
}
