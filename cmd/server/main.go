package main

import (
	"log"
	"net/http"

	"github.com/Jaybarot21/GlobalCollapse/internal/config"
	"github.com/Jaybarot21/GlobalCollapse/internal/player"
	"github.com/Jaybarot21/GlobalCollapse/internal/serverapp"
)

func main() {
	cfg, err := config.Load("collapse_config.yml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	opts := serverapp.Options{
		Config:  cfg,
		DataDir: cfg.Server.DataDir,
		Logger:  log.Default(),
	}

	if dbPath := serverapp.DBPathFromEnv(); dbPath != "" {
		db, err := player.OpenSQLite(dbPath)
		if err != nil {
			log.Fatalf("open sqlite: %v", err)
		}
		defer db.Close()
		opts.Players = player.NewSQLiteRepo(db)
		log.Printf("player storage: sqlite (%s)", dbPath)
	} else {
		log.Printf("player storage: json files (%s)", cfg.Server.DataDir)
	}

	handler, err := serverapp.NewHandler(opts)
	if err != nil {
		log.Fatalf("build server: %v", err)
	}

	log.Printf("listening on http://localhost%s", cfg.Server.Addr)
	log.Fatal(http.ListenAndServe(cfg.Server.Addr, handler))
}
