// Dev entrypoint: everything in memory, nothing touches disk except auth
// state under a throwaway dir. Use cmd/server for a persistent instance.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/Jaybarot21/GlobalCollapse/internal/article"
	"github.com/Jaybarot21/GlobalCollapse/internal/config"
	"github.com/Jaybarot21/GlobalCollapse/internal/player"
	"github.com/Jaybarot21/GlobalCollapse/internal/serverapp"
)

func main() {
	cfg := &config.Config{}
	cfg.ApplyDefaults()

	dataDir, err := os.MkdirTemp("", "collapse-dev-")
	if err != nil {
		log.Fatal(err)
	}

	articles := article.NewMemoryRepo()
	_ = articles.Seed(context.Background(), []article.Article{
		{
			ID:          "welcome",
			Title:       "The collapse has begun",
			Body:        "Train hard, rest harder. The leaderboard does not care about excuses.",
			PublishedAt: time.Now().UTC(),
		},
	})

	handler, err := serverapp.NewHandler(serverapp.Options{
		Config:   cfg,
		DataDir:  dataDir,
		Logger:   log.Default(),
		Players:  player.NewMemoryRepo(),
		Articles: articles,
	})
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("dev server listening on http://localhost%s (data in %s)", cfg.Server.Addr, dataDir)
	log.Fatal(http.ListenAndServe(cfg.Server.Addr, handler))
}
