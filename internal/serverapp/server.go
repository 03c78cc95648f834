package serverapp

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Jaybarot21/GlobalCollapse/internal/article"
	"github.com/Jaybarot21/GlobalCollapse/internal/auth"
	"github.com/Jaybarot21/GlobalCollapse/internal/config"
	"github.com/Jaybarot21/GlobalCollapse/internal/game"
	"github.com/Jaybarot21/GlobalCollapse/internal/httpmw"
	"github.com/Jaybarot21/GlobalCollapse/internal/player"
	staticfiles "github.com/Jaybarot21/GlobalCollapse/static"
)

type Options struct {
	Config  *config.Config
	DataDir string
	Logger  *log.Logger
	Clock   game.Clock

	// Players overrides the default file-backed repository; the dev server
	// passes a MemoryRepo here, cmd/server may pass a SQLiteRepo.
	Players  player.Repository
	Articles article.Repository
}

func NewHandler(opts Options) (http.Handler, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if strings.TrimSpace(opts.DataDir) == "" {
		opts.DataDir = opts.Config.Server.DataDir
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Clock == nil {
		opts.Clock = game.RealClock{}
	}

	balance := config.FromEnv(opts.Config.Balance)

	players := opts.Players
	if players == nil {
		repo, err := player.NewFileRepo(filepath.Join(opts.DataDir, "player"))
		if err != nil {
			return nil, err
		}
		players = repo
	}

	articles := opts.Articles
	if articles == nil {
		repo, err := article.NewFileRepo(filepath.Join(opts.DataDir, "articles"))
		if err != nil {
			return nil, err
		}
		articles = repo
	}

	mux := http.NewServeMux()

	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticfiles.EmbeddedFS()))))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "globalcollapse",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	authRepo, err := auth.NewFileRepo(filepath.Join(opts.DataDir, "auth"))
	if err != nil {
		return nil, err
	}
	provision := func(ctx context.Context, userID, email string, now time.Time) (string, error) {
		p := player.Player{
			ID:           uuid.NewString(),
			Name:         playerNameFromEmail(email),
			Avatar:       player.AvatarMin,
			Money:        balance.StartingMoney,
			Skillpoints:  0,
			TutorialDone: false,
			CreatedAt:    now,
			Stats: player.Stats{
				Energy:    balance.StartingEnergy,
				EnergyMax: balance.DefaultEnergyMax,
				Strength:  balance.StartingStatLevel,
				Stamina:   balance.StartingStatLevel,
				Speed:     balance.StartingStatLevel,
				XP:        0,
				XPMin:     0,
				XPMax:     balance.StartingXPMax,
			},
			Action: player.NoAction(),
		}
		created, err := players.Create(ctx, p)
		if err != nil {
			return "", err
		}
		return created.ID, nil
	}
	authService := auth.NewService(authRepo, opts.Logger, provision)
	authHandler := auth.NewHandler(authService)
	mux.HandleFunc("/api/auth/request-otp", authHandler.RequestOTP)
	mux.HandleFunc("/api/auth/verify-otp", authHandler.VerifyOTP)
	mux.HandleFunc("/api/auth/session", authHandler.Session)
	mux.HandleFunc("/api/auth/logout", authHandler.Logout)

	playerIDResolver := func(r *http.Request) string {
		u, ok := auth.UserFromContext(r.Context())
		if !ok {
			return ""
		}
		return u.PlayerID
	}

	playerHandler := player.NewHandler(players, balance.LeaderboardPageSize)
	playerHandler.SetPlayerIDResolver(playerIDResolver)
	mux.Handle("/api/player/state", authService.RequireAPI(http.HandlerFunc(playerHandler.State)))
	mux.Handle("/api/player/avatar", authService.RequireAPI(http.HandlerFunc(playerHandler.Avatar)))
	mux.Handle("/api/player/tutorial", authService.RequireAPI(http.HandlerFunc(playerHandler.FinishTutorial)))
	mux.HandleFunc("/api/leaderboard", playerHandler.Leaderboard)

	engine := game.Engine{
		Players: players,
		Balance: balance,
		Clock:   opts.Clock,
	}
	gameHandler := game.NewHandler(engine, opts.Config.Tutorial.RedirectPath)
	gameHandler.SetPlayerIDResolver(playerIDResolver)
	mux.Handle("/api/actions", authService.RequireAPI(http.HandlerFunc(gameHandler.Actions)))
	mux.Handle("/api/training/start", authService.RequireAPI(http.HandlerFunc(gameHandler.TrainingStart)))
	mux.Handle("/api/rest/start", authService.RequireAPI(http.HandlerFunc(gameHandler.RestStart)))
	mux.Handle("/api/rest/stop", authService.RequireAPI(http.HandlerFunc(gameHandler.RestStop)))
	mux.Handle("/api/skillpoints/allocate", authService.RequireAPI(http.HandlerFunc(gameHandler.SkillpointsAllocate)))

	articleHandler := article.NewHandler(articles)
	mux.HandleFunc("/api/articles", articleHandler.List)

	mux.Handle("/api/config", authService.RequireAPI(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(opts.Config); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})))

	// Onboarding landing for players bounced by the tutorial gate. The
	// actual tutorial UI is a client concern; completing it calls
	// /api/player/tutorial.
	mux.HandleFunc(opts.Config.Tutorial.RedirectPath, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":       true,
			"message":  "Complete the tutorial to unlock training, resting and skillpoints",
			"complete": "/api/player/tutorial",
		})
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if _, _, err := players.List(r.Context(), 1, 1); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"ok":    false,
				"error": "player storage unavailable",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "globalcollapse",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	return httpmw.Chain(
		mux,
		httpmw.WithAccessLog(opts.Logger),
		httpmw.WithRequestID,
		httpmw.WithRecover(opts.Logger),
	), nil
}

func playerNameFromEmail(email string) string {
	name := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		name = email[:i]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "survivor"
	}
	return name
}

// DBPathFromEnv returns the SQLite path when the operator opted into SQLite
// persistence, empty otherwise.
func DBPathFromEnv() string {
	return strings.TrimSpace(os.Getenv("COLLAPSE_DB"))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
