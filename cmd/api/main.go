// Read-only dashboard API over import run history and reconciliation
// sessions. All mutation happens through the CLI; this server only
// serves what previous runs recorded.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ledgersync/ledgersync/internal/application/reconcile"
	"github.com/ledgersync/ledgersync/internal/infrastructure/config"
	"github.com/ledgersync/ledgersync/internal/infrastructure/logging"
	"github.com/ledgersync/ledgersync/internal/infrastructure/storage"
)

type apiServer struct {
	store    *storage.Storage
	sessions *reconcile.Service
}

func (s *apiServer) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

func (s *apiServer) listRuns(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	runs, err := s.store.ListRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

func (s *apiServer) getRun(c *gin.Context) {
	run, err := s.store.GetRun(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	// Expand the stored report for detail views.
	var report json.RawMessage
	if run.ReportJSON != "" {
		report = json.RawMessage(run.ReportJSON)
	}
	c.JSON(http.StatusOK, gin.H{"run": run, "report": report})
}

func (s *apiServer) getStats(c *gin.Context) {
	stats, err := s.store.GetStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *apiServer) getSession(c *gin.Context) {
	session, err := s.sessions.Status(c.Param("accountID"))
	if errors.Is(err, reconcile.ErrNoSession) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no session for account"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read session"})
		return
	}
	c.JSON(http.StatusOK, session)
}

func main() {
	var (
		configFile = flag.String("config", "config.yaml", "Configuration file path")
		port       = flag.String("port", "8080", "Port to listen on")
	)
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(*configFile)
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "api")

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	server := &apiServer{
		store: store,
		// Session reads need no ledger access, so the service carries
		// nil ledger collaborators here.
		sessions: reconcile.NewService(nil, nil, cfg.Workspace.Dir, logger),
	}

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Accept", "Content-Type"},
	}))

	router.GET("/health", server.getHealth)
	api := router.Group("/api")
	{
		api.GET("/runs", server.listRuns)
		api.GET("/runs/:id", server.getRun)
		api.GET("/stats", server.getStats)
		api.GET("/sessions/:accountID", server.getSession)
	}

	logger.Info("api server listening", "port", *port)
	if err := router.Run(":" + *port); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}
