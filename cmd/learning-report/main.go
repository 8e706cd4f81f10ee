package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/ufindi/findocflow/internal/learning"
	"github.com/ufindi/findocflow/internal/models"
	"github.com/ufindi/findocflow/internal/services"
	"github.com/ufindi/findocflow/internal/store"
)

var (
	appInstance *services.App
	once        sync.Once
	initErr     error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the HTTP function with the framework.
	// "HandleErrorClusters" is the entry point name configured in GCP.
	functions.HTTP("HandleErrorClusters", handleErrorClusters)
}

// main is required by the Go Functions Framework.
func main() {}

// handleErrorClusters computes error clusters over the correction log and,
// when asked, hands clusters above the retrain threshold off to the
// retraining workflow.
func handleErrorClusters(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		appInstance, initErr = services.NewApp(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: learning report initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	window := store.Window{}
	if days := queryInt(r, "days", 30); days > 0 {
		window.Since = time.Now().AddDate(0, 0, -days)
	}
	window.Limit = queryInt(r, "limit", 0)

	clusters, err := appInstance.Loop.ClusterErrors(r.Context(), window)
	if err != nil {
		slog.Error("Failed to cluster corrections", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	threshold := queryInt(r, "threshold", appInstance.Config.RetrainThreshold)
	report := models.ClusterReport{
		Clusters:  clusters,
		Triggered: learning.RetrainTrigger(clusters, threshold),
	}

	// trigger=true actually launches the retraining workflow; without it the
	// report is a dry run.
	if r.URL.Query().Get("trigger") == "true" && len(report.Triggered) > 0 {
		if appInstance.Launcher == nil {
			http.Error(w, "Bad Request: RETRAIN_WORKFLOW_ID is not configured", http.StatusBadRequest)
			return
		}
		execution, err := appInstance.Launcher.Launch(r.Context(), report.Triggered)
		if err != nil {
			slog.Error("Failed to launch retraining workflow", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		report.Execution = execution
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		slog.Error("Failed to write response", "error", err)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil {
		return v
	}
	return fallback
}
