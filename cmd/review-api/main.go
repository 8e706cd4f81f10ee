package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/ufindi/findocflow/internal/models"
	"github.com/ufindi/findocflow/internal/services"
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
	// "HandleReview" is the entry point name configured in GCP.
	functions.HTTP("HandleReview", handleReview)
}

// main is required by the Go Functions Framework.
func main() {}

// handleReview is the HTTP surface the review UI talks to. It reads
// document snapshots and applies corrections; it never writes fields
// directly.
func handleReview(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		appInstance, initErr = services.NewApp(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: review API initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	switch {
	case r.Method == http.MethodGet:
		handleStatus(w, r)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/revalidate"):
		handleRevalidate(w, r)
	case r.Method == http.MethodPost:
		handleCorrection(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("documentId")
	if id == "" {
		http.Error(w, "Bad Request: documentId is required", http.StatusBadRequest)
		return
	}
	doc, err := appInstance.Orchestrator.Status(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, doc)
}

func handleCorrection(w http.ResponseWriter, r *http.Request) {
	var req models.CorrectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode correction request", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	changed, err := appInstance.Loop.CorrectField(r.Context(), req.DocumentID, req.FieldKey, req.NewValue)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, models.CorrectionResponse{
		DocumentID: req.DocumentID,
		FieldKey:   req.FieldKey,
		Changed:    changed,
	})
}

func handleRevalidate(w http.ResponseWriter, r *http.Request) {
	var req models.RevalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode revalidate request", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	if err := appInstance.Orchestrator.Revalidate(r.Context(), req.DocumentID); err != nil {
		writeDomainError(w, err)
		return
	}
	doc, err := appInstance.Orchestrator.Status(r.Context(), req.DocumentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, models.RevalidateResponse{DocumentID: req.DocumentID, Status: doc.Status})
}

// writeDomainError maps the pipeline's error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var invalidInput *models.InvalidInputError
	var notFound *models.NotFoundError
	var invalidState *models.InvalidStateError
	switch {
	case errors.As(err, &invalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &notFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &invalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		slog.Error("Request failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
