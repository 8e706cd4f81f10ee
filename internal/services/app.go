package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/storage"
	"github.com/ufindi/findocflow/internal/gcp"
	"github.com/ufindi/findocflow/internal/learning"
	"github.com/ufindi/findocflow/internal/pipeline"
	"github.com/ufindi/findocflow/internal/store"
	"github.com/ufindi/findocflow/internal/validation"
)

// AppConfig holds all configuration for the pipeline workers, loaded from
// the environment and validated once at startup.
type AppConfig struct {
	ProjectID             string
	DocumentsCollection   string
	CorrectionsCollection string
	VertexAIRegion        string
	Pipeline              pipeline.Config
	Validation            validation.Config
	RetrainWorkflowID     string
	WorkflowLocation      string
	RetrainThreshold      int
}

// LoadAppConfig loads and validates the environment variables every worker
// shares.
func LoadAppConfig() (*AppConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	return &AppConfig{
		ProjectID:             projectID,
		DocumentsCollection:   gcp.GetEnv("FIRESTORE_COLLECTION", "documents"),
		CorrectionsCollection: gcp.GetEnv("CORRECTIONS_COLLECTION", "corrections"),
		VertexAIRegion:        gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		Pipeline: pipeline.Config{
			ClassifyReviewThreshold: envFloat("CLASSIFY_REVIEW_THRESHOLD", 70),
			MaxStageRetries:         envInt("MAX_STAGE_RETRIES", 3),
			StageTimeout:            time.Duration(envInt("STAGE_TIMEOUT_SECONDS", 60)) * time.Second,
			MaxConcurrentDocuments:  envInt("MAX_CONCURRENT_DOCUMENTS", 4),
		},
		Validation: validation.Config{
			HighConfidence:     envFloat("CONFIDENCE_HIGH", 90),
			MediumConfidence:   envFloat("CONFIDENCE_MEDIUM", 75),
			MinFieldConfidence: envFloat("MIN_FIELD_CONFIDENCE", 70),
		},
		RetrainWorkflowID: gcp.GetEnv("RETRAIN_WORKFLOW_ID", ""),
		WorkflowLocation:  gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		RetrainThreshold:  envInt("RETRAIN_THRESHOLD", 10),
	}, nil
}

func envFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(gcp.GetEnv(key, ""), 64); err == nil {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(gcp.GetEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

// App bundles the fully wired pipeline for the worker entrypoints.
type App struct {
	Config       *AppConfig
	Orchestrator *pipeline.Orchestrator
	Loop         *learning.Loop
	Source       *GCSSourceStore
	// Launcher is nil when RETRAIN_WORKFLOW_ID is not configured.
	Launcher *RetrainLauncher
}

// NewApp creates all GCP clients and wires the orchestrator, validation
// engine, and learning loop around them. The orchestrator and loop share
// one KeyedMutex so per-document serialization holds across both.
func NewApp(ctx context.Context) (*App, error) {
	config, err := LoadAppConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, err
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	vertexClient, err := gcp.NewVertexClient(ctx, config.ProjectID, config.VertexAIRegion)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}

	docs := store.NewFirestoreDocumentStore(firestoreClient, config.DocumentsCollection)
	corrections := store.NewFirestoreCorrectionLog(firestoreClient, config.CorrectionsCollection)
	locks := store.NewKeyedMutex()
	engine := validation.NewEngine(config.Validation)
	source := NewGCSSourceStore(storageClient)

	orchestrator := pipeline.NewOrchestrator(
		docs,
		locks,
		source,
		NewVertexClassifier(vertexClient),
		NewVertexExtractor(vertexClient),
		engine,
		config.Pipeline,
	)
	loop := learning.NewLoop(docs, corrections, locks)

	app := &App{
		Config:       config,
		Orchestrator: orchestrator,
		Loop:         loop,
		Source:       source,
	}
	if config.RetrainWorkflowID != "" {
		launcher, err := NewRetrainLauncher(ctx, config.ProjectID, config.WorkflowLocation, config.RetrainWorkflowID)
		if err != nil {
			return nil, err
		}
		app.Launcher = launcher
	}
	return app, nil
}
