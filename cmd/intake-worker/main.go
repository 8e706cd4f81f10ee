package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/ufindi/findocflow/internal/pipeline"
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

	// Register the CloudEvent function. The framework routes GCS
	// object-finalize events here.
	functions.CloudEvent("HandleDocumentUpload", handleDocumentUpload)
}

// main is required by the Go Functions Framework.
func main() {}

// GCSEvent is the payload of a GCS object-finalize event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// handleDocumentUpload submits a newly uploaded document and drives it
// through the pipeline to a terminal state.
func handleDocumentUpload(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		appInstance, initErr = services.NewApp(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	sourceRef := fmt.Sprintf("%s/%s", gcsEvent.Bucket, gcsEvent.Name)
	logCtx := slog.With("sourceRef", sourceRef)

	// PDFs get a structural sanity check before they enter the pipeline.
	if strings.HasSuffix(strings.ToLower(gcsEvent.Name), ".pdf") {
		data, err := appInstance.Source.FetchBytes(ctx, sourceRef)
		if err != nil {
			logCtx.Error("Failed to fetch uploaded object", "error", err)
			return err
		}
		pageCount, err := services.ValidatePDF(data)
		if err != nil {
			// A broken upload is a caller problem, not a retryable one.
			logCtx.Warn("Rejecting unreadable PDF upload", "error", err)
			return nil
		}
		logCtx.Info("PDF upload validated.", "pageCount", pageCount)
	}

	id, err := appInstance.Orchestrator.Submit(ctx, pipeline.Submission{
		Name:      gcsEvent.Name,
		SourceRef: sourceRef,
		CaseID:    caseIDFromObjectName(gcsEvent.Name),
	})
	if err != nil {
		logCtx.Error("Submission failed", "error", err)
		return err
	}

	if err := appInstance.Orchestrator.Process(ctx, id); err != nil {
		logCtx.Error("Pipeline processing failed", "documentId", id, "error", err)
		return err
	}

	doc, err := appInstance.Orchestrator.Status(ctx, id)
	if err != nil {
		return err
	}
	logCtx.Info("Pipeline run complete.", "documentId", id, "status", doc.Status)
	return nil
}

// caseIDFromObjectName derives the case grouping from the upload layout:
// objects are stored as <caseId>/<filename>. Uploads outside a case folder
// get no case id and skip cross-document checks.
func caseIDFromObjectName(name string) string {
	if i := strings.IndexByte(name, '/'); i > 0 {
		return name[:i]
	}
	return ""
}
