package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/ufindi/findocflow/internal/models"
)

// RetrainLauncher hands triggered error clusters off to the external
// retraining workflow. The pipeline's responsibility ends at creating the
// execution; the workflow owns data collection and model rollout.
type RetrainLauncher struct {
	executionsClient *executions.Client
	projectID        string
	location         string
	workflowID       string
}

func NewRetrainLauncher(ctx context.Context, projectID, location, workflowID string) (*RetrainLauncher, error) {
	if projectID == "" || workflowID == "" {
		return nil, fmt.Errorf("NewRetrainLauncher: projectID and workflowID must be set")
	}
	client, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}
	return &RetrainLauncher{
		executionsClient: client,
		projectID:        projectID,
		location:         location,
		workflowID:       workflowID,
	}, nil
}

// Launch creates one retraining workflow execution carrying the triggered
// clusters as its argument. Returns the execution resource name.
func (l *RetrainLauncher) Launch(ctx context.Context, clusters []models.ErrorCluster) (string, error) {
	payload := map[string]interface{}{
		"clusters":    clusters,
		"triggeredAt": time.Now().UTC().Format(time.RFC3339),
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal retrain payload: %w", err)
	}

	req := &executionspb.CreateExecutionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", l.projectID, l.location, l.workflowID),
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	exec, err := l.executionsClient.CreateExecution(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create retrain execution: %w", err)
	}
	slog.Info("Retraining workflow triggered.", "execution", exec.GetName(), "clusterCount", len(clusters))
	return exec.GetName(), nil
}

func (l *RetrainLauncher) Close() error {
	return l.executionsClient.Close()
}
