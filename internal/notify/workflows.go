package notify

import (
	"context"
	"encoding/json"
	"fmt"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/mithun789/campus-Me/internal/models"
)

// Workflow starts a Cloud Workflows execution per artifact, passing the
// event as the execution argument.
type Workflow struct {
	client *executions.Client
	parent string
}

// NewWorkflow creates an executions client for the given workflow.
func NewWorkflow(ctx context.Context, projectID, location, workflowID string) (*Workflow, error) {
	if projectID == "" || workflowID == "" {
		return nil, fmt.Errorf("PROJECT_ID and WORKFLOW_ID must be set for the workflow notifier")
	}
	client, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}
	return &Workflow{client: client, parent: WorkflowParent(projectID, location, workflowID)}, nil
}

// WorkflowParent formats the workflow resource name.
func WorkflowParent(projectID, location, workflowID string) string {
	if location == "" {
		location = "us-central1"
	}
	return fmt.Sprintf("projects/%s/locations/%s/workflows/%s", projectID, location, workflowID)
}

func (w *Workflow) Notify(ctx context.Context, ev models.ArtifactEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent:    w.parent,
		Execution: &executionspb.Execution{Argument: string(payload)},
	}
	if _, err := w.client.CreateExecution(ctx, req); err != nil {
		return fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	return nil
}

func (w *Workflow) Close() error { return w.client.Close() }
