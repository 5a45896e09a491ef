package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/googleapis/gax-go/v2"

	"github.com/Lllllllleong/subtitleflow/internal/models"
)

// Notifier is told about every completed job.
type Notifier interface {
	Notify(ctx context.Context, notice models.CompletionNotice) error
}

// executionCreator is the subset of the executions client we call.
type executionCreator interface {
	CreateExecution(ctx context.Context, req *executionspb.CreateExecutionRequest, opts ...gax.CallOption) (*executionspb.Execution, error)
}

// WorkflowNotifier starts a Cloud Workflows execution per completed job.
type WorkflowNotifier struct {
	client executionCreator
	parent string
}

func NewWorkflowNotifier(client *executions.Client, projectID, location, workflowID string) *WorkflowNotifier {
	return &WorkflowNotifier{
		client: client,
		parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", projectID, location, workflowID),
	}
}

func (n *WorkflowNotifier) Notify(ctx context.Context, notice models.CompletionNotice) error {
	payloadBytes, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: n.parent,
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	exec, err := n.client.CreateExecution(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	slog.Info("Completion workflow triggered.", "jobId", notice.JobID, "execution", exec.GetName())
	return nil
}

// LogNotifier only logs completions; it is used when no workflow is set.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, notice models.CompletionNotice) error {
	slog.Info("Job completed.", "jobId", notice.JobID, "ownerId", notice.OwnerID, "artifact", notice.ArtifactFilename)
	return nil
}
