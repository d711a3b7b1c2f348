package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/casualjim/tickertape/pipeline"
	"github.com/casualjim/tickertape/pkg/slogx"
	"github.com/casualjim/tickertape/pkg/uuidx"
	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

// DefaultTaskQueue is the task queue analyses are scheduled on.
const DefaultTaskQueue = "tickertape-analysis"

// activitySlack is added to the stage timeout so the pipeline reports its own
// deadline before Temporal gives up on the activity.
const activitySlack = 15 * time.Second

// AnalyzeInput starts one durable analysis.
type AnalyzeInput struct {
	RunID        uuid.UUID     `json:"run_id"`
	Question     string        `json:"question"`
	StageTimeout time.Duration `json:"stage_timeout"`
}

type SearchInput struct {
	RunID uuid.UUID            `json:"run_id"`
	Info  pipeline.CompanyInfo `json:"info"`
}

type GenerateInput struct {
	RunID    uuid.UUID            `json:"run_id"`
	Question string               `json:"question"`
	Info     pipeline.CompanyInfo `json:"info"`
	Evidence pipeline.Evidence    `json:"evidence"`
}

// Analyze is the workflow running the three stages as activities, in order.
// Activities are never retried: a retry would publish the stage's progress twice.
func Analyze(ctx workflow.Context, in AnalyzeInput) (string, error) {
	timeout := 10 * time.Minute
	if in.StageTimeout > 0 {
		timeout = in.StageTimeout + activitySlack
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout:    timeout,
		ScheduleToStartTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	log := workflow.GetLogger(ctx)
	log.Info("starting analysis", "run_id", in.RunID.String())

	var a *Activities

	var info pipeline.CompanyInfo
	if err := workflow.ExecuteActivity(ctx, a.Extract, in).Get(ctx, &info); err != nil {
		return "", err
	}

	var evidence pipeline.Evidence
	if err := workflow.ExecuteActivity(ctx, a.Search, SearchInput{RunID: in.RunID, Info: info}).Get(ctx, &evidence); err != nil {
		return "", err
	}

	var out string
	if err := workflow.ExecuteActivity(ctx, a.Generate, GenerateInput{
		RunID:    in.RunID,
		Question: in.Question,
		Info:     info,
		Evidence: evidence,
	}).Get(ctx, &out); err != nil {
		return "", err
	}
	return out, nil
}

// Activities exposes the pipeline stages to Temporal.
type Activities struct {
	Pipeline *pipeline.Pipeline
}

func (a *Activities) Extract(ctx context.Context, in AnalyzeInput) (pipeline.CompanyInfo, error) {
	activity.GetLogger(ctx).Info("extracting company info", "run_id", in.RunID.String())
	info, err := a.Pipeline.Extract(pipeline.WithRunID(ctx, in.RunID), in.Question)
	return info, toApplicationError(err)
}

func (a *Activities) Search(ctx context.Context, in SearchInput) (pipeline.Evidence, error) {
	activity.GetLogger(ctx).Info("searching", "run_id", in.RunID.String())
	evidence, err := a.Pipeline.Search(pipeline.WithRunID(ctx, in.RunID), in.Info)
	return evidence, toApplicationError(err)
}

func (a *Activities) Generate(ctx context.Context, in GenerateInput) (string, error) {
	activity.GetLogger(ctx).Info("generating analysis", "run_id", in.RunID.String())
	out, err := a.Pipeline.Generate(pipeline.WithRunID(ctx, in.RunID), in.Question, in.Info, in.Evidence)
	return out, toApplicationError(err)
}

func toApplicationError(err error) error {
	if err == nil {
		return nil
	}
	var stageErr *pipeline.StageError
	if !errors.As(err, &stageErr) {
		return err
	}
	cause := ""
	if stageErr.Err != nil {
		cause = stageErr.Err.Error()
	}
	return temporal.NewNonRetryableApplicationError(stageErr.Error(), string(stageErr.Stage), nil, stageErr.Message, cause)
}

// FromWorkflowError recovers the *pipeline.StageError carried by a failed
// Analyze workflow. Other errors are returned unchanged.
func FromWorkflowError(err error) error {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return err
	}
	stage := pipeline.Stage(appErr.Type())
	if stage.Sentinel() == nil {
		return err
	}

	var message, cause string
	if derr := appErr.Details(&message, &cause); derr != nil {
		return pipeline.NewStageError(stage, errors.New(appErr.Message()))
	}
	stageErr := &pipeline.StageError{Stage: stage, Message: message}
	if cause != "" {
		stageErr.Err = errors.New(cause)
	}
	return stageErr
}

// TemporalProxy runs analyses as Analyze workflows.
type TemporalProxy struct {
	client       client.Client
	taskQueue    string
	stageTimeout time.Duration
	logger       *slog.Logger
}

func NewTemporalProxy(c client.Client, taskQueue string, stageTimeout time.Duration) *TemporalProxy {
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}
	return &TemporalProxy{
		client:       c,
		taskQueue:    taskQueue,
		stageTimeout: stageTimeout,
		logger:       slog.Default().With(slogx.LoggerName("tickertape.executor.temporal")),
	}
}

func (t *TemporalProxy) Run(ctx context.Context, question string) (string, error) {
	runID := uuidx.New()
	fut, err := t.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                    fmt.Sprintf("analysis-%s", runID),
		TaskQueue:             t.taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}, Analyze, AnalyzeInput{
		RunID:        runID,
		Question:     question,
		StageTimeout: t.stageTimeout,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start analysis workflow: %w", err)
	}
	t.logger.InfoContext(ctx, "analysis workflow started",
		slog.String("workflow_id", fut.GetID()),
		slog.String("run_id", fut.GetRunID()),
	)

	var out string
	if err := fut.Get(ctx, &out); err != nil {
		return "", FromWorkflowError(err)
	}
	return out, nil
}

// NewWorker creates a worker hosting Analyze and the stage activities.
func NewWorker(c client.Client, taskQueue string, p *pipeline.Pipeline) worker.Worker {
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}
	w := worker.New(c, taskQueue, worker.Options{})
	w.RegisterWorkflow(Analyze)
	w.RegisterActivity(&Activities{Pipeline: p})
	return w
}
