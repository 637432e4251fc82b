package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"errors"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/Azee177/jianli/internal/bootstrap"
	"github.com/Azee177/jianli/internal/shared/config"
	"github.com/Azee177/jianli/internal/shared/metrics"
	"github.com/Azee177/jianli/internal/shared/storage/db"
	"github.com/Azee177/jianli/internal/shared/telemetry"
	"github.com/Azee177/jianli/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	app      *bootstrap.App
)

func initApp(ctx context.Context) {
	cfg := config.Load()
	built, err := bootstrap.Build(ctx, cfg, bootstrap.WithDBOptions(db.DefaultWorkerOptions(1)))
	if err != nil {
		initErr = err
		return
	}
	app = built
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(func() { initApp(context.WithoutCancel(ctx)) })
	if initErr != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": initErr.Error()})
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}

	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		metrics.IncWorkerMessage("received")
		err := workerproc.HandleMessage(ctx, app.Tasks, record.Body)
		switch {
		case err == nil:
			metrics.IncWorkerMessage("completed")
		case unrecoverable(err):
			// Redelivery cannot fix a malformed body; let SQS drop it.
			metrics.IncWorkerMessage("deleted_unrecoverable")
			telemetry.Warn("lambda.message_dropped", map[string]any{"sqs_message_id": record.MessageId, "error": err.Error()})
		default:
			metrics.IncWorkerMessage("failed")
			telemetry.Error("lambda.message_failed", map[string]any{"sqs_message_id": record.MessageId, "error": err.Error()})
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}, nil
}

func unrecoverable(err error) bool {
	var empty workerproc.ErrEmptyBody
	var decode workerproc.ErrDecode
	var missing workerproc.ErrMissingTaskID
	return errors.As(err, &empty) || errors.As(err, &decode) || errors.As(err, &missing)
}

func main() {
	lambda.Start(handler)
}
