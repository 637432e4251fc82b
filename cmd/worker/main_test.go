package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/Azee177/jianli/internal/queue"
)

type fakeSQS struct {
	deleted []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeExecutor struct {
	err error
	ids []string
}

func (f *fakeExecutor) Execute(ctx context.Context, id string) error {
	f.ids = append(f.ids, id)
	return f.err
}

func TestWorkerDeletesMessageOnSuccess(t *testing.T) {
	client := &fakeSQS{}
	exec := &fakeExecutor{}
	msgBody, _ := queue.EncodeMessage(queue.Message{TaskID: "task-1", RequestID: "req-1"})
	msg := sqstypes.Message{
		MessageId:     aws.String("m1"),
		ReceiptHandle: aws.String("r1"),
		Body:          aws.String(string(msgBody)),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}

	handleMessage(context.Background(), exec, client, "queue", msg)

	if len(client.deleted) != 1 || len(exec.ids) != 1 || exec.ids[0] != "task-1" {
		t.Fatalf("expected one execution and delete, got %v / %v", exec.ids, client.deleted)
	}
}

func TestWorkerKeepsMessageOnStoreFailure(t *testing.T) {
	client := &fakeSQS{}
	exec := &fakeExecutor{err: errors.New("claim task: connection refused")}
	msgBody, _ := queue.EncodeMessage(queue.Message{TaskID: "task-2", RequestID: "req-2"})
	msg := sqstypes.Message{
		MessageId:     aws.String("m2"),
		ReceiptHandle: aws.String("r2"),
		Body:          aws.String(string(msgBody)),
	}

	handleMessage(context.Background(), exec, client, "queue", msg)

	if len(client.deleted) != 0 {
		t.Fatalf("expected no delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesUnprocessableMessages(t *testing.T) {
	for _, body := range []string{"{bad-json", "", `{"requestId":"r"}`} {
		client := &fakeSQS{}
		exec := &fakeExecutor{}
		msg := sqstypes.Message{
			MessageId:     aws.String("m3"),
			ReceiptHandle: aws.String("r3"),
			Body:          aws.String(body),
		}

		handleMessage(context.Background(), exec, client, "queue", msg)

		if len(client.deleted) != 1 || len(exec.ids) != 0 {
			t.Fatalf("body %q: expected delete without execution, got %v / %v", body, client.deleted, exec.ids)
		}
	}
}

func TestReceiveCount(t *testing.T) {
	if got := receiveCount(sqstypes.Message{Attributes: map[string]string{"ApproximateReceiveCount": "3"}}); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := receiveCount(sqstypes.Message{}); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}
