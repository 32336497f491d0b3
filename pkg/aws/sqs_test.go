package aws

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSQS struct {
	mu       sync.Mutex
	batches  [][]types.Message
	recvErr  error
	receives int
	deleted  []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receives++
	if f.recvErr != nil {
		return nil, f.recvErr
	}
	if len(f.batches) == 0 {
		return &sqs.ReceiveMessageOutput{}, nil
	}
	out := &sqs.ReceiveMessageOutput{Messages: f.batches[0]}
	f.batches = f.batches[1:]
	return out, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, sdkaws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func TestPollOnce_DeletesOnlyHandledMessages(t *testing.T) {
	fake := &fakeSQS{batches: [][]types.Message{{
		{MessageId: sdkaws.String("1"), ReceiptHandle: sdkaws.String("rh-1"), Body: sdkaws.String("ok")},
		{MessageId: sdkaws.String("2"), ReceiptHandle: sdkaws.String("rh-2"), Body: sdkaws.String("fail")},
		{MessageId: sdkaws.String("3"), ReceiptHandle: sdkaws.String("rh-3")},
	}}}
	c := newSQSConsumer(fake, "queue", zap.NewNop())

	var seen []string
	err := c.pollOnce(context.Background(), func(ctx context.Context, body string) error {
		seen = append(seen, body)
		if body == "fail" {
			return errors.New("try later")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"ok", "fail"}, seen)
	assert.Equal(t, []string{"rh-1"}, fake.deleted)
}

func TestStartPolling_BacksOffOnReceiveErrors(t *testing.T) {
	fake := &fakeSQS{recvErr: errors.New("connection refused")}
	c := newSQSConsumer(fake, "queue", zap.NewNop())
	c.backoff = 20 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 70*time.Millisecond)
	defer cancel()
	err := c.StartPolling(ctx, func(context.Context, string) error { return nil })

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	fake.mu.Lock()
	defer fake.mu.Unlock()
	// 20ms then 40ms waits leave room for at most three attempts
	assert.LessOrEqual(t, fake.receives, 3)
	assert.GreaterOrEqual(t, fake.receives, 2)
}
