package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/docuchat/internal/domain/commonModels"
	"github.com/akolanti/docuchat/internal/domain/jobModel"
	"github.com/akolanti/docuchat/internal/queue"
)

// MockRagService to control ingestion outcomes
type MockRagService struct {
	IngestedCount int32
	IngestFunc    func(ctx context.Context, job jobModel.IngestionJob) error
}

func (m *MockRagService) IngestDocument(ctx context.Context, job jobModel.IngestionJob) error {
	atomic.AddInt32(&m.IngestedCount, 1)
	if m.IngestFunc != nil {
		return m.IngestFunc(ctx, job)
	}
	return nil
}

func (m *MockRagService) Answer(ctx context.Context, query string) (string, []commonModels.SearchHit, error) {
	return "", nil, nil
}

type mockQueue struct{}

func (m *mockQueue) Consume(ctx context.Context, handle queue.Handler) {
	<-ctx.Done()
}

func tempStoredFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "171234-doc.pdf")
	if err := os.WriteFile(path, []byte("pdf bytes"), 0600); err != nil {
		t.Fatalf("Could not create stored file: %v", err)
	}
	return path
}

func deliveryFor(job jobModel.IngestionJob, id string, acked *int32) queue.Delivery {
	return queue.NewTestDelivery(job, id, 1, func(ctx context.Context) error {
		atomic.AddInt32(acked, 1)
		return nil
	})
}

func TestConsumer_SuccessfulJobIsAcked(t *testing.T) {
	mockRag := &MockRagService{}
	c := NewConsumer(&mockQueue{}, mockRag)

	path := tempStoredFile(t)
	var acked int32
	d := deliveryFor(jobModel.IngestionJob{StoredPath: path, StorageName: "171234-doc.pdf"}, "1-0", &acked)

	c.dispatch(context.Background(), d)
	c.Wait()

	if got := atomic.LoadInt32(&acked); got != 1 {
		t.Errorf("Expected 1 ack, got %d", got)
	}
	if got := atomic.LoadInt32(&mockRag.IngestedCount); got != 1 {
		t.Errorf("Expected 1 ingestion, got %d", got)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Stored file should be removed after a successful commit")
	}
}

func TestConsumer_FailedJobIsNotAcked(t *testing.T) {
	mockRag := &MockRagService{
		IngestFunc: func(ctx context.Context, job jobModel.IngestionJob) error {
			return errors.New("embedding quota exceeded")
		},
	}
	c := NewConsumer(&mockQueue{}, mockRag)

	path := tempStoredFile(t)
	var acked int32
	d := deliveryFor(jobModel.IngestionJob{StoredPath: path, StorageName: "171234-doc.pdf"}, "1-0", &acked)

	c.dispatch(context.Background(), d)
	c.Wait()

	if got := atomic.LoadInt32(&acked); got != 0 {
		t.Errorf("Failed job must stay unacknowledged, got %d acks", got)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("Stored file must survive a failed job so the redelivery can retry")
	}
}

func TestConsumer_InvalidJobIsNotAcked(t *testing.T) {
	mockRag := &MockRagService{}
	c := NewConsumer(&mockQueue{}, mockRag)

	var acked int32
	d := deliveryFor(jobModel.IngestionJob{}, "1-0", &acked)

	c.dispatch(context.Background(), d)
	c.Wait()

	if got := atomic.LoadInt32(&acked); got != 0 {
		t.Errorf("Invalid job must stay unacknowledged, got %d acks", got)
	}
	if got := atomic.LoadInt32(&mockRag.IngestedCount); got != 0 {
		t.Errorf("Invalid job must not reach ingestion, got %d calls", got)
	}
}

func TestConsumer_DuplicateInFlightIsSkipped(t *testing.T) {
	release := make(chan struct{})
	mockRag := &MockRagService{
		IngestFunc: func(ctx context.Context, job jobModel.IngestionJob) error {
			<-release
			return nil
		},
	}
	c := NewConsumer(&mockQueue{}, mockRag)

	path := tempStoredFile(t)
	var acked int32
	first := deliveryFor(jobModel.IngestionJob{StoredPath: path, StorageName: "171234-doc.pdf"}, "1-0", &acked)
	duplicate := deliveryFor(jobModel.IngestionJob{StoredPath: path, StorageName: "171234-doc.pdf"}, "1-0", &acked)

	c.dispatch(context.Background(), first)

	//give the first goroutine time to enter processing
	time.Sleep(50 * time.Millisecond)
	c.dispatch(context.Background(), duplicate)

	close(release)
	c.Wait()

	if got := atomic.LoadInt32(&mockRag.IngestedCount); got != 1 {
		t.Errorf("Duplicate in-flight delivery must be skipped, got %d ingestions", got)
	}
	if got := atomic.LoadInt32(&acked); got != 1 {
		t.Errorf("Expected exactly 1 ack, got %d", got)
	}
}
