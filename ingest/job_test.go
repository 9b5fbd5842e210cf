package ingest

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestJobLifecycle(t *testing.T) {
	_, cancel := context.WithCancel(context.Background())
	job := newJob(cancel)

	if job.Status() != StatusPending {
		t.Errorf("new job status = %v", job.Status())
	}
	if job.Id == "" {
		t.Error("job has no id")
	}

	job.start()
	if job.Status() != StatusRunning {
		t.Errorf("started job status = %v", job.Status())
	}

	job.addOutcome(Outcome{Path: "a.txt", Status: DocumentIndexed})
	job.addOutcome(Outcome{Path: "b.txt", Status: DocumentFailed, Err: errors.New("boom")})
	if got := len(job.Outcomes()); got != 2 {
		t.Errorf("outcomes = %d, want 2", got)
	}

	job.finish(StatusCompleted, nil)
	if job.Status() != StatusCompleted || job.Err() != nil {
		t.Errorf("finished job: status = %v, err = %v", job.Status(), job.Err())
	}
	if job.Duration() <= 0 {
		t.Error("finished job has zero duration")
	}
}

func TestJobWaitReturnsJobError(t *testing.T) {
	_, cancel := context.WithCancel(context.Background())
	job := newJob(cancel)
	job.start()

	wantErr := errors.New("ingestion broke")
	go func() {
		time.Sleep(10 * time.Millisecond)
		job.finish(StatusFailed, wantErr)
	}()

	if err := job.Wait(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("Wait() = %v, want job error", err)
	}
}

func TestJobWaitHonorsContext(t *testing.T) {
	_, cancel := context.WithCancel(context.Background())
	job := newJob(cancel)
	job.start()

	ctx, cancelWait := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelWait()

	if err := job.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() = %v, want deadline exceeded", err)
	}
}

func TestJobOutcomesAreCopied(t *testing.T) {
	_, cancel := context.WithCancel(context.Background())
	job := newJob(cancel)
	job.start()
	job.addOutcome(Outcome{Path: "a.txt", Status: DocumentIndexed})

	outcomes := job.Outcomes()
	outcomes[0].Path = "mutated"

	if job.Outcomes()[0].Path != "a.txt" {
		t.Error("Outcomes() exposes internal slice")
	}
}

func TestStatusStrings(t *testing.T) {
	cases := map[Status]string{
		StatusPending:   "pending",
		StatusRunning:   "running",
		StatusCompleted: "completed",
		StatusFailed:    "failed",
		StatusCancelled: "cancelled",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", status, got, want)
		}
	}
}
