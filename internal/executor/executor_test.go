package executor

import (
	"context"
	"errors"
	"testing"
)

func TestRunPreservesOrderAcrossWorkers(t *testing.T) {
	tasks := make([]Task[int], 20)
	for i := range tasks {
		i := i
		tasks[i] = func(ctx context.Context) (int, error) { return i * i, nil }
	}

	results, err := Run(context.Background(), tasks, 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range results {
		if r != i*i {
			t.Fatalf("result[%d] = %d, want %d", i, r, i*i)
		}
	}
}

func TestRunContinuesAfterOneTaskFails(t *testing.T) {
	boom := errors.New("boom")
	tasks := []Task[int]{
		func(ctx context.Context) (int, error) { return 1, nil },
		func(ctx context.Context) (int, error) { return 0, boom },
		func(ctx context.Context) (int, error) { return 3, nil },
	}

	results, err := Run(context.Background(), tasks, 2, nil)
	if err == nil {
		t.Fatal("expected an aggregated error")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("got error %v, want it to wrap boom", err)
	}
	if results[0] != 1 || results[2] != 3 {
		t.Fatalf("got results %v, want sibling tasks to still complete", results)
	}
}

func TestRunUpdatesProgress(t *testing.T) {
	tasks := make([]Task[struct{}], 5)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (struct{}, error) { return struct{}{}, nil }
	}
	progress := NewProgress(len(tasks))

	if _, err := Run(context.Background(), tasks, 3, progress); err != nil {
		t.Fatal(err)
	}
	if progress.Completed() != int64(len(tasks)) {
		t.Fatalf("got completed=%d, want %d", progress.Completed(), len(tasks))
	}
}

func TestRunWithNoTasksReturnsEmptyResult(t *testing.T) {
	results, err := Run[int](context.Background(), nil, 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Fatalf("got %d results, want 0", len(results))
	}
}
