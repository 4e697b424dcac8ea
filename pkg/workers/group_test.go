package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWorker struct {
	name string
	err  error
	done bool
}

func (f *fakeWorker) Name() string { return f.name }

func (f *fakeWorker) Start(ctx context.Context) error {
	if f.err != nil || f.done {
		return f.err
	}
	<-ctx.Done()
	return nil
}

func TestGroupStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := Group{&fakeWorker{name: "a"}, &fakeWorker{name: "b"}}.Start(ctx)
	assert.NoError(t, err)
}

func TestGroupStopsOnFirstFailure(t *testing.T) {
	err := Group{
		&fakeWorker{name: "listener"},
		&fakeWorker{name: "http", err: errors.New("address in use")},
	}.Start(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "http: address in use")
}

func TestGroupStopsWhenWorkerReturns(t *testing.T) {
	errCh := make(chan error, 1)
	go func() {
		errCh <- Group{&fakeWorker{name: "listener", done: true}, &fakeWorker{name: "http"}}.Start(context.Background())
	}()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("group did not stop after a worker returned")
	}
}
