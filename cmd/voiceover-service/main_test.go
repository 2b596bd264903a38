package main

import (
	"context"
	"errors"
	"testing"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "main-test.log")
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	return log
}

func TestWaitForExit_Signal(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cause := waitForExit(ctx, make(chan error), make(chan error), testLogger(t))
	assert.NoError(t, cause.serverErr)
	assert.NoError(t, cause.workerErr)
	assert.False(t, cause.workerStopped)
}

func TestWaitForExit_ServerError(t *testing.T) {
	t.Parallel()

	serverErrChan := make(chan error, 1)
	serverErrChan <- errors.New("listen tcp: address already in use")

	cause := waitForExit(context.Background(), serverErrChan, make(chan error), testLogger(t))
	require.Error(t, cause.serverErr)
	assert.False(t, cause.workerStopped)
}

func TestWaitForExit_WorkerError(t *testing.T) {
	t.Parallel()

	workerErrChan := make(chan error, 1)
	workerErrChan <- errors.New("failed to subscribe to subject voxly.voiceover.requested")

	cause := waitForExit(context.Background(), make(chan error), workerErrChan, testLogger(t))
	require.Error(t, cause.workerErr)
	assert.True(t, cause.workerStopped)
	assert.NoError(t, cause.serverErr)
}
