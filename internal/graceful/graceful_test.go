package graceful

import (
	"context"
	"io"
	"syscall"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestCancelOnSignal_ParentDone(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel := CancelOnSignal(parent, logger)
	defer cancel()

	cancelParent()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled with parent")
	}
}

func TestCancelOnSignal_Signal(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	ctx, cancel := CancelOnSignal(context.Background(), logger)
	defer cancel()

	assert.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGINT))
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context not cancelled on SIGINT")
	}
}
