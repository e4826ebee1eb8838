package sentry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize_DisabledWithoutDSN(t *testing.T) {
	err := Initialize(Config{})
	require.NoError(t, err)
}

func TestInitialize_InvalidDSN(t *testing.T) {
	err := Initialize(Config{
		DSN:         "not-a-dsn",
		Environment: "test",
	})
	assert.Error(t, err)
}

func TestCaptureException_SafeWhenDisabled(t *testing.T) {
	// Must not panic without an initialized client
	CaptureException(errors.New("boom"))
	Flush(10 * time.Millisecond)
}
