package messenger

import (
	"errors"
	"net/url"
	"testing"
	"time"

	domerrors "github.com/horizonjapan/crewbot/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_Backoff(t *testing.T) {
	p := RetryPolicy{MaxRetries: 3, BaseDelay: time.Second}

	assert.Equal(t, time.Duration(0), p.Backoff(0))
	assert.Equal(t, 1*time.Second, p.Backoff(1))
	assert.Equal(t, 2*time.Second, p.Backoff(2))
	assert.Equal(t, 3*time.Second, p.Backoff(3))
}

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, 3, p.MaxRetries)
	assert.Equal(t, time.Second, p.BaseDelay)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain_error", errors.New("nope"), false},
		{"timeout", timeoutErr{}, true},
		{"url_timeout", &url.Error{Op: "Post", URL: "x", Err: timeoutErr{}}, true},
		{"graph_500", domerrors.NewGraphError("/me/messages", 500, errors.New("x")), true},
		{"graph_429", domerrors.NewGraphError("/me/messages", 429, errors.New("x")), true},
		{"graph_400", domerrors.NewGraphError("/me/messages", 400, errors.New("x")), false},
		{"graph_transport_timeout", domerrors.NewGraphError("/me/messages", 0, timeoutErr{}), true},
		{"graph_transport_plain", domerrors.NewGraphError("/me/messages", 0, errors.New("x")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldRetry(tt.err))
		})
	}
}
