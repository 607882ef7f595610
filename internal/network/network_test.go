package network

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

const testRateLimit = 100.0 // per second

// rateLimitedTestErr mimics the upstream 429 error.
type rateLimitedTestErr struct {
	retryAfter time.Duration
}

func (e *rateLimitedTestErr) Error() string                  { return "rate limited" }
func (e *rateLimitedTestErr) RetryAfterDelay() time.Duration { return e.retryAfter }

// statusTestErr mimics an upstream error with a status code.
type statusTestErr struct {
	code int
}

func (e *statusTestErr) Error() string       { return "status error" }
func (e *statusTestErr) HTTPStatusCode() int { return e.code }

// retryFn will return a rate limited error for numAttempts time and err after.
func retryFn(numAttempts int, retryAfter time.Duration, err error) func() error {
	i := 0
	return func() error {
		if i < numAttempts {
			i++
			return &rateLimitedTestErr{retryAfter: retryAfter}
		}
		return err
	}
}

func TestWithRetry(t *testing.T) {
	t.Parallel()
	type args struct {
		l           *rate.Limiter
		maxAttempts int
		fn          func() error
	}
	tests := []struct {
		name    string
		args    args
		wantErr bool
	}{
		{"no errors",
			args{
				rate.NewLimiter(testRateLimit, 1),
				3,
				func() error { return nil },
			},
			false,
		},
		{"generic error is not retried",
			args{
				rate.NewLimiter(testRateLimit, 1),
				3,
				func() error { return errors.New("boo boo") },
			},
			true,
		},
		{"3 retries, no error",
			args{
				rate.NewLimiter(testRateLimit, 1),
				3,
				retryFn(2, 1*time.Millisecond, nil),
			},
			false,
		},
		{"3 retries, error on the last attempt",
			args{
				rate.NewLimiter(testRateLimit, 1),
				3,
				retryFn(2, 1*time.Millisecond, errors.New("boo boo")),
			},
			true,
		},
		{"running out of retries",
			args{
				rate.NewLimiter(testRateLimit, 1),
				5,
				retryFn(100, 1*time.Millisecond, nil),
			},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WithRetry(t.Context(), tt.args.l, tt.args.maxAttempts, tt.args.fn)
			if (err != nil) != tt.wantErr {
				t.Errorf("WithRetry() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWithRetry_exhaustedIsErrRetryFailed(t *testing.T) {
	err := WithRetry(t.Context(), rate.NewLimiter(testRateLimit, 1), 2, retryFn(100, time.Millisecond, nil))
	if !errors.Is(err, ErrRetryFailed) {
		t.Errorf("WithRetry() error = %v, want ErrRetryFailed", err)
	}
}

func TestWithRetry_recoverableStatus(t *testing.T) {
	oldWait := waitFn
	waitFn = func(int) time.Duration { return time.Millisecond }
	defer func() { waitFn = oldWait }()

	t.Run("5xx is retried until success", func(t *testing.T) {
		i := 0
		fn := func() error {
			if i < 2 {
				i++
				return &statusTestErr{code: 503}
			}
			return nil
		}
		if err := WithRetry(t.Context(), rate.NewLimiter(testRateLimit, 1), 3, fn); err != nil {
			t.Errorf("WithRetry() error = %v, want nil", err)
		}
	})
	t.Run("501 is fatal", func(t *testing.T) {
		fn := func() error { return &statusTestErr{code: 501} }
		if err := WithRetry(t.Context(), rate.NewLimiter(testRateLimit, 1), 3, fn); err == nil {
			t.Error("WithRetry() error = nil, want error")
		}
	})
	t.Run("4xx is fatal", func(t *testing.T) {
		fn := func() error { return &statusTestErr{code: 403} }
		if err := WithRetry(t.Context(), rate.NewLimiter(testRateLimit, 1), 3, fn); err == nil {
			t.Error("WithRetry() error = nil, want error")
		}
	})
}

func TestWithRetry_cancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	err := WithRetry(ctx, rate.NewLimiter(1, 1), 3, func() error { return nil })
	if err == nil {
		t.Error("WithRetry() error = nil, want context error")
	}
}

func Test_isRecoverable(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{500, true},
		{501, false},
		{503, true},
		{599, true},
		{408, true},
		{404, false},
		{429, false},
		{200, false},
	}
	for _, tt := range tests {
		if got := isRecoverable(tt.code); got != tt.want {
			t.Errorf("isRecoverable(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func Test_cubicWait(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 8 * time.Second},
		{1, 27 * time.Second},
		{2, 64 * time.Second},
		{100, maxAllowedWaitTime},
	}
	for _, tt := range tests {
		if got := cubicWait(tt.attempt); got != tt.want {
			t.Errorf("cubicWait(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestSetLogger(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	SetLogger(custom)
	if lg != custom {
		t.Error("SetLogger did not install the custom logger")
	}

	SetLogger(nil)
	if lg != slog.Default() {
		t.Error("SetLogger(nil) must reset to slog.Default()")
	}
}
