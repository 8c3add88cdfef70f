package application

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/example/reminder-bot/internal/logging"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatal("a provided logger must be returned as-is")
	}
	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatal("nil must fall back to the process default logger")
	}
}

func TestServiceLogger(t *testing.T) {
	t.Parallel()

	t.Run("prefers the context logger and tags the scope", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		ctxLogger := slog.New(slog.NewTextHandler(&buf, nil))
		ctx := logging.ContextWithLogger(context.Background(), ctxLogger)

		base := slog.New(slog.NewTextHandler(io.Discard, nil))
		serviceLogger(ctx, base, "reminder", "confirm", "instance_id", "i1").Info("done")

		line := buf.String()
		for _, want := range []string{"service=reminder", "operation=confirm", "instance_id=i1"} {
			if !strings.Contains(line, want) {
				t.Errorf("log line %q missing %q", line, want)
			}
		}
	})

	t.Run("omits the operation when blank", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		base := slog.New(slog.NewTextHandler(&buf, nil))
		serviceLogger(context.Background(), base, "sweeper", "").Info("tick")

		if strings.Contains(buf.String(), "operation=") {
			t.Errorf("log line %q has an empty operation attribute", buf.String())
		}
	})
}

func TestErrorKindFromLogging(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrNotFound, "not_found"},
		{ErrInvalidTemplate, "invalid_template"},
		{ErrExternalService, "external_service"},
		{&ValidationError{}, "validation"},
		{errors.New("boom"), "unexpected"},
	}
	for _, tc := range cases {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
