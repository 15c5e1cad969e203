package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTimeout = 30 * time.Second
	maxOutputBytes = 64 << 10
)

var ErrTimeout = errors.New("email command timed out")

// CommandSender hands each message to an external program as JSON on stdin
// and waits for it to exit.
type CommandSender struct {
	binary  string
	args    []string
	timeout time.Duration
	logger  *zap.Logger
}

func NewCommandSender(binary string, args []string, timeout time.Duration, logger *zap.Logger) *CommandSender {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &CommandSender{binary: binary, args: args, timeout: timeout, logger: logger}
}

func (s *CommandSender) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	execCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, s.binary, s.args...)
	cmd.Stdin = bytes.NewReader(payload)
	// Children that inherit the pipes must not keep Wait blocked after a kill.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	stderrCapture := &limitedWriter{w: &stderr, max: maxOutputBytes}
	cmd.Stdout = &limitedWriter{w: &stdout, max: maxOutputBytes}
	cmd.Stderr = stderrCapture

	started := time.Now()
	err = cmd.Run()
	duration := time.Since(started)

	if err != nil {
		switch {
		case errors.Is(execCtx.Err(), context.DeadlineExceeded):
			s.logger.Warn("email command killed", zap.String("to", msg.To), zap.Duration("timeout", s.timeout))
			return fmt.Errorf("%w after %s", ErrTimeout, s.timeout)
		case errors.Is(execCtx.Err(), context.Canceled):
			return execCtx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			detail := strings.TrimSpace(stderr.String())
			if detail == "" {
				detail = strings.TrimSpace(stdout.String())
			}
			if stderrCapture.truncated {
				detail += " (truncated)"
			}
			s.logger.Warn("email command failed",
				zap.String("to", msg.To),
				zap.Int("exit_code", exitErr.ExitCode()),
				zap.String("stderr", detail),
			)
			return fmt.Errorf("email command exited with code %d: %s", exitErr.ExitCode(), detail)
		}
		s.logger.Error("email command could not start", zap.String("binary", s.binary), zap.Error(err))
		return fmt.Errorf("email command: %w", err)
	}

	s.logger.Debug("email command finished",
		zap.String("to", msg.To),
		zap.Duration("duration", duration),
		zap.String("stdout", strings.TrimSpace(stdout.String())),
	)
	return nil
}

// limitedWriter keeps the first max bytes and silently drops the rest.
type limitedWriter struct {
	w         io.Writer
	max       int
	written   int
	truncated bool
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	remaining := l.max - l.written
	if remaining <= 0 {
		l.truncated = true
		return len(p), nil
	}
	chunk := p
	if len(chunk) > remaining {
		chunk = chunk[:remaining]
		l.truncated = true
	}
	n, err := l.w.Write(chunk)
	l.written += n
	if err != nil {
		return n, err
	}
	return len(p), nil
}
