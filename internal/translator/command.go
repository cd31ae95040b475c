package translator

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/valpere/tradutor/internal/postprocess"
)

// stopGrace is how long Close waits for a long-running command to exit
// after its stdin is closed.
const stopGrace = 5 * time.Second

// CommandTranslator drives a local model through an external command, for
// example a Python wrapper around a seq2seq model. By default each batch runs
// the command once: stdin receives a JSON array of source lines and stdout
// must be a JSON array of translations of the same length.
//
// With LocalConfig.Persistent the command is started once and kept running.
// Every batch is then one JSON array on a line of its own, answered by one
// line holding the translations. The command is restarted after a failure.
//
// The command sees TRADUTOR_SOURCE and TRADUTOR_TARGET in its environment,
// plus TRADUTOR_PERSISTENT=1 when it is kept running.
type CommandTranslator struct {
	path   string
	args   []string
	env    []string
	config LocalConfig

	mu     sync.Mutex
	proc   *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	stderr *tailBuffer
}

// NewCommandTranslator splits cfg.Command on whitespace and resolves the
// executable. A missing executable is reported as ErrBackendUnavailable.
func NewCommandTranslator(cfg LocalConfig, source, target string) (*CommandTranslator, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		cfg.Command = DefaultLocalCommand
	}
	fields := strings.Fields(cfg.Command)

	path, err := exec.LookPath(fields[0])
	if err != nil {
		return nil, wrapErr("local", ErrBackendUnavailable, "model command %q not found", fields[0])
	}

	return &CommandTranslator{
		path:   path,
		args:   fields[1:],
		env:    []string{"TRADUTOR_SOURCE=" + source, "TRADUTOR_TARGET=" + target},
		config: cfg,
	}, nil
}

func (t *CommandTranslator) Name() string {
	return "local"
}

// Model returns the configured command line, used as the cache model key.
func (t *CommandTranslator) Model() string {
	return t.config.Command
}

func (t *CommandTranslator) TranslateBatch(ctx context.Context, lines []string) ([]string, error) {
	if len(lines) == 0 {
		return nil, nil
	}

	out, err := t.run(ctx, lines)
	if err != nil {
		return nil, err
	}
	if len(out) != len(lines) {
		return nil, wrapErr(t.Name(), ErrMalformedResponse,
			"expected %d lines, got %d", len(lines), len(out))
	}
	for i := range out {
		out[i] = postprocess.FlattenLine(out[i])
	}
	return out, nil
}

// Probe runs the command with an empty batch, which forces the model to
// load. A non-zero exit means the model cannot be used.
func (t *CommandTranslator) Probe(ctx context.Context) error {
	out, err := t.run(ctx, []string{})
	if err != nil {
		return err
	}
	if len(out) != 0 {
		return wrapErr(t.Name(), ErrMalformedResponse, "expected empty reply to empty batch, got %d lines", len(out))
	}
	return nil
}

func (t *CommandTranslator) run(ctx context.Context, lines []string) ([]string, error) {
	if t.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.Timeout)
		defer cancel()
	}

	input, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch: %w", err)
	}
	if t.config.Persistent {
		return t.exchange(ctx, input)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.path, t.args...)
	cmd.Env = append(os.Environ(), t.env...)
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &TranslationError{Backend: t.Name(), Err: fmt.Errorf("%w: %w", ErrBackendUnavailable, ctxErr)}
		}
		return nil, wrapErr(t.Name(), ErrBackendUnavailable,
			"model command failed: %v: %s", err, abbreviate(strings.TrimSpace(stderr.String()), 500))
	}

	return t.decode(stdout.Bytes())
}

func (t *CommandTranslator) decode(data []byte) ([]string, error) {
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, wrapErr(t.Name(), ErrMalformedResponse,
			"stdout is not a JSON array of strings: %v", err)
	}
	return out, nil
}

// exchange sends one batch to the long-running command, starting it first
// when needed. Batches are serialized.
func (t *CommandTranslator) exchange(ctx context.Context, input []byte) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.proc == nil {
		if err := t.start(); err != nil {
			return nil, err
		}
	}

	type reply struct {
		data []byte
		err  error
	}
	done := make(chan reply, 1)
	stdin, stdout := t.stdin, t.stdout
	go func() {
		if _, err := stdin.Write(append(input, '\n')); err != nil {
			done <- reply{err: err}
			return
		}
		data, err := stdout.ReadBytes('\n')
		done <- reply{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		t.stop(true)
		return nil, &TranslationError{Backend: t.Name(), Err: fmt.Errorf("%w: %w", ErrBackendUnavailable, ctx.Err())}
	case r := <-done:
		if r.err != nil {
			stderr := t.stderr
			t.stop(false)
			return nil, wrapErr(t.Name(), ErrBackendUnavailable,
				"model command failed: %v: %s", r.err, abbreviate(strings.TrimSpace(stderr.String()), 500))
		}
		out, err := t.decode(r.data)
		if err != nil {
			// The reply stream cannot be trusted after a bad line.
			t.stop(true)
			return nil, err
		}
		return out, nil
	}
}

func (t *CommandTranslator) start() error {
	cmd := exec.Command(t.path, t.args...)
	cmd.Env = append(os.Environ(), t.env...)
	cmd.Env = append(cmd.Env, "TRADUTOR_PERSISTENT=1")

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open model stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open model stdout: %w", err)
	}
	stderr := &tailBuffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return wrapErr(t.Name(), ErrBackendUnavailable, "failed to start model command: %v", err)
	}
	t.proc, t.stdin, t.stdout, t.stderr = cmd, stdin, bufio.NewReader(stdout), stderr
	return nil
}

// stop closes stdin and waits for the command to exit, killing it right away
// with kill or after stopGrace otherwise.
func (t *CommandTranslator) stop(kill bool) {
	if t.proc == nil {
		return
	}
	proc := t.proc
	t.stdin.Close()

	exited := make(chan struct{})
	go func() {
		proc.Wait()
		close(exited)
	}()
	if kill {
		proc.Process.Kill()
	}
	select {
	case <-exited:
	case <-time.After(stopGrace):
		proc.Process.Kill()
		<-exited
	}
	t.proc, t.stdin, t.stdout = nil, nil, nil
}

// Close stops the long-running command, if one was started.
func (t *CommandTranslator) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stop(false)
	return nil
}

// tailBuffer keeps the last stderrLimit bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
}

const stderrLimit = 64 << 10

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if len(b.buf) > stderrLimit {
		b.buf = b.buf[len(b.buf)-stderrLimit:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
