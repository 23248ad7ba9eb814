package compiler

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"gitlab.com/fcv-2025.net/assessment/internal/config"
	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/assessment/internal/domain"
	"gitlab.com/fcv-2025.net/assessment/internal/static/errs"
)

var _ secondary.CodeExecutor = (*Executor)(nil)

// Executor runs programs on the compiler service, one websocket per run
type Executor struct {
	url       string
	timeout   time.Duration
	killGrace time.Duration
	dialer    *websocket.Dialer
	conns     *ConnectionManager
	logger    primary.Logger
}

func NewExecutor(cfg *config.ExecutorConfig, logger primary.Logger) *Executor {
	return &Executor{
		url:       cfg.CompilerURL,
		timeout:   cfg.RunTimeout,
		killGrace: DefaultKillGrace,
		dialer:    &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		conns:     NewConnectionManager(logger),
		logger:    logger,
	}
}

// output collects frames as they arrive so a killed run keeps what it
// printed so far
type output struct {
	mu       sync.Mutex
	stdout   strings.Builder
	stderr   strings.Builder
	exitCode int
	exited   bool
}

func (o *output) apply(msg Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch msg.Type {
	case MsgStdout:
		o.stdout.WriteString(msg.Data)
	case MsgStderr:
		o.stderr.WriteString(msg.Data)
	case MsgExit:
		o.exited = true
		code, err := strconv.Atoi(strings.TrimSpace(msg.Data))
		if err != nil {
			code = -1
		}
		o.exitCode = code
	}
}

func (o *output) snapshot(out *domain.RunOutput) {
	o.mu.Lock()
	defer o.mu.Unlock()
	out.Stdout = o.stdout.String()
	out.Stderr = o.stderr.String()
	out.ExitCode = o.exitCode
	if !o.exited {
		out.ExitCode = -1
	}
}

func (e *Executor) Execute(ctx context.Context, owner domain.AttemptKey, req *domain.RunRequest) (*domain.RunOutput, error) {
	run := newLiveRun(req.RunID)
	if err := e.conns.Register(owner.String(), run); err != nil {
		return nil, err
	}
	defer e.conns.Remove(owner.String(), run)

	conn, _, err := e.dialer.DialContext(ctx, e.url, nil)
	if err != nil {
		return nil, errs.NewNetworkError("dial compiler", 0, err)
	}
	defer conn.Close()
	run.attach(conn)

	result := &domain.RunOutput{RunID: req.RunID}
	if run.isKilled() {
		result.Killed = true
		result.ExitCode = -1
		return result, nil
	}

	started := time.Now()
	if err := run.send(Message{Type: MsgInit, Language: req.Language, Code: req.Code, Input: req.Input}); err != nil {
		return nil, errs.NewNetworkError("send program", 0, err)
	}
	run.markStarted()

	out := &output{}
	done := make(chan error, 1)
	go func() { done <- readUntilExit(conn, out) }()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return nil, errs.NewNetworkError("read run output", 0, err)
		}
	case <-timer.C:
		result.TimedOut = true
		e.stop(run, done)
	case <-run.killed:
		result.Killed = true
		e.stop(run, done)
	case <-ctx.Done():
		e.stop(run, done)
		return nil, ctx.Err()
	}

	out.snapshot(result)
	result.Duration = time.Since(started)
	e.logger.Debug("Run finished",
		"attempt", owner.String(),
		"runId", req.RunID,
		"exitCode", result.ExitCode,
		"timedOut", result.TimedOut,
		"killed", result.Killed,
		"duration", result.Duration)
	return result, nil
}

// stop asks the compiler to kill the program and waits briefly for its exit
// frame
func (e *Executor) stop(run *liveRun, done <-chan error) {
	if err := run.send(Message{Type: MsgKill}); err != nil {
		e.logger.Warn("Failed to send kill", "runId", run.id, "error", err)
		return
	}
	grace := time.NewTimer(e.killGrace)
	defer grace.Stop()
	select {
	case <-done:
	case <-grace.C:
	}
}

func (e *Executor) Kill(ctx context.Context, owner domain.AttemptKey) error {
	run, ok := e.conns.Get(owner.String())
	if !ok {
		return errs.ErrNoRunInProgress
	}
	run.kill()
	e.logger.Info("Run kill requested", "attempt", owner.String(), "runId", run.id)
	return nil
}

// SendInput writes data to the stdin of the owner's running program
func (e *Executor) SendInput(ctx context.Context, owner domain.AttemptKey, data string) error {
	run, ok := e.conns.Get(owner.String())
	if !ok || !run.isStarted() || run.isKilled() {
		return errs.ErrNoRunInProgress
	}
	if err := run.send(Message{Type: MsgInput, Data: data}); err != nil {
		return errs.NewNetworkError("send input", 0, err)
	}
	return nil
}

func readUntilExit(conn *websocket.Conn, out *output) error {
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		switch msg.Type {
		case MsgError:
			return errors.New(msg.Data)
		case MsgExit:
			out.apply(msg)
			return nil
		case MsgStdout, MsgStderr:
			out.apply(msg)
		}
	}
}
