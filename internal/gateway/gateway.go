// Package gateway delegates unanswered prompts to an external text
// generation process under a bounded time budget. The generated text is
// unverifiable here; the gateway's only job is bounding latency and keeping
// failures of the external dependency away from the rest of the pipeline.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	// ErrTimeout reports that the process did not finish within the budget.
	ErrTimeout = errors.New("generation timed out")
	// ErrProcessFailure reports that the process failed without producing
	// any usable output.
	ErrProcessFailure = errors.New("generation process failed")
)

// DefaultBudget bounds a single generation call.
const DefaultBudget = 10 * time.Second

// Config describes the external generation command.
type Config struct {
	Command string        // executable, e.g. "ollama"
	Args    []string      // arguments, e.g. ["run", "qwen:1.8b"]
	Budget  time.Duration // per-call latency budget
}

// DefaultConfig matches the reference deployment: a local ollama model.
func DefaultConfig() Config {
	return Config{
		Command: "ollama",
		Args:    []string{"run", "qwen:1.8b"},
		Budget:  DefaultBudget,
	}
}

// Gateway spawns one generation process per call. No pooling, no reuse: the
// process reads the prompt on stdin, emits text on stdout, and signals
// completion by exiting.
type Gateway struct {
	cfg Config
}

// New creates a gateway, filling in defaults for zero fields. Each zero
// field defaults on its own, so a custom Command keeps caller-supplied Args.
func New(cfg Config) *Gateway {
	def := DefaultConfig()
	if cfg.Command == "" {
		cfg.Command = def.Command
	}
	if cfg.Args == nil {
		cfg.Args = def.Args
	}
	if cfg.Budget <= 0 {
		cfg.Budget = def.Budget
	}
	return &Gateway{cfg: cfg}
}

// Generate runs one generation process for the prompt and returns its
// trimmed, concatenated stdout. The budget (and the caller's ctx) is
// threaded into the process lifecycle, so an expired call kills the process
// and releases its resources on every exit path instead of leaking it.
//
// Stderr is captured for diagnostics only and never surfaces in the returned
// text. A non-zero exit alone does not force an error: accumulated output,
// if non-empty, is still returned best-effort.
func (g *Gateway) Generate(ctx context.Context, prompt, roleHint string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, g.cfg.Budget)
	defer cancel()

	input := prompt
	if roleHint != "" {
		input = roleHint + "\n\n" + prompt
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, g.cfg.Command, g.cfg.Args...)
	cmd.Stdin = strings.NewReader(input + "\n")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Runner commands fork workers that inherit the stdout pipe; killing
	// only the direct child would leave the pipe open and block Wait until
	// the whole tree exits on its own. Put the child in its own process
	// group, signal the group on cancellation, and cap how long Wait keeps
	// draining the pipes after the kill.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if err == syscall.ESRCH {
			return os.ErrProcessDone
		}
		return err
	}
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)
	text := strings.TrimSpace(stdout.String())

	if runCtx.Err() == context.DeadlineExceeded {
		log.Warn().Dur("budget", g.cfg.Budget).Dur("elapsed", elapsed).Msg("generation timed out, process killed")
		return "", ErrTimeout
	}
	if err != nil {
		if text != "" {
			log.Warn().Err(err).Str("stderr", strings.TrimSpace(stderr.String())).
				Msg("generation process exited abnormally, returning accumulated output")
			return text, nil
		}
		log.Error().Err(err).Str("stderr", strings.TrimSpace(stderr.String())).Msg("generation process failed")
		return "", fmt.Errorf("%w: %v", ErrProcessFailure, err)
	}

	log.Debug().Dur("elapsed", elapsed).Int("bytes", len(text)).Msg("generation complete")
	return text, nil
}
