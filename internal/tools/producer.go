package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

// Producer is a running process whose stdout carries a jelka stream.
type Producer struct {
	cmd    *exec.Cmd
	Stdout io.ReadCloser
}

// StartProducer launches name with args. The process is killed when ctx
// ends. stderr may be nil to discard the producer's stderr.
func StartProducer(ctx context.Context, name string, args []string, stderr io.Writer) (*Producer, error) {
	if name == "" {
		return nil, errors.New("tools: empty producer command")
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("tools: producer stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("tools: start producer: %w", err)
	}
	return &Producer{cmd: cmd, Stdout: stdout}, nil
}

func (p *Producer) Pid() int {
	return p.cmd.Process.Pid
}

// Wait reaps the producer and reports its exit code. Call it only after
// reading from Stdout is finished.
func (p *Producer) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), err
	}
	return 1, err
}
