package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"github.com/zavalska7893/trspo"
	"github.com/zavalska7893/trspo/log"
)

// ProcessConfig configures a pool of worker processes.
type ProcessConfig struct {
	// Path is the worker binary. It defaults to the running executable.
	Path string
	// Args precede the workload arguments. They default to "worker", the
	// hidden subcommand of the trspo tool.
	Args []string
	// Env is appended to the environment of the parent.
	Env []string
	// Workers is the number of worker processes.
	Workers int
	// Workload and Seed select the per-item function in the worker.
	Workload string
	Seed     uint64
	// Logger is optional.
	Logger *log.Logger
}

// ProcessExecutor is an Executor backed by a fixed pool of long-lived
// worker processes. Each process serves one chunk at a time.
type ProcessExecutor struct {
	idle     chan *child
	children []*child
	logger   *log.Logger

	closeOnce sync.Once
	closeErr  error
}

type child struct {
	id     int
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	enc    *FrameEncoder
	dec    *FrameDecoder
	stderr bytes.Buffer
	broken error
}

// NewProcess starts cfg.Workers worker processes. The processes are
// killed when ctx is done.
func NewProcess(ctx context.Context, cfg ProcessConfig) (*ProcessExecutor, error) {
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("%w: worker count %d must be positive", trspo.ErrInvalidInput, cfg.Workers)
	}
	if cfg.Path == "" {
		path, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to locate worker binary: %w", err)
		}
		cfg.Path = path
	}
	if cfg.Args == nil {
		cfg.Args = []string{"worker"}
	}
	args := append(append([]string(nil), cfg.Args...),
		"--workload", cfg.Workload,
		"--seed", strconv.FormatUint(cfg.Seed, 10),
	)

	p := &ProcessExecutor{
		idle:   make(chan *child, cfg.Workers),
		logger: cfg.Logger,
	}
	for i := 0; i < cfg.Workers; i++ {
		c, err := startChild(ctx, i, cfg, args)
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		p.children = append(p.children, c)
		p.idle <- c
		p.logger.Debug("worker process started", map[string]any{
			"worker": i,
			"pid":    c.cmd.Process.Pid,
		})
	}
	return p, nil
}

func startChild(ctx context.Context, id int, cfg ProcessConfig, args []string) (*child, error) {
	c := &child{id: id}
	c.cmd = exec.CommandContext(ctx, cfg.Path, args...)
	if len(cfg.Env) > 0 {
		c.cmd.Env = append(os.Environ(), cfg.Env...)
	}
	c.cmd.Stderr = &c.stderr

	stdin, err := c.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := c.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := c.cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start worker process %d: %w", id, err)
	}
	c.stdin = stdin
	c.enc = NewFrameEncoder(stdin)
	c.dec = NewFrameDecoder(stdout)
	return c, nil
}

// Submit implements the Submit method of the Executor interface. It waits
// for an idle worker process, sends it the chunk, and waits for the
// answer. A chunk is not started if ctx is done before a worker process
// becomes idle.
func (p *ProcessExecutor) Submit(ctx context.Context, chunk trspo.Chunk, mode trspo.Mode) (trspo.Partial, error) {
	if err := ctx.Err(); err != nil {
		return trspo.Partial{}, err
	}
	var c *child
	select {
	case c = <-p.idle:
	case <-ctx.Done():
		return trspo.Partial{}, ctx.Err()
	}
	defer func() { p.idle <- c }()
	return c.roundTrip(chunk, mode)
}

func (c *child) roundTrip(chunk trspo.Chunk, mode trspo.Mode) (trspo.Partial, error) {
	if c.broken != nil {
		return trspo.Partial{}, c.broken
	}
	partial, err := c.exchange(chunk, mode)
	if err != nil {
		var werr *trspo.WorkerError
		if !errors.As(err, &werr) {
			c.broken = err
		}
	}
	return partial, err
}

func (c *child) exchange(chunk trspo.Chunk, mode trspo.Mode) (trspo.Partial, error) {
	req := &ChunkRequest{
		Type: ChunkType,
		Seq:  chunk.Seq,
		Low:  chunk.Low,
		High: chunk.High,
		Mode: mode.String(),
	}
	if err := c.enc.WriteFrame(req); err != nil {
		return trspo.Partial{}, fmt.Errorf("worker process %d: %w", c.id, err)
	}
	var values []int64
	for {
		resp, err := c.readResponse(chunk)
		if err != nil {
			return trspo.Partial{}, err
		}
		if resp.Type == ErrorType {
			return trspo.Partial{}, workerError(resp)
		}
		if mode == trspo.Materialized {
			if values == nil {
				values = make([]int64, 0, chunk.Len())
			}
			values = append(values, resp.Values...)
		}
		if !resp.More {
			return trspo.Partial{Seq: resp.Seq, Values: values, Sum: resp.Sum, Count: resp.Count}, nil
		}
	}
}

func (c *child) readResponse(chunk trspo.Chunk) (*Response, error) {
	payload, err := c.dec.ReadFrame()
	if err == io.EOF {
		return nil, fmt.Errorf("worker process %d exited while processing chunk %d", c.id, chunk.Seq)
	}
	if err != nil {
		return nil, fmt.Errorf("worker process %d: %w", c.id, err)
	}
	resp, err := DecodeResponse(payload)
	if err != nil {
		return nil, fmt.Errorf("worker process %d: %w", c.id, err)
	}
	if resp.Seq != chunk.Seq {
		return nil, fmt.Errorf("worker process %d answered chunk %d, want %d", c.id, resp.Seq, chunk.Seq)
	}
	return resp, nil
}

/*
Close implements the Close method of the Executor interface. It closes
the standard input of every worker process, which makes its Serve loop
return, and waits for all of them to exit. The captured standard error
of a worker process is logged as a warning.

Close returns the first exit error of a worker process.
*/
func (p *ProcessExecutor) Close() error {
	p.closeOnce.Do(func() {
		for _, c := range p.children {
			_ = c.stdin.Close()
		}
		for _, c := range p.children {
			err := c.cmd.Wait()
			if c.stderr.Len() > 0 {
				p.logger.Warn("worker process stderr", map[string]any{
					"worker": c.id,
					"stderr": c.stderr.String(),
				})
			}
			if err != nil && p.closeErr == nil {
				p.closeErr = fmt.Errorf("worker process %d: %w", c.id, err)
			}
		}
	})
	return p.closeErr
}
