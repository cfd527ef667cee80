package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBatchTimeout bounds a Map call whose context carries no
// deadline, so a hung worker can never stall a batch forever.
const DefaultBatchTimeout = 2 * time.Minute

// SpawnFunc creates one worker process command. The command must run
// the worker serve loop over its stdin/stdout. The default re-execs
// this binary's hidden `worker` command; tests substitute the
// re-exec-the-test-binary helper process.
type SpawnFunc func() *exec.Cmd

func defaultSpawn() *exec.Cmd {
	return exec.Command(os.Args[0], "worker")
}

// PoolOption configures a ProcessPool.
type PoolOption func(*ProcessPool)

// WithSpawn overrides how worker processes are created.
func WithSpawn(spawn SpawnFunc) PoolOption {
	return func(p *ProcessPool) { p.spawn = spawn }
}

// WithPoolLogger overrides the pool's logger.
func WithPoolLogger(logger *slog.Logger) PoolOption {
	return func(p *ProcessPool) { p.logger = logger }
}

// ProcessPool runs jobs in a fixed set of worker OS processes.
//
// Every worker starts from a clean exec, so its address space and its
// simparams store are private by construction; isolation is structural
// rather than best-effort. This is the control condition the
// shared-memory strategy is judged against. Workers are reused across
// Map calls within a scenario and dead workers are respawned at the
// next dispatch.
type ProcessPool struct {
	size   int
	spawn  SpawnFunc
	logger *slog.Logger

	mu      sync.Mutex
	workers []*procWorker
}

// NewProcessPool creates a pool of the given size. Workers are spawned
// lazily on the first Map call.
func NewProcessPool(size int, opts ...PoolOption) *ProcessPool {
	if size < 1 {
		size = 1
	}
	p := &ProcessPool{
		size:   size,
		spawn:  defaultSpawn,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the strategy name for outcomes and reports.
func (p *ProcessPool) Name() string {
	return StrategyProcessPool
}

// Map dispatches jobs across the worker processes and returns results
// in job order. Each worker handles one job at a time; a crashed or
// hung worker costs only its current job (error or timeout outcome)
// and its queued jobs migrate to surviving workers. The call is always
// bounded: if ctx has no deadline, DefaultBatchTimeout applies.
func (p *ProcessPool) Map(ctx context.Context, jobs []Job) []SimulationResult {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultBatchTimeout)
		defer cancel()
	}

	workers, err := p.ensureWorkers()
	if err != nil {
		results := make([]SimulationResult, len(jobs))
		for i := range jobs {
			results[i] = errorResult(NewWorkerError(p.Name(), i, fmt.Sprintf("spawning workers: %v", err)))
		}
		return results
	}

	results := make([]SimulationResult, len(jobs))
	handled := make([]bool, len(jobs))

	jobCh := make(chan int)
	allDone := make(chan struct{})

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *procWorker) {
			defer wg.Done()
			for idx := range jobCh {
				res, alive := w.do(ctx, p.Name(), jobs[idx], idx)
				results[idx] = res
				handled[idx] = true
				if !alive {
					return
				}
			}
		}(w)
	}

	go func() {
		defer close(jobCh)
		for i := range jobs {
			select {
			case jobCh <- i:
			case <-ctx.Done():
				return
			case <-allDone:
				return
			}
		}
	}()

	wg.Wait()
	close(allDone)

	for i := range jobs {
		if handled[i] {
			continue
		}
		if ctx.Err() != nil {
			results[i] = errorResult(NewTimeoutError(p.Name(), i))
		} else {
			results[i] = errorResult(NewWorkerError(p.Name(), i, "no worker available"))
		}
	}
	return results
}

// Close shuts the pool down. Stdin close lets workers exit their serve
// loop; anything still alive after that is killed by process exit.
func (p *ProcessPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, w := range p.workers {
		if w != nil {
			w.shutdown()
		}
	}
	p.workers = nil
}

// ensureWorkers spawns missing or dead workers up to the pool size.
func (p *ProcessPool) ensureWorkers() ([]*procWorker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.workers == nil {
		p.workers = make([]*procWorker, p.size)
	}
	for i, w := range p.workers {
		if w != nil && !w.dead.Load() {
			continue
		}
		if w != nil {
			w.shutdown()
			p.logger.Debug("respawning dead worker", "slot", i)
		}
		nw, err := p.spawnWorker()
		if err != nil {
			return nil, err
		}
		p.workers[i] = nw
	}
	out := make([]*procWorker, len(p.workers))
	copy(out, p.workers)
	return out, nil
}

func (p *ProcessPool) spawnWorker() (*procWorker, error) {
	cmd := p.spawn()
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdout: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting worker: %w", err)
	}
	p.logger.Debug("worker spawned", "pid", cmd.Process.Pid)

	w := &procWorker{
		cmd:    cmd,
		stdin:  stdin,
		enc:    json.NewEncoder(stdin),
		respCh: make(chan WorkerResponse, 1),
		quit:   make(chan struct{}),
	}
	go w.pump(stdout)
	return w, nil
}

// procWorker is the coordinator-side handle for one worker process.
// A worker handles exactly one request at a time, so request/response
// pairing is lock-step.
type procWorker struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	enc    *json.Encoder
	respCh chan WorkerResponse
	quit   chan struct{}
	dead   atomic.Bool
	once   sync.Once
}

// pump moves responses from the worker's stdout to respCh until the
// stream closes.
func (w *procWorker) pump(stdout io.Reader) {
	dec := json.NewDecoder(stdout)
	for {
		var resp WorkerResponse
		if err := dec.Decode(&resp); err != nil {
			close(w.respCh)
			return
		}
		select {
		case w.respCh <- resp:
		case <-w.quit:
			return
		}
	}
}

// do sends one job and waits for its response. The second return value
// reports whether the worker is still usable.
func (w *procWorker) do(ctx context.Context, strategy string, job Job, idx int) (SimulationResult, bool) {
	if err := w.enc.Encode(WorkerRequest{Index: idx, Job: job}); err != nil {
		w.kill()
		return errorResult(NewWorkerError(strategy, idx, fmt.Sprintf("writing request: %v", err))), false
	}

	select {
	case resp, ok := <-w.respCh:
		if !ok {
			w.kill()
			return errorResult(NewWorkerError(strategy, idx, "worker exited before responding")), false
		}
		if resp.Index != idx {
			w.kill()
			return errorResult(NewWorkerError(strategy, idx, fmt.Sprintf("out-of-order response for job %d", resp.Index))), false
		}
		return resp.Result, true
	case <-ctx.Done():
		// Kill rather than wait: a hung worker must not block the
		// batch, and a killed process cannot corrupt siblings.
		w.kill()
		return errorResult(NewTimeoutError(strategy, idx)), false
	}
}

// kill forcibly terminates the worker and reaps it.
func (w *procWorker) kill() {
	w.dead.Store(true)
	w.once.Do(func() {
		close(w.quit)
		w.stdin.Close()
		if w.cmd.Process != nil {
			_ = w.cmd.Process.Kill()
		}
		go func() { _ = w.cmd.Wait() }()
	})
}

// shutdown lets the worker exit gracefully via stdin EOF.
func (w *procWorker) shutdown() {
	w.dead.Store(true)
	w.once.Do(func() {
		close(w.quit)
		w.stdin.Close()
		go func() { _ = w.cmd.Wait() }()
	})
}
