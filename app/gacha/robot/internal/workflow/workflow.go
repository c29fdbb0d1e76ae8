package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

// Status 步骤状态
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusSuccess
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// StepFunc 步骤执行函数
type StepFunc func(ctx context.Context) error

// Step 工作流步骤
type Step struct {
	Name       string
	Func       StepFunc
	MaxRetries int           // 可重试错误的最大重试次数
	RetryDelay time.Duration // 第 n 次重试前等待 n*RetryDelay
	Timeout    time.Duration // 单次执行超时

	status   Status
	attempts int
	err      error
	elapsed  time.Duration
}

// Status 步骤状态
func (s *Step) Status() Status { return s.status }

// Attempts 实际执行次数
func (s *Step) Attempts() int { return s.attempts }

// Err 最后一次错误
func (s *Step) Err() error { return s.err }

// Elapsed 步骤总耗时（含重试等待）
func (s *Step) Elapsed() time.Duration { return s.elapsed }

// Workflow 顺序执行的步骤序列，任一步骤失败即终止
type Workflow struct {
	id        string
	steps     []*Step
	retryable func(error) bool
	logger    logger.Logger
}

// Option 工作流选项
type Option func(*Workflow)

// WithRetryable 设置可重试错误的判定，默认不重试
func WithRetryable(fn func(error) bool) Option {
	return func(w *Workflow) { w.retryable = fn }
}

// New 创建工作流
func New(id string, l logger.Logger, opts ...Option) *Workflow {
	w := &Workflow{
		id:        id,
		retryable: func(error) bool { return false },
		logger:    l.Named("workflow").WithFields("workflow", id),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// AddStep 添加步骤，默认重试 3 次、超时 30s
func (w *Workflow) AddStep(name string, fn StepFunc) *Workflow {
	return w.AddStepWithOptions(name, fn, 3, 100*time.Millisecond, 30*time.Second)
}

// AddStepWithOptions 添加带配置的步骤
func (w *Workflow) AddStepWithOptions(name string, fn StepFunc, maxRetries int, retryDelay, timeout time.Duration) *Workflow {
	w.steps = append(w.steps, &Step{
		Name:       name,
		Func:       fn,
		MaxRetries: maxRetries,
		RetryDelay: retryDelay,
		Timeout:    timeout,
	})
	return w
}

// Steps 全部步骤
func (w *Workflow) Steps() []*Step {
	return w.steps
}

// Run 依次执行全部步骤
func (w *Workflow) Run(ctx context.Context) error {
	for i, step := range w.steps {
		if err := w.runStep(ctx, step); err != nil {
			w.logger.Warn("step failed",
				"step", step.Name,
				"index", i+1,
				"attempts", step.attempts,
				"error", err,
			)
			return fmt.Errorf("workflow %s: step %s: %w", w.id, step.Name, err)
		}
		w.logger.Debug("step completed", "step", step.Name, "elapsed", step.elapsed)
	}
	return nil
}

func (w *Workflow) runStep(ctx context.Context, step *Step) error {
	start := time.Now()
	step.status = StatusRunning
	defer func() { step.elapsed = time.Since(start) }()

	for {
		step.attempts++
		step.err = w.execute(ctx, step)
		if step.err == nil {
			step.status = StatusSuccess
			return nil
		}
		if step.attempts > step.MaxRetries || !w.retryable(step.err) {
			step.status = StatusFailure
			return step.err
		}

		select {
		case <-ctx.Done():
			step.status = StatusFailure
			step.err = errors.CombineErrors(ctx.Err(), step.err)
			return step.err
		case <-time.After(time.Duration(step.attempts) * step.RetryDelay):
		}
	}
}

func (w *Workflow) execute(ctx context.Context, step *Step) error {
	if step.Timeout <= 0 {
		return step.Func(ctx)
	}
	stepCtx, cancel := context.WithTimeout(ctx, step.Timeout)
	defer cancel()
	return step.Func(stepCtx)
}
