package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/application/ports"
	"github.com/lehelkovach/osl-agent-prototype-sub000/pkg/observability"
)

// Command represents an intent that changes state.
type Command interface {
	Validate() error
}

// CommandHandler handles a specific command type.
type CommandHandler interface {
	Handle(ctx context.Context, cmd Command) error
}

// CommandBus dispatches commands to their registered handlers by reflected
// type, the same way the mediator's two buses route DispatchAgentRequest
// and every other command through a single entry point.
type CommandBus struct {
	handlers map[reflect.Type]CommandHandler
	mu       sync.RWMutex
	uow      ports.UnitOfWork
	metrics  *observability.Metrics
}

// NewCommandBus creates a command bus with no transactional or metrics support.
func NewCommandBus() *CommandBus {
	return &CommandBus{
		handlers: make(map[reflect.Type]CommandHandler),
	}
}

// NewCommandBusWithDependencies creates a command bus wired to a unit of
// work and a metrics sink.
func NewCommandBusWithDependencies(uow ports.UnitOfWork, metrics *observability.Metrics) *CommandBus {
	return &CommandBus{
		handlers: make(map[reflect.Type]CommandHandler),
		uow:      uow,
		metrics:  metrics,
	}
}

// Register binds a handler to the concrete type of cmdType.
func (b *CommandBus) Register(cmdType Command, handler CommandHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeOf(cmdType)
	if _, exists := b.handlers[t]; exists {
		return fmt.Errorf("handler already registered for command type %s", t.Name())
	}

	b.handlers[t] = handler
	return nil
}

// Send validates and dispatches a command to its handler.
func (b *CommandBus) Send(ctx context.Context, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("command validation failed: %w", err)
	}

	b.mu.RLock()
	handler, exists := b.handlers[reflect.TypeOf(cmd)]
	b.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %T", ErrHandlerNotFound, cmd)
	}

	var start time.Time
	if b.metrics != nil {
		start = time.Now()
	}

	err := handler.Handle(ctx, cmd)

	if b.metrics != nil {
		cmdName := reflect.TypeOf(cmd).Name()
		b.metrics.RecordCommandExecution(ctx, cmdName, time.Since(start), err)
	}

	if err != nil {
		return fmt.Errorf("command handler failed: %w", err)
	}

	return nil
}

// SendWithTransaction runs the command inside the bus's unit of work,
// rolling back on panic or error. Falls back to Send if no UoW is wired.
func (b *CommandBus) SendWithTransaction(ctx context.Context, cmd Command) error {
	if b.uow == nil {
		return b.Send(ctx, cmd)
	}

	if err := b.uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			b.uow.Rollback()
			panic(r)
		}
	}()

	if err := b.Send(ctx, cmd); err != nil {
		b.uow.Rollback()
		return err
	}

	if err := b.uow.Commit(ctx); err != nil {
		b.uow.Rollback()
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

// Middleware wraps a CommandHandler with cross-cutting behavior.
type Middleware func(next CommandHandler) CommandHandler

// CommandHandlerFunc adapts a plain function to CommandHandler.
type CommandHandlerFunc func(ctx context.Context, cmd Command) error

func (f CommandHandlerFunc) Handle(ctx context.Context, cmd Command) error {
	return f(ctx, cmd)
}

// LoggingMiddleware logs command execution start, success, and failure.
func LoggingMiddleware(logger Logger) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			cmdType := reflect.TypeOf(cmd).Name()
			logger.Info("executing command", "type", cmdType)

			err := next.Handle(ctx, cmd)
			if err != nil {
				logger.Error("command failed", "type", cmdType, "error", err)
			} else {
				logger.Info("command succeeded", "type", cmdType)
			}

			return err
		})
	}
}

// ValidationMiddleware re-validates a command before it reaches the handler.
func ValidationMiddleware() Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			if err := cmd.Validate(); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			return next.Handle(ctx, cmd)
		})
	}
}

// TransactionMiddleware wraps command execution in a transaction obtained
// from txManager rather than the bus's own UnitOfWork.
func TransactionMiddleware(txManager TransactionManager) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			tx, err := txManager.Begin(ctx)
			if err != nil {
				return fmt.Errorf("failed to begin transaction: %w", err)
			}

			ctx = context.WithValue(ctx, txContextKey{}, tx)

			err = next.Handle(ctx, cmd)
			if err != nil {
				if rbErr := tx.Rollback(); rbErr != nil {
					return fmt.Errorf("rollback failed: %v, original error: %w", rbErr, err)
				}
				return err
			}

			if err := tx.Commit(); err != nil {
				return fmt.Errorf("commit failed: %w", err)
			}

			return nil
		})
	}
}

type txContextKey struct{}

// Logger is the minimal structured-logging surface middleware needs.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// TransactionManager begins ad-hoc transactions for TransactionMiddleware.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Transaction is a commit/rollback boundary.
type Transaction interface {
	Commit() error
	Rollback() error
}

// CommandResult carries the outcome of a command execution for callers that
// want more than an error, e.g. the HTTP layer returning an operation id.
type CommandResult struct {
	Success bool
	Data    interface{}
	Error   error
}

// Pipeline chains middleware around a handler.
type Pipeline struct {
	middlewares []Middleware
}

// NewPipeline builds a middleware pipeline.
func NewPipeline(middlewares ...Middleware) *Pipeline {
	return &Pipeline{middlewares: middlewares}
}

// Execute applies the pipeline's middleware around handler, innermost last.
func (p *Pipeline) Execute(handler CommandHandler) CommandHandler {
	for i := len(p.middlewares) - 1; i >= 0; i-- {
		handler = p.middlewares[i](handler)
	}
	return handler
}

var (
	ErrHandlerNotFound  = errors.New("command handler not found")
	ErrValidationFailed = errors.New("command validation failed")
	ErrExecutionFailed  = errors.New("command execution failed")
)
