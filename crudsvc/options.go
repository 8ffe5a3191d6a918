package crudsvc

import (
	"context"
	"fmt"

	"github.com/goliatone/go-crud"
	goerrors "github.com/goliatone/go-errors"
	"github.com/inchronicle/go-stories/crudguard"
	"github.com/inchronicle/go-stories/pkg/types"
)

// GuardAdapter is the slice of crudguard.Adapter the services need; tests
// substitute fakes through it.
type GuardAdapter interface {
	Enforce(in crudguard.GuardInput) (crudguard.GuardResult, error)
}

// AuditEmitter propagates audit events triggered by CRUD controllers. The
// commands behind each controller already write their own trail on the domain
// channels; the emitter adds a separate "crud" channel entry so hosts can tell
// panel traffic apart from programmatic calls.
type AuditEmitter interface {
	Emit(ctx context.Context, record types.AuditRecord) error
}

// SinkEmitter lets an existing types.AuditSink serve as the emitter.
type SinkEmitter struct {
	Sink types.AuditSink
}

// Emit forwards the record to the wrapped sink.
func (e SinkEmitter) Emit(ctx context.Context, record types.AuditRecord) error {
	if e.Sink == nil {
		return nil
	}
	return e.Sink.Log(ctx, record)
}

type serviceOptions struct {
	emitter AuditEmitter
	logger  types.Logger
}

// ServiceOption tweaks how a CRUD service records and logs.
type ServiceOption func(*serviceOptions)

// WithAuditEmitter sets where controller-originated changes get recorded.
func WithAuditEmitter(emitter AuditEmitter) ServiceOption {
	return func(cfg *serviceOptions) {
		if emitter != nil {
			cfg.emitter = emitter
		}
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger types.Logger) ServiceOption {
	return func(cfg *serviceOptions) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

func applyOptions(opts []ServiceOption) serviceOptions {
	cfg := serviceOptions{
		logger: types.NopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func notSupported(op crud.CrudOperation) error {
	return goerrors.New(
		fmt.Sprintf("go-stories: crud operation %s disabled for this resource", op),
		goerrors.CategoryValidation,
	).WithCode(goerrors.CodeBadRequest)
}

// WithCommandService is crud.WithService under a name that makes the
// delegation to the command/query layer explicit at call sites.
func WithCommandService[T any](svc crud.Service[T]) crud.Option[T] {
	return crud.WithService(svc)
}
