package query

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/vendata-inc/vendata-engine/pkg/apperrors"
	"github.com/vendata-inc/vendata-engine/pkg/datasource"
	"github.com/vendata-inc/vendata-engine/pkg/logging"
	"github.com/vendata-inc/vendata-engine/pkg/retry"
)

// Querier is the slice of the pgx pool API the executor needs. *pgxpool.Pool
// satisfies it; tests provide fakes.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Failure records why a query gave up. It is carried inside the Result
// instead of being returned as an error, so callers can distinguish
// "confirmed zero rows" from "gave up after retries" without the two paths
// diverging in shape.
type Failure struct {
	Attempts int
	Err      error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("query failed after %d attempt(s): %v", f.Attempts, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Result is the outcome of a query execution. Rows is always non-nil; a
// failed execution carries an empty row set plus a non-nil Failure.
type Result struct {
	Columns  []string
	Rows     []map[string]any
	RowCount int
	Failure  *Failure
}

// Failed reports whether the result stands for an exhausted query rather
// than real data.
func (r *Result) Failed() bool {
	return r.Failure != nil
}

// Executor runs parameterized SQL against the request's active connection
// handle, retrying transient failures with linear backoff. Exhausted retries
// degrade to an empty result set; the Failure field is the only signal that
// data is missing rather than absent.
type Executor struct {
	defaultHandle *datasource.Handle
	policy        *retry.Config
	logger        *zap.Logger

	// querierFor resolves the pool for a request; replaced in tests.
	querierFor func(ctx context.Context) Querier
}

// NewExecutor creates an Executor. The default handle serves requests with
// no tenant scope; a nil policy selects retry.DefaultConfig.
func NewExecutor(defaultHandle *datasource.Handle, policy *retry.Config, logger *zap.Logger) *Executor {
	if policy == nil {
		policy = retry.DefaultConfig()
	}
	e := &Executor{
		defaultHandle: defaultHandle,
		policy:        policy,
		logger:        logger,
	}
	e.querierFor = e.activeQuerier
	return e
}

func (e *Executor) activeQuerier(ctx context.Context) Querier {
	handle := datasource.ActiveHandle(ctx, e.defaultHandle)
	if handle == nil || handle.Pool() == nil {
		return nil
	}
	return handle.Pool()
}

// Execute runs a parameterized query ($1, $2, ...) and collects all rows.
// It never returns a Go error: transient failures are retried per the
// configured policy (backoff and jitter included), and exhaustion yields an
// empty Result whose Failure field is set. The failure reason is logged on
// the first failed attempt only.
func (e *Executor) Execute(ctx context.Context, sqlQuery string, params ...any) *Result {
	querier := e.querierFor(ctx)
	if querier == nil {
		return &Result{
			Rows:    []map[string]any{},
			Failure: &Failure{Attempts: 0, Err: apperrors.ErrNoActiveHandle},
		}
	}

	var result *Result
	attempts := 0
	logged := false

	err := retry.DoIfRetryable(ctx, e.policy, func() error {
		attempts++
		r, err := e.runOnce(ctx, querier, sqlQuery, params)
		if err != nil {
			if !logged {
				e.logger.Warn("query attempt failed",
					zap.String("query", logging.SanitizeQuery(sqlQuery)),
					zap.Int("attempt", attempts),
					zap.String("error", logging.SanitizeError(err)),
				)
				logged = true
			}
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return &Result{
			Rows:    []map[string]any{},
			Failure: &Failure{Attempts: attempts, Err: err},
		}
	}

	return result
}

func (e *Executor) runOnce(ctx context.Context, querier Querier, sqlQuery string, params []any) (*Result, error) {
	rows, err := querier.Query(ctx, sqlQuery, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col] = values[i]
		}
		resultRows = append(resultRows, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &Result{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}
