package orm

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// OperationType represents different types of database operations
type OperationType string

const (
	OpCreate OperationType = "create"
	OpUpdate OperationType = "update"
	OpDelete OperationType = "delete"
	OpFind   OperationType = "find"
	OpCount  OperationType = "count"
	OpQuery  OperationType = "query"
)

// MiddlewareContext contains information passed to middleware
type MiddlewareContext struct {
	Operation    OperationType
	TableName    string
	Query        string
	Args         []interface{}
	RowsAffected int64
	Error        error
	StartTime    time.Time
	Duration     time.Duration
	Context      context.Context
}

// QueryMiddlewareFunc runs one step of the chain
type QueryMiddlewareFunc func(ctx *MiddlewareContext) error

// QueryMiddleware wraps the next step of the chain
type QueryMiddleware func(next QueryMiddlewareFunc) QueryMiddlewareFunc

// Chain is an ordered list of middleware; the first added runs outermost.
type Chain struct {
	middleware []QueryMiddleware
}

// NewChain creates a chain from the given middleware
func NewChain(middleware ...QueryMiddleware) *Chain {
	return &Chain{middleware: middleware}
}

// Use appends middleware to the chain
func (c *Chain) Use(middleware QueryMiddleware) {
	c.middleware = append(c.middleware, middleware)
}

// Execute runs finalFunc wrapped in every middleware of the chain
func (c *Chain) Execute(ctx *MiddlewareContext, finalFunc QueryMiddlewareFunc) error {
	handler := finalFunc
	if c != nil {
		for i := len(c.middleware) - 1; i >= 0; i-- {
			handler = c.middleware[i](handler)
		}
	}
	return handler(ctx)
}

// Run builds the context for one statement on table and executes final
// through the chain. A nil chain runs final directly.
func (c *Chain) Run(ctx context.Context, op OperationType, table, query string, args []interface{}, final QueryMiddlewareFunc) error {
	mc := &MiddlewareContext{
		Operation: op,
		TableName: table,
		Query:     query,
		Args:      args,
		Context:   ctx,
		StartTime: time.Now(),
	}
	err := c.Execute(mc, final)
	mc.Error = err
	return err
}

// LoggingMiddleware logs every statement at debug level and failures at
// error level, with the elapsed time.
func LoggingMiddleware(log logrus.FieldLogger) QueryMiddleware {
	return func(next QueryMiddlewareFunc) QueryMiddlewareFunc {
		return func(ctx *MiddlewareContext) error {
			err := next(ctx)
			ctx.Duration = time.Since(ctx.StartTime)

			entry := log.WithFields(logrus.Fields{
				"op":       string(ctx.Operation),
				"table":    ctx.TableName,
				"duration": ctx.Duration.String(),
			})
			if err != nil {
				entry.WithError(err).WithField("sql", ctx.Query).Error("query failed")
				return err
			}
			entry.WithField("sql", ctx.Query).Debug("query executed")
			return nil
		}
	}
}

// SlowQueryMiddleware warns about statements that take longer than threshold.
func SlowQueryMiddleware(log logrus.FieldLogger, threshold time.Duration) QueryMiddleware {
	return func(next QueryMiddlewareFunc) QueryMiddlewareFunc {
		return func(ctx *MiddlewareContext) error {
			err := next(ctx)
			if elapsed := time.Since(ctx.StartTime); elapsed > threshold {
				log.WithFields(logrus.Fields{
					"op":       string(ctx.Operation),
					"table":    ctx.TableName,
					"duration": elapsed.String(),
				}).Warn("slow query")
			}
			return err
		}
	}
}
