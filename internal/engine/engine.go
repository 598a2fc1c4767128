// Package engine runs compiled sieve scripts against messages on behalf of
// a host: it caches scripts, evaluates batches of messages concurrently and
// records metrics.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	sieve "github.com/sieveworks/go-sieve"
	"github.com/sieveworks/go-sieve/interp"
	"github.com/sieveworks/go-sieve/internal/metrics"
)

var (
	ErrScriptNotFound = errors.New("script not found")
	ErrScriptTooLarge = errors.New("script too large")
)

type Options struct {
	Sieve sieve.Options
	// MaxScriptSize limits the size of compiled scripts. Zero means no
	// limit.
	MaxScriptSize int64
	// MaxScripts is the capacity of the script cache. Zero means no limit.
	MaxScripts int
	// Workers limits concurrent evaluations in EvaluateAll. Zero means
	// GOMAXPROCS.
	Workers int

	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Engine is safe for concurrent use.
type Engine struct {
	opts    Options
	reg     *interp.Registries
	cache   *scriptCache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(opts Options) (*Engine, error) {
	reg, err := sieve.NewRegistries(opts.Sieve)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		opts:    opts,
		reg:     reg,
		cache:   newScriptCache(opts.MaxScripts),
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
	if e.metrics == nil {
		e.metrics = metrics.New(prometheus.NewRegistry())
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.opts.Workers <= 0 {
		e.opts.Workers = runtime.GOMAXPROCS(0)
	}
	return e, nil
}

// Registries returns the registries shared by all scripts of the engine.
func (e *Engine) Registries() *interp.Registries {
	return e.reg
}

// Compile loads the script read from r and caches it under name, replacing
// any previous script of that name. If the cached script has the same
// source, it is returned without being loaded again.
func (e *Engine) Compile(name string, r io.Reader) (*interp.Script, error) {
	if e.opts.MaxScriptSize > 0 {
		r = io.LimitReader(r, e.opts.MaxScriptSize+1)
	}
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read script %s: %w", name, err)
	}
	if e.opts.MaxScriptSize > 0 && int64(len(src)) > e.opts.MaxScriptSize {
		e.metrics.ScriptsLoaded.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrScriptTooLarge, name, e.opts.MaxScriptSize)
	}

	hash := hashScript(src)
	if entry, ok := e.cache.get(name); ok && entry.hash == hash {
		return entry.script, nil
	}

	opts := e.opts.Sieve
	opts.Lexer.Filename = name
	script, err := sieve.LoadWith(bytes.NewReader(src), e.reg, opts)
	if err != nil {
		e.metrics.ScriptsLoaded.WithLabelValues("error").Inc()
		e.logger.Warn("script rejected", "script", name, "error", err)
		return nil, err
	}
	e.metrics.ScriptsLoaded.WithLabelValues("ok").Inc()
	e.logger.Debug("script loaded", "script", name, "extensions", script.Extensions())

	e.cache.put(name, &cacheEntry{script: script, hash: hash})
	e.metrics.CachedScripts.Set(float64(e.cache.size()))
	return script, nil
}

// Script returns the cached script of that name.
func (e *Engine) Script(name string) (*interp.Script, bool) {
	entry, ok := e.cache.get(name)
	if !ok {
		return nil, false
	}
	return entry.script, true
}

func (e *Engine) Remove(name string) bool {
	ok := e.cache.remove(name)
	e.metrics.CachedScripts.Set(float64(e.cache.size()))
	return ok
}

// Evaluate runs the named script against msg and returns the resulting
// actions. Nothing is executed.
func (e *Engine) Evaluate(ctx context.Context, name string, env interp.Envelope, msg interp.Message) (interp.ActionList, error) {
	script, ok := e.Script(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, name)
	}

	start := time.Now()
	actions, err := script.Evaluate(ctx, sieve.NewRuntimeData(script, env, msg))
	e.metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		e.metrics.Evaluations.WithLabelValues("error").Inc()
		return nil, err
	}

	e.metrics.Evaluations.WithLabelValues("ok").Inc()
	for _, a := range actions {
		e.metrics.Actions.WithLabelValues(a.ActionName()).Inc()
	}
	return actions, nil
}

// Result is the outcome of delivering one message.
type Result struct {
	ID      string
	Actions interp.ActionList
	// Fallback is set when the evaluation failed and the message was kept
	// instead.
	Fallback bool
	// Err is the evaluation or execution error, if any.
	Err error
}

// Deliver evaluates the named script and executes the resulting actions
// through exec. If the evaluation fails the message is kept, so a broken
// script never loses mail.
func (e *Engine) Deliver(ctx context.Context, id, name string, env interp.Envelope, msg interp.Message, exec interp.ActionExecutor) Result {
	res := Result{ID: id}

	actions, err := e.Evaluate(ctx, name, env, msg)
	if err != nil {
		if ctx.Err() != nil {
			res.Err = err
			return res
		}
		e.logger.Warn("evaluation failed, keeping message", "script", name, "message", id, "error", err)
		e.metrics.Evaluations.WithLabelValues("fallback").Inc()
		res.Fallback = true
		res.Err = err
		actions = interp.ActionList{interp.Keep{}}
	}
	res.Actions = actions

	e.logger.Info("message filtered", "script", name, "message", id, "actions", actions.String())
	if err := actions.Execute(ctx, exec); err != nil {
		var actionErr *interp.ActionError
		if errors.As(err, &actionErr) {
			e.metrics.ActionFailures.WithLabelValues(actionErr.Action.ActionName()).Inc()
		}
		e.logger.Error("action failed", "script", name, "message", id, "error", err)
		res.Err = errors.Join(res.Err, err)
	}
	return res
}

// Job is a message queued for EvaluateAll.
type Job struct {
	ID       string
	Envelope interp.Envelope
	Message  interp.Message
}

// EvaluateAll delivers every job through the named script, running up to
// Workers deliveries at once. Results are in job order. Per-message errors
// are reported in the results; the returned error is only set if the script
// does not exist or ctx is cancelled.
func (e *Engine) EvaluateAll(ctx context.Context, name string, jobs []Job, exec interp.ActionExecutor) ([]Result, error) {
	if _, ok := e.Script(name); !ok {
		return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, name)
	}

	results := make([]Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.Deliver(gctx, job.ID, name, job.Envelope, job.Message, exec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
