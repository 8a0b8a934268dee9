package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/askdb/askdb/internal/execgate"
	"github.com/askdb/askdb/internal/guardrail"
	"github.com/askdb/askdb/internal/history"
	"github.com/askdb/askdb/internal/nlq"
	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/rbac"
	"github.com/askdb/askdb/internal/redact"
	"github.com/askdb/askdb/internal/sqlcheck"
)

type Stage string

const (
	StageGuardrail Stage = "guardrail"
	StageScope     Stage = "scope"
	StageIntent    Stage = "intent"
	StageContext   Stage = "context"
	StageGenerate  Stage = "generate"
	StageValidate  Stage = "validate"
	StageExecute   Stage = "execute"
	StageFormat    Stage = "format"
	StageDone      Stage = "done"
)

// Denial and failure messages are fixed. They never name a resource,
// a reason detail, or anything derived from the rejected input.
const (
	accessDeniedMessage = "You do not have access to the data needed to answer this question."
	failureMessage      = "I could not answer this question. Please try again or contact support with reference "
)

type Request struct {
	SessionID string
	Principal rbac.Principal
	Question  string
}

type Outcome struct {
	Answer   string
	SQLQuery string
	Rejected bool
	Stage    Stage
	Reason   string
}

type Config struct {
	GenerateTimeout time.Duration
	HistoryWindow   int
	RowLimit        int
}

// Pipeline sequences one question through guardrail, scope, and the six
// processing stages. A Pipeline is stateless across requests and safe for
// concurrent use; every run is independent.
type Pipeline struct {
	cfg        Config
	classifier *guardrail.Classifier
	checker    *rbac.Checker
	contexts   nlq.ContextProvider
	generator  *nlq.Generator
	engine     execgate.Engine
	store      history.Store
	logger     *slog.Logger
}

func New(cfg Config, classifier *guardrail.Classifier, checker *rbac.Checker, contexts nlq.ContextProvider, generator *nlq.Generator, engine execgate.Engine, store history.Store, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		classifier: classifier,
		checker:    checker,
		contexts:   contexts,
		generator:  generator,
		engine:     engine,
		store:      store,
		logger:     logger,
	}
}

// Run executes one request to a terminal state. Transitions are forward
// only; the first rejection ends the run. Cancellation is honored at stage
// boundaries, never mid-stage.
func (p *Pipeline) Run(ctx context.Context, req Request) Outcome {
	logger := observability.WithTrace(ctx, p.logger).With(
		"session_id", req.SessionID,
		"principal_id", req.Principal.ID,
	)

	verdict := p.classifier.Classify(req.Question)
	if !verdict.Allowed {
		logger.Info("question rejected by guardrail", "category", string(verdict.Category))
		observability.ObserveGuardrailRejection(string(verdict.Category))
		return p.reject(StageGuardrail, string(verdict.Category), guardrail.Message(verdict.Category))
	}

	scope := p.checker.ResolveScope(req.Principal)
	if scope.IsEmpty() {
		logger.Warn("principal has empty scope")
		observability.ObserveScopeViolation(1)
		return p.reject(StageScope, "empty_scope", accessDeniedMessage)
	}
	if err := p.checker.PreCheck(req.Question, scope); err != nil {
		logViolation(logger, err)
		return p.reject(StageScope, "scope_violation", accessDeniedMessage)
	}

	if err := ctx.Err(); err != nil {
		return p.reject(StageIntent, "cancelled", p.failure(ctx))
	}
	question, outcome, ok := p.resolveIntent(ctx, req, logger)
	if !ok {
		return outcome
	}

	if err := ctx.Err(); err != nil {
		return p.reject(StageContext, "cancelled", p.failure(ctx))
	}
	schemaContext, err := p.contexts.SchemaContext(ctx, question, scope.Names())
	if err != nil {
		logger.Error("schema context lookup failed", "error", err)
		return p.reject(StageContext, "upstream_failure", p.failure(ctx))
	}

	if err := ctx.Err(); err != nil {
		return p.reject(StageGenerate, "cancelled", p.failure(ctx))
	}
	modelOutput, outcome, ok := p.generate(ctx, question, schemaContext, scope, logger)
	if !ok {
		return outcome
	}

	if err := ctx.Err(); err != nil {
		return p.reject(StageValidate, "cancelled", p.failure(ctx))
	}
	query, outcome, ok := p.validate(ctx, modelOutput, scope, logger)
	if !ok {
		return outcome
	}

	if err := ctx.Err(); err != nil {
		return p.reject(StageExecute, "cancelled", p.failure(ctx))
	}
	result, err := p.engine.Execute(ctx, execgate.Request{SQL: query, RowLimit: p.cfg.RowLimit})
	if err != nil {
		var gateErr *execgate.Error
		kind := execgate.KindMalformed
		if errors.As(err, &gateErr) {
			kind = gateErr.Kind
		}
		logger.Error("query execution failed", "kind", string(kind), "error", err)
		return p.reject(StageExecute, string(kind), p.failure(ctx))
	}
	observability.ObserveQueryExecution(result.Duration)

	if err := ctx.Err(); err != nil {
		return p.reject(StageFormat, "cancelled", p.failure(ctx))
	}
	answer, err := p.generator.FormatAnswer(ctx, question, result)
	if err != nil {
		logger.Error("answer formatting failed", "error", err)
		return p.reject(StageFormat, "upstream_failure", p.failure(ctx))
	}
	answer = redact.MaskSensitive(answer)

	if err := p.store.Append(ctx, history.Turn{
		SessionID:   req.SessionID,
		PrincipalID: req.Principal.ID,
		Question:    req.Question,
		Answer:      answer,
		SQLQuery:    query,
	}); err != nil {
		// The answer is already computed; losing one history turn is
		// preferable to failing the whole run.
		logger.Error("history append failed", "error", err)
	}

	observability.ObservePipelineRun(string(StageDone), false)
	return Outcome{Answer: answer, SQLQuery: query, Stage: StageDone}
}

func (p *Pipeline) resolveIntent(ctx context.Context, req Request, logger *slog.Logger) (string, Outcome, bool) {
	recent, err := p.store.Recent(ctx, req.SessionID, p.cfg.HistoryWindow)
	if err != nil {
		// Intent resolution degrades to the literal question.
		logger.Error("history read failed", "error", err)
		recent = nil
	}

	intentCtx, cancel := p.modelContext(ctx)
	defer cancel()
	question, err := p.generator.ResolveIntent(intentCtx, req.Question, recent)
	if err != nil {
		logger.Error("intent resolution failed", "error", err)
		return "", p.reject(StageIntent, reasonForModelError(err), p.failure(ctx)), false
	}
	return question, Outcome{}, true
}

func (p *Pipeline) generate(ctx context.Context, question, schemaContext string, scope rbac.Scope, logger *slog.Logger) (string, Outcome, bool) {
	generateCtx, cancel := p.modelContext(ctx)
	defer cancel()

	start := time.Now()
	modelOutput, err := p.generator.Generate(generateCtx, question, schemaContext, scope)
	observability.ObserveGeneration(time.Since(start))
	if err != nil {
		logger.Error("query generation failed", "error", err)
		return "", p.reject(StageGenerate, reasonForModelError(err), p.failure(ctx)), false
	}
	return modelOutput, Outcome{}, true
}

func (p *Pipeline) validate(_ context.Context, modelOutput string, scope rbac.Scope, logger *slog.Logger) (string, Outcome, bool) {
	if err := p.checker.PostCheck(modelOutput, scope); err != nil {
		logViolation(logger, err)
		return "", p.reject(StageValidate, "scope_violation", accessDeniedMessage), false
	}

	query, ok := sqlcheck.Extract(modelOutput)
	if !ok {
		logger.Warn("no query found in model output")
		return "", p.reject(StageValidate, string(sqlcheck.ReasonMalformed), guardrail.Message(guardrail.CategoryOffTopic)), false
	}

	if injection := p.classifier.CheckInjection(query); !injection.Allowed {
		logger.Warn("generated query rejected by guardrail", "category", string(injection.Category))
		observability.ObserveGuardrailRejection(string(injection.Category))
		return "", p.reject(StageValidate, string(injection.Category), guardrail.Message(injection.Category)), false
	}

	verdict, violation := sqlcheck.Validate(query, scope)
	if violation != nil {
		logger.Warn("scope violation", "layer", violation.Layer, "resource", violation.Resource)
		observability.ObserveScopeViolation(violation.Layer)
		return "", p.reject(StageValidate, string(verdict.Reason), accessDeniedMessage), false
	}
	if !verdict.Accepted {
		logger.Warn("query rejected by validator", "reason", string(verdict.Reason))
		message := guardrail.Message(guardrail.CategoryInjection)
		if verdict.Reason == sqlcheck.ReasonMalformed {
			message = guardrail.Message(guardrail.CategoryOffTopic)
		}
		return "", p.reject(StageValidate, string(verdict.Reason), message), false
	}
	return verdict.Query, Outcome{}, true
}

func (p *Pipeline) modelContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.GenerateTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.cfg.GenerateTimeout)
}

func (p *Pipeline) reject(stage Stage, reason, message string) Outcome {
	observability.ObservePipelineRun(string(stage), true)
	return Outcome{Answer: message, Rejected: true, Stage: stage, Reason: reason}
}

func (p *Pipeline) failure(ctx context.Context) string {
	return failureMessage + observability.TraceIDFromContext(ctx) + "."
}

func logViolation(logger *slog.Logger, err error) {
	var violation *rbac.Violation
	if errors.As(err, &violation) {
		logger.Warn("scope violation", "layer", violation.Layer, "resource", violation.Resource)
		observability.ObserveScopeViolation(violation.Layer)
		return
	}
	logger.Warn("scope violation", "error", err)
}

func reasonForModelError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "upstream_failure"
}
