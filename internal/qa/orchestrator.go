package qa

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jxeduyun/mathtutor/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Fixed user-facing answers for terminal short-circuits. Both are delivered
// as normal answers with empty related knowledge, never as transport errors.
const (
	NotReadyAnswer    = "系统初始化未完成，请稍后重试。"
	SystemErrorAnswer = "系统出现错误，请稍后重试。"
)

// KnowledgeLookup is the two-stage course/report search. A non-nil error
// marks a failed lookup, ok == false an empty result; the orchestrator falls
// back on either.
type KnowledgeLookup interface {
	FindCourse(ctx context.Context, query string) (CourseMatch, bool, error)
	FindReport(ctx context.Context, courseID, query string) (ReportMatch, bool, error)
}

// PromptBuilder assembles the mode-specific system prompts.
type PromptBuilder interface {
	KnowledgePrompt(keyPoints []string, templatePath string) (string, error)
	FallbackPrompt(question string, templatePath string) (string, error)
}

// CompletionGateway produces answers; it absorbs its own failures and always
// returns usable text or chunks.
type CompletionGateway interface {
	CompleteWithKnowledge(ctx context.Context, systemPrompt, question string) string
	CompleteFallback(ctx context.Context, systemPrompt, question string) string
	StreamWithKnowledge(ctx context.Context, systemPrompt, question string) <-chan string
	StreamFallback(ctx context.Context, systemPrompt, question string) <-chan string
}

// Deps is the explicit collaborator set, constructed once at startup and
// shared read-only across requests.
type Deps struct {
	Lookup      KnowledgeLookup
	Prompts     PromptBuilder
	Completions CompletionGateway
}

var qaTracer trace.Tracer = otel.Tracer("mathtutor/internal/qa")

// Orchestrator drives one question through normalization, the two lookups,
// prompt assembly and completion, deciding at each branch whether enough
// grounding exists to answer knowledge-first or must fall back.
type Orchestrator struct {
	deps    Deps
	logger  *log.Logger
	metrics *telemetry.Telemetry
}

func NewOrchestrator(deps Deps, logger *log.Logger, metrics *telemetry.Telemetry) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}
	return &Orchestrator{deps: deps, logger: logger, metrics: metrics}
}

func (o *Orchestrator) ready() bool {
	return o.deps.Lookup != nil && o.deps.Prompts != nil && o.deps.Completions != nil
}

// answerPlan is the resolved branch decision: which completion mode to run,
// with what system prompt, and which citations accompany the answer.
type answerPlan struct {
	question     string
	knowledge    bool
	systemPrompt string
	related      []RelatedKnowledgeItem
}

func (p answerPlan) path() string {
	if p.knowledge {
		return telemetry.PathKnowledge
	}
	return telemetry.PathFallback
}

// Handle answers one question synchronously. It never returns an error:
// every failure mode collapses into a well-formed ChatResponse.
func (o *Orchestrator) Handle(ctx context.Context, topic, question string, paths PromptPaths) (resp ChatResponse) {
	start := time.Now()
	requestID := uuid.NewString()
	ctx, span := qaTracer.Start(ctx, "qa.handle", trace.WithAttributes(
		attribute.String("topic", topic),
		attribute.String("request_id", requestID),
	))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Printf("[%s] panic while handling question: %v", requestID, r)
			resp = ChatResponse{Answer: SystemErrorAnswer, RelatedKnowledge: []RelatedKnowledgeItem{}}
			o.metrics.ObserveRequest(topic, telemetry.PathError, time.Since(start))
		}
	}()

	if !o.ready() {
		o.logger.Printf("[%s] collaborators not registered, returning not-ready answer", requestID)
		o.metrics.ObserveRequest(topic, telemetry.PathNotReady, time.Since(start))
		return ChatResponse{Answer: NotReadyAnswer, RelatedKnowledge: []RelatedKnowledgeItem{}}
	}

	plan := o.resolve(ctx, requestID, question, paths)

	completionStart := time.Now()
	var answer string
	if plan.knowledge {
		answer = o.deps.Completions.CompleteWithKnowledge(ctx, plan.systemPrompt, plan.question)
	} else {
		answer = o.deps.Completions.CompleteFallback(ctx, plan.systemPrompt, plan.question)
	}
	o.metrics.ObserveStage("completion", time.Since(completionStart))

	o.logger.Printf("[%s] handled on %s path in %.2fs", requestID, plan.path(), time.Since(start).Seconds())
	o.metrics.ObserveRequest(topic, plan.path(), time.Since(start))
	return ChatResponse{Answer: answer, RelatedKnowledge: plan.related}
}

// HandleStream answers one question as a lazy event sequence: zero or more
// answer_chunk events, then exactly one complete or error event. It stops
// emitting promptly when the caller's context is cancelled.
func (o *Orchestrator) HandleStream(ctx context.Context, topic, question string, paths PromptPaths) <-chan Event {
	events := make(chan Event)
	go func() {
		start := time.Now()
		requestID := uuid.NewString()
		ctx, span := qaTracer.Start(ctx, "qa.handle_stream", trace.WithAttributes(
			attribute.String("topic", topic),
			attribute.String("request_id", requestID),
		))
		defer span.End()
		defer close(events)
		defer func() {
			if r := recover(); r != nil {
				o.logger.Printf("[%s] panic while streaming answer: %v", requestID, r)
				o.emit(ctx, events, Event{Type: EventError, Data: SystemErrorAnswer})
				o.metrics.ObserveRequest(topic, telemetry.PathError, time.Since(start))
			}
		}()

		if !o.ready() {
			o.logger.Printf("[%s] collaborators not registered, streaming not-ready answer", requestID)
			if !o.emit(ctx, events, Event{Type: EventAnswerChunk, Data: NotReadyAnswer}) {
				return
			}
			o.emit(ctx, events, Event{Type: EventComplete, Data: []RelatedKnowledgeItem{}})
			o.metrics.ObserveRequest(topic, telemetry.PathNotReady, time.Since(start))
			return
		}

		plan := o.resolve(ctx, requestID, question, paths)

		var chunks <-chan string
		if plan.knowledge {
			chunks = o.deps.Completions.StreamWithKnowledge(ctx, plan.systemPrompt, plan.question)
		} else {
			chunks = o.deps.Completions.StreamFallback(ctx, plan.systemPrompt, plan.question)
		}
		for chunk := range chunks {
			if !o.emit(ctx, events, Event{Type: EventAnswerChunk, Data: chunk}) {
				return
			}
			o.metrics.RecordStreamChunk()
		}
		if ctx.Err() != nil {
			// Caller disconnected; no terminal event is owed.
			return
		}
		o.emit(ctx, events, Event{Type: EventComplete, Data: plan.related})
		o.logger.Printf("[%s] streamed on %s path in %.2fs", requestID, plan.path(), time.Since(start).Seconds())
		o.metrics.ObserveRequest(topic, plan.path(), time.Since(start))
	}()
	return events
}

func (o *Orchestrator) emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// resolve walks the lookup branches and decides the answer plan. Course
// lookup must finish before report lookup, but the fallback prompt is
// assembled concurrently with the report lookup since it does not depend on
// the lookup's outcome; its result is discarded when the knowledge branch
// wins.
func (o *Orchestrator) resolve(ctx context.Context, requestID, raw string, paths PromptPaths) answerPlan {
	question := Normalize(raw)
	plan := answerPlan{question: question, related: []RelatedKnowledgeItem{}}

	ctx, span := qaTracer.Start(ctx, "qa.resolve")
	defer span.End()

	courseStart := time.Now()
	course, courseOK, err := o.deps.Lookup.FindCourse(ctx, question)
	o.metrics.ObserveStage("course_lookup", time.Since(courseStart))
	if err != nil {
		o.logger.Printf("[%s] course lookup failed: %v", requestID, err)
		o.metrics.RecordLookupMiss("courses", "error")
	} else if !courseOK {
		o.metrics.RecordLookupMiss("courses", "empty")
	}
	if err != nil || !courseOK {
		plan.systemPrompt = o.fallbackPrompt(requestID, question, paths)
		return plan
	}

	type reportResult struct {
		report ReportMatch
		ok     bool
		err    error
	}
	reportCh := make(chan reportResult, 1)
	reportStart := time.Now()
	go func() {
		// The recover in Handle/HandleStream only guards their own
		// goroutine; a panicking lookup here must surface as a lookup
		// error, not kill the process. The channel is buffered so this
		// send never blocks.
		defer func() {
			if r := recover(); r != nil {
				reportCh <- reportResult{err: fmt.Errorf("report lookup panic: %v", r)}
			}
		}()
		r, ok, err := o.deps.Lookup.FindReport(ctx, course.CourseUUID, question)
		reportCh <- reportResult{report: r, ok: ok, err: err}
	}()
	fallbackPrompt := o.fallbackPrompt(requestID, question, paths)
	res := <-reportCh
	o.metrics.ObserveStage("report_lookup", time.Since(reportStart))

	if res.err != nil {
		o.logger.Printf("[%s] report lookup failed: %v", requestID, res.err)
		o.metrics.RecordLookupMiss("reports", "error")
	} else if !res.ok {
		o.metrics.RecordLookupMiss("reports", "empty")
	}
	if res.err != nil || !res.ok {
		// Course metadata is never surfaced without an accompanying report.
		plan.systemPrompt = fallbackPrompt
		return plan
	}

	systemPrompt, err := o.deps.Prompts.KnowledgePrompt(res.report.KeyPoints, paths.Knowledge)
	if err != nil {
		o.logger.Printf("[%s] knowledge prompt assembly failed, falling back: %v", requestID, err)
		plan.systemPrompt = fallbackPrompt
		return plan
	}

	plan.knowledge = true
	plan.systemPrompt = systemPrompt
	plan.related = []RelatedKnowledgeItem{{
		ResourceName: course.ResourceName,
		FileName:     course.FileName,
		VideoLink:    course.VideoLink,
		VideoSummary: course.VideoSummary,
		StartTime:    res.report.StartTime,
		EndTime:      res.report.EndTime,
		Duration:     res.report.Duration,
	}}
	return plan
}

// fallbackPrompt assembles the context-free prompt, degrading to the built-in
// default template when the topic's file template is malformed.
func (o *Orchestrator) fallbackPrompt(requestID, question string, paths PromptPaths) string {
	p, err := o.deps.Prompts.FallbackPrompt(question, paths.Fallback)
	if err != nil {
		o.logger.Printf("[%s] fallback prompt assembly failed, using default: %v", requestID, err)
		p, _ = o.deps.Prompts.FallbackPrompt(question, "")
	}
	return p
}
