// Package fallback runs one search through an explicit state machine. Every
// failure has a defined weaker successor, ending at the deterministic
// rule-based extractor, so a search never escapes this package as an error:
// it always yields at least one record or a well-formed empty outcome.
package fallback

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/convocatorias-pro/search-service/internal/invoker"
	"github.com/convocatorias-pro/search-service/internal/model"
	"github.com/convocatorias-pro/search-service/internal/parser"
	"github.com/convocatorias-pro/search-service/internal/prompt"
	"github.com/convocatorias-pro/search-service/internal/rulebased"
	"github.com/convocatorias-pro/search-service/internal/validate"
)

// State names one node of the fallback chain.
type State string

const (
	StatePromptList   State = "prompt_list"
	StatePromptDetail State = "prompt_detail"
	StateSingleStep   State = "single_step"
	StateValidate     State = "validate"
	StateStep1AsFinal State = "step1_as_final"
	StateRuleBased    State = "rule_based"
	StateDone         State = "done"
)

// ModelInvoker is the slice of the invoker the orchestrator needs.
type ModelInvoker interface {
	Invoke(ctx context.Context, ref invoker.ModelRef, p prompt.Prompt) (string, error)
}

// Plan fixes the models for one search before the chain starts.
type Plan struct {
	// TwoStep selects the list+detail flow; otherwise a single call asks
	// for the full schema at once.
	TwoStep bool

	// ListModel answers the step-1 list call (fast tier).
	ListModel invoker.ModelRef
	// DetailModel answers the detail or single-step call (strong tier).
	DetailModel invoker.ModelRef
	// SecondaryModel substitutes for DetailModel after its first failure.
	// The substitution happens at most once per search.
	SecondaryModel invoker.ModelRef
}

// Outcome is the terminal result of one chain run.
type Outcome struct {
	Records    []model.Convocatoria
	Method     model.ExtractionMethod
	FinalState State
	ModelsUsed []string
	Rejected   int
}

// runState is the per-search scratchpad. It lives for exactly one Run call;
// the orchestrator itself holds no cross-call state.
type runState struct {
	query model.Query
	scope model.GeographicScope
	plan  Plan

	step1Raw      string
	raw           string
	secondaryUsed bool

	validated  []model.Convocatoria
	method     model.ExtractionMethod
	modelsUsed []string
	rejected   int
}

func (rs *runState) usedModel(ref invoker.ModelRef) {
	rs.modelsUsed = append(rs.modelsUsed, ref.Provider+"/"+ref.ID)
}

// Orchestrator wires the pipeline stages into the chain.
type Orchestrator struct {
	builder   *prompt.Builder
	invoker   ModelInvoker
	validator *validate.Validator
}

// New builds an orchestrator.
func New(builder *prompt.Builder, inv ModelInvoker, validator *validate.Validator) *Orchestrator {
	return &Orchestrator{builder: builder, invoker: inv, validator: validator}
}

// Run executes the chain for one search. Cancellation is the caller's ctx;
// a canceled context fails the pending model call and the chain degrades to
// the rule-based terminal like any other failure.
func (o *Orchestrator) Run(ctx context.Context, q model.Query, sc model.GeographicScope, plan Plan) Outcome {
	rs := &runState{query: q, scope: sc, plan: plan}

	state := StateSingleStep
	if plan.TwoStep {
		state = StatePromptList
	}

	for state != StateDone {
		next := o.step(ctx, state, rs)
		zap.L().Debug("fallback transition",
			zap.String("from", string(state)),
			zap.String("to", string(next)),
		)
		state = next
	}

	return Outcome{
		Records:    rs.validated,
		Method:     rs.method,
		FinalState: StateDone,
		ModelsUsed: rs.modelsUsed,
		Rejected:   rs.rejected,
	}
}

// step runs one state and returns its successor.
func (o *Orchestrator) step(ctx context.Context, state State, rs *runState) State {
	switch state {
	case StatePromptList:
		return o.promptList(ctx, rs)
	case StatePromptDetail:
		return o.promptDetail(ctx, rs)
	case StateSingleStep:
		return o.singleStep(ctx, rs)
	case StateValidate:
		return o.validate(rs)
	case StateStep1AsFinal:
		return o.step1AsFinal(rs)
	case StateRuleBased:
		return o.ruleBased(rs)
	}
	return StateDone
}

func (o *Orchestrator) promptList(ctx context.Context, rs *runState) State {
	p, err := o.builder.Build(rs.query, rs.scope, prompt.StepList, "")
	if err != nil {
		return StateRuleBased
	}
	text, err := o.invoker.Invoke(ctx, rs.plan.ListModel, p)
	rs.usedModel(rs.plan.ListModel)
	if err != nil {
		return StateRuleBased
	}
	rs.step1Raw = text
	return StatePromptDetail
}

func (o *Orchestrator) promptDetail(ctx context.Context, rs *runState) State {
	p, err := o.builder.Build(rs.query, rs.scope, prompt.StepDetail, rs.step1Raw)
	if err != nil {
		return StateStep1AsFinal
	}

	ref := rs.plan.DetailModel
	if rs.secondaryUsed {
		ref = rs.plan.SecondaryModel
	}
	text, err := o.invoker.Invoke(ctx, ref, p)
	rs.usedModel(ref)
	if err != nil {
		if !rs.secondaryUsed {
			rs.secondaryUsed = true
			zap.L().Info("detail model failed, substituting secondary",
				zap.String("primary", rs.plan.DetailModel.ID),
				zap.String("secondary", rs.plan.SecondaryModel.ID),
			)
			return StatePromptDetail
		}
		return StateStep1AsFinal
	}
	rs.raw = text
	rs.method = model.MethodTwoStep
	return StateValidate
}

func (o *Orchestrator) singleStep(ctx context.Context, rs *runState) State {
	p, err := o.builder.Build(rs.query, rs.scope, prompt.StepSingle, "")
	if err != nil {
		return StateRuleBased
	}
	text, err := o.invoker.Invoke(ctx, rs.plan.DetailModel, p)
	rs.usedModel(rs.plan.DetailModel)
	if err != nil {
		return StateRuleBased
	}
	rs.raw = text
	rs.method = model.MethodSingleStep
	return StateValidate
}

func (o *Orchestrator) validate(rs *runState) State {
	candidates := parser.Parse(rs.raw, rs.query.Text)

	validated := make([]model.Convocatoria, 0, len(candidates))
	for _, cand := range candidates {
		rec, err := o.validator.Validate(cand)
		if err != nil {
			rs.rejected++
			zap.L().Info("candidate rejected", zap.String("title", cand.Title), zap.Error(err))
			continue
		}
		rec.Method = rs.method
		rec.ReliabilityScore = validate.Score(rec, rs.method)
		validated = append(validated, rec)
	}

	if len(validated) == 0 {
		return StateRuleBased
	}
	rs.validated = validated
	return StateDone
}

// step1AsFinal turns step 1's raw "nombre | organismo" list into minimal
// records when the detail step is unrecoverable.
func (o *Orchestrator) step1AsFinal(rs *runState) State {
	records := parseListOutput(rs.step1Raw)
	if len(records) == 0 {
		return StateRuleBased
	}
	for i := range records {
		records[i].Method = model.MethodStep1Only
		records[i].ReliabilityScore = validate.Score(records[i], model.MethodStep1Only)
	}
	rs.validated = records
	rs.method = model.MethodStep1Only
	return StateDone
}

func (o *Orchestrator) ruleBased(rs *runState) State {
	raw := rs.raw
	if raw == "" {
		raw = rs.step1Raw
	}
	rs.validated = rulebased.Extract(raw, rs.query)
	rs.method = model.MethodRuleBased
	if len(rs.validated) == 1 && rs.validated[0].Method == model.MethodSynthetic {
		rs.method = model.MethodSynthetic
	}
	return StateDone
}

const maxListRecords = 10

// parseListOutput reads the relaxed step-1 format: one "nombre | organismo"
// pair per line.
func parseListOutput(raw string) []model.Convocatoria {
	var records []model.Convocatoria
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.Trim(line, "-*•\t "))
		if line == "" {
			continue
		}
		name, org := line, ""
		if i := strings.Index(line, "|"); i >= 0 {
			name = strings.TrimSpace(line[:i])
			org = strings.TrimSpace(line[i+1:])
		}
		if name == "" {
			continue
		}
		records = append(records, model.Convocatoria{
			Title:        name,
			Organization: org,
			Description:  model.SentinelDescription,
			Amount:       model.SentinelAmount,
			Deadline:     model.SentinelDeadline,
			Requirements: model.SentinelRequirements,
			Category:     model.SentinelCategory,
			Status:       model.SentinelStatus,
			Notes:        model.ExtractionNotes{Status: model.NoteUnverified},
		})
		if len(records) == maxListRecords {
			break
		}
	}
	return records
}
