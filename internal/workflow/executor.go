package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/common/logger"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
)

// ErrTransitionUnavailable is returned when a step's action is not offered
// by the issue tracker at the time it is due.
var ErrTransitionUnavailable = errors.New("transition not available")

// TransitionSource is the part of the issue tracker the executor needs.
type TransitionSource interface {
	ListTransitions(ctx context.Context, key string) ([]model.Transition, error)
	ApplyTransition(ctx context.Context, key, transitionID string) error
}

type OutcomeKind int

const (
	OutcomeTransitioned OutcomeKind = iota
	OutcomeAlreadyAtTarget
	OutcomeNoPath
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeTransitioned:
		return "transitioned"
	case OutcomeAlreadyAtTarget:
		return "already_at_target"
	default:
		return "no_path"
	}
}

// Outcome describes what Transition did. Applied counts the steps that were
// executed, which may be less than len(Path) when an error is returned.
type Outcome struct {
	Kind    OutcomeKind
	Path    Path
	Applied int
	Status  string
}

func (o Outcome) Changed() bool {
	return o.Kind == OutcomeTransitioned && o.Applied > 0
}

// StepError reports the step at which execution stopped.
type StepError struct {
	Key     string
	Step    Edge
	Index   int
	Offered []string
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step %d (%s -> %s via %q): %v", e.Key, e.Index+1, e.Step.From, e.Step.To, e.Step.Action, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

type Executor struct {
	source TransitionSource
}

func NewExecutor(source TransitionSource) *Executor {
	return &Executor{source: source}
}

// Transition moves the issue to target along its type's graph.
//
// Offered transitions are refetched before every step because applying a
// transition changes what the tracker offers next. A missing action aborts
// the remaining steps; already-applied steps are not rolled back.
func (x *Executor) Transition(ctx context.Context, issue model.Issue, target string) (Outcome, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		TicketKey: &issue.Key,
		Component: "updater.workflow.executor",
	})

	graph := GraphForType(issue.Type)
	path, ok := Resolve(issue.Status, target, graph)
	if !ok {
		slog.WarnContext(ctx, "no transition path",
			"from", issue.Status,
			"to", target,
			"class", graph.Class().String())
		return Outcome{Kind: OutcomeNoPath, Status: issue.Status}, nil
	}
	if len(path) == 0 {
		return Outcome{Kind: OutcomeAlreadyAtTarget, Status: issue.Status}, nil
	}

	slog.InfoContext(ctx, "resolved transition path",
		"from", issue.Status,
		"to", target,
		"actions", path.Actions())

	out := Outcome{Kind: OutcomeTransitioned, Path: path, Status: issue.Status}
	for i, step := range path {
		offered, err := x.source.ListTransitions(ctx, issue.Key)
		if err != nil {
			return out, &StepError{Key: issue.Key, Step: step, Index: i, Err: fmt.Errorf("listing transitions: %w", err)}
		}

		id, names := match(offered, step.Action)
		if id == "" {
			slog.ErrorContext(ctx, "transition not offered, aborting",
				"action", step.Action,
				"offered", names,
				"applied", out.Applied)
			return out, &StepError{Key: issue.Key, Step: step, Index: i, Offered: names, Err: ErrTransitionUnavailable}
		}

		if err := x.source.ApplyTransition(ctx, issue.Key, id); err != nil {
			return out, &StepError{Key: issue.Key, Step: step, Index: i, Offered: names, Err: fmt.Errorf("applying transition: %w", err)}
		}

		out.Applied++
		out.Status = step.To
		slog.InfoContext(ctx, "transition applied",
			"action", step.Action,
			"status", step.To)
	}

	return out, nil
}

func match(offered []model.Transition, action string) (string, []string) {
	names := make([]string, 0, len(offered))
	id := ""
	for _, t := range offered {
		names = append(names, t.Name)
		if id == "" && strings.EqualFold(t.Name, action) {
			id = t.ID
		}
	}
	return id, names
}
