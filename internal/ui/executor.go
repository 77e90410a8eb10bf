package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/soyeahso/caselink/internal/action"
	"github.com/soyeahso/caselink/internal/logging"
	"github.com/soyeahso/caselink/internal/store"
)

// EvidenceFetcher loads the read-only evidence summary for persons.
type EvidenceFetcher interface {
	EvidenceCard(ctx context.Context, personIDs []string) (*store.EvidenceCard, error)
}

// Result is the outcome of applying one turn's actions.
type Result struct {
	State State
	// Applied holds the actions in the order they ran, including a
	// synthesized fallback.
	Applied  []action.Action
	Fallback bool
	// Errors collects evidence fetch failures. They do not stop later
	// actions.
	Errors []error
}

// Executor applies validated actions to a State.
type Executor struct {
	evidence EvidenceFetcher
	log      *logging.Logger
}

// NewExecutor creates an executor. evidence may be nil, in which case
// evidence card actions only navigate.
func NewExecutor(evidence EvidenceFetcher, log *logging.Logger) *Executor {
	return &Executor{evidence: evidence, log: log.Sub("ui")}
}

// Apply runs actions against a copy of state in order. When actions is
// empty, the fallback heuristic is tried on answer.
func (e *Executor) Apply(ctx context.Context, state State, actions []action.Action, answer string) Result {
	res := Result{State: state.Clone()}

	if len(actions) == 0 {
		actions = Fallback(answer, res.State.Params)
		res.Fallback = len(actions) > 0
		if res.Fallback {
			e.log.Debug().Str("answer", answer).Msg("applying fallback action")
		}
	}

	for _, a := range actions {
		if err := e.apply(ctx, &res.State, a); err != nil {
			e.log.Warn().Err(err).Str("type", string(a.Type())).Msg("action failed")
			res.Errors = append(res.Errors, err)
		}
		res.Applied = append(res.Applied, a)
	}
	return res
}

func (e *Executor) apply(ctx context.Context, s *State, a action.Action) error {
	switch a := a.(type) {
	case action.Navigate:
		navigate(s, a.Path, a.SearchParams)
	case action.SetSearchParams:
		for k, v := range a.SearchParams {
			if v == nil {
				delete(s.Params, k)
				continue
			}
			if s.Params == nil {
				s.Params = map[string]string{}
			}
			s.Params[k] = *v
		}
	case action.SelectEntities:
		s.Selected = append([]string(nil), a.EntityIDs...)
	case action.GenerateEvidenceCard:
		var err error
		if e.evidence != nil {
			card, ferr := e.evidence.EvidenceCard(ctx, a.PersonIDs)
			if ferr != nil {
				err = fmt.Errorf("evidence card: %w", ferr)
			} else {
				s.Evidence = card
			}
		}
		if a.NavigateToEvidenceCard != nil && *a.NavigateToEvidenceCard {
			navigate(s, "/evidence-card", map[string]string{"entity_ids": strings.Join(a.PersonIDs, ",")})
		}
		return err
	case action.FocusLinkedSuspects:
		s.Focused = append([]string(nil), a.EntityIDs...)
		navigate(s, "/graph-explorer", map[string]string{"entity_ids": strings.Join(a.EntityIDs, ",")})
	default:
		return fmt.Errorf("unsupported action %T", a)
	}
	return nil
}

// navigate moves to path. Staying on the same path merges params into the
// current query; a new path starts from params alone.
func navigate(s *State, path string, params map[string]string) {
	if path != s.Path {
		s.Path = path
		s.Params = nil
	}
	for k, v := range params {
		if s.Params == nil {
			s.Params = map[string]string{}
		}
		s.Params[k] = v
	}
}
