package extract

import (
	"fmt"
	"net/http"

	"routekit/pkg/httpx"
	"routekit/pkg/response"
)

// State yields a copy of the router's bound state. It never touches the
// request, so it works in either position.
type State[S any] struct {
	Value S
}

func (s *State[S]) FromParts(p *httpx.Parts) error {
	v, ok := p.State.(S)
	if !ok {
		// only reachable when a handler asks for a state type the router
		// was not built with
		return &response.Error{
			Status:  http.StatusInternalServerError,
			Code:    response.ErrCodeInternalError,
			Message: "internal error",
			Err:     fmt.Errorf("bound state is %T, handler wants %T", p.State, s.Value),
		}
	}
	s.Value = v
	return nil
}

func (s *State[S]) FromRequest(r *httpx.Request) error { return s.FromParts(r.Parts) }

func (s *State[S]) checkState(state any) error {
	if _, ok := state.(S); !ok {
		return fmt.Errorf("bound state is %T, handler wants %T", state, s.Value)
	}
	return nil
}

// stateChecker is implemented by extractors that read or contain a State.
type stateChecker interface {
	checkState(state any) error
}

// CheckState reports whether extractor x can be satisfied by state. It
// lets a router reject a mismatched handler when it is registered instead
// of failing every request. Extractors that ignore state always pass.
func CheckState(x any, state any) error {
	if c, ok := x.(stateChecker); ok {
		return c.checkState(state)
	}
	return nil
}
