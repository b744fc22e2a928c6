// Package extract turns requests into typed handler arguments.
//
// Two capabilities exist. A parts extractor reads only method, path,
// query and headers and may appear in any position. A request extractor
// may consume the body; a handler has at most one and it must be the last
// argument. Composition always inspects a clone of the parts first and
// hands the intact request to the final extractor afterwards.
package extract

import (
	"errors"

	"routekit/pkg/httpx"
	"routekit/pkg/response"
)

// FromParts derives a value from the non-body portion of a request.
type FromParts interface {
	FromParts(p *httpx.Parts) error
}

// FromRequest derives a value from the full request and may consume the body.
type FromRequest interface {
	FromRequest(r *httpx.Request) error
}

// Run1 runs a single request extractor.
func Run1[T any, PT interface {
	*T
	FromRequest
}](r *httpx.Request) (T, error) {
	var v T
	if err := PT(&v).FromRequest(r); err != nil {
		return v, rejection(err)
	}
	return v, nil
}

// Run2 extracts A from a clone of the parts, then B from the full request.
func Run2[A, B any, PA interface {
	*A
	FromParts
}, PB interface {
	*B
	FromRequest
}](r *httpx.Request) (A, B, error) {
	var (
		a A
		b B
	)
	if err := PA(&a).FromParts(r.Parts.Clone()); err != nil {
		return a, b, rejection(err)
	}
	if err := PB(&b).FromRequest(r); err != nil {
		return a, b, rejection(err)
	}
	return a, b, nil
}

// Run3 extracts A and B from independent clones of the parts, then C from
// the full request.
func Run3[A, B, C any, PA interface {
	*A
	FromParts
}, PB interface {
	*B
	FromParts
}, PC interface {
	*C
	FromRequest
}](r *httpx.Request) (A, B, C, error) {
	var (
		a A
		b B
		c C
	)
	if err := PA(&a).FromParts(r.Parts.Clone()); err != nil {
		return a, b, c, rejection(err)
	}
	if err := PB(&b).FromParts(r.Parts.Clone()); err != nil {
		return a, b, c, rejection(err)
	}
	if err := PC(&c).FromRequest(r); err != nil {
		return a, b, c, rejection(err)
	}
	return a, b, c, nil
}

// Pair is the two-element sequence extractor.
type Pair[A, B any, PA interface {
	*A
	FromParts
}, PB interface {
	*B
	FromRequest
}] struct {
	First  A
	Second B
}

func (p *Pair[A, B, PA, PB]) FromRequest(r *httpx.Request) error {
	a, b, err := Run2[A, B, PA, PB](r)
	if err != nil {
		return err
	}
	p.First, p.Second = a, b
	return nil
}

func (p *Pair[A, B, PA, PB]) checkState(state any) error {
	if err := CheckState(PA(&p.First), state); err != nil {
		return err
	}
	return CheckState(PB(&p.Second), state)
}

// Triple is the three-element sequence extractor.
type Triple[A, B, C any, PA interface {
	*A
	FromParts
}, PB interface {
	*B
	FromParts
}, PC interface {
	*C
	FromRequest
}] struct {
	First  A
	Second B
	Third  C
}

func (t *Triple[A, B, C, PA, PB, PC]) FromRequest(r *httpx.Request) error {
	a, b, c, err := Run3[A, B, C, PA, PB, PC](r)
	if err != nil {
		return err
	}
	t.First, t.Second, t.Third = a, b, c
	return nil
}

func (t *Triple[A, B, C, PA, PB, PC]) checkState(state any) error {
	for _, x := range []any{PA(&t.First), PB(&t.Second), PC(&t.Third)} {
		if err := CheckState(x, state); err != nil {
			return err
		}
	}
	return nil
}

// rejection keeps errors that already know how to render and turns the
// rest into a 400.
func rejection(err error) error {
	var r response.Responder
	if errors.As(err, &r) {
		return err
	}
	return response.ExtractionFailed(err)
}
