package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"unicode/utf8"

	"routekit/pkg/httpx"
	"routekit/pkg/response"
)

// readBody takes and drains the body.
func readBody(r *httpx.Request) ([]byte, error) {
	body, err := r.TakeBody()
	if err != nil {
		return nil, response.ExtractionFailed(err)
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, response.PayloadTooLarge(err)
		}
		return nil, response.ExtractionFailed(err)
	}
	return data, nil
}

// JSON decodes the body into T. As a return value it renders T as
// application/json with status 200.
type JSON[T any] struct {
	Value T
}

func (j *JSON[T]) FromRequest(r *httpx.Request) error {
	data, err := readBody(r)
	if err != nil {
		return err
	}
	return decodeJSON(data, &j.Value)
}

// decodeJSON decodes exactly one JSON value. Numbers headed for untyped
// fields stay json.Number so they re-encode digit for digit.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return response.ExtractionFailed(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return response.ExtractionFailed(errors.New("unexpected data after JSON value"))
	}
	return nil
}

func (j JSON[T]) IntoResponse() *response.Response {
	return response.JSONBody(http.StatusOK, j.Value)
}

// Bytes is the raw body.
type Bytes []byte

func (b *Bytes) FromRequest(r *httpx.Request) error {
	data, err := readBody(r)
	if err != nil {
		return err
	}
	*b = data
	return nil
}

// String is the body as UTF-8 text.
type String string

func (s *String) FromRequest(r *httpx.Request) error {
	data, err := readBody(r)
	if err != nil {
		return err
	}
	if !utf8.Valid(data) {
		return response.ExtractionFailed(errors.New("body is not valid utf-8"))
	}
	*s = String(data)
	return nil
}
