package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONBody(t *testing.T) {
	resp := JSONBody(http.StatusOK, map[string]string{"message": "Hello world!"})
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, ContentTypeJSON, resp.ContentType())
	assert.Equal(t, `{"message":"Hello world!"}`, string(resp.Body))
}

func TestJSONBodyDoesNotEscapeHTML(t *testing.T) {
	resp := JSONBody(http.StatusOK, map[string]string{"q": "<a&b>"})
	assert.Equal(t, `{"q":"<a&b>"}`, string(resp.Body))
}

func TestJSONRoundTrip(t *testing.T) {
	values := []any{
		map[string]any{"a": float64(1), "b": []any{"x", true, nil}},
		[]any{float64(1.5), "two", map[string]any{}},
		"plain",
		float64(42),
	}
	for _, v := range values {
		resp := JSONBody(http.StatusOK, v)
		var got any
		require.NoError(t, json.Unmarshal(resp.Body, &got))
		assert.Equal(t, v, got)
	}
}

func TestSerializationFailure(t *testing.T) {
	resp := JSONBody(http.StatusOK, map[string]any{"ch": make(chan int)})
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, ContentTypeJSON, resp.ContentType())
	assert.Equal(t, `{"error":"failed to serialize response","code":"SERIALIZATION_FAILED"}`, string(resp.Body))
}

func TestTextBypassesJSON(t *testing.T) {
	resp := Text("hello").IntoResponse()
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, ContentTypeText, resp.ContentType())
	assert.Equal(t, "hello", string(resp.Body))
}

func TestWithStatus(t *testing.T) {
	resp := WithStatus(http.StatusCreated, Text("made")).IntoResponse()
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, "made", string(resp.Body))

	resp = WithStatus(http.StatusAccepted, JSONBody(http.StatusOK, []int{1})).IntoResponse()
	assert.Equal(t, http.StatusAccepted, resp.Status)
	assert.Equal(t, ContentTypeJSON, resp.ContentType())
	assert.Equal(t, "[1]", string(resp.Body))
}

func TestWithHeaderCopies(t *testing.T) {
	orig := Text("x").IntoResponse()
	mod := orig.WithHeader("X-Extra", "1")
	assert.Empty(t, orig.Header.Get("X-Extra"))
	assert.Equal(t, "1", mod.Header.Get("X-Extra"))
}

func TestNotFound(t *testing.T) {
	resp := NotFound()
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "text/plain", resp.ContentType())
	assert.Equal(t, "Not found", string(resp.Body))
}

func TestFrom(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		resp := From[Text]("ok", nil)
		assert.Equal(t, http.StatusOK, resp.Status)
		assert.Equal(t, "ok", string(resp.Body))
	})
	t.Run("responder error", func(t *testing.T) {
		resp := From[Text]("", BadRequest("missing name"))
		assert.Equal(t, http.StatusBadRequest, resp.Status)
		assert.JSONEq(t, `{"error":"missing name","code":"INVALID_REQUEST"}`, string(resp.Body))
	})
	t.Run("wrapped responder error", func(t *testing.T) {
		err := fmt.Errorf("lookup: %w", NewError(http.StatusConflict, "CONFLICT", "exists"))
		resp := From[Text]("", err)
		assert.Equal(t, http.StatusConflict, resp.Status)
	})
	t.Run("opaque error", func(t *testing.T) {
		resp := From[Text]("", errors.New("db exploded"))
		assert.Equal(t, http.StatusInternalServerError, resp.Status)
		assert.JSONEq(t, `{"error":"internal error","code":"INTERNAL_ERROR"}`, string(resp.Body))
	})
	t.Run("nil responder", func(t *testing.T) {
		resp := From[Responder](nil, nil)
		assert.Equal(t, http.StatusNoContent, resp.Status)
	})
	t.Run("typed nil error value", func(t *testing.T) {
		var e *Error
		resp := From[*Error](e, nil)
		assert.Equal(t, http.StatusNoContent, resp.Status)

		resp = From[Responder](WithStatus(http.StatusAccepted, e), nil)
		assert.Equal(t, http.StatusAccepted, resp.Status)
		assert.Empty(t, resp.Body)
	})
	t.Run("typed nil error", func(t *testing.T) {
		var e *Error
		resp := From[Text]("", e)
		assert.Equal(t, http.StatusInternalServerError, resp.Status)
		assert.False(t, errors.Is(e, ErrInternal))
	})
}

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("decode: %w", ExtractionFailed(errors.New("bad json")))
	assert.True(t, errors.Is(err, ErrExtractionFailed))
	assert.False(t, errors.Is(err, ErrInternal))
}

func TestWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	resp := WithStatus(http.StatusTeapot, Text("short and stout")).IntoResponse().WithHeader("X-Kind", "teapot")
	require.NoError(t, resp.Write(rec))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "teapot", rec.Header().Get("X-Kind"))
	assert.Equal(t, "short and stout", rec.Body.String())
}
