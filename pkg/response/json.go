package response

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/valyala/bytebufferpool"
)

var jsonPool bytebufferpool.Pool

// serializationFailedBody is fixed so it can never fail to encode.
var serializationFailedBody = []byte(`{"error":"failed to serialize response","code":"` + ErrCodeSerializationFailed + `"}`)

// Marshal encodes v without HTML escaping and without a trailing newline.
func Marshal(v any) ([]byte, error) {
	buf := jsonPool.Get()
	defer jsonPool.Put(buf)

	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	out := bytes.TrimSuffix(buf.B, []byte("\n"))
	return append([]byte(nil), out...), nil
}

// JSONBody serializes v as an application/json response. Encoding
// failures produce the fixed 500 serialization error.
func JSONBody(status int, v any) *Response {
	b, err := Marshal(v)
	if err != nil {
		return SerializationFailed()
	}
	return New(status, ContentTypeJSON, b)
}

// SerializationFailed is the fixed reply for payloads that cannot be encoded.
func SerializationFailed() *Response {
	return New(http.StatusInternalServerError, ContentTypeJSON, serializationFailedBody)
}
