package httpx

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/valyala/fasthttp"
)

// FastHTTPAdapter adapts an httpx.HandlerFunc into a fasthttp.RequestHandler.
// The request context is cancelled once the handler returns.
func FastHTTPAdapter(h HandlerFunc) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		cctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		hdr := make(http.Header)
		ctx.Request.Header.VisitAll(func(k, v []byte) {
			key := http.CanonicalHeaderKey(string(k))
			hdr[key] = append(hdr[key], string(v))
		})

		// PostBody is only valid for the lifetime of ctx, so copy it
		body := io.NopCloser(bytes.NewReader(append([]byte(nil), ctx.PostBody()...)))

		var remote string
		if addr := ctx.RemoteAddr(); addr != nil {
			remote = addr.String()
		}
		req := NewRequest(&Parts{
			Ctx:        cctx,
			Method:     string(ctx.Method()),
			Path:       string(ctx.Path()),
			RawQuery:   string(ctx.URI().QueryString()),
			Header:     hdr,
			RemoteAddr: remote,
		}, body)
		req.Raw = ctx

		rw := &fastHTTPResponseWriter{ctx: ctx, header: make(http.Header)}
		h(rw, req)
		_ = req.Close()
	}
}

type fastHTTPResponseWriter struct {
	ctx    *fasthttp.RequestCtx
	header http.Header
	status int
}

func (f *fastHTTPResponseWriter) Header() http.Header { return f.header }

func (f *fastHTTPResponseWriter) WriteHeader(status int) {
	if f.status != 0 {
		return
	}
	f.status = status
	for k, vals := range f.header {
		for i, v := range vals {
			// Set on the first value so fasthttp defaults (Content-Type) get replaced
			if i == 0 {
				f.ctx.Response.Header.Set(k, v)
				continue
			}
			f.ctx.Response.Header.Add(k, v)
		}
	}
	f.ctx.SetStatusCode(status)
}

func (f *fastHTTPResponseWriter) Write(b []byte) (int, error) {
	if f.status == 0 {
		f.WriteHeader(http.StatusOK)
	}
	return f.ctx.Write(b)
}
