package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	ctxEndpoint    = "audit_endpoint"
	ctxRequestInfo = "audit_request"

	// maxCapturedBody bounds how much of a request body is copied into a record.
	maxCapturedBody = 1 << 20
)

// Capture wraps the rest of the gin chain in the pipeline. endpoint names the route in
// records; action is the label bound at registration (empty derives one from method+endpoint).
//
// A panic further down the chain is recorded and re-panicked so gin.Recovery still answers.
// A handler that ends with status >= 500 and attached c.Errors is recorded as a fault.
func (p *Pipeline) Capture(endpoint, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if endpoint != "" {
			c.Set(ctxEndpoint, endpoint)
		}
		req := RequestFromGin(c)
		bind := Binding{Endpoint: req.Endpoint, Action: action, Function: req.Endpoint}

		_, _ = p.Run(c.Request.Context(), req, bind, func(ctx context.Context) (int, error) {
			c.Next()
			status := c.Writer.Status()
			if status >= http.StatusInternalServerError && len(c.Errors) > 0 {
				return status, c.Errors.Last().Err
			}
			return status, nil
		})
	}
}

// RequestFromGin builds the audit view of the current request. The result is cached on the
// gin context, so handlers recording explicit events see the body captured before binding.
func RequestFromGin(c *gin.Context) RequestInfo {
	if v, ok := c.Get(ctxRequestInfo); ok {
		if info, ok := v.(RequestInfo); ok {
			return info
		}
	}

	endpoint := c.GetString(ctxEndpoint)
	if endpoint == "" {
		endpoint = c.FullPath()
	}
	if endpoint == "" {
		endpoint = c.Request.URL.Path
	}

	info := RequestInfo{
		Endpoint:  endpoint,
		Method:    c.Request.Method,
		IPAddress: ClientIP(c.Request),
		UserAgent: c.Request.UserAgent(),
		Query:     c.Request.URL.Query(),
		Body:      peekJSONBody(c),
	}
	if len(c.Params) > 0 {
		info.RouteParams = make(map[string]any, len(c.Params))
		for _, prm := range c.Params {
			info.RouteParams[prm.Key] = prm.Value
		}
	}

	c.Set(ctxRequestInfo, info)
	return info
}

// peekJSONBody parses a JSON body without consuming it for the handler.
func peekJSONBody(c *gin.Context) any {
	if c.Request.Body == nil || c.ContentType() != gin.MIMEJSON {
		return nil
	}
	head, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCapturedBody))
	c.Request.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(head), c.Request.Body), Closer: c.Request.Body}
	if err != nil || len(head) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(head))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}

type readCloser struct {
	io.Reader
	io.Closer
}
