package audit

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Details is the structured payload stored (serialized) in Record.Details.
type Details map[string]any

// Detail payload keys. They are part of the persisted format read by the dashboard.
const (
	keyTimestamp   = "timestamp"
	keyFunction    = "funcao"
	keyBody        = "dados_requisicao"
	keyQuery       = "parametros_url"
	keyRoute       = "parametros_rota"
	keyDurationMS  = "duracao_ms"
	keyError       = "erro"
	keyErrorParams = "parametros"
)

// RequestInfo is the framework-neutral view of an inbound request that audit records need.
type RequestInfo struct {
	Endpoint  string
	Method    string
	IPAddress string
	UserAgent string

	// Body is the parsed JSON body, nil when absent or not JSON.
	Body        any
	Query       url.Values
	RouteParams map[string]any
}

const headerRealIP = "X-Real-IP"

// ClientIP prefers the address set by the fronting proxy, falling back to the peer address.
func ClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get(headerRealIP)); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// CaptureDetails builds the request context part of a payload: timestamp, the redacted
// body, query parameters and serializable route parameters.
func CaptureDetails(req RequestInfo, function string, now time.Time) Details {
	d := Details{
		keyTimestamp: now.UTC().Format(time.RFC3339Nano),
	}
	if function != "" {
		d[keyFunction] = function
	}
	if req.Body != nil {
		d[keyBody] = Redact(req.Body)
	}
	if len(req.Query) > 0 {
		q := make(map[string]any, len(req.Query))
		for k, vs := range req.Query {
			switch len(vs) {
			case 0:
			case 1:
				q[k] = vs[0]
			default:
				q[k] = append([]string(nil), vs...)
			}
		}
		d[keyQuery] = q
	}
	if len(req.RouteParams) > 0 {
		rp := make(map[string]any, len(req.RouteParams))
		for k, v := range req.RouteParams {
			if s, ok := scrub(v); ok {
				rp[k] = s
			}
		}
		d[keyRoute] = rp
	}
	return d
}
