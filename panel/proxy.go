package panel

import (
	"net/http"
	"net/http/httputil"
)

// newBackendProxy forwards same-origin /api/* calls to the backend. The
// outbound request carries the session's Authorization default from the
// per-request client clone and never the browser's cookies.
func (p *Panel) newBackendProxy() http.Handler {
	target := p.backend.BaseURL()
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Header.Del("Cookie")
			pr.Out.Header.Del(csrfHeaderName)
			pr.Out.Header.Del("Authorization")
			if st := stateFromContext(pr.In.Context()); st != nil {
				st.client.ApplyDefaults(pr.Out.Header)
			}
		},
		ModifyResponse: func(resp *http.Response) error {
			resp.Header.Del("Set-Cookie")
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			p.logger.Warn("backend proxy failed", "path", r.URL.Path, "error", err)
			writeError(w, http.StatusBadGateway, "backend unavailable")
		},
	}
}
