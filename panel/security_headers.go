package panel

import (
	"net/http"
	"strings"
)

const (
	// pageCSP admits only same-origin scripts. Toast dismissal and the nav
	// toggle live in /assets/panel.js.
	pageCSP = "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'; form-action 'self'; frame-ancestors 'none'; base-uri 'none'"

	// docsCSP covers the Swagger UI and Redoc pages, which bootstrap inline
	// and load their bundles from public CDNs.
	docsCSP = "default-src 'self'; script-src 'self' 'unsafe-inline' https://unpkg.com https://cdn.jsdelivr.net; style-src 'self' 'unsafe-inline' https://unpkg.com https://fonts.googleapis.com; font-src https://fonts.gstatic.com; img-src 'self' data: https:; worker-src blob:; frame-ancestors 'none'"
)

// SecurityHeaders sets the panel's response headers. Everything outside
// /assets/ carries session state and is marked no-store.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "same-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

		switch p := r.URL.Path; {
		case isDocsPath(p):
			h.Set("Content-Security-Policy", docsCSP)
		default:
			h.Set("Content-Security-Policy", pageCSP)
		}
		if !strings.HasPrefix(r.URL.Path, "/assets/") {
			h.Set("Cache-Control", "no-store")
		}
		if requestIsSecure(r) {
			h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func isDocsPath(p string) bool {
	return p == "/docs" || p == "/redoc" ||
		strings.HasPrefix(p, "/docs/") || strings.HasPrefix(p, "/redoc/")
}
