package security

import (
	"net/http"
	"strings"
)

// CORS answers cross-origin requests for the listed origins. A "*" entry,
// or an empty list, allows any origin.
type CORS struct {
	origins map[string]bool
	any     bool
	methods string
	headers string
}

func NewCORS(allowedOrigins []string, methods ...string) *CORS {
	c := &CORS{origins: make(map[string]bool)}
	for _, o := range allowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			c.any = true
		}
		if o != "" {
			c.origins[o] = true
		}
	}
	if len(c.origins) == 0 {
		c.any = true
	}
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost, http.MethodDelete}
	}
	c.methods = strings.Join(methods, ", ")
	c.headers = "Content-Type, X-Request-ID"
	return c
}

func (c *CORS) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}
		if !c.any && !c.origins[origin] {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		if c.any {
			h.Set("Access-Control-Allow-Origin", "*")
		} else {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
		}
		h.Set("Access-Control-Expose-Headers", "X-Request-ID, Location")

		// preflight
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", c.methods)
			h.Set("Access-Control-Allow-Headers", c.headers)
			h.Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
