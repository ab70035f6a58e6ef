// Package metadata derives client device information from request headers.
package metadata

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"bioauth/pkg/requestcontext"
)

// ClientDevice parses the User-Agent of the scanning device and stores the
// result in the context. Liveness captures come from phones and browsers, and
// the device class is logged next to every biometric operation.
func ClientDevice(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithDevice(r.Context(), ParseDevice(r.Header.Get("User-Agent")))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ParseDevice converts a raw User-Agent into a Device. Empty input yields the zero Device.
func ParseDevice(raw string) requestcontext.Device {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return requestcontext.Device{}
	}
	ua := useragent.New(raw)
	browser, version := ua.Browser()
	if version != "" {
		browser += " " + version
	}
	return requestcontext.Device{
		OS:       ua.OS(),
		Platform: ua.Platform(),
		Browser:  browser,
		Mobile:   ua.Mobile(),
	}
}

// ClientIPFromRequest extracts the originating client IP, honoring proxy headers.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if idx := strings.LastIndex(r.RemoteAddr, ":"); idx != -1 {
		return r.RemoteAddr[:idx]
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
