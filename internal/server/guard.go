package server

import (
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// localOnly rejects requests that did not come from a local client: the Host
// header must name a loopback host (or the configured listen host), and a
// browser Origin, when sent, must do the same.
func (s *Server) localOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.allowedHost(r.Host) {
			slog.Warn("rejected request for foreign host", "host", r.Host, "path", r.URL.Path)
			writeError(w, http.StatusForbidden, "forbidden host")
			return
		}
		if !s.checkOrigin(r) {
			slog.Warn("rejected cross-origin request", "origin", r.Header.Get("Origin"), "path", r.URL.Path)
			writeError(w, http.StatusForbidden, "forbidden origin")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkOrigin accepts requests without an Origin header (CLI, curl) and
// requests from pages served by a local host.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return s.allowedHost(u.Host)
}

func (s *Server) allowedHost(hostport string) bool {
	host := hostname(hostport)
	if isLoopback(host) {
		return true
	}
	listen := hostname(s.config.Addr)
	if listen == "" {
		return false
	}
	if ip := net.ParseIP(listen); ip != nil && ip.IsUnspecified() {
		return false
	}
	return strings.EqualFold(host, listen)
}

func hostname(hostport string) string {
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}
	return strings.Trim(hostport, "[]")
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
