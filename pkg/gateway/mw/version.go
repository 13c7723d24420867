package mw

import "net/http"

// ServiceVersionHeader carries the running build's version on every response.
const ServiceVersionHeader = "X-Service-Version"

func ServiceVersion(version string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(ServiceVersionHeader, version)
		next.ServeHTTP(w, r)
	})
}
