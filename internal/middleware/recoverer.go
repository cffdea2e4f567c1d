package middleware

import (
	"net/http"
	"runtime/debug"

	"zxsgit/internal/logs"
	"zxsgit/internal/models"
)

// Recoverer catches a handler panic, logs it with the stack and answers
// 500 in the usual {ok:false, message} envelope.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logs.Logger.WithField("reqid", GetRequestID(r)).
					Errorf("panic: %v uri=%s method=%s\nstack:\n%s", rec, r.RequestURI, r.Method, debug.Stack())
				models.WriteFail(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
