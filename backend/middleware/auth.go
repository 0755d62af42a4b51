package middleware

import "net/http"

// Gate inspects a request's session and decides whether it may proceed.
// A gate that returns false has already written the response (a redirect or
// an error status). Access control is expressed as these explicit checks
// rather than wrapping types: the handlers package builds gates from the
// session state machine and Require chains them in front of handlers.
type Gate func(w http.ResponseWriter, r *http.Request) bool

// Require runs gate before next.
func Require(gate Gate, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !gate(w, r) {
			return
		}
		next(w, r)
	}
}
