package app

import (
	"net/http"
	"strconv"

	"github.com/aflyhorse/pinecitywms/internal/shared"
)

// ActorMiddleware reads the operator identity set by the upstream
// gateway. Requests without the headers proceed anonymously; handlers
// that need an actor reject those themselves.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.Header.Get("X-Operator-Id"), 10, 64)
		if err == nil && id > 0 {
			actor := shared.Actor{
				ID:      id,
				Name:    r.Header.Get("X-Operator-Name"),
				IsAdmin: r.Header.Get("X-Operator-Admin") == "true",
			}
			r = r.WithContext(shared.ContextWithActor(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}
