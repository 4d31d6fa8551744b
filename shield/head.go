package shield

import "net/http"

// HeadToGet lets the GET routes answer HEAD probes. The handler sees a GET;
// the response writer still knows the request was HEAD and sends no body.
func HeadToGet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		get := r.Clone(r.Context())
		get.Method = http.MethodGet
		next.ServeHTTP(w, get)
	})
}
