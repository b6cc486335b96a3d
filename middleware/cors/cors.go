package cors

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/google/logger"
)

const wildcard = "*"

var corsOrigins []string

func init() {
	var err error

	corsOrigins, err = parseCORSOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if err != nil {
		logger.Errorf("CORS origin configuration error: %s", err)
		os.Exit(2)
	}
}

func parseCORSOrigins(originsStr string) ([]string, error) {
	origins := []string{}

	if originsStr != "" {
		originsArr := strings.Split(originsStr, ",")
		for _, origin := range originsArr {
			origin = strings.TrimSpace(origin)
			if origin == "" {
				continue
			}
			if origin == wildcard {
				origins = append(origins, wildcard)
				continue
			}

			// Validate the URL
			u, err := url.ParseRequestURI(origin)
			if err != nil {
				return nil, err
			}
			// Only allow http and https schemes
			if u.Scheme != "http" && u.Scheme != "https" {
				return nil, fmt.Errorf("invalid URL scheme %q in origin %q", u.Scheme, origin)
			}
			origins = append(origins, origin)
		}
	}

	return origins, nil
}

func allowed(origin string) bool {
	for _, v := range corsOrigins {
		if v == wildcard || v == origin {
			return true
		}
	}
	return false
}

// Handler wraps h with CORS origin checking and OPTIONS short-circuit.
// CORS_ALLOWED_ORIGINS may name exact origins or a single "*" to allow
// any origin — tile endpoints are public reads, not credentialed APIs,
// so an all-origins policy is a common deployment choice spec.md
// doesn't rule out.
func Handler(h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if origin := r.Header.Get("Origin"); origin != "" && allowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		h(w, r, ps)
	}
}
