package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Auth       *AuthHandler
	Entries    *EntryHandler
	Stats      *StatsHandler
	Reports    *ReportHandler
	Middleware []func(http.Handler) http.Handler
}

// PublicPaths lists the endpoints served without a session.
var PublicPaths = []string{"/api/register", "/api/login"}

// IsPublicPath reports whether the request path is reachable without a session token.
func IsPublicPath(path string) bool {
	for _, public := range PublicPaths {
		if strings.EqualFold(path, public) {
			return true
		}
	}
	return false
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Auth != nil {
		mux.HandleFunc("/api/register", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Register(w, r)
		})
		mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.CreateSession(w, r)
		})
		mux.HandleFunc("/api/logout", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.DeleteCurrentSession(w, r)
		})
		mux.HandleFunc("/api/user", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Auth.CurrentUser(w, r)
		})
	}

	if cfg.Entries != nil {
		mux.HandleFunc("/api/time-entries", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Entries.PunchIn(w, r)
		})
		mux.HandleFunc("/api/time-entries/", func(w http.ResponseWriter, r *http.Request) {
			suffix := strings.TrimPrefix(r.URL.Path, "/api/time-entries/")
			switch suffix {
			case "":
				http.NotFound(w, r)
			case "active":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Entries.Active(w, r)
			case "recent":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Entries.Recent(w, r)
			default:
				ctx := ContextWithEntryID(r.Context(), suffix)
				r = r.WithContext(ctx)
				switch r.Method {
				case http.MethodPatch:
					cfg.Entries.PunchOut(w, r)
				case http.MethodPut:
					cfg.Entries.Update(w, r)
				default:
					methodNotAllowed(w, http.MethodPatch, http.MethodPut)
				}
			}
		})
	}

	if cfg.Stats != nil {
		mux.HandleFunc("/api/stats/daily", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Stats.Daily(w, r)
		})
		mux.HandleFunc("/api/stats/weekly", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Stats.Weekly(w, r)
		})
	}

	if cfg.Reports != nil {
		mux.HandleFunc("/api/reports/weekly", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Reports.Weekly(w, r)
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
