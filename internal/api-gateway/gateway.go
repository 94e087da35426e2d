package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
)

func rp(to string) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(to)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid upstream %q", to)
	}
	return httputil.NewSingleHostReverseProxy(u), nil
}

// Router monta o roteamento do gateway:
// /api/table/* e /api/tables/* -> table-service (/v1/...), /api/wallet/* -> wallet-service
func Router(tableURL, walletURL string) (http.Handler, error) {
	table, err := rp(tableURL)
	if err != nil {
		return nil, err
	}
	wallet, err := rp(walletURL)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()

	// /api/table/bets -> /v1/table/bets ; /api/table/ws -> /v1/table/ws
	mux.Handle("/api/table/", http.StripPrefix("/api", rewritePrefix("/v1", table)))
	mux.Handle("/api/table", http.StripPrefix("/api", rewritePrefix("/v1", table)))
	mux.Handle("/api/tables/", http.StripPrefix("/api", rewritePrefix("/v1", table)))

	// /api/wallet/deposit -> /wallet/deposit
	mux.Handle("/api/wallet/", http.StripPrefix("/api", wallet))
	mux.Handle("/api/wallet", http.StripPrefix("/api", wallet))

	return withCORS(mux), nil
}

func rewritePrefix(prefix string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r2 := r.Clone(r.Context())
		r2.URL.Path = prefix + r.URL.Path
		if r.URL.RawPath != "" {
			r2.URL.RawPath = prefix + r.URL.RawPath
		}
		h.ServeHTTP(w, r2)
	})
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Account-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
