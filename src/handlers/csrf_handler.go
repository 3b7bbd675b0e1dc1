package handlers

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/thucosta0/financepro/backend/src/logger"
)

const csrfCookieName = "_financepro_csrf"

// GetCSRFToken issues a double-submit CSRF token: the raw value in a cookie,
// the same value echoed in the response for the client to replay in the
// X-CSRF-Token header on state-changing requests.
func GetCSRFToken(w http.ResponseWriter, r *http.Request) {
	logger.L.Debug("Generating CSRF token", "remoteAddr", r.RemoteAddr)
	token := generateRandomToken()

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		MaxAge:   3600,
	})

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-CSRF-Token", token)

	json.NewEncoder(w).Encode(map[string]string{
		"csrfToken": token,
	})
}

func generateRandomToken() string {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		logger.L.Error("Failed to generate random bytes for CSRF token", "error", err)
		return ""
	}
	return base64.StdEncoding.EncodeToString(b)
}

// CSRFMiddleware enforces the double-submit check on unsafe methods. The auth
// key folds both values through an HMAC so the comparison is constant time and
// independent of token encoding.
func CSRFMiddleware(authKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(csrfCookieName)
			if err != nil || cookie.Value == "" {
				sendJSONError(w, "CSRF cookie missing", http.StatusForbidden)
				return
			}
			headerToken := r.Header.Get("X-CSRF-Token")
			if headerToken == "" {
				sendJSONError(w, "CSRF token missing", http.StatusForbidden)
				return
			}

			if !hmac.Equal(csrfDigest(authKey, cookie.Value), csrfDigest(authKey, headerToken)) {
				logger.L.Warn("CSRF token mismatch", "path", r.URL.Path, "remoteAddr", r.RemoteAddr)
				sendJSONError(w, "CSRF token invalid", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func csrfDigest(key []byte, value string) []byte {
	mac := hmac.New(sha256.New, key)
	fmt.Fprint(mac, value)
	return mac.Sum(nil)
}
