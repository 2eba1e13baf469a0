package telegram

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"mediarelay/internal/logging"
)

// SecretHeader carries the webhook secret Telegram echoes back.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

const maxUpdateBytes = 1 << 20

// WebhookHandler decodes POSTed updates and passes them to dispatch. The
// response is sent before the update is processed, so dispatch must not
// block. A non-empty secret is required in SecretHeader.
func WebhookHandler(secret string, dispatch func(Update), logger *slog.Logger) http.Handler {
	logger = logging.NewComponentLogger(logger, "webhook")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), []byte(secret)) != 1 {
			logging.WarnWithContext(logger, "webhook secret mismatch", "webhook_unauthorized",
				logging.String("remote", r.RemoteAddr),
				logging.String(logging.FieldErrorHint, "ensure setWebhook used the configured webhook_secret"),
				logging.String(logging.FieldImpact, "update rejected"),
			)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var update Update
		if err := json.NewDecoder(io.LimitReader(r.Body, maxUpdateBytes)).Decode(&update); err != nil {
			logger.Debug("malformed update", logging.Error(err))
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		dispatch(update)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}
