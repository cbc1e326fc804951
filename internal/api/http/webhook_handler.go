package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"

	"rentloop-backend/internal/logger"
	"rentloop-backend/internal/reconcile"
)

const maxWebhookBody = 1 << 16 // 64 KiB

// WebhookHandler receives settlement events pushed by the payment network.
// Payloads are authenticated with an HMAC-SHA256 signature over the raw body.
type WebhookHandler struct {
	handler *reconcile.Handler
	secret  string
}

func NewWebhookHandler(handler *reconcile.Handler, secret string) *WebhookHandler {
	return &WebhookHandler{handler: handler, secret: secret}
}

func (h *WebhookHandler) verifySignature(payload []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// HandleEvent verifies, parses, and applies one pushed event. A 2xx tells
// the processor to stop redelivering; handler failures return 500 so the
// event is retried.
func (h *WebhookHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	if !h.verifySignature(payload, r.Header.Get("X-Webhook-Signature")) {
		logger.Warn("Webhook signature mismatch")
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	event, err := reconcile.Parse(payload)
	if err != nil {
		if errors.Is(err, reconcile.ErrUnhandledEvent) {
			// Acknowledge types we don't act on.
			w.WriteHeader(http.StatusOK)
			return
		}
		logger.Warn("Malformed webhook payload", "error", err)
		http.Error(w, "Malformed payload", http.StatusBadRequest)
		return
	}

	if err := h.handler.Handle(r.Context(), event); err != nil {
		logger.Error("Event handling failed", "event_id", event.EventID(), "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
