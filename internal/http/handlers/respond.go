package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gsmwallet/server/internal/auth"
)

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, map[string]string{"error": message})
}

func respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("level=error component=http msg=\"encode response failed\" err=%v", err)
	}
}

// respondText writes a plain-text body. Auth and transaction endpoints answer in plain text.
func respondText(w http.ResponseWriter, statusCode int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(body))
}

// logMaskedPhone logs a message with masked phone number
func logMaskedPhone(phone, msg string, err error) {
	log.Printf("level=warn component=http msg=%q phone=%s err=%v", msg, auth.MaskPhone(phone), err)
}
