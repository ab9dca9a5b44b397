package utils

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[http] failed to encode response: %v", err)
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}

// Query 读取去掉首尾空白的查询参数
func Query(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}
