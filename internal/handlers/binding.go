package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
)

// BindNestedOrFlat decodes the request body into obj. The payload may be wrapped
// under key ({"tds": {...}}) or sent flat. Top-level camelCase keys are accepted
// alongside the snake_case names the input structs declare, so the payment
// verification caller can post {"enrollmentId": ...} as well as {"enrollment_id": ...}.
func BindNestedOrFlat(c *gin.Context, key string, obj interface{}) error {
	var body []byte
	if c.Request.Body != nil {
		body, _ = io.ReadAll(c.Request.Body)
	}
	// Restore body for subsequent reads
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

	payload := json.RawMessage(body)
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapper); err == nil {
		if inner, ok := wrapper[key]; ok {
			payload = inner
		}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		// not an object; let obj report the type mismatch
		return json.Unmarshal(payload, obj)
	}

	normalized, err := json.Marshal(snakeKeys(fields))
	if err != nil {
		return err
	}
	return json.Unmarshal(normalized, obj)
}

// snakeKeys renames camelCase keys to snake_case. An explicit snake_case key wins.
func snakeKeys(fields map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		snake := toSnake(k)
		if snake != k {
			if _, ok := fields[snake]; ok {
				continue
			}
		}
		out[snake] = v
	}
	return out
}

// toSnake converts fiscalYear to fiscal_year and payeeID to payee_id
func toSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
