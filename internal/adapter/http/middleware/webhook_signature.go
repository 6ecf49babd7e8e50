package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// VerifyWebhook validates Mercado Pago's x-signature header: an HMAC-SHA256
// over the "id:...;request-id:...;ts:...;" manifest, keyed with the webhook
// secret. With no secret configured the check is skipped (sandbox traffic is
// unsigned).
func VerifyWebhook(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		ts, v1, ok := parseSignatureHeader(c.GetHeader("x-signature"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed x-signature"})
			return
		}

		manifest := buildManifest(c.Query("data.id"), c.GetHeader("x-request-id"), ts)
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(manifest))
		want := hex.EncodeToString(mac.Sum(nil))

		if !hmac.Equal([]byte(want), []byte(v1)) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "signature verification failed"})
			return
		}

		c.Next()
	}
}

// header shape: "ts=1704908010,v1=618c8534...".
func parseSignatureHeader(h string) (ts, v1 string, ok bool) {
	for _, part := range strings.Split(h, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "ts":
			ts = v
		case "v1":
			v1 = v
		}
	}
	return ts, v1, ts != "" && v1 != ""
}

// Absent values drop their manifest segment, matching how the processor signs.
func buildManifest(dataID, requestID, ts string) string {
	var b strings.Builder
	if dataID != "" {
		fmt.Fprintf(&b, "id:%s;", strings.ToLower(dataID))
	}
	if requestID != "" {
		fmt.Fprintf(&b, "request-id:%s;", requestID)
	}
	fmt.Fprintf(&b, "ts:%s;", ts)
	return b.String()
}
