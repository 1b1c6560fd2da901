package mturk

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"time"
)

// Sign returns base64(HMAC-SHA1(secret, service+operation+timestamp)).
// The three parts are concatenated without delimiters.
func Sign(secretAccessKey, service, operation, timestamp string) string {
	mac := hmac.New(sha1.New, []byte(secretAccessKey))
	mac.Write([]byte(service))
	mac.Write([]byte(operation))
	mac.Write([]byte(timestamp))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// FormatTimestamp renders t in UTC using TimestampFormat.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}
