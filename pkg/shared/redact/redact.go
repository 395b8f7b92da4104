// Package redact masks credentials before they reach logs or exported files.
package redact

import (
	"net/url"
	"strings"
)

var sensitiveKeys = []string{"authorization", "cookie", "access_token", "id_token", "session", "apikey", "token", "xsec_token", "a1", "web_session"}

// Header masks the value of credential-bearing headers.
func Header(name, value string) string {
	if isSensitiveKey(name) || strings.EqualFold(name, "set-cookie") {
		return "***"
	}
	return value
}

// URL masks sensitive query parameter values for logging. Unparseable input is returned as-is.
func URL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	q := u.Query()
	changed := false
	for k := range q {
		if isSensitiveKey(k) {
			q.Set(k, "***")
			changed = true
		}
	}
	if !changed {
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func isSensitiveKey(k string) bool {
	k = strings.ToLower(k)
	for _, s := range sensitiveKeys {
		if k == s {
			return true
		}
	}
	return false
}
