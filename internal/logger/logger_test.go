package logger

import (
	"testing"
)

func TestSanitizeKVs(t *testing.T) {
	kvs := sanitizeKVs([]interface{}{
		"access_token", "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.sig",
		"password", "hunter2",
		"user_id", "2d1f9df1-7a61-4c3b-9ff4-000000000000",
		"feature", "title",
	})
	if len(kvs) != 8 {
		t.Fatalf("kvs = %d entries", len(kvs))
	}
	byKey := map[string]interface{}{}
	for i := 0; i+1 < len(kvs); i += 2 {
		byKey[kvs[i].(string)] = kvs[i+1]
	}
	if byKey["access_token"] != "[REDACTED]" {
		t.Fatalf("access_token = %v", byKey["access_token"])
	}
	if byKey["password"] != "[REDACTED]" {
		t.Fatalf("password = %v", byKey["password"])
	}
	hashed, ok := byKey["user_id"].(string)
	if !ok || len(hashed) == 0 || hashed[:5] != "hash:" {
		t.Fatalf("user_id = %v, want hash: prefix", byKey["user_id"])
	}
	if byKey["feature"] != "title" {
		t.Fatalf("feature = %v, want untouched", byKey["feature"])
	}
}

func TestSanitizeNestedMap(t *testing.T) {
	kvs := sanitizeKVs([]interface{}{
		"payload", map[string]interface{}{
			"api_key": "secret-value",
			"title":   "kept",
		},
	})
	payload := kvs[1].(map[string]interface{})
	if payload["api_key"] != "[REDACTED]" {
		t.Fatalf("nested api_key = %v", payload["api_key"])
	}
	if payload["title"] != "kept" {
		t.Fatalf("nested title = %v", payload["title"])
	}
}

func TestLooksLikeJWT(t *testing.T) {
	if !looksLikeJWT("eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0NTYifQ.abc") {
		t.Fatal("jwt-shaped string not detected")
	}
	if looksLikeJWT("just a plain sentence.") {
		t.Fatal("plain text flagged as jwt")
	}
	if looksLikeJWT("a.b.c") {
		t.Fatal("short segments flagged as jwt")
	}
}
