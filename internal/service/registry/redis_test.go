package registry

import (
	"context"
	"testing"
	"time"

	"scam-guard-service/internal/models"
)

func TestNewRedisMirror_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	m, err := NewRedisMirror(ctx, RedisConfig{Addr: "127.0.0.1:1"})
	if err == nil {
		m.Close()
		t.Fatal("expected error for unreachable redis")
	}
}

func TestSessionFields(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := newSession("abc", "10.0.0.1:4000", created)
	s.Touch(models.ChunkKindText)

	fields := sessionFields(s)

	if fields["created_at"] != "2026-01-02T03:04:05Z" {
		t.Errorf("unexpected created_at %v", fields["created_at"])
	}
	if fields["last_chunk_kind"] != "text" {
		t.Errorf("unexpected last_chunk_kind %v", fields["last_chunk_kind"])
	}
	if fields["remote_addr"] != "10.0.0.1:4000" {
		t.Errorf("unexpected remote_addr %v", fields["remote_addr"])
	}
	if fields["status"] != "active" {
		t.Errorf("unexpected status %v", fields["status"])
	}
	if sessionKey("abc") != "session:abc" {
		t.Errorf("unexpected key %s", sessionKey("abc"))
	}
}
