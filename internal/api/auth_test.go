package api

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestIssueAndParseToken(t *testing.T) {
	token, err := IssueToken(testSecret, "puzzle-master", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "puzzle-master" || claims.ID == "" {
		t.Errorf("claims = %+v", claims)
	}
	if ttl := time.Until(claims.ExpiresAt.Time); ttl <= 0 || ttl > time.Minute {
		t.Errorf("expiry in %v", ttl)
	}
}

func TestIssueToken_DefaultTTL(t *testing.T) {
	token, err := IssueToken(testSecret, "op", 0)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatal(err)
	}
	if ttl := time.Until(claims.ExpiresAt.Time); ttl < defaultTokenTTL-time.Minute {
		t.Errorf("default ttl = %v", ttl)
	}
}

func TestIssueToken_Rejects(t *testing.T) {
	if _, err := IssueToken("", "op", time.Minute); err == nil {
		t.Error("empty secret accepted")
	}
	if _, err := IssueToken(testSecret, "", time.Minute); err == nil {
		t.Error("empty subject accepted")
	}
}

func TestParseToken_Invalid(t *testing.T) {
	token, err := IssueToken(testSecret, "op", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken(token, "some-other-secret-of-enough-length!!"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("wrong secret error = %v, want ErrTokenInvalid", err)
	}
	if _, err := ParseToken("a.b.c", testSecret); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("garbage error = %v, want ErrTokenInvalid", err)
	}
}

func TestTicketStore(t *testing.T) {
	ts := newTicketStore()
	ticket := ts.issue("op")

	entry, ok := ts.consume(ticket)
	if !ok || entry.subject != "op" {
		t.Errorf("consume() = %+v, %v", entry, ok)
	}
	if _, ok := ts.consume(ticket); ok {
		t.Error("ticket reused")
	}

	ts.tickets["old"] = ticketEntry{subject: "op", expiresAt: time.Now().Add(-time.Second)}
	ts.clean()
	if len(ts.tickets) != 0 {
		t.Errorf("tickets after clean = %d", len(ts.tickets))
	}
}

func TestWSTicketEndpoint(t *testing.T) {
	env := testServer(t)

	if w := env.do(t, http.MethodPost, "/api/v1/auth/ws-ticket", "", false); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated ticket = %d, want 401", w.Code)
	}

	w := env.do(t, http.MethodPost, "/api/v1/auth/ws-ticket", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	ticket, _ := decode(t, w)["ticket"].(string)
	entry, ok := env.srv.tickets.consume(ticket)
	if !ok || entry.subject != "operator" {
		t.Errorf("ticket entry = %+v, %v", entry, ok)
	}
}
