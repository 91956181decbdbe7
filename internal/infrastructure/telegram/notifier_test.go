package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPublishDigestPostsForm(t *testing.T) {
	t.Parallel()

	var got []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.Form.Get("chat_id") != "42" || r.Form.Get("parse_mode") != "Markdown" {
			t.Errorf("unexpected form %v", r.Form)
		}
		got = append(got, r.Form.Get("text"))
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer server.Close()

	n := NewNotifier("TOKEN", "42", server.URL+"/")
	if err := n.PublishDigest(context.Background(), "*Run digest*\nscored: 3"); err != nil {
		t.Fatalf("PublishDigest error: %v", err)
	}
	if len(got) != 1 || got[0] != "*Run digest*\nscored: 3" {
		t.Fatalf("unexpected messages %q", got)
	}
}

func TestPublishDigestReportsAPIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"ok":false,"description":"Bad Request: chat not found"}`)
	}))
	defer server.Close()

	err := NewNotifier("TOKEN", "42", server.URL).PublishDigest(context.Background(), "hi")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestPublishDigestRequiresConfiguration(t *testing.T) {
	t.Parallel()

	if err := NewNotifier("", "42", "").PublishDigest(context.Background(), "hi"); err == nil {
		t.Fatalf("expected misconfiguration error")
	}
}

func TestSplitMessage(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("line of text\n", 10)
	chunks := splitMessage(text, 30)
	for _, c := range chunks {
		if len([]rune(c)) > 30 {
			t.Fatalf("chunk too long: %q", c)
		}
	}
	if joined := strings.Join(chunks, "\n"); joined != strings.TrimRight(text, "\n") {
		t.Fatalf("chunks lost content: %q", joined)
	}

	long := splitMessage(strings.Repeat("x", 25), 10)
	if len(long) != 3 || long[2] != "xxxxx" {
		t.Fatalf("unexpected hard split %q", long)
	}
}
