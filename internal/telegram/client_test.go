package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Write([]byte(`{"ok": true}`))
	}))
	defer ts.Close()

	c := NewClientWithBaseURL("TOKEN", ts.URL)
	if err := c.SendMessage(context.Background(), 42, "hello", 7); err != nil {
		t.Fatalf("send: %v", err)
	}

	if gotPath != "/botTOKEN/sendMessage" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody["text"] != "hello" {
		t.Errorf("text = %v", gotBody["text"])
	}
	if gotBody["chat_id"] != float64(42) {
		t.Errorf("chat_id = %v", gotBody["chat_id"])
	}
	if gotBody["reply_to_message_id"] != float64(7) {
		t.Errorf("reply_to_message_id = %v", gotBody["reply_to_message_id"])
	}
}

func TestSendMessageOmitsZeroReplyTo(t *testing.T) {
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Write([]byte(`{"ok": true}`))
	}))
	defer ts.Close()

	c := NewClientWithBaseURL("TOKEN", ts.URL)
	if err := c.SendMessage(context.Background(), 42, "hello", 0); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, present := gotBody["reply_to_message_id"]; present {
		t.Errorf("reply_to_message_id should be omitted when zero")
	}
}

func TestAPIErrorSurfacesDescription(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok": false, "description": "chat not found"}`))
	}))
	defer ts.Close()

	c := NewClientWithBaseURL("TOKEN", ts.URL)
	err := c.SendMessage(context.Background(), 42, "hello", 0)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); !strings.Contains(got, "chat not found") {
		t.Errorf("error should carry the API description, got %q", got)
	}
}

func TestSendVoiceMultipart(t *testing.T) {
	var gotContentType string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if r.FormValue("chat_id") != "42" {
			t.Errorf("chat_id = %q", r.FormValue("chat_id"))
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer ts.Close()

	c := NewClientWithBaseURL("TOKEN", ts.URL)
	if err := c.SendVoice(context.Background(), 42, []byte("audio-bytes"), 0); err != nil {
		t.Fatalf("send voice: %v", err)
	}
	if !strings.Contains(gotContentType, "multipart/form-data") {
		t.Errorf("content type = %q", gotContentType)
	}
}
