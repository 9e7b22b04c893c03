package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goldenhour/backoffice/internal/config"
)

func TestSendTextMessage(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v20.0/555/messages" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("Unexpected auth header %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer server.Close()

	client := NewClient(config.WhatsAppConfig{BaseURL: server.URL + "/", APIVersion: "v20.0", AccessToken: "secret", PhoneNumberID: "555"})
	resp, err := client.SendTextMessage(context.Background(), SendTextMessageRequest{To: "60123", Body: "Stock at C60"})
	if err != nil {
		t.Fatalf("SendTextMessage failed: %v", err)
	}
	if len(resp.Messages) != 1 || resp.Messages[0].ID != "wamid.1" {
		t.Errorf("Unexpected response %+v", resp)
	}
	if got["to"] != "60123" || got["type"] != "text" {
		t.Errorf("Unexpected payload %v", got)
	}
	text, _ := got["text"].(map[string]any)
	if text["body"] != "Stock at C60" {
		t.Errorf("Unexpected text body %v", text)
	}
}

func TestSendTextMessage_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid parameter","code":100}}`))
	}))
	defer server.Close()

	client := NewClient(config.WhatsAppConfig{BaseURL: server.URL, APIVersion: "v20.0", AccessToken: "secret", PhoneNumberID: "555"})
	_, err := client.SendTextMessage(context.Background(), SendTextMessageRequest{To: "60123", Body: "hi"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Code != 100 || apiErr.Message != "Invalid parameter" {
		t.Errorf("Unexpected error payload %+v", apiErr)
	}

	if _, err := client.SendTextMessage(context.Background(), SendTextMessageRequest{Body: "hi"}); err == nil {
		t.Errorf("Expected an empty recipient to be rejected")
	}
}
