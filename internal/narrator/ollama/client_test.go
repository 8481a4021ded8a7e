package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hearthside/hearthside/internal/game/domain"
	"github.com/hearthside/hearthside/internal/narrator"
	apperrors "github.com/hearthside/hearthside/internal/platform/errors"
)

func TestGenerate(t *testing.T) {
	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(chatResponse{Message: chatMessage{Role: "assistant", Content: "  The hinges groan.  "}})
	}))
	defer srv.Close()

	client := New(srv.URL, WithModel("test-model"))
	text, err := client.Generate(context.Background(), narrator.Request{
		CampaignName: "Keep",
		ActorName:    "Mira",
		Action:       "I open the door",
		Transcript: []domain.Message{
			{Kind: domain.MessageKindNarrator, Text: "The hall is dark."},
			{Kind: domain.MessageKindPlayer, SenderName: "Mira", Text: "I light a torch"},
			{Kind: domain.MessageKindSystem, Text: "Combat has ended."},
		},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "The hinges groan." {
		t.Fatalf("text = %q, want trimmed narration", text)
	}
	if captured.Model != "test-model" {
		t.Errorf("model = %q, want test-model", captured.Model)
	}
	if captured.Stream {
		t.Error("stream must be disabled")
	}
	// System prompt, two transcript entries (system messages skipped), action.
	if len(captured.Messages) != 4 {
		t.Fatalf("message count = %d, want 4: %+v", len(captured.Messages), captured.Messages)
	}
	if captured.Messages[0].Role != "system" {
		t.Errorf("first role = %q, want system", captured.Messages[0].Role)
	}
	if captured.Messages[1].Role != "assistant" {
		t.Errorf("narrator transcript role = %q, want assistant", captured.Messages[1].Role)
	}
	if got := captured.Messages[3].Content; got != "Mira: I open the door" {
		t.Errorf("action line = %q", got)
	}
}

func TestGenerateErrors(t *testing.T) {
	t.Run("http error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := New(srv.URL).Generate(context.Background(), narrator.Request{ActorName: "Mira", Action: "x"})
		if !apperrors.IsCode(err, apperrors.CodeGeneratorFailure) {
			t.Fatalf("error = %v, want GENERATOR_FAILURE", err)
		}
	})

	t.Run("empty narration", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(chatResponse{})
		}))
		defer srv.Close()

		_, err := New(srv.URL).Generate(context.Background(), narrator.Request{ActorName: "Mira", Action: "x"})
		if !apperrors.IsCode(err, apperrors.CodeGeneratorFailure) {
			t.Fatalf("error = %v, want GENERATOR_FAILURE", err)
		}
	})

	t.Run("unreachable server", func(t *testing.T) {
		_, err := New("http://127.0.0.1:1").Generate(context.Background(), narrator.Request{ActorName: "Mira", Action: "x"})
		if !apperrors.IsCode(err, apperrors.CodeGeneratorFailure) {
			t.Fatalf("error = %v, want GENERATOR_FAILURE", err)
		}
	})
}

func TestAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %q, want /api/tags", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if !New(srv.URL).Available(context.Background()) {
		t.Fatal("Available() = false for healthy server")
	}
	if New("http://127.0.0.1:1").Available(context.Background()) {
		t.Fatal("Available() = true for unreachable server")
	}
}
