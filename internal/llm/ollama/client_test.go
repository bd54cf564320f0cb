package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"resumegen-backend/internal/llm"
)

func TestOptimizeCallsGenerate(t *testing.T) {
	var gotBody generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "**PROFESSIONAL SUMMARY**\nOptimized."})
	}))
	defer srv.Close()

	c := New(srv.URL, "mistral", 10*time.Second)
	res, err := c.Optimize(context.Background(), llm.OptimizeInput{
		ResumeText:     "resume",
		JobDescription: "job",
		Tone:           llm.ToneTech,
	})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}

	if gotBody.Model != "mistral" {
		t.Errorf("model = %q, want mistral", gotBody.Model)
	}
	if gotBody.Stream {
		t.Error("expected stream=false")
	}
	if gotBody.Options["temperature"] != 0.7 {
		t.Errorf("temperature = %v, want 0.7", gotBody.Options["temperature"])
	}
	if gotBody.Options["top_p"] != 0.9 {
		t.Errorf("top_p = %v, want 0.9", gotBody.Options["top_p"])
	}
	if !strings.Contains(gotBody.Prompt, "job") || !strings.Contains(gotBody.Prompt, "resume") {
		t.Error("prompt missing resume or job text")
	}
	if res.Method != "ai_optimization" {
		t.Errorf("method = %q", res.Method)
	}
	if !strings.Contains(res.Text, "Optimized.") {
		t.Errorf("unexpected text %q", res.Text)
	}
}

func TestOptimizeUnreachableMapsToUnavailable(t *testing.T) {
	c := New("http://127.0.0.1:1", "mistral", time.Second)
	_, err := c.Optimize(context.Background(), llm.OptimizeInput{Tone: llm.ToneProfessional})
	if !errors.Is(err, llm.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"models":[{"name":"mistral:latest"},{"name":"llama3:8b"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "", 0)
	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 || models[0] != "mistral:latest" {
		t.Fatalf("unexpected models %v", models)
	}
	if !c.Available(context.Background()) {
		t.Fatal("expected Available to be true")
	}
}

func TestParseTone(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    llm.Tone
		wantErr bool
	}{
		{"", llm.ToneProfessional, false},
		{"professional", llm.ToneProfessional, false},
		{"  Tech ", llm.ToneTech, false},
		{"creative", llm.ToneCreative, false},
		{"sassy", "", true},
	} {
		got, err := llm.ParseTone(tc.in)
		if tc.wantErr {
			if !errors.Is(err, llm.ErrUnknownTone) {
				t.Errorf("ParseTone(%q): expected ErrUnknownTone, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseTone(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestFallbackOptimizeListsJobSkills(t *testing.T) {
	res := llm.FallbackOptimize(llm.OptimizeInput{
		JobDescription: "We use Python, Docker and AWS daily.",
		Tone:           llm.ToneProfessional,
	})
	if res.Method != "rule_based_optimization" {
		t.Fatalf("method = %q", res.Method)
	}
	for _, want := range []string{"Python", "Docker", "Aws"} {
		if !strings.Contains(res.Text, want) {
			t.Errorf("expected %q in fallback output:\n%s", want, res.Text)
		}
	}
	if !strings.Contains(res.Text, "**KEY SKILLS**") {
		t.Error("expected key skills section")
	}
}
