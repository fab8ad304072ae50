package ai

import (
	"testing"

	"studyflow/internal/apperr"
)

func testConfig() Config {
	return Config{
		DefaultProvider: ProviderOllama,
		OllamaURL:       "http://localhost:11434/v1",
		OllamaModel:     "llama3.2",
		OpenAIURL:       "https://api.openai.com/v1",
		OpenAIModel:     "gpt-4o-mini",
	}
}

func TestForRequestDefaults(t *testing.T) {
	c, err := ForRequest(testConfig(), "", "", "")
	if err != nil {
		t.Fatalf("ForRequest: %v", err)
	}
	if c.Provider() != ProviderOllama {
		t.Errorf("expected default provider ollama, got %s", c.Provider())
	}
	if c.Model() != "llama3.2" {
		t.Errorf("expected default model, got %s", c.Model())
	}
}

func TestForRequestProviderSelection(t *testing.T) {
	// "llama" is accepted as an alias for the local provider.
	c, err := ForRequest(testConfig(), "llama", "mistral", "")
	if err != nil {
		t.Fatalf("ForRequest: %v", err)
	}
	if c.Provider() != ProviderOllama || c.Model() != "mistral" {
		t.Errorf("alias selection failed: provider=%s model=%s", c.Provider(), c.Model())
	}

	c, err = ForRequest(testConfig(), "OpenAI", "gpt-4o", "sk-0123456789abcdef0123456789")
	if err != nil {
		t.Fatalf("ForRequest openai: %v", err)
	}
	if c.Provider() != ProviderOpenAI || c.Model() != "gpt-4o" {
		t.Errorf("openai selection failed: provider=%s model=%s", c.Provider(), c.Model())
	}

	_, err = ForRequest(testConfig(), "bard", "", "")
	if apperr.CodeOf(err) != apperr.CodeInvalidRequest {
		t.Errorf("expected invalid_request for unknown provider, got %v", err)
	}
}

func TestForRequestOpenAIKeyValidation(t *testing.T) {
	tests := []struct {
		name string
		key  string
		ok   bool
	}{
		{"valid key", "sk-0123456789abcdef0123456789", true},
		{"missing key", "", false},
		{"too short", "sk-short", false},
		{"wrong prefix", "pk-0123456789abcdef0123456789", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ForRequest(testConfig(), ProviderOpenAI, "", tt.key)
			if tt.ok && err != nil {
				t.Errorf("expected key accepted, got %v", err)
			}
			if !tt.ok && apperr.CodeOf(err) != apperr.CodeInvalidRequest {
				t.Errorf("expected invalid_request, got %v", err)
			}
		})
	}
}
