package translator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/catalogsync/internal/models"
)

func TestDefaultCatalog_Order(t *testing.T) {
	c := DefaultCatalog()

	assert.Equal(t, []string{"en", "fr", "de", "it", "pl"}, c.Languages())
	for _, code := range c.Languages() {
		p, ok := c.Get(code)
		require.True(t, ok)
		assert.Contains(t, p.UserPrompt, "{{DESCRIPTION}}", code)
		assert.Contains(t, p.UserPrompt, "{{PROPERTY_DATA}}", code)
		assert.NotEmpty(t, p.SystemPrompt, code)
		assert.Greater(t, p.Temperature, 0.0, code)
	}
}

func TestCatalog_LanguagesIsACopy(t *testing.T) {
	c := DefaultCatalog()
	langs := c.Languages()
	langs[0] = "xx"

	assert.Equal(t, "en", c.Languages()[0])
}

func TestCatalog_Restrict(t *testing.T) {
	c := DefaultCatalog()

	known, unknown := c.Restrict([]string{"pl", "zz", "en", "aa", "pl"})

	assert.Equal(t, []string{"pl", "en"}, known)
	assert.Equal(t, []string{"aa", "zz"}, unknown)
}

func TestBuildUserMessage(t *testing.T) {
	p := LanguagePrompt{UserPrompt: "{{PROPERTY_DATA}}\nOriginal:\n{{DESCRIPTION}}"}
	view := models.PublishedView{
		Reference: "2751",
		Type:      "Piso",
		City:      "Gandia",
		Price:     145000,
		Area:      92.5,
		Rooms:     3,
		Baths:     2,
	}

	msg := BuildUserMessage(p, "Piso luminoso", PropertyDataFromView(view))

	assert.Equal(t,
		"\nDatos de la propiedad:\nRef: 2751 | Tipo: Piso | Precio (solo contexto, no mencionar): 145000 € | Superficie: 92.5m² | Habitaciones: 3 | Baños: 2 | Ubicación: Gandia\n"+
			"\nOriginal:\nPiso luminoso",
		msg)
}

func TestBuildUserMessage_NoData(t *testing.T) {
	p := LanguagePrompt{UserPrompt: "{{PROPERTY_DATA}}|{{DESCRIPTION}}"}

	assert.Equal(t, "|texto", BuildUserMessage(p, "texto", PropertyData{}))
}

func TestAppendFooter_Idempotent(t *testing.T) {
	once := AppendFooter("Bright flat.\n")
	twice := AppendFooter(once)

	assert.Equal(t, "Bright flat."+Footer, once)
	assert.Equal(t, once, twice)
	assert.True(t, HasFooter(once))
	assert.False(t, HasFooter("Bright flat."))
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "plain text", want: "plain text"},
		{in: "```\nHello\n```", want: "Hello"},
		{in: "```json\n{\"a\":1}\n```", want: "{\"a\":1}"},
		{in: "```Hello there```", want: "Hello there"},
		{in: "  \n```text\nBonjour\n```  ", want: "Bonjour"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StripCodeFences(tt.in), tt.in)
	}
}

func TestNewProvider_RequiresAPIKey(t *testing.T) {
	p, err := NewProvider(Options{BaseURL: "http://localhost"})

	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestProvider_Translate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sonar", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "be brief", req.Messages[0].Content)
		assert.Equal(t, "translate me", req.Messages[1].Content)
		assert.InDelta(t, 0.35, req.Temperature, 1e-9)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices":[{"message":{"role":"assistant","content":"` + "```text\\nBright flat\\n```" + `"}}],
			"usage":{"prompt_tokens":120,"completion_tokens":80}
		}`))
	}))
	defer server.Close()

	p, err := NewProvider(Options{BaseURL: server.URL + "/", APIKey: "key", Timeout: 5 * time.Second, RequestsPerSec: 100})
	require.NoError(t, err)

	out, err := p.Translate(context.Background(), "be brief", "translate me", 0.35)

	require.NoError(t, err)
	assert.Equal(t, "Bright flat", out.Text)
	assert.Equal(t, 200, out.TotalTokens())
}

func TestProvider_TranslateErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
		wantErr error
	}{
		{name: "provider error", status: http.StatusUnauthorized, body: `{"error":{"message":"invalid key"}}`, wantMsg: "invalid key"},
		{name: "plain error body", status: http.StatusBadGateway, body: `upstream down`, wantMsg: "upstream down"},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, wantErr: ErrEmptyCompletion},
		{name: "blank text", status: http.StatusOK, body: `{"choices":[{"message":{"content":"   "}}]}`, wantErr: ErrEmptyCompletion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if strings.HasPrefix(tt.body, "{") {
					w.Header().Set("Content-Type", "application/json")
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p, err := NewProvider(Options{BaseURL: server.URL, APIKey: "key"})
			require.NoError(t, err)

			_, err = p.Translate(context.Background(), "s", "u", 0.4)

			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			var perr *ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.status, perr.StatusCode)
			assert.True(t, strings.Contains(perr.Message, tt.wantMsg), perr.Message)
		})
	}
}

func TestProvider_CancelledContext(t *testing.T) {
	p, err := NewProvider(Options{BaseURL: "http://127.0.0.1:1", APIKey: "key", RequestsPerSec: 0.001})
	require.NoError(t, err)

	// Drain the single burst token so the next call has to wait.
	ctx, cancel := context.WithCancel(context.Background())
	cc := p.(*chatClient)
	require.True(t, cc.limiter.Allow())
	cancel()

	_, err = p.Translate(ctx, "s", "u", 0.4)
	assert.Error(t, err)
}
