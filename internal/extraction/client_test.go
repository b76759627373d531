package extraction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idvet/internal/screening"
)

func TestExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "passport.jpg", header.Filename)

		json.NewEncoder(w).Encode(map[string]any{
			"full_name":        "Jane Example",
			"date_of_birth":    "1984-02-14",
			"nationality":      "Germany",
			"nationality_code": "DE",
			"document_type":    "passport",
			"document_number":  "X1234567",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", srv.Client())
	identity, err := client.Extract(context.Background(), strings.NewReader("fake-image-bytes"), "passport.jpg")
	require.NoError(t, err)

	assert.Equal(t, "Jane Example", identity.FullName)
	assert.Equal(t, "1984-02-14", identity.DateOfBirth)
	assert.Equal(t, "DE", identity.NationalityCode)
	assert.Equal(t, "passport", identity.DocumentType)
}

func TestExtractMissingRequiredFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"full_name": "Jane Example"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", srv.Client())
	_, err := client.Extract(context.Background(), strings.NewReader("x"), "id.png")
	require.Error(t, err)
	assert.Equal(t, screening.FailureInvalidResponse, screening.KindOf(err))
	assert.False(t, screening.IsRetryable(err))
}

func TestExtractServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", srv.Client())
	_, err := client.Extract(context.Background(), strings.NewReader("x"), "id.png")
	require.Error(t, err)
	assert.Equal(t, screening.FailureProvider, screening.KindOf(err))
}
