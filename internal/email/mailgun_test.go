package email

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spa542/brawnyoriginals/internal/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testCache(values map[string]string) *secrets.Cache {
	return secrets.NewCache(secrets.FetcherFunc(func(ctx context.Context) (map[string]string, error) {
		return values, nil
	}), zap.NewNop())
}

func TestSendFulfillmentWithAttachments(t *testing.T) {
	var gotUser, gotPass string
	var gotForm map[string][]string
	var gotFiles []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotForm = r.MultipartForm.Value
		for _, fh := range r.MultipartForm.File["attachment"] {
			gotFiles = append(gotFiles, fh.Filename)
		}
		w.Write([]byte(`{"message":"Queued"}`))
	}))
	defer srv.Close()

	m := NewMailgunClient(testCache(map[string]string{APIKeySecretName: "key-abc"}), Config{
		URL:         srv.URL,
		FromName:    "Brawny Originals",
		FromAddress: "orders@mg.example.com",
	}, zap.NewNop())

	err := m.SendFulfillment(context.Background(), "buyer@example.com", []Attachment{
		{Filename: "Program A.pdf", ContentType: "application/pdf", Content: []byte("pdf-a")},
	}, "your order is attached")
	require.NoError(t, err)

	assert.Equal(t, "api", gotUser)
	assert.Equal(t, "key-abc", gotPass)
	assert.Equal(t, []string{"buyer@example.com"}, gotForm["to"])
	assert.Equal(t, []string{"Brawny Originals <orders@mg.example.com>"}, gotForm["from"])
	assert.Contains(t, gotForm["subject"][0], "Your Order")
	assert.Equal(t, []string{"Program A.pdf"}, gotFiles)
}

func TestSendContact(t *testing.T) {
	var gotForm map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.Write([]byte(`{"message":"Queued"}`))
	}))
	defer srv.Close()

	m := NewMailgunClient(testCache(map[string]string{APIKeySecretName: "key-abc"}), Config{
		URL:          srv.URL,
		FromName:     "Brawny Originals",
		FromAddress:  "orders@mg.example.com",
		ContactEmail: "contact@example.com",
	}, zap.NewNop())

	require.NoError(t, m.SendContact(context.Background(), "Alex", "alex@example.com", "hello there"))
	assert.Equal(t, []string{"contact@example.com"}, gotForm["to"])
	assert.Contains(t, gotForm["subject"][0], "Alex <alex@example.com>")
	assert.Equal(t, []string{"hello there"}, gotForm["text"])
}

func TestSendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := NewMailgunClient(testCache(map[string]string{APIKeySecretName: "bad-key"}), Config{
		URL:          srv.URL,
		FromName:     "Brawny Originals",
		FromAddress:  "orders@mg.example.com",
		ContactEmail: "contact@example.com",
	}, zap.NewNop())

	assert.Error(t, m.SendContact(context.Background(), "Alex", "alex@example.com", "hello"))
}
