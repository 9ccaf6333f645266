package restydump

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type memoryOutput struct {
	mu    sync.Mutex
	files map[string]string
}

func (o *memoryOutput) Write(id string, contents string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.files[id] = contents
}

func TestInstrumentRedactsCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		w.Write([]byte(`{"MenuSections": []}`))
	}))
	defer server.Close()

	output := &memoryOutput{files: map[string]string{}}
	client := resty.New().SetBaseURL(server.URL)
	Instrument(client, output)

	_, err := client.R().
		SetAuthToken("secret-token").
		SetHeader("Ocp-Apim-Subscription-Key", "secret-key").
		SetQueryParam("access_token", "secret-token").
		SetQueryParam("locationId", "42").
		SetBody(map[string]int{"ServiceID": 501}).
		Post("/v5/availability/dates")
	require.NoError(t, err)

	require.Len(t, output.files, 1)
	dump := output.files["0001.txt"]
	require.NotContains(t, dump, "secret-token")
	require.NotContains(t, dump, "secret-key")
	require.Contains(t, dump, "POST ")
	require.Contains(t, dump, "locationId=42")
	require.Contains(t, dump, `"ServiceID":501`)
	require.Contains(t, dump, "200")
	require.Contains(t, dump, `{"MenuSections": []}`)
}

func TestRedactURL(t *testing.T) {
	require.Equal(
		t,
		"https://api.example.com/menu?access_token=%3Credacted%3E&b=2",
		redactURL("https://api.example.com/menu?b=2&access_token=abc"),
	)
	require.Equal(t, "https://api.example.com/menu?b=2", redactURL("https://api.example.com/menu?b=2"))
}

func TestFilesystemOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dumps")
	output, err := NewFilesystemOutput(dir)
	require.NoError(t, err)

	output.Write("0001.txt", "hello")
	contents, err := os.ReadFile(filepath.Join(dir, "0001.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(contents))
}
