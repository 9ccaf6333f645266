package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"spavail-backend/internal/components/telemetry"
	"spavail-backend/internal/token"

	"github.com/stretchr/testify/require"
)

type staticTokens struct {
	value string
	err   error
}

func (s staticTokens) Token(context.Context) (token.Credential, error) {
	if s.err != nil {
		return token.Credential{}, s.err
	}
	return token.Credential{Value: s.value, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc, tokens TokenProvider) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Options{
		BaseUrl:         server.URL,
		SubscriptionKey: "sub-key",
	}, tokens, telemetry.NewTestAPI(t))
}

func TestRequestAttachesCredentials(t *testing.T) {
	type payload struct {
		LocationID int64 `json:"LocationID"`
	}

	var seen *http.Request
	var seenBody payload
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = r
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &seenBody)
		w.Header().Set("content-type", "application/json")
		w.Write([]byte(`{"ok": true}`))
	}, staticTokens{value: "tok-123"})

	var out struct {
		Ok bool `json:"ok"`
	}
	err := client.Request(
		context.Background(),
		http.MethodPost,
		"/v5/availability/dates",
		url.Values{"locationId": []string{"42"}},
		payload{LocationID: 42},
		&out,
	)
	require.NoError(t, err)
	require.True(t, out.Ok)

	require.Equal(t, "/v5/availability/dates", seen.URL.Path)
	require.Equal(t, "Bearer tok-123", seen.Header.Get("Authorization"))
	require.Equal(t, "tok-123", seen.URL.Query().Get("access_token"))
	require.Equal(t, "42", seen.URL.Query().Get("locationId"))
	require.Equal(t, "sub-key", seen.Header.Get(subscriptionKeyHeader))
	require.Equal(t, "application/json", seen.Header.Get("content-type"))
	require.Equal(t, payload{LocationID: 42}, seenBody)
}

func TestRequestWithoutBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		raw, _ := io.ReadAll(r.Body)
		require.Empty(t, raw)
		w.Write([]byte(`[]`))
	}, staticTokens{value: "tok"})

	var out []int
	require.NoError(t, client.Request(context.Background(), http.MethodGet, "/menu", nil, nil, &out))
	require.Empty(t, out)
}

func TestRequestRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "token expired"}`))
	}, staticTokens{value: "expired"})

	err := client.Request(context.Background(), http.MethodGet, "/menu", nil, nil, nil)
	require.True(t, IsRejected(err))

	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))
	require.Equal(t, http.StatusUnauthorized, rejected.StatusCode)
	require.Contains(t, rejected.Body, "token expired")
	require.Contains(t, err.Error(), "401")
}

func TestRequestMalformed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}, staticTokens{value: "tok"})

	var out map[string]any
	err := client.Request(context.Background(), http.MethodGet, "/menu", nil, nil, &out)
	require.ErrorIs(t, err, ErrMalformedShape)
	require.False(t, IsRejected(err))
}

func TestRequestTokenFailure(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	}, staticTokens{err: token.ErrAcquisitionUnavailable})

	err := client.Request(context.Background(), http.MethodGet, "/menu", nil, nil, nil)
	require.ErrorIs(t, err, token.ErrAcquisitionUnavailable)
	require.False(t, called)
}

func TestRejectedErrorMessage(t *testing.T) {
	err := &RejectedError{StatusCode: http.StatusForbidden}
	require.Equal(t, "upstream rejected request: 403 Forbidden", err.Error())
}

type recordedDumps struct {
	ids      []string
	contents []string
}

func (d *recordedDumps) Write(id string, contents string) {
	d.ids = append(d.ids, id)
	d.contents = append(d.contents, contents)
}

func TestRequestDumpsWithoutToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	dumps := &recordedDumps{}
	client := NewClient(Options{
		BaseUrl:         server.URL,
		SubscriptionKey: "sub-key",
		Dump:            dumps,
	}, staticTokens{value: "tok-dumped"}, telemetry.NewTestAPI(t))

	require.NoError(t, client.Request(context.Background(), http.MethodGet, "/menu", nil, nil, nil))
	require.Equal(t, []string{"0001.txt"}, dumps.ids)
	require.Contains(t, dumps.contents[0], "GET ")
	require.NotContains(t, dumps.contents[0], "tok-dumped")
	require.NotContains(t, dumps.contents[0], "sub-key")
}
