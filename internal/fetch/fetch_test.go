package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	ET "github.com/IBM/fp-go/v2/either"
	Http "github.com/IBM/fp-go/v2/ioeither/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name string `json:"name"`
}

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRawJSON(t *testing.T) {
	client := Http.MakeClient(http.DefaultClient)

	t.Run("ok", func(t *testing.T) {
		srv := serve(t, http.StatusOK, "  {\"name\":\"x\"}\n")
		raw, err := ET.UnwrapError(RawJSON(client, Request(context.Background(), http.MethodGet, srv.URL, nil, nil))())
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"x"}`, string(raw))
	})

	t.Run("status error hides query", func(t *testing.T) {
		srv := serve(t, http.StatusTooManyRequests, `{}`)
		_, err := ET.UnwrapError(RawJSON(client, Request(context.Background(), http.MethodGet, srv.URL+"/x?api_key=secret", nil, nil))())
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
		assert.NotContains(t, err.Error(), "secret")
	})

	t.Run("empty body", func(t *testing.T) {
		srv := serve(t, http.StatusOK, " ")
		_, err := ET.UnwrapError(RawJSON(client, Request(context.Background(), http.MethodGet, srv.URL, nil, nil))())
		assert.True(t, errors.Is(err, ErrEmptyBody))
	})

	t.Run("malformed", func(t *testing.T) {
		srv := serve(t, http.StatusOK, `{"name":`)
		_, err := ET.UnwrapError(RawJSON(client, Request(context.Background(), http.MethodGet, srv.URL, nil, nil))())
		assert.Error(t, err)
	})
}

func TestJSONSendsBodyAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in payload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "v", r.Header.Get("X-Test"))
		_ = json.NewEncoder(w).Encode(payload{Name: in.Name + "!"})
	}))
	defer srv.Close()

	req := Request(context.Background(), http.MethodPost, srv.URL, payload{Name: "hi"}, map[string]string{"X-Test": "v"})
	out, err := ET.UnwrapError(JSON[payload](Http.MakeClient(http.DefaultClient), req)())
	require.NoError(t, err)
	assert.Equal(t, "hi!", out.Name)
}

func TestRequestHonoursCancelledContext(t *testing.T) {
	srv := serve(t, http.StatusOK, `{}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ET.UnwrapError(RawJSON(Http.MakeClient(http.DefaultClient), Request(ctx, http.MethodGet, srv.URL, nil, nil))())
	assert.Error(t, err)
}
