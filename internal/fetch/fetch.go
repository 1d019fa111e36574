// Package fetch performs the JSON HTTP calls shared by the keyword service
// client and the provider collector.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	ET "github.com/IBM/fp-go/v2/either"
	F "github.com/IBM/fp-go/v2/function"
	IOE "github.com/IBM/fp-go/v2/ioeither"
	Http "github.com/IBM/fp-go/v2/ioeither/http"
)

// maxBody caps how much of a provider response is read.
const maxBody = 16 << 20

var ErrEmptyBody = errors.New("empty response body")

// StatusError reports a non-2xx answer. URL carries host and path only so
// query-string API keys never reach the logs.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bad status from %s: %d", e.URL, e.StatusCode)
}

// Request builds an *http.Request bound to ctx. A nil body sends no payload;
// otherwise body is JSON-encoded.
func Request(
	ctx context.Context,
	method, url string,
	body any,
	headers map[string]string,
) IOE.IOEither[error, *http.Request] {
	return IOE.TryCatchError(func() (*http.Request, error) {
		var reader io.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("marshal request: %w", err)
			}
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req, nil
	})
}

// Body sends req and returns the response body of a 2xx answer.
func Body(client Http.Client, req IOE.IOEither[error, *http.Request]) IOE.IOEither[error, []byte] {
	return IOE.Bracket(
		client.Do(req),
		func(resp *http.Response) IOE.IOEither[error, []byte] {
			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				return IOE.Left[[]byte](error(&StatusError{
					URL:        resp.Request.URL.Host + resp.Request.URL.Path,
					StatusCode: resp.StatusCode,
				}))
			}
			return IOE.TryCatchError(func() ([]byte, error) {
				return io.ReadAll(io.LimitReader(resp.Body, maxBody))
			})
		},
		func(resp *http.Response, _ ET.Either[error, []byte]) IOE.IOEither[error, any] {
			return IOE.TryCatchError(func() (any, error) { return nil, resp.Body.Close() })
		},
	)
}

// RawJSON sends req and returns the body if it is well-formed, non-empty JSON.
func RawJSON(client Http.Client, req IOE.IOEither[error, *http.Request]) IOE.IOEither[error, json.RawMessage] {
	return F.Pipe1(
		Body(client, req),
		IOE.Chain(func(body []byte) IOE.IOEither[error, json.RawMessage] {
			trimmed := bytes.TrimSpace(body)
			if len(trimmed) == 0 {
				return IOE.Left[json.RawMessage](ErrEmptyBody)
			}
			if !json.Valid(trimmed) {
				return IOE.Left[json.RawMessage](fmt.Errorf("malformed JSON response"))
			}
			return IOE.Right[error](json.RawMessage(trimmed))
		}),
	)
}

// JSON sends req and decodes a 2xx body into T.
func JSON[T any](client Http.Client, req IOE.IOEither[error, *http.Request]) IOE.IOEither[error, T] {
	return F.Pipe1(
		RawJSON(client, req),
		IOE.Chain(func(raw json.RawMessage) IOE.IOEither[error, T] {
			return IOE.TryCatchError(func() (T, error) {
				var out T
				if err := json.Unmarshal(raw, &out); err != nil {
					return out, fmt.Errorf("decode response: %w", err)
				}
				return out, nil
			})
		}),
	)
}
