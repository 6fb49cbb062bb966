package headless

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
)

// errTransportClosed is returned by calls issued on a closed transport.
var errTransportClosed = errors.New("transport is closed")

// Transport carries JSON-RPC calls to the server.
//
// Call returns a *Fault when the server answered with an error. Any other
// error means the call could not be completed.
type Transport interface {
	Call(ctx context.Context, method string, params interface{}, result interface{}) error
	Close() error
}

type jsonRPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	Id      uint64        `json:"id"`
}

type jsonRPCResponse struct {
	Id     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// malformedResponseError means the server answered with something that is
// not a response to the request.
type malformedResponseError struct {
	err error
}

func (e *malformedResponseError) Error() string { return "malformed response: " + e.err.Error() }
func (e *malformedResponseError) Unwrap() error { return e.err }

func encodeRequest(method string, params interface{}, id uint64) ([]byte, error) {
	// the server decodes exactly one positional argument
	req := jsonRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  []interface{}{params},
		Id:      id,
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return data, nil
}

func (r *jsonRPCResponse) unpack(id uint64, result interface{}) error {
	fault, err := parseFault(r.Error)
	if err != nil {
		return &malformedResponseError{err: err}
	}
	if fault != nil {
		return fault
	}
	if r.Id != id {
		return &malformedResponseError{err: fmt.Errorf("response ID %d does not match request ID %d", r.Id, id)}
	}
	if result == nil || len(r.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Result, result); err != nil {
		return &malformedResponseError{err: fmt.Errorf("failed to unmarshal result: %w", err)}
	}
	return nil
}

// httpTransport posts each call as its own HTTP request.
type httpTransport struct {
	url    string
	client *http.Client
	seq    atomic.Uint64
	closed atomic.Bool
}

func newHTTPTransport(url string, client *http.Client) *httpTransport {
	return &httpTransport{url: url, client: client}
}

func (t *httpTransport) Call(ctx context.Context, method string, params interface{}, result interface{}) error {
	if t.closed.Load() {
		return errTransportClosed
	}
	id := t.seq.Add(1)
	body, err := encodeRequest(method, params, id)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	// JSON-RPC servers may send faults with a non-2xx status, so only
	// complain about the status when the body is not a response.
	var r jsonRPCResponse
	if err := json.Unmarshal(data, &r); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("unexpected HTTP status %s", resp.Status)
		}
		return &malformedResponseError{err: fmt.Errorf("failed to parse response: %w", err)}
	}
	return r.unpack(id, result)
}

func (t *httpTransport) Close() error {
	t.closed.Store(true)
	t.client.CloseIdleConnections()
	return nil
}
