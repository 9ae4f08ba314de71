package todos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"todo-board/services/board/core"
)

type Client struct {
	log  *slog.Logger
	base *url.URL
	http *http.Client
}

func NewClient(address string, timeout time.Duration, log *slog.Logger) (*Client, error) {
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	base, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("parse todos address %q: %w", address, err)
	}
	return &Client{
		log:  log,
		base: base,
		http: &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// ---- Pinger

func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/ping", nil, nil, nil)
}

// ---- Board

func (c *Client) ListVisible(ctx context.Context, v core.View) ([]core.Todo, error) {
	return c.listWindow(ctx, "/api/users/"+url.PathEscape(v.UserID)+"/todos", v)
}

func (c *Client) ListDone(ctx context.Context, v core.View) ([]core.Todo, error) {
	return c.listWindow(ctx, "/api/users/"+url.PathEscape(v.UserID)+"/todos/done", v)
}

func (c *Client) listWindow(ctx context.Context, path string, v core.View) ([]core.Todo, error) {
	q := url.Values{}
	if v.Date != "" {
		q.Set("date", v.Date)
	}
	if v.Granularity != "" {
		q.Set("granularity", string(v.Granularity))
	}
	if v.TZ != "" {
		q.Set("tz", v.TZ)
	}

	var out struct {
		Todos []core.Todo `json:"todos"`
	}
	if err := c.do(ctx, http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	return out.Todos, nil
}

func (c *Client) ListTodos(ctx context.Context, categoryID string) ([]core.Todo, error) {
	var out struct {
		Todos []core.Todo `json:"todos"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/categories/"+url.PathEscape(categoryID)+"/todos", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Todos, nil
}

func (c *Client) Complete(ctx context.Context, id string, now time.Time) (core.CompleteResult, error) {
	in := map[string]any{"now": now.Format(time.RFC3339Nano)}
	var out core.CompleteResult
	if err := c.do(ctx, http.MethodPost, "/api/todos/"+url.PathEscape(id)+"/complete", nil, in, &out); err != nil {
		return core.CompleteResult{}, err
	}
	return out, nil
}

func (c *Client) Uncomplete(ctx context.Context, id string) (core.Todo, error) {
	var out core.Todo
	if err := c.do(ctx, http.MethodPost, "/api/todos/"+url.PathEscape(id)+"/uncomplete", nil, nil, &out); err != nil {
		return core.Todo{}, err
	}
	return out, nil
}

func (c *Client) ReorderTodos(ctx context.Context, categoryID string, ids []string) error {
	return c.do(ctx, http.MethodPut, "/api/categories/"+url.PathEscape(categoryID)+"/todos/order", nil, reorderIn{IDs: ids}, nil)
}

// ---- Categories

func (c *Client) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	var out struct {
		Categories []core.Category `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/categories", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

func (c *Client) ReorderCategories(ctx context.Context, userID string, ids []string) error {
	return c.do(ctx, http.MethodPut, "/api/users/"+url.PathEscape(userID)+"/categories/order", nil, reorderIn{IDs: ids}, nil)
}

var _ core.Todos = (*Client)(nil)

// ---- helpers

type reorderIn struct {
	IDs []string `json:"ids"`
}

type errorOut struct {
	Error      string   `json:"error"`
	Code       string   `json:"code"`
	Scope      string   `json:"scope"`
	Missing    []string `json:"missing"`
	Unexpected []string `json:"unexpected"`
	Duplicated []string `json:"duplicated"`
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out any) error {
	u := c.base.JoinPath(path)
	u.RawQuery = q.Encode()

	var body io.Reader
	if in != nil {
		data, err := sonic.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("new request %s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return mapTransportErr(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return mapTransportErr(err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return c.mapHTTPErr(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) mapHTTPErr(status int, data []byte) error {
	var e errorOut
	if err := sonic.Unmarshal(data, &e); err != nil {
		c.log.Debug("undecodable error body", "status", status, "error", err)
		e.Error = http.StatusText(status)
	}

	switch {
	case e.Code == "ORDER_MISMATCH" || status == http.StatusConflict:
		return &core.OrderMismatchError{
			Scope:      e.Scope,
			Missing:    e.Missing,
			Unexpected: e.Unexpected,
			Duplicated: e.Duplicated,
		}
	case e.Code == "INVALID_SCHEDULE" || status == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", core.ErrInvalidSchedule, e.Error)
	case e.Code == "NOT_FOUND" || status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", core.ErrNotFound, e.Error)
	case e.Code == "INVALID_ARGS" || status == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", core.ErrInvalidArgs, e.Error)
	case status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout || status == http.StatusBadGateway:
		return fmt.Errorf("%w: %s", core.ErrUnavailable, e.Error)
	default:
		return fmt.Errorf("todos service: %d %s", status, e.Error)
	}
}

func mapTransportErr(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", core.ErrUnavailable, err)
	}
	return err
}
