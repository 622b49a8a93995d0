package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultD1BaseURL = "https://api.cloudflare.com/client/v4"

// D1Config holds the credentials for one Cloudflare D1 database.
type D1Config struct {
	AccountID  string
	DatabaseID string
	APIToken   string
	BaseURL    string
	Timeout    time.Duration
}

// D1Gateway runs statements through the Cloudflare D1 REST query endpoint.
type D1Gateway struct {
	cfg    D1Config
	client *resty.Client
}

var _ Gateway = (*D1Gateway)(nil)
var _ Pinger = (*D1Gateway)(nil)

type d1Message struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type d1StatementResult struct {
	Results []Row `json:"results"`
	Success bool  `json:"success"`
	Meta    Meta  `json:"meta"`
}

type d1Envelope struct {
	Result   []d1StatementResult `json:"result"`
	Success  bool                `json:"success"`
	Errors   []d1Message         `json:"errors"`
	Messages []d1Message         `json:"messages"`
}

type d1TokenEnvelope struct {
	Success bool        `json:"success"`
	Errors  []d1Message `json:"errors"`
	Result  struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"result"`
}

// NewD1Gateway ...
func NewD1Gateway(cfg D1Config) *D1Gateway {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultD1BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	timeout := 30 * time.Second
	if cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(cfg.APIToken).
		SetTimeout(timeout).
		SetRetryCount(0)

	return &D1Gateway{cfg: cfg, client: client}
}

func (g *D1Gateway) Dialect() Dialect {
	return DialectSQLite
}

// Execute posts one statement to the query endpoint and returns the rows of
// its first result set.
func (g *D1Gateway) Execute(ctx context.Context, sql string, params ...any) (*Result, error) {
	if g.cfg.AccountID == "" {
		return nil, fmt.Errorf("%w: account_id cannot be empty", ErrInvalidParameter)
	}
	if g.cfg.DatabaseID == "" {
		return nil, fmt.Errorf("%w: database_id cannot be empty", ErrInvalidParameter)
	}
	if strings.TrimSpace(sql) == "" {
		return nil, fmt.Errorf("%w: sql cannot be empty", ErrInvalidParameter)
	}

	wireParams := make([]any, 0, len(params))
	for _, p := range params {
		wireParams = append(wireParams, normalizeParam(p))
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"account":  g.cfg.AccountID,
			"database": g.cfg.DatabaseID,
		}).
		SetBody(map[string]any{
			"sql":    sql,
			"params": wireParams,
		}).
		Post("/accounts/{account}/d1/database/{database}/query")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	if resp.IsError() {
		return nil, &RequestError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	var envelope d1Envelope
	if err := decodeJSON(resp.Body(), &envelope); err != nil {
		return nil, err
	}
	if !envelope.Success {
		return nil, fmt.Errorf("%w: %s", ErrStatement, joinMessages(envelope.Errors))
	}
	if len(envelope.Result) == 0 {
		return &Result{}, nil
	}
	first := envelope.Result[0]
	if !first.Success {
		return nil, fmt.Errorf("%w: statement reported failure", ErrStatement)
	}
	return &Result{Rows: first.Results, Meta: first.Meta}, nil
}

// VerifyToken checks that the configured API token is valid and active.
func (g *D1Gateway) VerifyToken(ctx context.Context) error {
	resp, err := g.client.R().
		SetContext(ctx).
		Get("/user/tokens/verify")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequest, err)
	}
	if resp.IsError() {
		return &RequestError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	var envelope d1TokenEnvelope
	if err := decodeJSON(resp.Body(), &envelope); err != nil {
		return err
	}
	if !envelope.Success {
		return fmt.Errorf("token verification failed: %s", joinMessages(envelope.Errors))
	}
	if envelope.Result.Status != "active" {
		return fmt.Errorf("token verification failed: token status is %q", envelope.Result.Status)
	}
	return nil
}

func (g *D1Gateway) Ping(ctx context.Context) error {
	return g.VerifyToken(ctx)
}

func decodeJSON(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

func joinMessages(msgs []d1Message) string {
	if len(msgs) == 0 {
		return "unknown error"
	}
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, fmt.Sprintf("%d: %s", m.Code, m.Message))
	}
	return strings.Join(parts, "; ")
}
