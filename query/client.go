package query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-entra-query/internal/errors"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultBaseURL = "https://api.powerbi.com/v1.0/myorg"

	tracerName      = "github.com/jrsteele09/go-entra-query/query"
	maxResponseSize = 32 << 20
	defaultTimeout  = 2 * time.Minute
)

// executeQueriesRequest is the body of the executeQueries call.
type executeQueriesRequest struct {
	Queries            []daxQuery         `json:"queries"`
	SerializerSettings serializerSettings `json:"serializerSettings"`
}

type daxQuery struct {
	Query string `json:"query"`
}

type serializerSettings struct {
	IncludeNulls bool `json:"includeNulls"`
}

// Client runs DAX queries against one semantic model (dataset).
type Client struct {
	baseURL    string
	datasetID  string
	httpClient *http.Client
	tracer     trace.Tracer
}

// Option defines a function type to modify the Client instance.
type Option func(*Client)

// WithBaseURL points the client at another API root, e.g. a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the underlying client. Its transport is instrumented.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a client for the dataset.
func NewClient(datasetID string, options ...Option) (*Client, error) {
	if strings.TrimSpace(datasetID) == "" {
		return nil, fmt.Errorf("[NewClient] %w: dataset id is required", apperrors.ErrInvalidArgs)
	}

	c := &Client{
		baseURL:    DefaultBaseURL,
		datasetID:  datasetID,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range options {
		opt(c)
	}

	if _, err := url.ParseRequestURI(c.baseURL); err != nil {
		return nil, fmt.Errorf("[NewClient] %w: invalid base url: %v", apperrors.ErrInvalidArgs, err)
	}

	instrumented := *c.httpClient
	base := instrumented.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	instrumented.Transport = otelhttp.NewTransport(base)
	c.httpClient = &instrumented
	c.tracer = otel.Tracer(tracerName)
	return c, nil
}

// Endpoint is the executeQueries URL of the dataset.
func (c *Client) Endpoint() string {
	return strings.TrimRight(c.baseURL, "/") + "/datasets/" + url.PathEscape(c.datasetID) + "/executeQueries"
}

// ExecuteQuery runs queryText with the bearer token and returns the rows of
// its single result table. All failures are KindQuery errors.
func (c *Client) ExecuteQuery(ctx context.Context, queryText, accessToken string) (result *Result, err error) {
	const op = "ExecuteQuery"

	ctx, span := c.tracer.Start(ctx, "query.ExecuteQuery", trace.WithAttributes(
		attribute.String("powerbi.dataset_id", c.datasetID),
		attribute.Int("powerbi.query_length", len(queryText)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Int("powerbi.row_count", len(result.Rows)))
		}
		span.End()
	}()

	if accessToken == "" {
		return nil, apperrors.New(apperrors.KindQuery, op, fmt.Errorf("%w: access token is required", apperrors.ErrInvalidArgs))
	}

	body, err := json.Marshal(executeQueriesRequest{
		Queries:            []daxQuery{{Query: queryText}},
		SerializerSettings: serializerSettings{IncludeNulls: true},
	})
	if err != nil {
		return nil, apperrors.New(apperrors.KindQuery, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.New(apperrors.KindQuery, op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.New(apperrors.KindQuery, op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, apperrors.New(apperrors.KindQuery, op, fmt.Errorf("read response: %w", err))
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := serviceError(resp.StatusCode, respBody)
		log.Warn().Int("status", resp.StatusCode).Str("code", statusErr.Code).Msg("executeQueries rejected the query")
		return nil, apperrors.New(apperrors.KindQuery, op, statusErr)
	}

	result, err = ParseResponse(respBody)
	if err != nil {
		return nil, apperrors.New(apperrors.KindQuery, op, err)
	}
	return result, nil
}
