// Package transport sends webservice requests over HTTP.
//
// Read style operations go out as GET with query parameters, writes as POST with
// a form body. The package knows nothing about sessions; it only moves bytes.
package transport

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/jrsteele09/go-vtiger/crmmodel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 32 << 20
)

// Request is one call against the webservice endpoint.
type Request struct {
	Method string     // http.MethodGet or http.MethodPost
	Target string     // Endpoint URL
	Params url.Values // Query string for GET, form body for POST
}

// Operation returns the operation parameter of the request.
func (r Request) Operation() crmmodel.OperationType {
	return crmmodel.OperationType(r.Params.Get(crmmodel.ParamOperation))
}

// Response is the raw outcome of a request.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the server answered 200.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode == http.StatusOK
}

// Doer sends a Request and returns the status code and body.
type Doer interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// HTTPClient is a Doer over a pooled net/http client.
type HTTPClient struct {
	client *http.Client
	logger zerolog.Logger
}

var _ Doer = (*HTTPClient)(nil)

// Option configures an HTTPClient.
type Option func(*clientOptions)

type clientOptions struct {
	client             *http.Client
	timeout            time.Duration
	insecureSkipVerify bool
	logger             zerolog.Logger
}

// WithHTTPClient uses client as is; timeout and TLS options are then ignored.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		o.client = client
	}
}

// WithTimeout sets the per request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

// WithInsecureSkipVerify disables TLS certificate verification. Self hosted CRMs
// often run with self signed certificates.
func WithInsecureSkipVerify(skip bool) Option {
	return func(o *clientOptions) {
		o.insecureSkipVerify = skip
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// New builds an HTTPClient.
func New(options ...Option) *HTTPClient {
	opts := clientOptions{
		timeout: defaultTimeout,
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(&opts)
	}

	client := opts.client
	if client == nil {
		pooled := cleanhttp.DefaultPooledTransport()
		if opts.insecureSkipVerify {
			pooled.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		client = &http.Client{
			Transport: pooled,
			Timeout:   opts.timeout,
		}
	}

	return &HTTPClient{
		client: client,
		logger: opts.logger,
	}
}

// Do sends req. Any status code is returned to the caller; only failures to send
// or read are errors, and those wrap crmmodel.ErrTransport.
func (c *HTTPClient) Do(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := buildRequest(ctx, req)
	if err != nil {
		return nil, crmmodel.NewError(crmmodel.ErrTransport, req.Operation(), "", "build request", err)
	}

	start := time.Now()
	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, crmmodel.NewError(crmmodel.ErrTransport, req.Operation(), "", "send request", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, crmmodel.NewError(crmmodel.ErrTransport, req.Operation(), "", "read response body", err)
	}

	c.logger.Debug().
		Str("operation", req.Operation().String()).
		Str("method", req.Method).
		Int("status", httpResp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("webservice request")

	return &Response{StatusCode: httpResp.StatusCode, Body: body}, nil
}

func buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	target, err := url.Parse(req.Target)
	if err != nil {
		return nil, errors.Wrap(err, "[transport.buildRequest] parse target")
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, errors.Errorf("[transport.buildRequest] target %q is not an absolute URL", req.Target)
	}

	switch req.Method {
	case http.MethodGet, "":
		query := target.Query()
		for k, values := range req.Params {
			for _, v := range values {
				query.Add(k, v)
			}
		}
		target.RawQuery = query.Encode()
		return http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	case http.MethodPost:
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), strings.NewReader(req.Params.Encode()))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return httpReq, nil
	default:
		return nil, errors.Errorf("[transport.buildRequest] unsupported method %q", req.Method)
	}
}
