// Package processor is a typed client for the payment processor's HTTP API.
package processor

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

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultBaseURL       = "https://api.makeprisms.com"
	DefaultConnectorName = "discord-zap-bot"
	DefaultConnectorType = "nwc.alby"

	maxBodyBytes = 1 << 20
)

var validate = validator.New()

type Client struct {
	baseURL       string
	httpClient    *http.Client
	connectorName string
	connectorType string
	tracer        trace.Tracer
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithConnector sets the connector name and type sent with every wallet
// connection so the processor can tell which relay registered it.
func WithConnector(name, typ string) Option {
	return func(c *Client) {
		if name != "" {
			c.connectorName = name
		}
		if typ != "" {
			c.connectorType = typ
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		connectorName: DefaultConnectorName,
		connectorType: DefaultConnectorType,
		tracer:        otel.Tracer("github.com/susu3304/zapbot/internal/processor"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) userRequest(lnAddress, nwcURL string) *UserRequest {
	return &UserRequest{
		LNAddress: lnAddress,
		NWCConnection: NWCConnection{
			NWCURL:        nwcURL,
			ConnectorName: c.connectorName,
			ConnectorType: c.connectorType,
		},
	}
}

// CreateIdentity registers a new processor user (POST /v0/user, 201).
func (c *Client) CreateIdentity(ctx context.Context, lnAddress, nwcURL string) (*User, error) {
	var user User
	if err := c.call(ctx, "create identity", http.MethodPost, "/v0/user", c.userRequest(lnAddress, nwcURL), http.StatusCreated, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, &TransportError{Op: "create identity", StatusCode: http.StatusCreated, Err: fmt.Errorf("response carries no user id")}
	}
	return &user, nil
}

// UpdateIdentity replaces the address and wallet connection of the calling
// processor user (PATCH /v0/user, 200).
func (c *Client) UpdateIdentity(ctx context.Context, lnAddress, nwcURL string) error {
	return c.call(ctx, "update identity", http.MethodPatch, "/v0/user", c.userRequest(lnAddress, nwcURL), http.StatusOK, nil)
}

// CreatePayment asks the processor to pay amount from sender to receiver
// (POST /v0/payment, 200).
func (c *Client) CreatePayment(ctx context.Context, senderID, receiverID string, amount int64, currency string) (*Payment, error) {
	req := &PaymentRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Amount:     amount,
		Currency:   currency,
	}
	var p Payment
	if err := c.call(ctx, "create payment", http.MethodPost, "/v0/payment", req, http.StatusOK, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPayment fetches the current state of a payment (GET /v0/payment/{id}, 200).
func (c *Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty payment id", ErrInvalidRequest)
	}
	var p Payment
	if err := c.call(ctx, "get payment", http.MethodGet, "/v0/payment/"+url.PathEscape(id), nil, http.StatusOK, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = id
	}
	return &p, nil
}

func (c *Client) call(ctx context.Context, op, method, path string, body any, want int, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "processor."+strings.ReplaceAll(op, " ", "_"),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, op+" failed")
		}
		span.End()
	}()

	var reader io.Reader
	if body != nil {
		if err := validate.Struct(body); err != nil {
			return fmt.Errorf("%s: %w: %v", op, ErrInvalidRequest, err)
		}
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "zapbot/1.0 (+https://github.com/susu3304/zapbot)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode != want {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data)), Err: ErrUnexpectedStatus}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
