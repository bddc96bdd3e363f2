package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/vsinha/lotalloc/pkg/application/dto"
	"github.com/vsinha/lotalloc/pkg/domain/entities"
	"github.com/vsinha/lotalloc/pkg/domain/repositories"
	"github.com/vsinha/lotalloc/pkg/infrastructure/config"
)

const tracerName = "github.com/vsinha/lotalloc/rest"

// StatusError is returned for non-2xx responses
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("order service %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Client talks to the order service over HTTP. Every call goes through a
// circuit breaker; 4xx responses do not count against it.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Entry
	tracer  trace.Tracer
}

// Verify interface compliance
var (
	_ repositories.CandidateLotSource = (*Client)(nil)
	_ repositories.AllocationGateway  = (*Client)(nil)
	_ repositories.OrderLineSource    = (*Client)(nil)
)

// NewClient creates a client for the order service at baseURL
func NewClient(baseURL string, timeout time.Duration, breaker config.BreakerConfig, logger *logrus.Entry) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid order service url %q", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(parsed.String(), "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger.WithField("module", "rest.client"),
		tracer:  otel.Tracer(tracerName),
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "order-service",
		MaxRequests: breaker.MaxRequests,
		Interval:    breaker.Interval,
		Timeout:     breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)

			return counts.ConsecutiveFailures >= breaker.ConsecutiveFailures ||
				(counts.Requests >= breaker.MinRequests && failureRatio >= breaker.FailureRatio)
		},
		IsSuccessful: func(err error) bool {
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				return statusErr.StatusCode < http.StatusInternalServerError
			}
			return err == nil
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			c.logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})

	return c, nil
}

// BreakerState reports the circuit breaker state
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// GetOrderLine fetches an order line, accepting the legacy field aliases
func (c *Client) GetOrderLine(ctx context.Context, id entities.OrderLineID) (*entities.OrderLine, error) {
	var payload dto.OrderLinePayload
	if err := c.do(ctx, http.MethodGet, orderLinePath(id), nil, &payload); err != nil {
		return nil, err
	}
	line, err := payload.ToEntity()
	if err != nil {
		return nil, fmt.Errorf("order line %d: %w", id, err)
	}
	return line, nil
}

func (c *Client) FetchCandidateLots(
	ctx context.Context,
	orderLineID entities.OrderLineID,
	productID entities.ProductID,
) ([]entities.CandidateLot, error) {
	path := orderLinePath(orderLineID) + "/candidate-lots?" + url.Values{
		"product_id": []string{strconv.FormatInt(int64(productID), 10)},
	}.Encode()

	var payloads []dto.CandidateLotPayload
	if err := c.do(ctx, http.MethodGet, path, nil, &payloads); err != nil {
		return nil, err
	}

	lots := make([]entities.CandidateLot, 0, len(payloads))
	for _, payload := range payloads {
		lot, err := payload.ToEntity()
		if err != nil {
			return nil, fmt.Errorf("candidate lots for order line %d: %w", orderLineID, err)
		}
		lots = append(lots, *lot)
	}
	return lots, nil
}

func (c *Client) CreateAllocations(
	ctx context.Context,
	orderLineID entities.OrderLineID,
	entries []entities.DraftEntry,
) ([]entities.AllocationID, error) {
	if entries == nil {
		entries = []entities.DraftEntry{}
	}
	request := dto.CreateAllocationsRequest{Allocations: entries}

	var response dto.CreateAllocationsResponse
	if err := c.do(ctx, http.MethodPost, orderLinePath(orderLineID)+"/allocations", request, &response); err != nil {
		return nil, err
	}
	return response.AllocatedIDs, nil
}

func (c *Client) ConfirmAllocations(ctx context.Context, ids []entities.AllocationID) error {
	request := dto.AllocationIDsRequest{IDs: ids}
	if err := dto.Validate(request); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/allocations/confirm", request, nil)
}

func (c *Client) CancelAllocations(
	ctx context.Context,
	orderLineID entities.OrderLineID,
	ids []entities.AllocationID,
) (entities.CancelResult, error) {
	request := dto.AllocationIDsRequest{IDs: ids}
	if err := dto.Validate(request); err != nil {
		return entities.CancelResult{}, err
	}

	var response dto.CancelAllocationsResponse
	if err := c.do(ctx, http.MethodPost, orderLinePath(orderLineID)+"/allocations/cancel", request, &response); err != nil {
		return entities.CancelResult{}, err
	}
	return response.ToEntity(), nil
}

// do sends one request through the breaker and decodes a JSON response into out
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ctx, span := c.tracer.Start(ctx, method+" "+routeOf(path), trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	logger := c.logger.WithFields(logrus.Fields{"method": method, "path": path})

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, span, method, path, body, out)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("order service is currently unavailable: %w", err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.WithError(err).Warn("order service request failed")
		return err
	}

	logger.Debug("order service request succeeded")
	return nil
}

func (c *Client) roundTrip(ctx context.Context, span trace.Span, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func orderLinePath(id entities.OrderLineID) string {
	return "/order-lines/" + strconv.FormatInt(int64(id), 10)
}

// routeOf drops the query string
func routeOf(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
