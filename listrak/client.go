// Package listrak is a minimal client for the Listrak IntegrationService
// (SOAP v31). It exposes the handful of report operations the sync needs,
// decoding responses into generic nested structures so callers stay
// independent of the wire format.
package listrak

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/carlmjohnson/requests"
)

const (
	// DefaultEndpoint is the production IntegrationService URL.
	DefaultEndpoint = "https://webservices.listrak.com/v31/IntegrationService.asmx"

	// Namespace is the service XML namespace, also used for SOAPAction.
	Namespace = "http://webservices.listrak.com/v31/"

	// RequestTimeout is the default timeout for all requests to the service.
	RequestTimeout = 60 * time.Second
)

// Client invokes named operations against the IntegrationService, carrying
// the WS-user credentials as a SOAP header on every call. It does not retry:
// a failed call is returned to the caller, which aborts the current sweep.
type Client struct {
	endpoint   string
	username   string
	password   string
	httpClient *http.Client
}

func New(endpoint, username, password string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint:   endpoint,
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: RequestTimeout},
	}
}

// Call invokes op with the given keyword parameters and returns the decoded
// {op}Result node: a map of child elements, a list where an element repeats,
// scalars at the leaves. Values in dateTime lexical form decode to time.Time
// (read as UTC when no zone is present). A nil result means the service
// returned an empty result set.
func (c *Client) Call(ctx context.Context, op string, params map[string]interface{}) (interface{}, error) {
	envelope, err := buildEnvelope(op, c.username, c.password, params)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request %w", op, err)
	}
	var body string
	err = requests.
		URL(c.endpoint).
		Client(c.httpClient).
		ContentType("text/xml; charset=utf-8").
		Header("SOAPAction", fmt.Sprintf("%q", Namespace+op)).
		BodyBytes(envelope).
		ToString(&body).
		AddValidator(nil).
		Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s request failed %w", op, err)
	}
	result, err := parseResponse([]byte(body), op)
	if err != nil {
		log.Printf("Listrak error for %s: %v", op, err)
		return nil, err
	}
	return result, nil
}
