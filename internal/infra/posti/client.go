package posti

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"posti_delivery_tracker/internal/domain/schedule"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
)

const maxFetchAttempts = 3

// Client fetches delivery dates from the Posti maildelivery API. It is the
// tracker's fetch capability: any transport-level failure (timeout, HTTP
// error status, malformed payload) surfaces as an error, which the
// coordinator treats uniformly as a failed attempt.
//
// Transient failures are retried with exponential backoff before giving up;
// client errors and malformed payloads are not retried.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logrus.Entry
}

func NewClient(baseURL string, timeout time.Duration, log *logrus.Entry) *Client {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     log.WithField("component", "posti_client"),
	}
}

// The API returns a JSON array whose first element carries the dates for the
// queried postal code.
type apiEntry struct {
	DeliveryDates []string `json:"deliveryDates"`
}

// Fetch implements schedule.Fetcher.
func (c *Client) Fetch(ctx context.Context, postalCode schedule.PostalCode) (schedule.RawDeliveryResponse, error) {
	rawDates, err := backoff.Retry(ctx, func() ([]string, error) {
		return c.fetchOnce(ctx, postalCode)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxFetchAttempts),
	)
	if err != nil {
		return schedule.RawDeliveryResponse{}, fmt.Errorf("fetching delivery dates for %s: %w", postalCode, err)
	}

	c.logger.WithFields(logrus.Fields{
		"postal_code": postalCode.String(),
		"date_count":  len(rawDates),
	}).Debug("Fetched delivery dates from Posti API")

	return schedule.RawDeliveryResponse{Success: true, RawDates: rawDates}, nil
}

func (c *Client) fetchOnce(ctx context.Context, postalCode schedule.PostalCode) ([]string, error) {
	reqURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("invalid API base URL: %w", err))
	}
	query := reqURL.Query()
	query.Set("q", postalCode.String())
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error communicating with Posti API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("error fetching data from Posti API: HTTP %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// Retrying a client error with the same request cannot help.
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	var payload []apiEntry
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("malformed response from Posti API: %w", err))
	}
	if len(payload) == 0 {
		return nil, backoff.Permanent(fmt.Errorf("no data returned from Posti API"))
	}
	if payload[0].DeliveryDates == nil {
		return nil, backoff.Permanent(fmt.Errorf("invalid data structure from Posti API"))
	}

	// An empty deliveryDates list is valid data, not a failure.
	return payload[0].DeliveryDates, nil
}
