package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
)

const (
	DefaultQueueTimesURL = "https://queue-times.com"
	generalLand          = "Geral"
	maxQueueBodyBytes    = 4 << 20
)

type Ride struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	IsOpen      bool      `json:"is_open"`
	WaitTime    int       `json:"wait_time"`
	LastUpdated time.Time `json:"last_updated"`
	Land        string    `json:"-"`
}

type land struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Rides []Ride `json:"rides"`
}

type queueTimesPayload struct {
	Lands []land `json:"lands"`
	Rides []Ride `json:"rides"`
}

// WaitTimes is implemented by the Queue-Times client.
type WaitTimes interface {
	Rides(ctx context.Context, parkID int) ([]Ride, error)
}

type QueueTimesClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ WaitTimes = (*QueueTimesClient)(nil)

func NewQueueTimesClient(baseURL string, timeout time.Duration) (*QueueTimesClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultQueueTimesURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid queue-times url: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &QueueTimesClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Rides returns every ride of the park, flattened, with its land name.
// Rides outside any land are grouped under "Geral".
func (c *QueueTimesClient) Rides(ctx context.Context, parkID int) ([]Ride, error) {
	if parkID <= 0 {
		return nil, errors.New("park id must be positive")
	}
	endpoint := fmt.Sprintf("%s/parks/%d/queue_times.json", c.baseURL, parkID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build queue-times request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: queue-times park=%d: %v", contractx.ErrUpstream, parkID, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxQueueBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read queue-times response: %v", contractx.ErrUpstream, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: queue-times status=%d", contractx.ErrUpstream, resp.StatusCode)
	}

	var payload queueTimesPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode queue-times response: %v", contractx.ErrUpstream, err)
	}

	var rides []Ride
	for _, l := range payload.Lands {
		for _, r := range l.Rides {
			r.Land = l.Name
			rides = append(rides, r)
		}
	}
	for _, r := range payload.Rides {
		r.Land = generalLand
		rides = append(rides, r)
	}
	return rides, nil
}
