package zapi

import (
	"bytes"
	"context"
	"encoding/base64"
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
	DefaultBaseURL = "https://api.z-api.io"

	maxErrorBodyBytes = 4 << 10
)

var ErrInvalidPhone = errors.New("invalid phone number")

type Config struct {
	BaseURL       string        `split_words:"true" default:"https://api.z-api.io"`
	InstanceID    string        `split_words:"true" required:"true"`
	InstanceToken string        `split_words:"true" required:"true"`
	ClientToken   string        `split_words:"true" required:"true"`
	Timeout       time.Duration `split_words:"true" default:"30s"`
}

// Client sends WhatsApp messages through a Z-API instance.
type Client struct {
	instanceURL string
	clientToken string
	httpClient  *http.Client
}

var _ contractx.Messenger = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	instanceID := strings.TrimSpace(cfg.InstanceID)
	instanceToken := strings.TrimSpace(cfg.InstanceToken)
	if instanceID == "" || instanceToken == "" {
		return nil, errors.New("zapi instance id and token are required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &Client{
		instanceURL: fmt.Sprintf("%s/instances/%s/token/%s", baseURL, url.PathEscape(instanceID), url.PathEscape(instanceToken)),
		clientToken: strings.TrimSpace(cfg.ClientToken),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	return client, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

type sendTextRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type sendFileRequest struct {
	Phone    string `json:"phone"`
	Filename string `json:"filename"`
	Base64   string `json:"base64"`
	Caption  string `json:"caption,omitempty"`
}

func (c *Client) SendText(ctx context.Context, phone string, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("zapi: message is empty")
	}
	resolved, err := NormalizePhone(phone)
	if err != nil {
		return err
	}
	return c.post(ctx, "/send-text", sendTextRequest{Phone: resolved, Message: text})
}

// SendDocument uploads doc inline as a base64 data URI.
func (c *Client) SendDocument(ctx context.Context, phone string, doc contractx.Document) error {
	if len(doc.Data) == 0 {
		return errors.New("zapi: document is empty")
	}
	resolved, err := NormalizePhone(phone)
	if err != nil {
		return err
	}

	mimeType := doc.MIMEType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return c.post(ctx, "/send-file-base64", sendFileRequest{
		Phone:    resolved,
		Filename: doc.Filename,
		Base64:   "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(doc.Data),
		Caption:  doc.Caption,
	})
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("zapi: marshal %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.instanceURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("zapi: build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.clientToken != "" {
		req.Header.Set("Client-Token", c.clientToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("zapi: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("zapi: %s status=%d body=%s", path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// NormalizePhone keeps digits only, requires 11 to 13 of them and adds the
// Brazilian country code to bare DDD plus number inputs.
func NormalizePhone(phone string) (string, error) {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if len(digits) < 11 || len(digits) > 13 {
		return "", fmt.Errorf("%w: %q must have 11 to 13 digits", ErrInvalidPhone, phone)
	}
	if !strings.HasPrefix(digits, "55") && len(digits) == 11 {
		digits = "55" + digits
	}
	return digits, nil
}
