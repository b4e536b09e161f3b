package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
)

type TwilioClient struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
}

type twilioMessage struct {
	To   string `url:"To"`
	From string `url:"From"`
	Body string `url:"Body"`
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewTwilioClient(accountSID, authToken, from, baseURL string) *TwilioClient {
	if baseURL == "" {
		baseURL = "https://api.twilio.com"
	}
	return &TwilioClient{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *TwilioClient) Name() string { return "twilio" }

func (c *TwilioClient) SendSMS(ctx context.Context, to, body string) error {
	form, err := query.Values(twilioMessage{To: to, From: c.from, Body: body})
	if err != nil {
		return fmt.Errorf("encode twilio form: %w", err)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, url.PathEscape(c.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	var te twilioError
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&te); err == nil && te.Message != "" {
		return fmt.Errorf("twilio: status %d: %s (code %d)", resp.StatusCode, te.Message, te.Code)
	}
	return fmt.Errorf("twilio: status %d", resp.StatusCode)
}
