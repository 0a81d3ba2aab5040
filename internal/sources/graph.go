package sources

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Getter issues authenticated GET requests against a Graph API surface
type Getter interface {
	Get(ctx context.Context, baseURL, path string, params url.Values, token string) (json.RawMessage, error)
}

// GraphClient implements Getter over resty
type GraphClient struct {
	client *resty.Client
	log    logrus.FieldLogger
}

type graphErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

var tokenPattern = regexp.MustCompile(`access_token=[^&\s"']*`)

// NewGraphClient creates a new Graph API client
func NewGraphClient(timeout time.Duration, log logrus.FieldLogger) *GraphClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &GraphClient{
		client: resty.New().SetTimeout(timeout),
		log:    log,
	}
}

// Get fetches path relative to baseURL. An absolute path such as a paging
// "next" link is requested as-is. Malformed bodies decode to an empty object.
func (g *GraphClient) Get(ctx context.Context, baseURL, path string, params url.Values, token string) (json.RawMessage, error) {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
	}

	req := g.client.R().SetContext(ctx)
	for key, values := range params {
		for _, v := range values {
			req.SetQueryParam(key, v)
		}
	}
	if token != "" && !strings.Contains(target, "access_token=") {
		req.SetQueryParam("access_token", token)
	}

	resp, err := req.Get(target)
	if err != nil {
		return nil, RedactError(err)
	}

	logURL := target
	if len(params) > 0 {
		logURL += "?" + params.Encode()
	}
	g.log.WithFields(logrus.Fields{
		"url":    RedactToken(logURL),
		"status": resp.StatusCode(),
	}).Debug("Graph API request")

	body := resp.Body()
	if !resp.IsSuccess() {
		upstream := &UpstreamError{Status: resp.StatusCode(), Body: RedactToken(string(body))}
		var errBody graphErrorBody
		if json.Unmarshal(body, &errBody) == nil {
			upstream.Message = errBody.Error.Message
		}
		return nil, upstream
	}

	if len(body) == 0 || !json.Valid(body) {
		return json.RawMessage("{}"), nil
	}
	return json.RawMessage(body), nil
}

// RedactToken masks access_token values in a URL or message
func RedactToken(s string) string {
	return tokenPattern.ReplaceAllString(s, "access_token=***")
}

// RedactError strips tokens from transport errors, which usually embed the request URL
func RedactError(err error) error {
	if err == nil {
		return nil
	}
	return &redactedError{msg: RedactToken(err.Error()), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
