package drupal

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"
	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/xerrors"
)

var log = logging.Logger("drupal")

var tracer = otel.Tracer("github.com/mandclu-acquia/next-drupal-interface-18n/internal/drupal")

// Response is the translations payload: langcode -> source -> translation.
type Response map[string]map[string]string

// Count returns the number of (langcode, source) pairs.
func (r Response) Count() int {
	n := 0
	for _, sources := range r {
		n += len(sources)
	}
	return n
}

type addResponse struct {
	Message string `json:"message"`
}

// Options configures a Client.
type Options struct {
	BaseURL  string
	Path     string
	AddPath  string
	Username string
	Password string
	Timeout  time.Duration
}

// Client talks to the Drupal interface translation endpoints.
type Client struct {
	baseURL string
	path    string
	addPath string
	http    *resty.Client
}

func New(opts Options) *Client {
	c := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json")
	if opts.Username != "" || opts.Password != "" {
		c.SetBasicAuth(opts.Username, opts.Password)
	}
	return &Client{
		baseURL: opts.BaseURL,
		path:    opts.Path,
		addPath: opts.AddPath,
		http:    c,
	}
}

// TranslationsURL is the endpoint FetchTranslations reads from.
func (c *Client) TranslationsURL() string { return c.baseURL + c.path }

// AddURL is the endpoint AddTranslations posts to.
func (c *Client) AddURL() string { return c.baseURL + c.addPath }

// FetchTranslations retrieves every interface translation. An empty or null
// body yields an empty Response.
func (c *Client) FetchTranslations(ctx context.Context) (Response, error) {
	ctx, span := tracer.Start(ctx, "drupal.FetchTranslations",
		trace.WithAttributes(attribute.String("http.url", c.TranslationsURL())))
	defer span.End()

	r, err := c.http.R().SetContext(ctx).Get(c.TranslationsURL())
	if err != nil {
		return nil, spanErr(span, xerrors.Errorf("fetch translations: %w", err))
	}
	if r.IsError() {
		return nil, spanErr(span, xerrors.Errorf("fetch translations: %s; body: %s", r.Status(), abbreviate(r.String(), 500)))
	}

	out, err := decodeResponse(r.Body())
	if err != nil {
		return nil, spanErr(span, xerrors.Errorf("decode translations: %w", err))
	}
	span.SetAttributes(
		attribute.Int("drupal.languages", len(out)),
		attribute.Int("drupal.translations", out.Count()),
	)
	log.Debugf("fetched %d translations in %d languages", out.Count(), len(out))
	return out, nil
}

// AddTranslations pushes newly discovered source strings and returns the
// backend's status message.
func (c *Client) AddTranslations(ctx context.Context, keys []string) (string, error) {
	ctx, span := tracer.Start(ctx, "drupal.AddTranslations",
		trace.WithAttributes(
			attribute.String("http.url", c.AddURL()),
			attribute.Int("drupal.keys", len(keys)),
		))
	defer span.End()

	if keys == nil {
		keys = []string{}
	}
	r, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(keys).
		Post(c.AddURL())
	if err != nil {
		return "", spanErr(span, xerrors.Errorf("add translations: %w", err))
	}
	if r.IsError() {
		return "", spanErr(span, xerrors.Errorf("add translations: %s; body: %s", r.Status(), abbreviate(r.String(), 500)))
	}

	var result addResponse
	if body := bytes.TrimSpace(r.Body()); len(body) > 0 {
		if err := json.Unmarshal(body, &result); err != nil {
			return "", spanErr(span, xerrors.Errorf("decode add response: %w", err))
		}
	}
	return result.Message, nil
}

// decodeResponse accepts PHP-style empty arrays ("[]") wherever an empty
// object is expected, both at the top level and per language.
func decodeResponse(body []byte) (Response, error) {
	body = bytes.TrimSpace(body)
	if isEmptyJSON(body) {
		return Response{}, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	out := make(Response, len(raw))
	for langcode, msg := range raw {
		msg = bytes.TrimSpace(msg)
		if isEmptyJSON(msg) {
			out[langcode] = map[string]string{}
			continue
		}
		var sources map[string]string
		if err := json.Unmarshal(msg, &sources); err != nil {
			return nil, xerrors.Errorf("language %q: %w", langcode, err)
		}
		out[langcode] = sources
	}
	return out, nil
}

func isEmptyJSON(b []byte) bool {
	s := string(b)
	return s == "" || s == "null" || s == "[]"
}

func spanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
