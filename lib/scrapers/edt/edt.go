// Package edt scrapes the hosted EDT timetable portal: a CAS-style
// form login followed by week-by-week fetches of an absolutely
// positioned HTML grid.
package edt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/kaelianbaudelet/WSPS/lib/telemetry"
)

var tracer = otel.Tracer("lib/scrapers/edt")

var (
	// ErrUnavailable means the portal did not answer the availability
	// probe with a plain 200. Nothing is fetched in that state.
	ErrUnavailable = errors.New("timetable portal is unavailable")
	// ErrInvalidCredentials means the portal rejected the username or
	// password.
	ErrInvalidCredentials = errors.New("portal rejected the credentials")
	// ErrAuthentication covers login failures other than a credential
	// rejection.
	ErrAuthentication = errors.New("login failed")
	// ErrRetryExhausted means every fetch attempt for a week returned
	// the portal's error page.
	ErrRetryExhausted = errors.New("portal kept serving its error page")
	// ErrWeekValidation means a week rendered at least one event the
	// parser could not fully read, so the whole week is discarded.
	ErrWeekValidation = errors.New("week failed validation")
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// ClientOptions locate one school's portal endpoints. ServerID and
// Hash are opaque values issued by the portal operator and passed
// through verbatim on every fetch.
type ClientOptions struct {
	LoginURL   string
	ServiceURL string
	FetchURL   string
	ServerID   string
	Hash       string

	// Retries and RetryWait bound the error-page retry loop in
	// FetchWeek. Zero values fall back to 10 tries 1s apart.
	Retries   int
	RetryWait time.Duration
	// Timeout caps each request, default 30s.
	Timeout time.Duration

	Parse ParseOptions
}

const (
	defaultRetries   = 10
	defaultRetryWait = time.Second
	defaultTimeout   = 30 * time.Second
)

// Client holds one authenticated portal session. Sessions are cookie
// based and not safe to share across concurrent week fetches, so
// callers open one Client per week.
type Client struct {
	opts     ClientOptions
	client   *resty.Client
	username string
}

func NewClient(opts ClientOptions) *Client {
	if opts.Retries <= 0 {
		opts.Retries = defaultRetries
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = defaultRetryWait
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	jar, _ := cookiejar.New(nil)
	client := resty.NewWithClient(&http.Client{Jar: jar})
	client.SetHeader("User-Agent", userAgent)
	client.SetTimeout(opts.Timeout)
	// login success is signalled by a raw 3xx, so redirects must not
	// be followed
	client.SetRedirectPolicy(resty.RedirectPolicyFunc(
		func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	))
	// the login POST carries credentials, keep its body off the wire
	telemetry.InstrumentResty(client, "lib/scrapers/edt", telemetry.WithoutRequestBody())

	return &Client{opts: opts, client: client}
}

// CheckAvailability probes the login endpoint. Only a plain 200 counts
// as available; anything else, redirects included, fails closed.
func (c *Client) CheckAvailability(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "CheckAvailability")
	defer span.End()

	res, err := c.client.R().SetContext(ctx).Head(c.opts.LoginURL)
	if err != nil {
		span.SetStatus(codes.Error, "availability probe failed")
		span.RecordError(err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if res.StatusCode() != http.StatusOK {
		err := fmt.Errorf("%w: probe returned status %d", ErrUnavailable, res.StatusCode())
		span.SetStatus(codes.Error, "portal unavailable")
		span.RecordError(err)
		return err
	}
	return nil
}

// Login authenticates against the CAS-style login form and keeps the
// session cookie for subsequent fetches. The password is used for the
// single POST and not retained.
func (c *Client) Login(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	form, err := c.loginForm(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "could not read login form")
		span.RecordError(err)
		return err
	}

	form["username"] = username
	form["password"] = password

	res, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("service", c.opts.ServiceURL).
		SetFormData(form).
		Post(c.opts.LoginURL)
	if err != nil {
		span.SetStatus(codes.Error, "login request failed")
		span.RecordError(err)
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	if err := classifyLogin(res); err != nil {
		span.SetStatus(codes.Error, "login rejected")
		span.RecordError(err)
		return err
	}

	c.username = username
	return nil
}

// loginForm fetches the login page and returns its hidden fields,
// which carry the CAS execution token the POST must echo back.
func (c *Client) loginForm(ctx context.Context) (map[string]string, error) {
	res, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("service", c.opts.ServiceURL).
		Get(c.opts.LoginURL)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch login page: %v", ErrAuthentication, err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: login page returned status %d", ErrAuthentication, res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.String()))
	if err != nil {
		return nil, fmt.Errorf("%w: parse login page: %v", ErrAuthentication, err)
	}

	form := map[string]string{"_eventId": "submit"}
	doc.Find(`input[type="hidden"]`).Each(func(_ int, sel *goquery.Selection) {
		name, ok := sel.Attr("name")
		if !ok || name == "" || name == "username" || name == "password" {
			return
		}
		form[name], _ = sel.Attr("value")
	})
	return form, nil
}

// classifyLogin reads the un-followed login response. CAS answers a
// successful login with a redirect carrying the service ticket; a 200
// that re-renders the form or carries the portal's French rejection
// phrases means the credentials were rejected.
func classifyLogin(res *resty.Response) error {
	code := res.StatusCode()
	switch {
	case code >= 300 && code < 400:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrInvalidCredentials
	case code >= 200 && code < 300:
		body := res.String()
		if IsErrorPage(body) {
			return fmt.Errorf("%w: portal served its error page", ErrAuthentication)
		}
		lower := strings.ToLower(body)
		if strings.Contains(lower, "mot de passe incorrect") ||
			strings.Contains(lower, "erreur d'authentification") ||
			strings.Contains(body, `name="execution"`) {
			return ErrInvalidCredentials
		}
		return nil
	default:
		return fmt.Errorf("%w: login returned status %d", ErrAuthentication, code)
	}
}

// TestCredentials checks availability and attempts a full login,
// without fetching any timetable data.
func (c *Client) TestCredentials(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(ctx, "TestCredentials")
	defer span.End()

	if err := c.CheckAvailability(ctx); err != nil {
		return err
	}
	return c.Login(ctx, username, password)
}
