// Package iris is a small client for the eduVULCAN mobile ("hebe") API:
// account registration lookup and the pupil collections the calendars are
// built from.
package iris

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

	"cloud.google.com/go/civil"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	appLog "vulcancal/internal/log"
	"vulcancal/internal/model"
	"vulcancal/internal/record"
)

const (
	// DefaultPageSize is the page size the mobile app uses.
	DefaultPageSize = 500
	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 15 * time.Second

	// firstLastID is the lastId sentinel that requests the first page.
	firstLastID = -2147483648
	// lastSyncDate asks for every record regardless of modification time.
	lastSyncDate = "1970-01-01 01:00:00"
)

// Collection endpoints, relative to the unit REST URL.
const (
	endpointAccounts  = "mobile/register/hebe"
	endpointSchedule  = "mobile/schedule/withchanges/byPupil"
	endpointHomework  = "mobile/homework/byPupil"
	endpointExams     = "mobile/exam/byPupil"
	endpointVacations = "mobile/school/vacation"
)

// Options configure a Client.
type Options struct {
	// BaseURL is the tenant REST URL used for account registration and as
	// the fallback unit URL.
	BaseURL string
	// RequestsPerSecond throttles outgoing requests; <= 0 disables it.
	RequestsPerSecond float64
	// PageSize is the page size for paged collections.
	PageSize int
	// HTTPClient is the base client the bearer transport wraps.
	HTTPClient *http.Client
}

// Client fetches data for one credential.
type Client struct {
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	pageSize int
}

// New returns a client that authenticates every request with jwt.
func New(jwt string, opts Options) *Client {
	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: DefaultTimeout}
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: jwt,
		TokenType:   "Bearer",
	}))
	hc.Timeout = base.Timeout

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		http:     hc,
		limiter:  limiter,
		pageSize: pageSize,
	}
}

// ExpandBaseURL substitutes the tenant into a REST URL template such as
// "https://lekcjaplus.vulcan.net.pl/{tenant}/api".
func ExpandBaseURL(template, tenant string) string {
	return strings.ReplaceAll(template, "{tenant}", url.PathEscape(tenant))
}

// Accounts lists the pupils registered for the credential.
func (c *Client) Accounts(ctx context.Context) ([]model.AccountInfo, error) {
	q := url.Values{}
	q.Set("mode", "2")
	raw, err := c.get(ctx, c.baseURL, endpointAccounts, q)
	if err != nil {
		return nil, err
	}
	var accounts []Account
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	out := make([]model.AccountInfo, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Info(c.baseURL))
	}
	return out, nil
}

func (c *Client) Schedule(ctx context.Context, acct model.AccountInfo, from, to civil.Date) ([]record.Record, error) {
	return c.paged(ctx, acct, endpointSchedule, from, to)
}

func (c *Client) Homework(ctx context.Context, acct model.AccountInfo, from, to civil.Date) ([]record.Record, error) {
	return c.paged(ctx, acct, endpointHomework, from, to)
}

func (c *Client) Exams(ctx context.Context, acct model.AccountInfo, from, to civil.Date) ([]record.Record, error) {
	return c.paged(ctx, acct, endpointExams, from, to)
}

// Vacations returns the school breaks overlapping [from, to] as typed
// records. Entries that do not decode are dropped one by one.
func (c *Client) Vacations(ctx context.Context, acct model.AccountInfo, from, to civil.Date) ([]record.Record, error) {
	q := pupilQuery(acct, from, to)
	raw, err := c.get(ctx, c.restURL(acct), endpointVacations, q)
	if err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode vacations: %w", err)
	}
	out := make([]record.Record, 0, len(items))
	for i, item := range items {
		v := new(Vacation)
		if err := json.Unmarshal(item, v); err != nil {
			appLog.Debug("vacation skipped", "index", i, "err", err)
			continue
		}
		s, _ := record.FromStruct(v)
		out = append(out, s)
	}
	return out, nil
}

// paged walks a lastId-paged collection until a short page.
func (c *Client) paged(ctx context.Context, acct model.AccountInfo, endpoint string, from, to civil.Date) ([]record.Record, error) {
	var (
		out    []record.Record
		lastID = firstLastID
	)
	for {
		q := pupilQuery(acct, from, to)
		q.Set("lastSyncDate", lastSyncDate)
		q.Set("lastId", strconv.Itoa(lastID))
		q.Set("pageSize", strconv.Itoa(c.pageSize))

		raw, err := c.get(ctx, c.restURL(acct), endpoint, q)
		if err != nil {
			return nil, err
		}
		page, err := decodeRecords(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", endpoint, err)
		}
		out = append(out, page...)
		if len(page) < c.pageSize {
			return out, nil
		}

		next, ok := lastIDOf(page[len(page)-1])
		if !ok || next == lastID {
			appLog.Warn("iris paging stopped without a usable Id", "endpoint", endpoint, "records", len(out))
			return out, nil
		}
		lastID = next
	}
}

func pupilQuery(acct model.AccountInfo, from, to civil.Date) url.Values {
	q := url.Values{}
	q.Set("pupilId", strconv.Itoa(acct.PupilID))
	q.Set("dateFrom", from.String())
	q.Set("dateTo", to.String())
	return q
}

func lastIDOf(r record.Record) (int, bool) {
	v, ok := record.ID.In(r)
	if !ok {
		return 0, false
	}
	return record.Int(v)
}

func (c *Client) restURL(acct model.AccountInfo) string {
	if acct.RestURL != "" {
		return strings.TrimRight(acct.RestURL, "/")
	}
	return c.baseURL
}

// decodeRecords keeps numbers as json.Number so ids survive intact.
func decodeRecords(raw json.RawMessage) ([]record.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var items []map[string]any
	if err := dec.Decode(&items); err != nil {
		return nil, err
	}
	out := make([]record.Record, 0, len(items))
	for _, it := range items {
		out = append(out, record.Mapping(it))
	}
	return out, nil
}

type envelope struct {
	Status struct {
		Code    int    `json:"Code"`
		Message string `json:"Message"`
	} `json:"Status"`
	Envelope json.RawMessage `json:"Envelope"`
}

// get performs one throttled request and unwraps the response envelope.
func (c *Client) get(ctx context.Context, base, endpoint string, q url.Values) (json.RawMessage, error) {
	if base == "" {
		return nil, errors.New("iris: REST URL is empty")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := base + "/" + endpoint
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	appLog.Debug("iris request", "endpoint", endpoint, "url", redactURL(u))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("iris %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("iris %s: read body: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Endpoint:   endpoint,
			HTTPStatus: resp.StatusCode,
			Message:    strings.TrimSpace(http.StatusText(resp.StatusCode)),
		}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("iris %s: decode envelope: %w", endpoint, err)
	}
	if env.Status.Code != 0 {
		return nil, &APIError{
			Endpoint:   endpoint,
			HTTPStatus: resp.StatusCode,
			Code:       env.Status.Code,
			Message:    env.Status.Message,
		}
	}
	if len(env.Envelope) == 0 || string(env.Envelope) == "null" {
		return json.RawMessage("[]"), nil
	}
	return env.Envelope, nil
}

// redactURL keeps only scheme and host so pupil ids and tenants stay out
// of the logs.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "iris://...(redacted)"
	}
	return parsed.Scheme + "://" + parsed.Host + redactedSuffix
}
