package airtable

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
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"reservation-dashboard/config"
	"reservation-dashboard/internal/board"
	"reservation-dashboard/internal/parse"
)

// isoLayout matches the millisecond ISO 8601 form browsers produce.
const isoLayout = "2006-01-02T15:04:05.000Z"

// ReadPolicy decides what a failed read returns to the caller.
type ReadPolicy int

const (
	// ReadBestEffort logs read failures and reports an empty result.
	ReadBestEffort ReadPolicy = iota
	// ReadStrict returns read failures to the caller.
	ReadStrict
)

// WritePolicy decides what a failed write returns to the caller.
type WritePolicy int

const (
	// WritePropagateError returns write failures to the caller.
	WritePropagateError WritePolicy = iota
	// WriteBestEffort logs write failures and reports success.
	WriteBestEffort
)

var ErrNotConfigured = errors.New("airtable client is not configured")

// APIError is a non-2xx answer from the record store.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("airtable returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("airtable returned status %d: %s: %s", e.StatusCode, e.Type, e.Message)
}

// Client talks to the Reservation collection of the hosted record store.
type Client struct {
	cfg     config.AirtableConfig
	loc     *time.Location
	client  *http.Client
	limiter *rate.Limiter
	read    ReadPolicy
	write   WritePolicy
	now     func() time.Time
}

// NewClient validates the store settings and builds a client. Reservation
// times are interpreted in loc.
func NewClient(cfg config.AirtableConfig, loc *time.Location) (*Client, error) {
	if cfg.BaseID == "" || cfg.Token == "" || cfg.Collection == "" {
		return nil, fmt.Errorf("%w: base id, token and collection are required", ErrNotConfigured)
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil || cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: invalid base url %q", ErrNotConfigured, cfg.BaseURL)
	}
	if loc == nil {
		loc = time.Local
	}

	transport := &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Warnf("invalid proxy URL %q: %v; airtable client will not use a proxy", cfg.HTTPProxy, err)
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Limit(cfg.RequestsPerSec)
	if cfg.RequestsPerSec <= 0 {
		limit = rate.Inf
	}

	c := &Client{
		cfg:     cfg,
		loc:     loc,
		client:  &http.Client{Transport: transport, Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
		read:    ReadBestEffort,
		write:   WritePropagateError,
		now:     time.Now,
	}
	if cfg.StrictReads {
		c.read = ReadStrict
	}
	if cfg.BestEffortWrite {
		c.write = WriteBestEffort
	}
	return c, nil
}

// SetPolicies overrides the read and write failure policies.
func (c *Client) SetPolicies(read ReadPolicy, write WritePolicy) {
	c.read = read
	c.write = write
}

// ListToday returns the reservations of the current local day. Under
// ReadBestEffort failures are logged and an empty slice is returned.
func (c *Client) ListToday(ctx context.Context) ([]board.Reservation, error) {
	reservations, err := c.ListDay(ctx, c.now())
	if err != nil {
		if c.read == ReadBestEffort {
			log.WithError(err).Error("error fetching reservations")
			return []board.Reservation{}, nil
		}
		return nil, err
	}
	return reservations, nil
}

// ListDay returns every reservation whose date-time lies within the local
// day containing day. Errors are always returned.
func (c *Client) ListDay(ctx context.Context, day time.Time) ([]board.Reservation, error) {
	start := board.Midnight(day, c.loc)
	end := board.NextMidnight(day, c.loc)
	formula := DayFormula(start, end)

	var reservations []board.Reservation
	offset := ""
	for page := 1; ; page++ {
		resp, err := c.fetchPage(ctx, formula, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d: %w", page, err)
		}
		for _, record := range resp.Records {
			reservations = append(reservations, Project(record))
		}
		if resp.Offset == "" {
			break
		}
		offset = resp.Offset
	}
	if reservations == nil {
		reservations = []board.Reservation{}
	}
	return reservations, nil
}

// CreateWalkIn records a walk-in for the given table at the given time.
func (c *Client) CreateWalkIn(ctx context.Context, tableID string, at time.Time) (*Record, error) {
	log.WithFields(log.Fields{"table": tableID, "at": at}).Info("creating walk-in reservation")

	body := CreateRequest{Records: []Record{{
		Fields: ReservationFields{
			Table:           parse.TableRef(tableID),
			DateandTime:     FormatTime(at),
			Status:          StatusWalkIn,
			ReservationType: TypeGoogleSheet,
		},
	}}}

	var resp CreateResponse
	if err := c.do(ctx, http.MethodPost, c.collectionURL(), body, &resp); err != nil {
		return nil, c.writeFailed("create walk-in reservation", err)
	}
	if len(resp.Records) == 0 {
		return nil, c.writeFailed("create walk-in reservation", errors.New("store returned no records"))
	}

	created := resp.Records[0]
	log.WithFields(log.Fields{"table": tableID, "record_id": created.ID}).Info("created walk-in reservation")
	return &created, nil
}

// UpdateStatus sets the status of an existing record and marks it as a
// phone reservation.
func (c *Client) UpdateStatus(ctx context.Context, recordID, status string) error {
	if recordID == "" {
		return c.writeFailed("update reservation", errors.New("record id is required"))
	}
	body := UpdateRequest{Fields: ReservationFields{
		Status:          status,
		ReservationType: TypePhoneCall,
	}}
	if err := c.do(ctx, http.MethodPatch, c.collectionURL()+"/"+url.PathEscape(recordID), body, nil); err != nil {
		return c.writeFailed("update reservation", err)
	}
	return nil
}

func (c *Client) writeFailed(op string, err error) error {
	log.WithError(err).Errorf("failed to %s", op)
	if c.write == WriteBestEffort {
		return nil
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func (c *Client) fetchPage(ctx context.Context, formula, offset string) (*ListResponse, error) {
	q := url.Values{}
	q.Set("filterByFormula", formula)
	q.Set("pageSize", strconv.Itoa(c.cfg.PageSize))
	if offset != "" {
		q.Set("offset", offset)
	}

	var resp ListResponse
	if err := c.do(ctx, http.MethodGet, c.collectionURL()+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) collectionURL() string {
	return c.cfg.BaseURL + "/" + url.PathEscape(c.cfg.BaseID) + "/" + url.PathEscape(c.cfg.Collection)
}

func (c *Client) do(ctx context.Context, method, target string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var body io.Reader
	if in != nil {
		jsonBody, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request payload: %w", err)
		}
		body = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope ErrorResponse
		if json.Unmarshal(data, &envelope) == nil {
			apiErr.Type = envelope.Error.Type
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal api response: %w", err)
	}
	return nil
}

// DayFormula builds the half-open [start, end) date-time filter.
func DayFormula(start, end time.Time) string {
	return fmt.Sprintf("AND(NOT(IS_BEFORE({%s}, '%s')), IS_BEFORE({%s}, '%s'))",
		FieldDateTime, FormatTime(start), FieldDateTime, FormatTime(end))
}

// FormatTime serializes t the way the store expects date-times.
func FormatTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// Project maps a store record onto the dashboard's reservation shape.
func Project(r Record) board.Reservation {
	status, kind := board.StatusWalkIn, "walk-in"
	if r.Fields.ReservationType == TypePhoneCall {
		status, kind = board.StatusPhoneCall, "phone"
	}
	var pax int
	if r.Fields.Pax != nil {
		pax = int(*r.Fields.Pax)
	}
	return board.Reservation{
		ID:              r.ID,
		TableID:         r.Fields.Table,
		Time:            r.Fields.DateandTime,
		Status:          status,
		CustomerName:    r.Fields.Notes,
		Pax:             pax,
		ReservationType: kind,
		CreatedTime:     parseCreatedTime(r.CreatedTime),
	}
}
