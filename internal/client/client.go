// Package client talks to the bhis REST API on behalf of the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/bhis/bhis/internal/domain/account"
	"github.com/bhis/bhis/internal/domain/patient"
	"github.com/bhis/bhis/internal/domain/queue"
	"github.com/bhis/bhis/internal/domain/riskassessment"
	"github.com/bhis/bhis/internal/platform/document"
	"github.com/bhis/bhis/internal/session"
)

const maxErrorBody = 4 << 10

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// Client is bound to one session. Token state is never global.
type Client struct {
	baseURL string
	http    *http.Client
	session *session.Session
}

// New returns a client for the API rooted at baseURL, e.g.
// http://localhost:8000/api. sess may be nil before login.
func New(baseURL string, sess *session.Session, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		session: sess,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Session() *session.Session { return c.session }

// Login exchanges credentials for a token and returns the new session.
// The caller decides where to persist it.
func (c *Client) Login(ctx context.Context, email, password string) (*session.Session, error) {
	var res account.LoginResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, "login", http.MethodPost, "/login", nil, body, &res, false); err != nil {
		return nil, err
	}
	c.session = &session.Session{
		AccessToken: res.AccessToken,
		User: &session.User{
			ID:    res.User.ID.String(),
			Name:  res.User.Name,
			Email: res.User.Email,
			Role:  res.User.Role,
		},
	}
	return c.session, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, "logout", http.MethodPost, "/logout", nil, nil, nil, true)
}

func (c *Client) CurrentUser(ctx context.Context) (*account.Profile, error) {
	var p account.Profile
	if err := c.do(ctx, "current user", http.MethodGet, "/user", nil, nil, &p, true); err != nil {
		return nil, err
	}
	return &p, nil
}

type PatientPage struct {
	Patients []*patient.Patient `json:"patients"`
	Total    int                `json:"total"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
}

func (c *Client) ListPatients(ctx context.Context, query string, limit, offset int) (*PatientPage, error) {
	q := url.Values{}
	if query != "" {
		q.Set("q", query)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	var page PatientPage
	if err := c.do(ctx, "list patients", http.MethodGet, "/patients", q, nil, &page, true); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	var res struct {
		Patient *patient.Patient `json:"patient"`
	}
	if err := c.do(ctx, "get patient", http.MethodGet, "/patients/"+id.String(), nil, nil, &res, true); err != nil {
		return nil, err
	}
	return res.Patient, nil
}

func (c *Client) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, "delete patient", http.MethodDelete, "/patients/"+id.String(), nil, nil, nil, true)
}

func (c *Client) ListQueue(ctx context.Context, filter queue.Filter, search string) ([]queue.Entry, error) {
	q := url.Values{}
	if filter != "" {
		q.Set("filter", string(filter))
	}
	if search != "" {
		q.Set("q", search)
	}
	var res struct {
		Entries []queue.Entry `json:"entries"`
	}
	if err := c.do(ctx, "list queue", http.MethodGet, "/queue", q, nil, &res, true); err != nil {
		return nil, err
	}
	return res.Entries, nil
}

func (c *Client) QueueCounts(ctx context.Context) (*queue.Counts, error) {
	var cnt queue.Counts
	if err := c.do(ctx, "queue counts", http.MethodGet, "/queue/counts", nil, nil, &cnt, true); err != nil {
		return nil, err
	}
	return &cnt, nil
}

func (c *Client) AddToQueue(ctx context.Context, ne queue.NewEntry) (*queue.Entry, error) {
	var e queue.Entry
	if err := c.do(ctx, "add to queue", http.MethodPost, "/queue", nil, ne, &e, true); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *Client) StartService(ctx context.Context, id int) (*queue.Entry, error) {
	return c.queueTransition(ctx, "start service", id, "start")
}

func (c *Client) CompleteService(ctx context.Context, id int) (*queue.Entry, error) {
	return c.queueTransition(ctx, "complete service", id, "complete")
}

func (c *Client) CancelEntry(ctx context.Context, id int) (*queue.Entry, error) {
	return c.queueTransition(ctx, "cancel entry", id, "cancel")
}

func (c *Client) queueTransition(ctx context.Context, op string, id int, action string) (*queue.Entry, error) {
	var e queue.Entry
	path := "/queue/" + strconv.Itoa(id) + "/" + action
	if err := c.do(ctx, op, http.MethodPost, path, nil, nil, &e, true); err != nil {
		return nil, err
	}
	return &e, nil
}

// Prefill asks the server for a form seeded from the patient's record.
func (c *Client) Prefill(ctx context.Context, patientID uuid.UUID) (*riskassessment.Form, error) {
	var res struct {
		Form riskassessment.Form `json:"form"`
	}
	path := "/patients/" + patientID.String() + "/risk-assessments/prefill"
	if err := c.do(ctx, "prefill", http.MethodGet, path, nil, nil, &res, true); err != nil {
		return nil, err
	}
	return &res.Form, nil
}

func (c *Client) Preview(ctx context.Context, f riskassessment.Form) (*document.Document, error) {
	var doc document.Document
	if err := c.do(ctx, "preview", http.MethodPost, "/risk-assessments/preview", nil, f, &doc, true); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Download is a file returned by an export endpoint.
type Download struct {
	Name        string
	ContentType string
	Data        []byte
}

// Export has the server render f and returns the PDF.
func (c *Client) Export(ctx context.Context, f riskassessment.Form) (*Download, error) {
	return c.download(ctx, "export", http.MethodPost, "/risk-assessments/export", f)
}

// ExportSaved downloads the PDF of a stored assessment.
func (c *Client) ExportSaved(ctx context.Context, id uuid.UUID) (*Download, error) {
	return c.download(ctx, "export", http.MethodGet, "/risk-assessments/"+id.String()+"/export", nil)
}

func (c *Client) download(ctx context.Context, op, method, path string, body interface{}) (*Download, error) {
	resp, err := c.send(ctx, op, method, path, nil, body, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	d := &Download{ContentType: resp.Header.Get("Content-Type"), Data: data}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		d.Name = params["filename"]
	}
	return d, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, q url.Values, body, out interface{}, authed bool) error {
	resp, err := c.send(ctx, op, method, path, q, body, authed)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// send returns the response only for 2xx statuses; the caller closes it.
func (c *Client) send(ctx context.Context, op, method, path string, q url.Values, body interface{}, authed bool) (*http.Response, error) {
	if authed && !c.session.Authenticated() {
		return nil, session.ErrNoSession
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+c.session.AccessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp)
	}
	return resp, nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Message interface{} `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Message != nil {
		apiErr.Message = fmt.Sprint(body.Message)
	} else {
		apiErr.Message = string(bytes.TrimSpace(raw))
	}
	return apiErr
}
