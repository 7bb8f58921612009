package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Client issues JSON requests against the exam-prep backend and normalizes
// every failure into *Error. All business logic lives on the other side of
// these calls; the client only moves state back and forth.
type Client struct {
	baseURL string
	httpc   *http.Client
	log     zerolog.Logger
}

// NewClient builds a client for the given base URL, e.g.
// "https://api.ddabattalion.com/api".
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "api").Logger(),
	}
}

// envelope is the uniform response wrapper the backend uses.
type envelope struct {
	Success bool            `json:"success"`
	Count   int             `json:"count"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do performs one request. token may be empty for public endpoints. out, if
// non-nil, receives the decoded data payload of a successful envelope.
func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reqBody *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindDecode, Message: "failed to encode request", Err: err}
		}
		reqBody = bytes.NewReader(raw)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return &Error{Kind: KindTransport, Message: MsgNoConnection, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		c.log.Warn().Str("method", method).Str("path", path).Err(err).Msg("request failed")
		return &Error{Kind: KindTransport, Message: MsgNoConnection, Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("request done")

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &Error{Kind: KindAuth, Status: resp.StatusCode, Message: MsgLoginNeeded}
	case resp.StatusCode == http.StatusForbidden:
		return &Error{Kind: KindForbidden, Status: resp.StatusCode, Message: MsgAccessDenied}
	case resp.StatusCode >= 500:
		return &Error{Kind: KindServer, Status: resp.StatusCode, Message: MsgServerDown}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &Error{Kind: KindDecode, Status: resp.StatusCode, Message: MsgServerDown, Err: err}
	}

	if resp.StatusCode >= 400 || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("request failed with status %d", resp.StatusCode)
		}
		return &Error{Kind: KindRejected, Status: resp.StatusCode, Message: msg}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &Error{Kind: KindDecode, Status: resp.StatusCode, Message: MsgServerDown, Err: err}
		}
	}
	return nil
}

// ── Students ────────────────────────────────────────────────────────────────

// LoginRequest is the credential pair for Login.
type LoginRequest struct {
	Mobile   string `json:"mobile" validate:"required,len=10,numeric"`
	Password string `json:"password" validate:"required"`
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (AuthData, error) {
	var data AuthData
	err := c.do(ctx, http.MethodPost, "/students/login/", "", req, &data)
	return data, err
}

// RegisterRequest carries the registration form.
type RegisterRequest struct {
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	DOB             string `json:"dob" validate:"required"`
	Mobile          string `json:"mobile" validate:"required,len=10,numeric"`
	Password        string `json:"password" validate:"required,min=6"`
	AlternateMobile string `json:"alternate_mobile" validate:"omitempty,len=10,numeric"`
	Qualification   string `json:"qualification" validate:"required"`
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (AuthData, error) {
	var data AuthData
	err := c.do(ctx, http.MethodPost, "/students/register/", "", req, &data)
	return data, err
}

func (c *Client) Profile(ctx context.Context, token string) (Student, error) {
	var s Student
	err := c.do(ctx, http.MethodGet, "/students/profile", token, nil, &s)
	return s, err
}

func (c *Client) CompletedTests(ctx context.Context, token string) ([]TestResult, error) {
	var rs []TestResult
	err := c.do(ctx, http.MethodGet, "/students/completed-tests", token, nil, &rs)
	return rs, err
}

// ── Programs and tests ──────────────────────────────────────────────────────

func (c *Client) Programs(ctx context.Context) ([]Program, error) {
	var ps []Program
	err := c.do(ctx, http.MethodGet, "/programs", "", nil, &ps)
	return ps, err
}

func (c *Client) Tests(ctx context.Context) ([]Test, error) {
	var ts []Test
	err := c.do(ctx, http.MethodGet, "/tests", "", nil, &ts)
	return ts, err
}

func (c *Client) AvailableTests(ctx context.Context, token string) ([]Test, error) {
	var ts []Test
	err := c.do(ctx, http.MethodGet, "/tests/available", token, nil, &ts)
	return ts, err
}

func (c *Client) TestsByProgram(ctx context.Context, programID int) ([]Test, error) {
	var ts []Test
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/tests/program/%d", programID), "", nil, &ts)
	return ts, err
}

// ── Enrollment ──────────────────────────────────────────────────────────────

type enrollmentRequestBody struct {
	TestID         int    `json:"test_id"`
	RequestMessage string `json:"request_message"`
}

func (c *Client) RequestEnrollment(ctx context.Context, token string, testID int, message string) error {
	body := enrollmentRequestBody{TestID: testID, RequestMessage: message}
	return c.do(ctx, http.MethodPost, "/enrollments/request", token, body, nil)
}

func (c *Client) MyEnrollmentRequests(ctx context.Context, token string) ([]EnrollmentRequest, error) {
	var rs []EnrollmentRequest
	err := c.do(ctx, http.MethodGet, "/enrollments/my-requests", token, nil, &rs)
	return rs, err
}

// CheckTestAccess reports whether the student may take the test. A 403 here
// is the backend's way of saying "not enrolled yet", not a failure.
func (c *Client) CheckTestAccess(ctx context.Context, token string, testID int) (AccessStatus, error) {
	var st AccessStatus
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/enrollments/check-access/%d", testID), token, nil, &st)
	if err != nil && KindOf(err) == KindForbidden {
		return AccessStatus{HasAccess: false}, nil
	}
	return st, err
}

// ── Questions and submissions ───────────────────────────────────────────────

func (c *Client) QuestionsByTest(ctx context.Context, testID int) ([]Question, error) {
	var qs []Question
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/questions/test/%d/questions", testID), "", nil, &qs)
	return qs, err
}

type startTestData struct {
	SubmissionID int `json:"submission_id"`
}

// StartTest opens a submission for the test and returns its id.
func (c *Client) StartTest(ctx context.Context, token string, testID int) (int, error) {
	var data startTestData
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/test-submissions/start/%d", testID), token, nil, &data)
	if err != nil {
		return 0, err
	}
	return data.SubmissionID, nil
}

type submitTestBody struct {
	Answers []SubmittedAnswer `json:"answers"`
}

func (c *Client) SubmitTest(ctx context.Context, token string, submissionID int, answers []SubmittedAnswer) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/test-submissions/submit/%d", submissionID), token, submitTestBody{Answers: answers}, nil)
}

func (c *Client) SubmissionStatus(ctx context.Context, token string, testID int) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/test-submissions/status/%d", testID), token, nil, &raw)
	return raw, err
}

func (c *Client) SubmittedAnswers(ctx context.Context, token string, submissionID int) ([]SubmittedAnswer, error) {
	var as []SubmittedAnswer
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/test-submissions/answers/%d", submissionID), token, nil, &as)
	return as, err
}

func (c *Client) MyResults(ctx context.Context, token string) ([]TestResult, error) {
	var rs []TestResult
	err := c.do(ctx, http.MethodGet, "/test-submissions/my-results", token, nil, &rs)
	return rs, err
}

// ── Enquiries ───────────────────────────────────────────────────────────────

func (c *Client) SubmitEnquiry(ctx context.Context, enq Enquiry) error {
	return c.do(ctx, http.MethodPost, "/enquiries", "", enq, nil)
}
