// Package session implements the client-side lifetime of one test-taking
// attempt: disclaimer, countdown-driven progress, answer map and the
// submit/retry protocol. All grading authority stays with the backend; the
// session only mirrors enough state to render a result summary.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ddabattalion/examprep-bot/internal/api"
)

// State is the phase of a test-taking session.
type State int

const (
	// AwaitingStart: questions are loaded, the disclaimer is up, no
	// submission exists yet.
	AwaitingStart State = iota
	// InProgress: the countdown runs and the student answers freely.
	InProgress
	// Submitting: a submit call is in flight; input is disabled.
	Submitting
	// Submitted: terminal, result summary available.
	Submitted
	// Failed: submit failed; answers are preserved for retry.
	Failed
)

func (s State) String() string {
	switch s {
	case AwaitingStart:
		return "awaiting_start"
	case InProgress:
		return "in_progress"
	case Submitting:
		return "submitting"
	case Submitted:
		return "submitted"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	ErrNotAwaitingStart = errors.New("test already started")
	ErrStartInFlight    = errors.New("start request already in flight")
	ErrNotInProgress    = errors.New("test is not in progress")
	ErrSubmitInFlight   = errors.New("submission already in flight")
	ErrNoAnswers        = errors.New("answer at least one question before submitting")
	ErrNoQuestions      = errors.New("test has no questions")
)

// DangerSeconds is the remaining-time threshold below which the countdown
// is rendered as urgent.
const DangerSeconds = 300

// Backend is the slice of the remote API a session drives.
// *api.Client satisfies it.
type Backend interface {
	StartTest(ctx context.Context, token string, testID int) (int, error)
	SubmitTest(ctx context.Context, token string, submissionID int, answers []api.SubmittedAnswer) error
}

// Answer is the student's current choice for one question.
type Answer struct {
	QuestionID int
	Selected   api.Option
	Answered   bool
}

// Result is the locally computed summary after a successful submit.
type Result struct {
	CorrectCount  int
	MarksAwarded  int
	AnsweredCount int
	TotalCount    int
	TotalMarks    int
}

// Session owns the state of one attempt. All methods are safe for the
// concurrent access pattern of the bot: handler calls racing the 1-second
// ticker.
type Session struct {
	mu sync.Mutex

	id        uuid.UUID
	test      api.Test
	questions []api.Question
	answers   map[int]Answer

	state        State
	index        int
	submissionID int
	startedAt    time.Time
	remaining    int
	starting     bool
	timerFired   bool
	result       Result
}

// New builds a session in AwaitingStart with one unanswered entry per
// question. The answer map is never resized afterwards.
func New(test api.Test, questions []api.Question) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	answers := make(map[int]Answer, len(questions))
	for _, q := range questions {
		answers[q.ID] = Answer{QuestionID: q.ID}
	}
	return &Session{
		id:        uuid.New(),
		test:      test,
		questions: questions,
		answers:   answers,
		state:     AwaitingStart,
	}, nil
}

// ID is the local correlation id used in logs.
func (s *Session) ID() uuid.UUID { return s.id }

// Test returns the immutable test descriptor.
func (s *Session) Test() api.Test { return s.test }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start confirms the disclaimer: it opens a submission on the backend and,
// on success, arms the countdown and moves to InProgress. On failure the
// session stays in AwaitingStart and Start may be called again.
func (s *Session) Start(ctx context.Context, be Backend, token string) error {
	s.mu.Lock()
	if s.state != AwaitingStart {
		s.mu.Unlock()
		return ErrNotAwaitingStart
	}
	if s.starting {
		s.mu.Unlock()
		return ErrStartInFlight
	}
	s.starting = true
	s.mu.Unlock()

	submissionID, err := be.StartTest(ctx, token, s.test.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.starting = false
	if err != nil {
		return err
	}
	s.submissionID = submissionID
	s.startedAt = time.Now()
	s.remaining = s.test.Duration * 60
	s.state = InProgress
	return nil
}

// Current returns the question at the cursor and its zero-based index.
func (s *Session) Current() (api.Question, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions[s.index], s.index
}

// Len is the number of questions.
func (s *Session) Len() int { return len(s.questions) }

// Select records option o for the current question. Reselecting overwrites
// the prior choice; the cursor does not move.
func (s *Session) Select(o api.Option) error {
	if !o.Valid() {
		return fmt.Errorf("unknown option %q", o)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != InProgress {
		return ErrNotInProgress
	}
	q := s.questions[s.index]
	s.answers[q.ID] = Answer{QuestionID: q.ID, Selected: o, Answered: true}
	return nil
}

// Next moves the cursor forward. At the last question it is a no-op.
func (s *Session) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index < len(s.questions)-1 {
		s.index++
	}
	return s.index
}

// Prev moves the cursor back. At the first question it is a no-op.
func (s *Session) Prev() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index > 0 {
		s.index--
	}
	return s.index
}

// Answer returns the recorded answer for question id.
func (s *Session) Answer(questionID int) (Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.answers[questionID]
	return a, ok
}

// AnsweredCount is the number of questions with a recorded choice.
func (s *Session) AnsweredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answeredLocked()
}

func (s *Session) answeredLocked() int {
	n := 0
	for _, a := range s.answers {
		if a.Answered {
			n++
		}
	}
	return n
}

// Remaining is the countdown value in whole seconds.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// SubmissionID is the server-issued id, 0 before Start succeeds.
func (s *Session) SubmissionID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submissionID
}

// Result returns the summary computed when the session reached Submitted.
func (s *Session) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Tick advances the countdown by one second. expired is true exactly once,
// on the tick that reaches zero; the caller then forces a submission. Ticks
// outside InProgress are no-ops.
func (s *Session) Tick() (remaining int, expired bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != InProgress {
		return s.remaining, false
	}
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining == 0 && !s.timerFired {
		s.timerFired = true
		return 0, true
	}
	return s.remaining, false
}

// Submit sends the answered subset to the backend against the submission id
// obtained at start. It is callable from InProgress (manual or forced) and
// from Failed (retry, same submission id, fresh answer snapshot). A second
// call while one is in flight returns ErrSubmitInFlight and does nothing;
// that guard is what keeps a timer-forced submit from doubling a manual one.
func (s *Session) Submit(ctx context.Context, be Backend, token string) (Result, error) {
	s.mu.Lock()
	switch s.state {
	case InProgress, Failed:
	case Submitting:
		s.mu.Unlock()
		return Result{}, ErrSubmitInFlight
	default:
		s.mu.Unlock()
		return Result{}, ErrNotInProgress
	}

	payload := make([]api.SubmittedAnswer, 0, len(s.answers))
	for _, q := range s.questions {
		if a := s.answers[q.ID]; a.Answered {
			payload = append(payload, api.SubmittedAnswer{QuestionID: q.ID, SelectedOption: a.Selected})
		}
	}
	if len(payload) == 0 {
		// Intentionally blocking: at least one answer is required, and no
		// network call is made without one.
		s.mu.Unlock()
		return Result{}, ErrNoAnswers
	}
	s.state = Submitting
	submissionID := s.submissionID
	s.mu.Unlock()

	err := be.SubmitTest(ctx, token, submissionID, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = Failed
		return Result{}, err
	}
	s.result = s.scoreLocked()
	s.state = Submitted
	return s.result, nil
}

// Abandon marks a Failed session as finished without retrying. The answers
// are discarded with the session.
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Failed || s.state == InProgress || s.state == AwaitingStart {
		s.state = Failed
		s.timerFired = true
	}
}

// scoreLocked compares each answered question against its known correct
// option. The backend grades authoritatively once results are released;
// this mirror only feeds the immediate summary screen.
func (s *Session) scoreLocked() Result {
	res := Result{
		TotalCount:    len(s.questions),
		TotalMarks:    s.test.TotalMarks,
		AnsweredCount: s.answeredLocked(),
	}
	for _, q := range s.questions {
		a := s.answers[q.ID]
		if a.Answered && a.Selected == q.CorrectOption {
			res.CorrectCount++
			res.MarksAwarded += q.Marks
		}
	}
	return res
}

// FormatClock renders whole seconds as H:MM:SS when at least an hour
// remains, else M:SS.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	sec := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}
