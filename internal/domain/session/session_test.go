package session

import (
	"context"
	"errors"
	"testing"

	"github.com/ddabattalion/examprep-bot/internal/api"
)

// fakeBackend records the calls a session makes so tests can assert on the
// exact payload and call counts.
type fakeBackend struct {
	startID   int
	startErr  error
	submitErr error

	startCalls  int
	submitCalls int

	lastSubmissionID int
	lastAnswers      []api.SubmittedAnswer
	lastToken        string
}

func (f *fakeBackend) StartTest(ctx context.Context, token string, testID int) (int, error) {
	f.startCalls++
	f.lastToken = token
	if f.startErr != nil {
		return 0, f.startErr
	}
	return f.startID, nil
}

func (f *fakeBackend) SubmitTest(ctx context.Context, token string, submissionID int, answers []api.SubmittedAnswer) error {
	f.submitCalls++
	f.lastToken = token
	f.lastSubmissionID = submissionID
	f.lastAnswers = append([]api.SubmittedAnswer(nil), answers...)
	return f.submitErr
}

func testQuestions() []api.Question {
	return []api.Question{
		{ID: 11, QuestionText: "q1", CorrectOption: api.OptionA, Marks: 1},
		{ID: 12, QuestionText: "q2", CorrectOption: api.OptionB, Marks: 2},
		{ID: 13, QuestionText: "q3", CorrectOption: api.OptionC, Marks: 3},
	}
}

func newStarted(t *testing.T, be *fakeBackend) *Session {
	t.Helper()
	sess, err := New(api.Test{ID: 7, Title: "Mock", Duration: 10, TotalMarks: 6}, testQuestions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sess.Start(context.Background(), be, "tok"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return sess
}

func TestNew_NoQuestions(t *testing.T) {
	_, err := New(api.Test{ID: 1}, nil)
	if !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestNew_OneEntryPerQuestion(t *testing.T) {
	sess, err := New(api.Test{ID: 1, Duration: 5}, testQuestions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if sess.Len() != 3 {
		t.Fatalf("Len = %d, want 3", sess.Len())
	}
	for _, id := range []int{11, 12, 13} {
		a, ok := sess.Answer(id)
		if !ok {
			t.Errorf("no answer entry for question %d", id)
		}
		if a.Answered {
			t.Errorf("question %d answered before any selection", id)
		}
	}
	if sess.State() != AwaitingStart {
		t.Errorf("state = %v, want awaiting_start", sess.State())
	}
}

func TestStart_ArmsCountdown(t *testing.T) {
	be := &fakeBackend{startID: 42}
	sess := newStarted(t, be)

	if sess.State() != InProgress {
		t.Fatalf("state = %v, want in_progress", sess.State())
	}
	if sess.SubmissionID() != 42 {
		t.Errorf("submission id = %d, want 42", sess.SubmissionID())
	}
	if sess.Remaining() != 600 {
		t.Errorf("remaining = %d, want 600", sess.Remaining())
	}
	if err := sess.Start(context.Background(), be, "tok"); !errors.Is(err, ErrNotAwaitingStart) {
		t.Errorf("second Start: got %v, want ErrNotAwaitingStart", err)
	}
	if be.startCalls != 1 {
		t.Errorf("start calls = %d, want 1", be.startCalls)
	}
}

func TestStart_FailureAllowsRetry(t *testing.T) {
	be := &fakeBackend{startErr: errors.New("boom")}
	sess, err := New(api.Test{ID: 7, Duration: 10}, testQuestions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sess.Start(context.Background(), be, "tok"); err == nil {
		t.Fatal("expected start error")
	}
	if sess.State() != AwaitingStart {
		t.Fatalf("state = %v, want awaiting_start after failed start", sess.State())
	}

	be.startErr = nil
	be.startID = 9
	if err := sess.Start(context.Background(), be, "tok"); err != nil {
		t.Fatalf("retry Start: %v", err)
	}
	if sess.SubmissionID() != 9 {
		t.Errorf("submission id = %d, want 9", sess.SubmissionID())
	}
}

func TestSelect_OverwritesWithoutMoving(t *testing.T) {
	sess := newStarted(t, &fakeBackend{startID: 1})

	if err := sess.Select(api.OptionA); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := sess.Select(api.OptionD); err != nil {
		t.Fatalf("Select: %v", err)
	}
	a, _ := sess.Answer(11)
	if !a.Answered || a.Selected != api.OptionD {
		t.Errorf("answer = %+v, want answered option d", a)
	}
	if sess.AnsweredCount() != 1 {
		t.Errorf("answered count = %d, want 1", sess.AnsweredCount())
	}
	if _, idx := sess.Current(); idx != 0 {
		t.Errorf("cursor moved to %d on select", idx)
	}
	if err := sess.Select("x"); err == nil {
		t.Error("expected error for unknown option")
	}
}

func TestSelect_RequiresInProgress(t *testing.T) {
	sess, err := New(api.Test{ID: 7, Duration: 10}, testQuestions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sess.Select(api.OptionA); !errors.Is(err, ErrNotInProgress) {
		t.Fatalf("Select before start: got %v, want ErrNotInProgress", err)
	}
}

func TestNavigation_Bounded(t *testing.T) {
	sess := newStarted(t, &fakeBackend{startID: 1})

	if idx := sess.Prev(); idx != 0 {
		t.Errorf("Prev at first question moved to %d", idx)
	}
	sess.Next()
	sess.Next()
	if idx := sess.Next(); idx != 2 {
		t.Errorf("Next at last question moved to %d", idx)
	}
	if q, _ := sess.Current(); q.ID != 13 {
		t.Errorf("current question = %d, want 13", q.ID)
	}
}

func TestTick_CountsDownAndFiresOnce(t *testing.T) {
	be := &fakeBackend{startID: 1}
	sess, err := New(api.Test{ID: 7, Duration: 1, TotalMarks: 6}, testQuestions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Ticks before start are no-ops.
	if remaining, expired := sess.Tick(); remaining != 0 || expired {
		t.Fatalf("tick before start: remaining=%d expired=%v", remaining, expired)
	}

	if err := sess.Start(context.Background(), be, "tok"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if remaining, _ := sess.Tick(); remaining != 59 {
		t.Fatalf("first tick remaining = %d, want 59", remaining)
	}

	fired := 0
	for i := 0; i < 70; i++ {
		if _, expired := sess.Tick(); expired {
			fired++
		}
	}
	if fired != 1 {
		t.Errorf("expiry fired %d times, want exactly 1", fired)
	}
	if remaining, _ := sess.Tick(); remaining != 0 {
		t.Errorf("remaining after expiry = %d, want 0", remaining)
	}
}

func TestSubmit_SendsAnsweredSubsetInOrder(t *testing.T) {
	be := &fakeBackend{startID: 42}
	sess := newStarted(t, be)

	sess.Next()
	sess.Next()
	if err := sess.Select(api.OptionC); err != nil {
		t.Fatalf("Select: %v", err)
	}
	sess.Prev()
	sess.Prev()
	if err := sess.Select(api.OptionA); err != nil {
		t.Fatalf("Select: %v", err)
	}

	res, err := sess.Submit(context.Background(), be, "tok")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if be.lastSubmissionID != 42 {
		t.Errorf("submitted against id %d, want 42", be.lastSubmissionID)
	}
	want := []api.SubmittedAnswer{
		{QuestionID: 11, SelectedOption: api.OptionA},
		{QuestionID: 13, SelectedOption: api.OptionC},
	}
	if len(be.lastAnswers) != len(want) {
		t.Fatalf("payload = %+v, want %+v", be.lastAnswers, want)
	}
	for i := range want {
		if be.lastAnswers[i] != want[i] {
			t.Errorf("payload[%d] = %+v, want %+v", i, be.lastAnswers[i], want[i])
		}
	}
	if sess.State() != Submitted {
		t.Errorf("state = %v, want submitted", sess.State())
	}
	// Both picks are correct: 1 mark for q1, 3 marks for q3.
	if res.CorrectCount != 2 || res.MarksAwarded != 4 || res.AnsweredCount != 2 || res.TotalCount != 3 || res.TotalMarks != 6 {
		t.Errorf("result = %+v", res)
	}
}

func TestSubmit_ZeroAnswersNeverCallsBackend(t *testing.T) {
	be := &fakeBackend{startID: 1}
	sess := newStarted(t, be)

	_, err := sess.Submit(context.Background(), be, "tok")
	if !errors.Is(err, ErrNoAnswers) {
		t.Fatalf("got %v, want ErrNoAnswers", err)
	}
	if be.submitCalls != 0 {
		t.Errorf("submit calls = %d, want 0", be.submitCalls)
	}
	if sess.State() != InProgress {
		t.Errorf("state = %v, want in_progress", sess.State())
	}
}

func TestSubmit_SecondCallWhileInFlight(t *testing.T) {
	be := &fakeBackend{startID: 1}
	sess := newStarted(t, be)
	if err := sess.Select(api.OptionA); err != nil {
		t.Fatalf("Select: %v", err)
	}

	// The fake blocks inside SubmitTest until released, holding the session
	// in Submitting while the second call arrives.
	entered := make(chan struct{})
	release := make(chan struct{})
	blocking := &blockingBackend{fakeBackend: be, entered: entered, release: release}

	done := make(chan error, 1)
	go func() {
		_, err := sess.Submit(context.Background(), blocking, "tok")
		done <- err
	}()
	<-entered

	if _, err := sess.Submit(context.Background(), be, "tok"); !errors.Is(err, ErrSubmitInFlight) {
		t.Errorf("racing submit: got %v, want ErrSubmitInFlight", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if be.submitCalls != 1 {
		t.Errorf("submit calls = %d, want 1", be.submitCalls)
	}
}

type blockingBackend struct {
	*fakeBackend
	entered chan struct{}
	release chan struct{}
}

func (b *blockingBackend) SubmitTest(ctx context.Context, token string, submissionID int, answers []api.SubmittedAnswer) error {
	close(b.entered)
	<-b.release
	return b.fakeBackend.SubmitTest(ctx, token, submissionID, answers)
}

func TestSubmit_RetryKeepsSubmissionIDAndFreshAnswers(t *testing.T) {
	be := &fakeBackend{startID: 42, submitErr: errors.New("gateway timeout")}
	sess := newStarted(t, be)
	if err := sess.Select(api.OptionA); err != nil {
		t.Fatalf("Select: %v", err)
	}

	if _, err := sess.Submit(context.Background(), be, "tok"); err == nil {
		t.Fatal("expected submit error")
	}
	if sess.State() != Failed {
		t.Fatalf("state = %v, want failed", sess.State())
	}

	// The answer changes between attempts; the retry must carry the new one.
	be.submitErr = nil
	res, err := sess.Submit(context.Background(), be, "tok")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if be.lastSubmissionID != 42 {
		t.Errorf("retry used submission id %d, want 42", be.lastSubmissionID)
	}
	if be.submitCalls != 2 {
		t.Errorf("submit calls = %d, want 2", be.submitCalls)
	}
	if res.CorrectCount != 1 || res.MarksAwarded != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestTimedRun_ForcedSubmitOnExpiry(t *testing.T) {
	be := &fakeBackend{startID: 5}
	sess, err := New(api.Test{ID: 7, Duration: 10, TotalMarks: 3}, []api.Question{
		{ID: 1, CorrectOption: api.OptionB, Marks: 1},
		{ID: 2, CorrectOption: api.OptionC, Marks: 2},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sess.Start(context.Background(), be, "tok"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := sess.Select(api.OptionB); err != nil {
		t.Fatalf("Select: %v", err)
	}

	expiries := 0
	for i := 0; i < 600; i++ {
		if _, expired := sess.Tick(); expired {
			expiries++
			if _, err := sess.Submit(context.Background(), be, "tok"); err != nil {
				t.Fatalf("forced submit: %v", err)
			}
		}
	}
	if expiries != 1 {
		t.Fatalf("expiries = %d, want 1", expiries)
	}
	if len(be.lastAnswers) != 1 || be.lastAnswers[0].QuestionID != 1 {
		t.Errorf("forced payload = %+v, want only question 1", be.lastAnswers)
	}
	if sess.State() != Submitted {
		t.Errorf("state = %v, want submitted", sess.State())
	}
	res := sess.Result()
	if res.CorrectCount != 1 || res.MarksAwarded != 1 || res.AnsweredCount != 1 || res.TotalCount != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestFormatClock(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "0:00"},
		{-5, "0:00"},
		{59, "0:59"},
		{125, "2:05"},
		{600, "10:00"},
		{3600, "1:00:00"},
		{3725, "1:02:05"},
	}
	for _, c := range cases {
		if got := FormatClock(c.in); got != c.want {
			t.Errorf("FormatClock(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}
