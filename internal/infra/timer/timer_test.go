package timer

import (
	"context"
	"strings"
	"testing"

	"github.com/ddabattalion/examprep-bot/internal/api"
	"github.com/ddabattalion/examprep-bot/internal/domain/session"
)

type stubBackend struct{}

func (stubBackend) StartTest(ctx context.Context, token string, testID int) (int, error) {
	return 1, nil
}

func (stubBackend) SubmitTest(ctx context.Context, token string, submissionID int, answers []api.SubmittedAnswer) error {
	return nil
}

func newRunningSession(t *testing.T) *session.Session {
	t.Helper()
	sess, err := session.New(api.Test{ID: 1, Duration: 10}, []api.Question{
		{ID: 1, CorrectOption: api.OptionA, Marks: 1},
		{ID: 2, CorrectOption: api.OptionB, Marks: 1},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sess.Start(context.Background(), stubBackend{}, "tok"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return sess
}

func TestText(t *testing.T) {
	sess := newRunningSession(t)

	got := Text(sess, 600)
	if strings.HasPrefix(got, "⚠️") {
		t.Errorf("no urgency expected at 600s: %q", got)
	}
	if !strings.Contains(got, "10:00") {
		t.Errorf("clock missing: %q", got)
	}
	if !strings.Contains(got, "Question 1 of 2") {
		t.Errorf("position missing: %q", got)
	}
	if !strings.Contains(got, "Answered 0") {
		t.Errorf("answered count missing: %q", got)
	}
}

func TestText_UrgentBelowThreshold(t *testing.T) {
	sess := newRunningSession(t)

	if got := Text(sess, session.DangerSeconds); strings.HasPrefix(got, "⚠️") {
		t.Errorf("threshold itself is not urgent: %q", got)
	}
	got := Text(sess, session.DangerSeconds-1)
	if !strings.HasPrefix(got, "⚠️") {
		t.Errorf("expected urgent prefix: %q", got)
	}
	if !strings.Contains(got, "4:59") {
		t.Errorf("clock missing: %q", got)
	}
}
