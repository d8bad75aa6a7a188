package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kmit-fdms/fdms/internal/models"
	"github.com/kmit-fdms/fdms/internal/utils"
)

func facultyProfiles() *fakeProfileRepo {
	return newFakeProfileRepo(
		models.Profile{
			PersonalDetails: models.PersonalDetails{Name: "Dr. Suresh Varma", Email: "suresh@kmit.in", Phone: "900"},
			Education: []models.Education{
				{Level: models.LevelUG, Institution: "OU"},
				{Level: models.LevelPhD, Institution: "IIT Madras", PhD: &models.PhDDetails{Status: models.PhDCompleted}},
			},
			ProfessionalExperience: []models.Experience{
				{Organization: "KMIT", JoiningDate: "2015-06-01", RelieveDate: "2020-06-01"},
			},
		},
	)
}

type chatFixture struct {
	svc   ChatService
	cache *fakeCache
	logs  *fakeChatLogRepo
}

func newChatFixture(model *fakeLLM) *chatFixture {
	f := &chatFixture{cache: newFakeCache(), logs: &fakeChatLogRepo{}}
	deps := ChatDeps{
		Profiles: facultyProfiles(),
		History:  f.cache,
		Logs:     f.logs,
		Now:      func() time.Time { return fixedNow },
	}
	if model != nil {
		deps.LLM = model
	}
	f.svc = NewChatService(deps)
	return f
}

func TestChatFAQ(t *testing.T) {
	model := &fakeLLM{reply: "should not be used"}
	f := newChatFixture(model)

	res, err := f.svc.Ask(context.Background(), "s1", "  Hello ")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.Source != models.SourceFAQ || !strings.HasPrefix(res.Reply, "Hello I am Tathya Bot") {
		t.Errorf("res = %+v", res)
	}

	res, err = f.svc.Ask(context.Background(), "s1", "Tell me about KMIT?")
	if err != nil || res.Source != models.SourceFAQ {
		t.Errorf("mixed-case FAQ = %+v, %v", res, err)
	}

	res, _ = f.svc.Ask(context.Background(), "s1", "What is the time?")
	if res.Reply != "The current time is: 10:30:00" {
		t.Errorf("time reply = %q", res.Reply)
	}
	if model.calls != 0 {
		t.Errorf("model called %d times", model.calls)
	}
}

func TestChatFacultyLookup(t *testing.T) {
	f := newChatFixture(nil)

	tests := []struct {
		msg, want string
	}{
		{"what is the qualification of suresh?", "holds the qualification: PhD, IIT Madras (Completed); UG, OU"},
		{"How much experience does Varma have", "has 5.0 years of experience"},
		{"contact details of Suresh please", "suresh@kmit.in"},
		{"tell me about varma", "**Qualification**"},
	}
	for _, tt := range tests {
		res, err := f.svc.Ask(context.Background(), "s2", tt.msg)
		if err != nil {
			t.Fatalf("Ask(%q): %v", tt.msg, err)
		}
		if res.Source != models.SourceFaculty || !strings.Contains(res.Reply, tt.want) {
			t.Errorf("Ask(%q) = %+v, want reply containing %q", tt.msg, res, tt.want)
		}
	}
}

func TestChatFallsBackWithoutModel(t *testing.T) {
	f := newChatFixture(nil)

	res, err := f.svc.Ask(context.Background(), "", "what is the fee structure")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.Source != models.SourceFallback || !strings.Contains(res.Reply, "didn't understand") {
		t.Errorf("res = %+v", res)
	}
	if res.SessionID == "" {
		t.Error("expected a generated session id")
	}
}

func TestChatUsesModelWithHistory(t *testing.T) {
	model := &fakeLLM{reply: "Admissions open in May."}
	f := newChatFixture(model)

	if _, err := f.svc.Ask(context.Background(), "s3", "hi"); err != nil {
		t.Fatal(err)
	}
	res, err := f.svc.Ask(context.Background(), "s3", "when do admissions open")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.Source != models.SourceLLM || res.Reply != "Admissions open in May." {
		t.Errorf("res = %+v", res)
	}
	if len(model.history) != 2 || model.history[0].Role != "user" || model.history[0].Content != "hi" {
		t.Errorf("history passed to model = %+v", model.history)
	}

	rows, err := f.svc.Logs(context.Background(), "s3", 0)
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("chat log rows = %d, want 4", len(rows))
	}
	if rows[3].Role != "assistant" || rows[3].Source != models.SourceLLM {
		t.Errorf("last row = %+v", rows[3])
	}
}

func TestChatModelError(t *testing.T) {
	f := newChatFixture(&fakeLLM{err: errors.New("quota")})

	res, err := f.svc.Ask(context.Background(), "s4", "explain the syllabus")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.Reply != "Sorry, I encountered an error. Please try again later." || res.Source != models.SourceFallback {
		t.Errorf("res = %+v", res)
	}
}

func TestChatHistoryIsBounded(t *testing.T) {
	f := newChatFixture(&fakeLLM{reply: "ok"})
	for i := 0; i < 15; i++ {
		if _, err := f.svc.Ask(context.Background(), "s5", "question"); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(f.cache.lists[historyKey("s5")]); n != 2*historyTurns {
		t.Errorf("history entries = %d, want %d", n, 2*historyTurns)
	}
}

func TestChatEmptyMessage(t *testing.T) {
	f := newChatFixture(nil)
	if _, err := f.svc.Ask(context.Background(), "s6", "   "); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Errorf("err = %v, want INVALID_ARGUMENT", err)
	}
}

func TestChatLogsWithoutStore(t *testing.T) {
	svc := NewChatService(ChatDeps{Profiles: newFakeProfileRepo()})
	if _, err := svc.Logs(context.Background(), "s", 10); !utils.IsCode(err, utils.CodeUnavailable) {
		t.Errorf("err = %v, want UNAVAILABLE", err)
	}
}

func TestChatLogsLimit(t *testing.T) {
	f := newChatFixture(nil)

	tests := []struct {
		in, want int
	}{
		{0, 50},
		{-3, 50},
		{120, 120},
		{200, 200},
		{500, 200},
	}
	for _, tt := range tests {
		if _, err := f.svc.Logs(context.Background(), "s7", tt.in); err != nil {
			t.Fatalf("Logs(%d): %v", tt.in, err)
		}
		if f.logs.lastLimit != tt.want {
			t.Errorf("Logs(%d) used limit %d, want %d", tt.in, f.logs.lastLimit, tt.want)
		}
	}
}
