package mailer

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sendgrid/sendgrid-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSES struct {
	in *sesv2.SendEmailInput
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.in = in
	return &sesv2.SendEmailOutput{MessageId: aws.String("m-1")}, nil
}

func TestSESMailer_Send(t *testing.T) {
	api := &fakeSES{}
	m := NewSES(api, From{Address: "noreply@example.com", Name: "StudyBuddy"})

	err := m.Send(context.Background(), Email{To: "a@example.com", Subject: "Hi", TextBody: "body"})
	require.NoError(t, err)

	require.NotNil(t, api.in)
	assert.Equal(t, `"StudyBuddy" <noreply@example.com>`, aws.ToString(api.in.FromEmailAddress))
	assert.Equal(t, []string{"a@example.com"}, api.in.Destination.ToAddresses)
	assert.Equal(t, "Hi", aws.ToString(api.in.Content.Simple.Subject.Data))
	assert.Nil(t, api.in.Content.Simple.Body.Html, "no HTML part without an HTML body")
}

func TestSendGridMailer_Send(t *testing.T) {
	var gotBody string
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := sendgrid.NewSendClient("sg-key")
	c.BaseURL = srv.URL + "/v3/mail/send"
	m := NewSendGridWithClient(c, From{Address: "noreply@example.com", Name: "StudyBuddy"})

	err := m.Send(context.Background(), Email{To: "a@example.com", Subject: "Hi", TextBody: "plain", HTMLBody: "<p>html</p>"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer sg-key", gotAuth)
	assert.Contains(t, gotBody, "a@example.com")
	assert.Contains(t, gotBody, "plain")
}

func TestSendGridMailer_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	c := sendgrid.NewSendClient("bad")
	c.BaseURL = srv.URL + "/v3/mail/send"
	err := NewSendGridWithClient(c, From{Address: "noreply@example.com"}).
		Send(context.Background(), Email{To: "a@example.com", Subject: "Hi", TextBody: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestLogMailer_NeverFails(t *testing.T) {
	assert.NoError(t, NewLog(zap.NewNop()).Send(context.Background(), Email{To: "a@example.com"}))
}

func TestBuildInvitationEmail(t *testing.T) {
	e := BuildInvitationEmail("a@example.com", InvitationEmailData{
		SiteName:    "StudyBuddy",
		GroupName:   "Rust <Beginners>",
		InviterName: "Ada",
		AcceptURL:   "https://studybuddy.example/invitations/tok/accept",
		ExpiresAt:   time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
	})

	assert.Equal(t, "a@example.com", e.To)
	assert.Contains(t, e.Subject, "Rust <Beginners>")
	assert.Contains(t, e.TextBody, "https://studybuddy.example/invitations/tok/accept")
	assert.Contains(t, e.TextBody, "March 9, 2026")
	assert.Contains(t, e.HTMLBody, "Rust &lt;Beginners&gt;", "group name must be escaped in HTML")
	assert.False(t, strings.Contains(e.HTMLBody, "<Beginners>"))
}

func TestBuildDecisionEmails(t *testing.T) {
	ok := BuildGroupDecisionEmail("c@example.com", DecisionEmailData{SiteName: "SB", GroupName: "Go", Approved: true, GroupURL: "https://x/groups/1"})
	assert.Contains(t, ok.Subject, "approved")
	assert.Contains(t, ok.HTMLBody, "Open Group")

	no := BuildJoinDecisionEmail("r@example.com", DecisionEmailData{SiteName: "SB", GroupName: "Go", Reason: "Group is full"})
	assert.Contains(t, no.Subject, "declined")
	assert.Contains(t, no.TextBody, "Group is full")
	assert.NotContains(t, no.HTMLBody, "Open Group")
}
