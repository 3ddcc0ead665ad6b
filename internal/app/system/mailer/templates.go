// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// InvitationEmailData holds data for the group invitation email.
type InvitationEmailData struct {
	SiteName    string
	GroupName   string
	InviterName string
	AcceptURL   string
	ExpiresAt   time.Time
}

// BuildInvitationEmail creates an invitation email with both HTML and text bodies.
func BuildInvitationEmail(to string, data InvitationEmailData) Email {
	expires := data.ExpiresAt.UTC().Format("January 2, 2006")

	var text bytes.Buffer
	text.WriteString(fmt.Sprintf("%s invited you to join the study group %q on %s.\n\n",
		data.InviterName, data.GroupName, data.SiteName))
	text.WriteString("Accept the invitation here:\n")
	text.WriteString(data.AcceptURL + "\n\n")
	text.WriteString(fmt.Sprintf("This invitation expires on %s.\n", expires))

	return Email{
		To:       to,
		Subject:  fmt.Sprintf("You're invited to join %s", data.GroupName),
		TextBody: text.String(),
		HTMLBody: render(layoutData{
			SiteName: data.SiteName,
			Lines: []string{
				fmt.Sprintf("%s invited you to join the study group “%s”.", data.InviterName, data.GroupName),
			},
			ButtonURL:  data.AcceptURL,
			ButtonText: "Accept Invitation",
			Footer:     "This invitation expires on " + expires + ".",
		}),
	}
}

// DecisionEmailData holds data for approve/reject notices.
type DecisionEmailData struct {
	SiteName  string
	GroupName string
	Approved  bool
	Reason    string
	GroupURL  string
}

// BuildGroupDecisionEmail tells a group's creator whether it was approved.
func BuildGroupDecisionEmail(to string, data DecisionEmailData) Email {
	subject := fmt.Sprintf("Your study group %q was approved", data.GroupName)
	line := fmt.Sprintf("Your study group “%s” is now active.", data.GroupName)
	if !data.Approved {
		subject = fmt.Sprintf("Your study group %q was not approved", data.GroupName)
		line = fmt.Sprintf("Your study group “%s” was not approved. Reason: %s", data.GroupName, data.Reason)
	}
	return decisionEmail(to, subject, line, data)
}

// BuildJoinDecisionEmail tells a requester the outcome of a join request.
func BuildJoinDecisionEmail(to string, data DecisionEmailData) Email {
	subject := fmt.Sprintf("Your request to join %s was approved", data.GroupName)
	line := fmt.Sprintf("You are now a member of “%s”.", data.GroupName)
	if !data.Approved {
		subject = fmt.Sprintf("Your request to join %s was declined", data.GroupName)
		line = fmt.Sprintf("Your request to join “%s” was declined. Reason: %s", data.GroupName, data.Reason)
	}
	return decisionEmail(to, subject, line, data)
}

func decisionEmail(to, subject, line string, data DecisionEmailData) Email {
	text := line + "\n"
	ld := layoutData{SiteName: data.SiteName, Lines: []string{line}}
	if data.Approved && data.GroupURL != "" {
		text += "\n" + data.GroupURL + "\n"
		ld.ButtonURL = data.GroupURL
		ld.ButtonText = "Open Group"
	}
	return Email{To: to, Subject: subject, TextBody: text, HTMLBody: render(ld)}
}

type layoutData struct {
	SiteName   string
	Lines      []string
	ButtonURL  string
	ButtonText string
	Footer     string
}

var layout = template.Must(template.New("layout").Parse(layoutHTMLTemplate))

func render(data layoutData) string {
	var buf bytes.Buffer
	_ = layout.Execute(&buf, data)
	return buf.String()
}

const layoutHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.SiteName}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #4f46e5;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              {{range .Lines}}<p style="margin: 0 0 16px; font-size: 16px; color: #374151; line-height: 1.5;">{{.}}</p>
              {{end}}
              {{if .ButtonURL}}
              <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
                <tr>
                  <td align="center">
                    <a href="{{.ButtonURL}}" style="display: inline-block; padding: 14px 32px; background-color: #4f46e5; color: #ffffff; text-decoration: none; font-size: 16px; font-weight: 500; border-radius: 6px;">{{.ButtonText}}</a>
                  </td>
                </tr>
              </table>
              {{end}}
            </td>
          </tr>
          {{if .Footer}}
          <tr>
            <td style="padding: 24px 32px; background-color: #f9fafb; border-top: 1px solid #e5e7eb; border-radius: 0 0 8px 8px;">
              <p style="margin: 0; font-size: 12px; color: #9ca3af; text-align: center;">{{.Footer}}</p>
            </td>
          </tr>
          {{end}}
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
