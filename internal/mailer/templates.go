// Package mailer renders registration notices and delivers them over SMTP.
package mailer

import (
    "bytes"
    "fmt"
    "html/template"
    textTemplate "text/template"
)

// Email is a rendered message ready to be sent.
type Email struct {
    To       string
    Subject  string
    TextBody string
    HTMLBody string
}

// ErrUnknownTemplate is returned by Render for an unregistered key.
var ErrUnknownTemplate = fmt.Errorf("mailer: unknown template")

type noticeTemplate struct {
    subject *textTemplate.Template
    text    *textTemplate.Template
    html    *template.Template
}

// templates is keyed by the notification template key carried on the queue.
var templates = map[string]noticeTemplate{
    "registration_approved": {
        subject: textTemplate.Must(textTemplate.New("approved_subject").Option("missingkey=zero").Parse(`Registration {{.group_id}} approved`)),
        text:    textTemplate.Must(textTemplate.New("approved_text").Option("missingkey=zero").Parse(approvedText)),
        html:    template.Must(template.New("approved_html").Option("missingkey=zero").Parse(approvedHTML)),
    },
    "registration_rejected": {
        subject: textTemplate.Must(textTemplate.New("rejected_subject").Option("missingkey=zero").Parse(`Registration {{.group_id}} could not be approved`)),
        text:    textTemplate.Must(textTemplate.New("rejected_text").Option("missingkey=zero").Parse(rejectedText)),
        html:    template.Must(template.New("rejected_html").Option("missingkey=zero").Parse(rejectedHTML)),
    },
}

// Render builds the email for key using vars.  Missing variables render as
// empty strings.
func Render(key, to string, vars map[string]string) (Email, error) {
    t, ok := templates[key]
    if !ok {
        return Email{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, key)
    }
    if vars == nil {
        vars = map[string]string{}
    }
    var subj, text, html bytes.Buffer
    if err := t.subject.Execute(&subj, vars); err != nil {
        return Email{}, fmt.Errorf("render subject: %w", err)
    }
    if err := t.text.Execute(&text, vars); err != nil {
        return Email{}, fmt.Errorf("render text: %w", err)
    }
    if err := t.html.Execute(&html, vars); err != nil {
        return Email{}, fmt.Errorf("render html: %w", err)
    }
    return Email{To: to, Subject: subj.String(), TextBody: text.String(), HTMLBody: html.String()}, nil
}

const approvedText = `Hi {{.name}},

Your registration {{.group_id}}{{if .event_name}} for {{.event_name}}{{end}} has been approved.
Members: {{.members}}
Amount paid: Rs. {{.total_amount}}

Please carry a college ID to the registration desk.
`

const approvedHTML = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Registration approved</title></head>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <h2 style="color: #047857;">Registration approved</h2>
  <p>Hi {{.name}},</p>
  <p>Your registration <strong>{{.group_id}}</strong>{{if .event_name}} for <strong>{{.event_name}}</strong>{{end}} has been approved.</p>
  <table cellpadding="4">
    <tr><td>Members</td><td>{{.members}}</td></tr>
    <tr><td>Amount paid</td><td>Rs. {{.total_amount}}</td></tr>
  </table>
  <p style="font-size: 13px; color: #6b7280;">Please carry a college ID to the registration desk.</p>
</body>
</html>`

const rejectedText = `Hi {{.name}},

We could not approve your registration {{.group_id}}{{if .event_name}} for {{.event_name}}{{end}}.
Reason: {{.reason}}

Reply to this email if you believe this is a mistake.
`

const rejectedHTML = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Registration not approved</title></head>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <h2 style="color: #b91c1c;">Registration not approved</h2>
  <p>Hi {{.name}},</p>
  <p>We could not approve your registration <strong>{{.group_id}}</strong>{{if .event_name}} for <strong>{{.event_name}}</strong>{{end}}.</p>
  <p><strong>Reason:</strong> {{.reason}}</p>
  <p style="font-size: 13px; color: #6b7280;">Reply to this email if you believe this is a mistake.</p>
</body>
</html>`
