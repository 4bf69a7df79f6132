package services

import (
	"bytes"
	"fmt"
	"html/template"
)

const emailLayoutHead = `<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f5f5f5;">
	<div style="background: white; border-radius: 12px; padding: 32px; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">`

const emailLayoutFoot = `
		<p style="color: #999; font-size: 12px; margin-top: 24px;">{{.AppName}}</p>
	</div>
</body>
</html>`

var invitationEmail = template.Must(template.New("invitation").Parse(emailLayoutHead + `
		<h2 style="color: #0E7C86; margin-top: 0;">You're invited on a trip!</h2>
		<p>Hi <strong>{{.InviteeName}}</strong>,</p>
		<p><strong>{{.InviterName}}</strong> invited you to join <strong>"{{.TripName}}"</strong>.</p>
		{{if .Message}}<blockquote style="border-left: 3px solid #0E7C86; margin: 16px 0; padding-left: 12px; color: #555;">{{.Message}}</blockquote>{{end}}
		<div style="margin: 24px 0;">
			<a href="{{.ActionURL}}" style="background: #0E7C86; color: white; padding: 12px 32px; border-radius: 8px; text-decoration: none; font-weight: bold;">View invitation</a>
		</div>` + emailLayoutFoot))

var paymentReminderEmail = template.Must(template.New("reminder").Parse(emailLayoutHead + `
		<h2 style="color: #E53E3E; margin-top: 0;">Payment reminder</h2>
		<p>Hi <strong>{{.DebtorName}}</strong>,</p>
		<p>You still owe <strong>{{.Outstanding}}</strong> for "{{.Description}}" in <strong>{{.TripName}}</strong>.</p>
		<div style="margin: 24px 0;">
			<a href="{{.ActionURL}}" style="background: #E53E3E; color: white; padding: 12px 32px; border-radius: 8px; text-decoration: none; font-weight: bold;">Settle up</a>
		</div>` + emailLayoutFoot))

type invitationEmailData struct {
	AppName     string
	InviteeName string
	InviterName string
	TripName    string
	Message     string
	ActionURL   string
}

type reminderEmailData struct {
	AppName     string
	DebtorName  string
	Description string
	TripName    string
	Outstanding string
	ActionURL   string
}

func renderEmail(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", t.Name(), err)
	}
	return buf.String(), nil
}
