package utils

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"
	"teamfinder/config"
)

type EmailData struct {
	Subject   string
	To        []string
	Template  string
	Data      interface{}
	FromName  string
	FromEmail string
}

// Embedded email templates
var emailTemplates = map[string]string{
	"welcome": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>Welcome to TeamFinder</h2>
    </div>

    <div class="content">
        <p>Hello,</p>
        <p>Your account is ready. Fill in your profile (name, location and
        favorite game) to start browsing teams and sending join requests.</p>
    </div>

    <div class="footer">
        <p>© {{.Year}} TeamFinder. All rights reserved.</p>
    </div>
</body>
</html>`,

	"request_approved": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .team-name { font-size: 20px; font-weight: bold; color: #3498db; margin: 20px 0; text-align: center; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>You're in!</h2>
    </div>

    <div class="content">
        <p>Hello,</p>
        <p>Your request to join the team below was approved:</p>

        <div class="team-name">{{.TeamName}}</div>

        <p>Open the app to say hi in the team chat.</p>
    </div>

    <div class="footer">
        <p>© {{.Year}} TeamFinder. All rights reserved.</p>
    </div>
</body>
</html>`,
}

// SendEmail renders an embedded template and delivers it over SMTP. Callers
// on request paths treat failures as best-effort and only log them.
func SendEmail(data EmailData) error {
	if config.AppConfig.SMTPHost == "" {
		return fmt.Errorf("email configuration not initialized")
	}
	if data.FromEmail == "" {
		data.FromEmail = config.AppConfig.FromEmail
	}
	if data.FromName == "" {
		data.FromName = "TeamFinder"
	}

	tmplContent, ok := emailTemplates[data.Template]
	if !ok {
		return fmt.Errorf("template '%s' not found", data.Template)
	}

	tmpl, err := template.New("email").Parse(tmplContent)
	if err != nil {
		return fmt.Errorf("error parsing template: %v", err)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data.Data); err != nil {
		return fmt.Errorf("error executing template: %v", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", data.FromName, data.FromEmail))
	m.SetHeader("To", data.To...)
	m.SetHeader("Subject", data.Subject)
	m.SetBody("text/html", body.String())

	d := gomail.NewDialer(
		config.AppConfig.SMTPHost,
		config.AppConfig.SMTPPort,
		config.AppConfig.SMTPUsername,
		config.AppConfig.SMTPPassword,
	)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}
	return nil
}

// SendWelcomeEmail greets a freshly registered user.
func SendWelcomeEmail(to string) error {
	return SendEmail(EmailData{
		Subject:  "Welcome to TeamFinder",
		To:       []string{to},
		Template: "welcome",
		Data: map[string]interface{}{
			"Subject": "Welcome to TeamFinder",
			"Year":    time.Now().Year(),
		},
	})
}

// SendRequestApprovedEmail tells a requester their join request went through.
func SendRequestApprovedEmail(to, teamName string) error {
	return SendEmail(EmailData{
		Subject:  "Your join request was approved",
		To:       []string{to},
		Template: "request_approved",
		Data: map[string]interface{}{
			"Subject":  "Your join request was approved",
			"TeamName": teamName,
			"Year":     time.Now().Year(),
		},
	})
}
