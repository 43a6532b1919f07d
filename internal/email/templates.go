package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// NotificationData feeds the notification email template.
type NotificationData struct {
	Title         string
	RecipientName string
	RoleLabel     string
	Message       string
	CTALabel      string
	CTAURL        string
}

// RenderNotification renders the personalised notification email body.
func RenderNotification(data NotificationData) (string, error) {
	return renderEmailTemplate("notification.html", data)
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
