package mail

import (
	"bytes"
	"fmt"
	"html/template"
)

// Notice is the content of a workflow notification email.
type Notice struct {
	Heading  string
	Greeting string
	Body     string
	// Notes is optional extra text, such as a rejection reason.
	Notes    string
	LinkURL  string
	LinkText string
}

var noticeTemplate = template.Must(template.New("notice").Parse(noticeHTML))

// RenderNotice builds the subject-independent HTML and plain-text bodies for n.
func RenderNotice(n Notice) (htmlBody, textBody string, err error) {
	var buf bytes.Buffer
	if err := noticeTemplate.Execute(&buf, n); err != nil {
		return "", "", fmt.Errorf("render notice template: %w", err)
	}

	text := n.Greeting + "\n\n" + n.Body + "\n"
	if n.Notes != "" {
		text += "\nNotes: " + n.Notes + "\n"
	}
	if n.LinkURL != "" {
		text += "\n" + n.LinkText + ": " + n.LinkURL + "\n"
	}
	return buf.String(), text, nil
}

const noticeHTML = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Heading}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #4b2dbf; padding-bottom: 10px; margin-bottom: 20px; }
        .button { display: inline-block; padding: 12px 24px; background: #4b2dbf; color: white; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .notes { background: #f4f1ff; padding: 12px; border-radius: 4px; margin: 20px 0; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Fincra Wisdom</h1>
    </div>

    <h2>{{.Heading}}</h2>

    <p>{{.Greeting}}</p>

    <p>{{.Body}}</p>
{{if .Notes}}
    <div class="notes">
        <strong>Notes:</strong> {{.Notes}}
    </div>
{{end}}{{if .LinkURL}}
    <p>
        <a href="{{.LinkURL}}" class="button">{{.LinkText}}</a>
    </p>
{{end}}
    <div class="footer">
        <p>You are receiving this because of activity on Fincra Wisdom.</p>
    </div>
</body>
</html>`
