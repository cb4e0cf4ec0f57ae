package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// Message is a rendered email.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

type content struct {
	subject string
	text    string
}

var contents = map[string]content{
	TemplateWelcome: {
		subject: "Welcome to Pictogram",
		text:    "We're glad to have you!",
	},
	TemplateResetPassword: {
		subject: "Reset your password",
		text:    "We received a request to reset your password for your Pictogram account. To proceed with the password reset, please click on the link below. The link expires in 10 minutes.",
	},
}

var layout = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Subject}}</title></head>
<body>
<p>Hi {{if .Firstname}}{{.Firstname}}{{else}}there{{end}},</p>
<p>{{.Text}}</p>
{{if .URL}}<p><a href="{{.URL}}">{{.URL}}</a></p>{{end}}
<p>Pictogram</p>
</body>
</html>
`))

// Render builds the message for template from vars ("firstname", "url").
func Render(name string, vars map[string]string) (*Message, error) {
	c, ok := contents[name]
	if !ok {
		return nil, fmt.Errorf("mailer: unknown template %q", name)
	}

	data := struct {
		Subject   string
		Firstname string
		Text      string
		URL       string
	}{c.subject, vars["firstname"], c.text, vars["url"]}

	buf := bytes.NewBuffer(nil)
	if err := layout.Execute(buf, data); err != nil {
		return nil, fmt.Errorf("mailer: render %s: %w", name, err)
	}

	greeting := "there"
	if data.Firstname != "" {
		greeting = data.Firstname
	}
	text := fmt.Sprintf("Hi %s,\n\n%s\n", greeting, c.text)
	if data.URL != "" {
		text += "\n" + data.URL + "\n"
	}

	return &Message{Subject: c.subject, HTML: buf.String(), Text: text}, nil
}
