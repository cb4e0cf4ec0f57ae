package mailer

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer delivers through an SMTP relay (Mailtrap in development, SES SMTP in production).
type SMTPMailer struct {
	addr string
	host string
	auth smtp.Auth
	from string
	send sendFunc
}

// NewSMTPMailer returns a mailer for host:port authenticating with PLAIN when a username is set.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{
		addr: host + ":" + strconv.Itoa(port),
		host: host,
		auth: auth,
		from: from,
		send: smtp.SendMail,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to, template string, vars map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := Render(template, vars)
	if err != nil {
		return err
	}
	body, err := m.compose(to, msg)
	if err != nil {
		return err
	}
	if err := m.send(m.addr, m.auth, m.from, []string{to}, body); err != nil {
		return fmt.Errorf("%w: smtp %s: %v", ErrTransient, m.addr, err)
	}
	return nil
}

func (m *SMTPMailer) compose(to string, msg *Message) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	mw := multipart.NewWriter(buf)

	fmt.Fprintf(buf, "From: Pictogram <%s>\r\n", m.from)
	fmt.Fprintf(buf, "To: %s\r\n", to)
	fmt.Fprintf(buf, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(buf, "Message-ID: <%s@%s>\r\n", uuid.NewString(), m.host)
	fmt.Fprintf(buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mw.Boundary())

	for _, part := range []struct {
		contentType string
		body        string
	}{
		{"text/plain; charset=utf-8", msg.Text},
		{"text/html; charset=utf-8", msg.HTML},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {part.contentType}})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(part.body)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
