package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPMailer sends failure alerts through a plain SMTP relay.
type SMTPMailer struct {
	addr string // host:port
	from string
	auth smtp.Auth
}

func NewSMTPMailer(addr, from, username, password string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		host := addr
		if i := strings.IndexByte(addr, ':'); i >= 0 {
			host = addr[:i]
		}
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{addr: addr, from: from, auth: auth}
}

func (m *SMTPMailer) SendFailure(ctx context.Context, contacts []string, sourceName string, cause error) error {
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Fetch failure: %s\r\n\r\nFetching measurements for source %q failed:\r\n\r\n%v\r\n",
		m.from, strings.Join(contacts, ", "), sourceName, sourceName, cause,
	)
	return smtp.SendMail(m.addr, m.auth, m.from, contacts, []byte(msg))
}
