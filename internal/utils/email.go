package utils

import (
	"bytes"
	"io"

	"gopkg.in/gomail.v2"
)

// Mail is one outgoing message.  Attachments are keyed by file name.
type Mail struct {
	To          string
	Subject     string
	HTMLBody    string
	Attachments map[string][]byte
}

// Mailer sends mail through an SMTP relay.
type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Message builds the gomail message for m.
func (s Mailer) Message(m Mail) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.From)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/html", m.HTMLBody)
	for name, data := range m.Attachments {
		data := data
		msg.Attach(name, gomail.Rename(name), gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := io.Copy(w, bytes.NewReader(data))
			return err
		}))
	}
	return msg
}

// Send dials the relay and delivers m.
func (s Mailer) Send(m Mail) error {
	d := gomail.NewDialer(s.Host, s.Port, s.Username, s.Password)
	return d.DialAndSend(s.Message(m))
}
