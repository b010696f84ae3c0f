package utils

import "gopkg.in/gomail.v2"

// Mailer sends plain-text mail from a single SMTP account.
type Mailer struct {
	dialer *gomail.Dialer
	sender string
}

func CreateMailer(host string, port int, sender string, password string) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(host, port, sender, password),
		sender: sender,
	}
}

func (m *Mailer) Compose(to string, subject string, body string) *gomail.Message {
	message := gomail.NewMessage()
	message.SetHeader("From", m.sender)
	message.SetHeader("To", to)
	message.SetHeader("Subject", subject)
	message.SetBody("text/plain", body)
	return message
}

func (m *Mailer) Send(message *gomail.Message) error {
	return m.dialer.DialAndSend(message)
}
