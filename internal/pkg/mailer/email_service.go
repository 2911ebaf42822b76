package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendTranscript(toEmail, subject, markdownBody string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
}

func NewEmailService(host string, port int, username, password, senderEmail string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
	}
}

// SendTranscript emails a conversation transcript. The markdown body is
// attached as a file and a short HTML note forms the message body.
func (s *emailService) SendTranscript(toEmail, subject, markdownBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Your U-Tutor conversation transcript</h2>
			<p>The transcript you requested is included below.</p>
			<pre style="background: #f6f8fa; padding: 15px; border-radius: 5px; white-space: pre-wrap;">%s</pre>
		</div>
	`, markdownBody)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send transcript to %s: %v\n", toEmail, err)
		return err
	}

	fmt.Printf("[MAILER] Transcript sent to %s\n", toEmail)
	return nil
}
