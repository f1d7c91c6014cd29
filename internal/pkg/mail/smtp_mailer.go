package mail

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"github.com/pressbrief/pressbrief/internal/pkg/env"
)

// SendMail sends an HTML email via SMTP
func SendMail(to string, subject string, body string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "")

	if sender == "" {
		sender = fmt.Sprintf("no-reply@%s", "localhost")
		log.Printf("SMTP_SENDER not set, using default sender: %s", sender)
	}

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	err := smtp.SendMail(addr, auth, sender, []string{to}, msg)
	if err != nil {
		log.Printf("SMTP send error: %v", err)
	} else {
		log.Printf("Email sent to %s via %s", to, addr)
	}
	return err
}

// SendLoginLink mails the magic sign-in link for passwordless login.
func SendLoginLink(to string, token string) error {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}
	link := fmt.Sprintf("%s/auth/verify?token=%s", base, token)

	body := fmt.Sprintf(
		"<p>Hello,</p>"+
			"<p>Click the link below to sign in to PressBrief. The link is valid for 15 minutes.</p>"+
			"<p><a href=\"%s\">Sign in to PressBrief</a></p>"+
			"<p>If you did not request this email you can safely ignore it.</p>",
		link,
	)

	return SendMail(to, "Your PressBrief sign-in link", body)
}
