package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"smartplant/internal/config"
)

// ErrNotConfigured はSMTP_HOST未設定のとき
var ErrNotConfigured = errors.New("smtp not configured")

// メール送信の窓口
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	from     string
	sendMail sendMailFunc
}

func NewSMTPSender(cfg config.Config) *SMTPSender {
	return &SMTPSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUser,
		password: cfg.SMTPPass,
		from:     cfg.SMTPFrom,
		sendMail: smtp.SendMail,
	}
}

// 1回だけ送る（リトライしない）
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if s.host == "" {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	msg := buildMessage(s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	if err := s.sendMail(addr, auth, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	// ヘッダインジェクション対策
	clean := func(v string) string {
		return strings.NewReplacer("\r", "", "\n", "").Replace(v)
	}
	return []byte(
		"From: " + clean(from) + "\r\n" +
			"To: " + clean(to) + "\r\n" +
			"Subject: " + clean(subject) + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=UTF-8\r\n" +
			"\r\n" +
			body,
	)
}
