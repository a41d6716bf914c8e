package mailer

import (
    "bytes"
    "context"
    "fmt"
    "mime/multipart"
    "net"
    "net/smtp"
    "net/textproto"
    "strconv"
)

// Sender delivers a rendered Email.
type Sender interface {
    Send(ctx context.Context, e Email) error
}

// SMTPConfig holds the outgoing mail server settings.
type SMTPConfig struct {
    Host     string
    Port     int
    Username string
    Password string
    From     string
}

// SMTPSender sends mail through a single SMTP relay using PLAIN auth when a
// username is configured.
type SMTPSender struct {
    cfg SMTPConfig
}

// NewSMTPSender returns a sender for cfg.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender { return &SMTPSender{cfg: cfg} }

// Send writes e as a multipart/alternative message.  net/smtp has no
// context support, so ctx is only checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, e Email) error {
    if err := ctx.Err(); err != nil {
        return err
    }
    msg, err := buildMessage(s.cfg.From, e)
    if err != nil {
        return err
    }
    addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
    var auth smtp.Auth
    if s.cfg.Username != "" {
        auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
    }
    if err := smtp.SendMail(addr, auth, s.cfg.From, []string{e.To}, msg); err != nil {
        return fmt.Errorf("smtp send: %w", err)
    }
    return nil
}

func buildMessage(from string, e Email) ([]byte, error) {
    var body bytes.Buffer
    mw := multipart.NewWriter(&body)
    for _, part := range []struct{ ctype, content string }{
        {"text/plain; charset=UTF-8", e.TextBody},
        {"text/html; charset=UTF-8", e.HTMLBody},
    } {
        w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {part.ctype}})
        if err != nil {
            return nil, err
        }
        if _, err := w.Write([]byte(part.content)); err != nil {
            return nil, err
        }
    }
    if err := mw.Close(); err != nil {
        return nil, err
    }
    var msg bytes.Buffer
    fmt.Fprintf(&msg, "From: %s\r\n", from)
    fmt.Fprintf(&msg, "To: %s\r\n", e.To)
    fmt.Fprintf(&msg, "Subject: %s\r\n", e.Subject)
    msg.WriteString("MIME-Version: 1.0\r\n")
    fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mw.Boundary())
    msg.Write(body.Bytes())
    return msg.Bytes(), nil
}
