/*
 * MailResponder - Copyright (C) 2022 Zane van Iperen.
 *    Contact: zane@zanevaniperen.com
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 2, and only
 * version 2 as published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program; if not, write to the Free Software
 * Foundation, Inc., 59 Temple Place, Suite 330, Boston, MA  02111-1307  USA
 */

package reply

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-smtp"
	log "github.com/sirupsen/logrus"

	"github.com/vs49688/mailresponder/imap"
)

var (
	ErrAuthFailed   = errors.New("smtp authentication failed")
	ErrNoRecipient  = errors.New("no recipient")
	ErrNoAuthMethod = errors.New("no authentication method")
)

// Config describes the submission endpoint. TLS selects implicit TLS,
// otherwise STARTTLS is used when the server offers it.
type Config struct {
	HostPort  string
	TLS       bool
	TLSConfig *tls.Config
}

type Credentials struct {
	From  string
	Auth  imap.Authenticator
	Debug bool
}

type Sender struct {
	cfg Config
	now func() time.Time
}

func NewSender(cfg Config) *Sender {
	return &Sender{cfg: cfg, now: time.Now}
}

// ReplySubject prefixes subject with "Re: " unless it already carries a
// reply prefix.
func ReplySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

// Compose renders a text/plain UTF-8 message.
func Compose(from string, to string, subject string, body string, date time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	h.SetAddressList("To", []*mail.Address{{Address: to}})
	h.SetSubject(subject)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	// Completion answers often have paragraphs longer than the 998 byte
	// line limit.
	h.Set("Content-Transfer-Encoding", "quoted-printable")
	if err := h.GenerateMessageID(); err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	w, err := mail.CreateSingleInlineWriter(buf, h)
	if err != nil {
		return nil, err
	}

	if _, err := w.Write([]byte(body)); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Reply sends body to the given address and returns the message as
// submitted. Failures are never retried.
func (s *Sender) Reply(to string, subject string, body string, creds Credentials) ([]byte, error) {
	fields := log.Fields{"recipient": to, "server": s.cfg.HostPort}

	raw, err := s.send(to, ReplySubject(subject), body, creds)
	if err != nil {
		log.WithError(err).WithFields(fields).Error("reply_failed")
		return nil, err
	}

	log.WithFields(fields).Info("reply_sent")
	return raw, nil
}

func (s *Sender) send(to string, subject string, body string, creds Credentials) ([]byte, error) {
	if to == "" {
		return nil, ErrNoRecipient
	}

	if creds.Auth == nil {
		return nil, ErrNoAuthMethod
	}

	raw, err := Compose(creds.From, to, subject, body, s.now())
	if err != nil {
		return nil, err
	}

	c, err := s.dial()
	if err != nil {
		return nil, err
	}
	defer func() { _ = c.Close() }()

	if creds.Debug {
		c.DebugWriter = os.Stderr
	}

	if !s.cfg.TLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(s.tlsConfig()); err != nil {
				return nil, err
			}
		}
	}

	saslClient, err := creds.Auth.SASLClient()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}

	if err := c.Auth(saslClient); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}

	if err := c.Mail(creds.From, nil); err != nil {
		return nil, err
	}

	if err := c.Rcpt(to); err != nil {
		return nil, err
	}

	w, err := c.Data()
	if err != nil {
		return nil, err
	}

	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	if err := c.Quit(); err != nil {
		log.WithError(err).Debug("smtp_quit_failed")
	}

	return raw, nil
}

func (s *Sender) dial() (*smtp.Client, error) {
	if s.cfg.TLS {
		return smtp.DialTLS(s.cfg.HostPort, s.tlsConfig())
	}
	return smtp.Dial(s.cfg.HostPort)
}

func (s *Sender) tlsConfig() *tls.Config {
	return s.cfg.TLSConfig
}
