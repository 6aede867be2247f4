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

package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	log "github.com/sirupsen/logrus"

	"github.com/vs49688/mailresponder/allowlist"
	"github.com/vs49688/mailresponder/completion"
	"github.com/vs49688/mailresponder/extract"
	imap2 "github.com/vs49688/mailresponder/imap"
	"github.com/vs49688/mailresponder/ingest"
	"github.com/vs49688/mailresponder/reply"
	"github.com/vs49688/mailresponder/settings"
)

func NewPoller(cfg *Config) (*Poller, error) {
	if cfg.Factory == nil {
		return nil, errors.New("no imap factory")
	}

	if cfg.Completer == nil {
		return nil, errors.New("no completer")
	}

	if cfg.Replier == nil {
		return nil, errors.New("no replier")
	}

	auth := cfg.Auth
	if auth == nil {
		auth = func(s settings.Settings) (imap2.Authenticator, error) {
			return imap2.NewNormalAuthenticator(s.User(), s.Password()), nil
		}
	}

	conn := cfg.Connection
	if conn.Mailbox == "" {
		conn.Mailbox = "INBOX"
	}

	return &Poller{
		connection:    conn,
		factory:       cfg.Factory,
		allowListPath: cfg.AllowListPath,
		completer:     cfg.Completer,
		replier:       cfg.Replier,
		auth:          auth,
	}, nil
}

// BuildPrompt lays out the message for the completion service.
func BuildPrompt(prompt string, msg extract.Message) string {
	return fmt.Sprintf("%v\n\nFrom: %v\nSubject: %v\n\nBody:\n%v",
		prompt, msg.Sender, msg.Subject, strings.TrimSpace(msg.Body.Text))
}

// Poll runs one cycle against the mailbox using the settings snapshot s.
// Per-message failures are recorded in the report and never abort the
// cycle.
func (p *Poller) Poll(ctx context.Context, s settings.Settings) *Report {
	report := &Report{}
	start := time.Now()

	defer func() {
		e := log.WithFields(log.Fields{
			"sent":     report.Count(StatusSent),
			"rejected": report.Count(StatusRejected),
			"failed":   report.Count(StatusFailed),
			"duration": time.Since(start),
		})
		if report.Err != nil {
			e = e.WithError(report.Err)
		}
		e.Info("cycle_finished")
	}()

	if err := s.Validate(); err != nil {
		log.WithError(err).Error("cycle_invalid_settings")
		report.Err = err
		return report
	}

	allowed := allowlist.Load(p.allowListPath, log.StandardLogger())

	auth, err := p.auth(s)
	if err != nil {
		report.Err = fmt.Errorf("%w: %w", ErrConnect, err)
		log.WithError(err).Error("cycle_auth_failed")
		return report
	}

	conn := p.connection
	conn.Auth = auth
	conn.Debug = s.IMAPDebug()

	c, err := p.factory.NewClient(&conn)
	if err != nil {
		report.Err = fmt.Errorf("%w: %w", ErrConnect, err)
		log.WithError(err).WithField("host", conn.HostPort).Error("cycle_connect_failed")
		return report
	}

	selected := false
	defer func() { disconnect(c, selected) }()

	status, err := c.Select(conn.Mailbox, false)
	if err != nil {
		report.Err = fmt.Errorf("%w: %w", ErrSelect, err)
		log.WithError(err).WithField("mailbox", conn.Mailbox).Error("cycle_select_failed")
		return report
	}
	selected = true

	log.WithFields(log.Fields{
		"mailbox":      status.Name,
		"num_messages": status.Messages,
	}).Debug("cycle_mailbox_status")

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	uids, err := c.UidSearch(criteria)
	if err != nil {
		report.Err = fmt.Errorf("%w: %w", ErrSearch, err)
		log.WithError(err).Error("cycle_search_failed")
		return report
	}

	log.WithField("uids", uids).Debug("cycle_unseen_messages")

	m := &messageContext{
		client:   c,
		settings: s,
		allowed:  allowed,
		auth:     auth,
	}

	for _, uid := range uids {
		if ctx.Err() != nil {
			log.WithField("remaining", len(uids)-len(report.Outcomes)).Info("cycle_interrupted")
			break
		}

		report.Outcomes = append(report.Outcomes, p.processMessage(ctx, m, uid))
	}

	return report
}

func disconnect(c imap2.Client, selected bool) {
	if selected {
		if err := c.Close(); err != nil {
			log.WithError(err).Warn("cycle_close_failed")
		}
	}

	if err := c.Logout(); err != nil {
		log.WithError(err).Warn("cycle_logout_failed")
	}
}

type messageContext struct {
	client   imap2.Client
	settings settings.Settings
	allowed  allowlist.Set
	auth     imap2.Authenticator
}

func failed(out *Outcome, err error) Outcome {
	out.Status = StatusFailed
	out.Err = err
	return *out
}

func (p *Poller) processMessage(ctx context.Context, m *messageContext, uid uint32) (out Outcome) {
	out.UID = uid

	defer func() {
		if r := recover(); r != nil {
			out.Status = StatusFailed
			out.Err = fmt.Errorf("%w: %v", ErrPanic, r)
			log.WithFields(log.Fields{"uid": uid, "panic": r}).Error("message_panicked")
		}
	}()

	raw, err := fetchMessage(m.client, uid)
	if err != nil {
		log.WithError(err).WithField("uid", uid).Error("message_fetch_failed")
		return failed(&out, fmt.Errorf("%w: %w", ErrFetch, err))
	}

	// From here on the message has been seen, whatever happens to it.
	defer markSeen(m.client, uid)

	msg, err := extract.Extract(raw)
	if err != nil {
		log.WithError(err).WithField("uid", uid).Error("message_extract_failed")
		return failed(&out, fmt.Errorf("%w: %w", ErrExtract, err))
	}

	out.Sender = msg.Sender
	out.Subject = msg.Subject

	e := log.WithFields(log.Fields{
		"uid":     uid,
		"sender":  msg.Sender,
		"subject": msg.Subject,
	})

	if !m.allowed.Allowed(msg.Sender) {
		e.Warn("message_rejected")
		out.Status = StatusRejected
		return out
	}

	e.WithField("body_kind", msg.Body.Kind).Info("message_accepted")

	prompt := BuildPrompt(m.settings.Prompt(), msg)
	answer, err := p.completer.Complete(ctx, prompt, completion.Options{
		APIKey: m.settings.APIKey(),
		Model:  m.settings.Model(),
	})
	if err != nil {
		e.WithError(err).Error("message_completion_failed")
		return failed(&out, err)
	}

	raw, err = p.replier.Reply(msg.Sender, msg.Subject, answer, reply.Credentials{
		From:  m.settings.User(),
		Auth:  m.auth,
		Debug: m.settings.SMTPDebug(),
	})
	if err != nil {
		e.WithError(err).Error("message_reply_failed")
		return failed(&out, err)
	}

	out.Status = StatusSent

	if folder := m.settings.SentFolder(); folder != "" {
		// Archive failures are logged by ingest and don't change the outcome.
		_ = ingest.Append(m.client, folder, raw, time.Now())
	}

	return out
}

func fetchMessage(c imap2.Client, uid uint32) ([]byte, error) {
	section := &imap.BodySectionName{Peek: true}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	ch := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	go func() {
		done <- c.UidFetch(seqset, []imap.FetchItem{imap.FetchUid, section.FetchItem()}, ch)
	}()

	var body imap.Literal
	for msg := range ch {
		if msg.Uid != uid {
			continue
		}

		if b := msg.GetBody(section); b != nil {
			body = b
		}
	}

	if err := <-done; err != nil {
		return nil, err
	}

	if body == nil {
		return nil, ErrNotFound
	}

	return io.ReadAll(body)
}

func markSeen(c imap2.Client, uid uint32) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	err := c.UidStore(seqset, imap.FormatFlagsOp(imap.AddFlags, true), []interface{}{imap.SeenFlag}, nil)
	if err != nil {
		log.WithError(err).WithField("uid", uid).Error("message_mark_seen_failed")
	}
}
