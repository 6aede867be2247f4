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

	"github.com/vs49688/mailresponder/completion"
	"github.com/vs49688/mailresponder/imap"
	"github.com/vs49688/mailresponder/reply"
	"github.com/vs49688/mailresponder/settings"
)

var (
	ErrConnect  = errors.New("connect failed")
	ErrSelect   = errors.New("select failed")
	ErrSearch   = errors.New("search failed")
	ErrFetch    = errors.New("fetch failed")
	ErrNotFound = errors.New("message not returned by server")
	ErrExtract  = errors.New("unparseable message")
	ErrPanic    = errors.New("panic while processing message")
)

type Completer interface {
	Complete(ctx context.Context, prompt string, opts completion.Options) (string, error)
}

type Replier interface {
	Reply(to string, subject string, body string, creds reply.Credentials) ([]byte, error)
}

// AuthFunc builds the mailbox credentials for a cycle from the current
// settings.
type AuthFunc func(s settings.Settings) (imap.Authenticator, error)

type Config struct {
	// Connection holds the endpoint. Auth and Debug are filled in from
	// the settings on every cycle.
	Connection    imap.ConnectionConfig
	Factory       imap.Factory
	AllowListPath string
	Completer     Completer
	Replier       Replier
	Auth          AuthFunc
}

type Status int

const (
	StatusSent Status = iota
	StatusRejected
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSent:
		return "sent"
	case StatusRejected:
		return "rejected"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the terminal state of one message within a cycle.
type Outcome struct {
	UID     uint32
	Sender  string
	Subject string
	Status  Status
	Err     error
}

// Report is the result of a cycle. Err is set when the cycle aborted
// before or during the search, in which case Outcomes is empty.
type Report struct {
	Outcomes []Outcome
	Err      error
}

func (r *Report) Count(status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

type Poller struct {
	connection    imap.ConnectionConfig
	factory       imap.Factory
	allowListPath string
	completer     Completer
	replier       Replier
	auth          AuthFunc
}
