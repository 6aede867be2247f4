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

package imap

//go:generate mockgen -destination=mocks/mock_types.go -package=mock_imap . Client,Authenticatable,Authenticator,Factory

import (
	"crypto/tls"
	"errors"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-sasl"
)

// Client is the subset of the go-imap client used by a poll cycle.
type Client interface {
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)

	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)

	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error

	UidStore(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error

	Append(mbox string, flags []string, date time.Time, msg imap.Literal) error

	Close() error

	Logout() error
}

type Authenticatable interface {
	Login(username string, password string) error

	Authenticate(auth sasl.Client) error
}

// Authenticator logs an IMAP connection in and supplies the equivalent
// SASL mechanism for SMTP submission.
type Authenticator interface {
	Authenticate(c Authenticatable) error

	SASLClient() (sasl.Client, error)
}

type ConnectionConfig struct {
	HostPort  string
	Auth      Authenticator
	Mailbox   string
	TLS       bool
	TLSConfig *tls.Config
	Debug     bool
}

type Factory interface {
	NewClient(cfg *ConnectionConfig) (Client, error)
}

type Message = imap.Message
type SeqSet = imap.SeqSet
type StoreItem = imap.StoreItem
type MailboxStatus = imap.MailboxStatus
type FetchItem = imap.FetchItem
type Literal = imap.Literal

var ErrNoAuthenticator = errors.New("no authenticator configured")
