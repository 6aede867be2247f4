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

package ingest

import (
	"bytes"
	"errors"
	"time"

	"github.com/emersion/go-imap"
	log "github.com/sirupsen/logrus"

	imap2 "github.com/vs49688/mailresponder/imap"
)

var errNoMailbox = errors.New("no mailbox")

// Append stores a copy of raw in mbox on an already-authenticated
// connection. The copy is flagged \Seen so it doesn't get polled.
func Append(c imap2.Client, mbox string, raw []byte, date time.Time) error {
	if mbox == "" {
		return errNoMailbox
	}

	fields := log.Fields{"mailbox": mbox, "size": len(raw)}
	log.WithFields(fields).Trace("ingest_start")

	err := c.Append(mbox, []string{imap.SeenFlag}, date, bytes.NewBuffer(raw))
	if err != nil {
		log.WithError(err).WithFields(fields).Error("ingest_failed")
		return err
	}

	log.WithFields(fields).Info("ingest_success")
	return nil
}
