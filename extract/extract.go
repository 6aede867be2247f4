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

package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	log "github.com/sirupsen/logrus"
)

type BodyKind int

const (
	// BodyText is a successfully decoded, non-blank body.
	BodyText BodyKind = iota
	// BodyEmpty is a body that decoded fine but holds only whitespace.
	BodyEmpty
	// BodyNoTextPart is a multipart message without a text/plain part.
	BodyNoTextPart
	// BodyUndecodable is a body whose transfer encoding couldn't be undone.
	BodyUndecodable
)

func (k BodyKind) String() string {
	switch k {
	case BodyText:
		return "text"
	case BodyEmpty:
		return "empty"
	case BodyNoTextPart:
		return "no_text_part"
	case BodyUndecodable:
		return "undecodable"
	default:
		return fmt.Sprintf("BodyKind(%d)", int(k))
	}
}

type Body struct {
	Kind BodyKind
	Text string
}

type Message struct {
	Sender  string
	Subject string
	Body    Body
}

var errFound = errors.New("found")

// Extract parses a raw RFC 5322 message. Only a broken header block is an
// error, body problems degrade to a tagged empty body.
func Extract(raw []byte) (Message, error) {
	e, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return Message{}, err
	}

	h := mail.Header{Header: e.Header}
	msg := Message{
		Sender:  sender(h),
		Subject: subject(h),
	}

	if e.MultipartReader() != nil {
		msg.Body = multipartBody(e)
	} else {
		msg.Body = decodePart(e, err)
	}

	if msg.Body.Kind != BodyText {
		log.WithFields(log.Fields{
			"sender":    msg.Sender,
			"body_kind": msg.Body.Kind,
		}).Debug("extract_degraded_body")
	}

	return msg, nil
}

func sender(h mail.Header) string {
	addrs, err := h.AddressList("From")
	if err != nil {
		log.WithError(err).WithField("from", h.Get("From")).Warn("extract_bad_sender")
		return ""
	}

	if len(addrs) == 0 {
		return ""
	}

	return strings.ToLower(strings.TrimSpace(addrs[0].Address))
}

func subject(h mail.Header) string {
	s, err := h.Subject()
	if err != nil {
		// Undecodable encoded-words, fall back to the raw value.
		return strings.TrimSpace(h.Get("Subject"))
	}
	return strings.TrimSpace(s)
}

func multipartBody(e *message.Entity) Body {
	body := Body{Kind: BodyNoTextPart}

	err := e.Walk(func(path []int, part *message.Entity, err error) error {
		if part.MultipartReader() != nil {
			return nil
		}

		mediaType, _, _ := part.Header.ContentType()
		if !strings.EqualFold(mediaType, "text/plain") {
			return nil
		}

		if disp, _, _ := part.Header.ContentDisposition(); strings.EqualFold(disp, "attachment") {
			return nil
		}

		body = decodePart(part, err)
		return errFound
	})

	if err != nil && !errors.Is(err, errFound) {
		log.WithError(err).Warn("extract_multipart_failed")
		if body.Kind == BodyNoTextPart {
			body = Body{Kind: BodyUndecodable}
		}
	}

	return body
}

// decodePart reads an entity body. Invalid UTF-8 left after charset
// conversion is dropped.
func decodePart(e *message.Entity, readErr error) Body {
	if message.IsUnknownEncoding(readErr) {
		log.WithError(readErr).Warn("extract_unknown_encoding")
		return Body{Kind: BodyUndecodable}
	}

	if message.IsUnknownCharset(readErr) {
		log.WithError(readErr).Debug("extract_unknown_charset")
	}

	b, err := io.ReadAll(e.Body)
	if err != nil {
		log.WithError(err).Warn("extract_decode_failed")
		return Body{Kind: BodyUndecodable}
	}

	text := strings.ToValidUTF8(string(b), "")
	if strings.TrimSpace(text) == "" {
		return Body{Kind: BodyEmpty}
	}

	return Body{Kind: BodyText, Text: text}
}
