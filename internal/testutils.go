package internal

import (
	"bytes"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/server"
	"github.com/emersion/go-message"
	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
)

const (
	TestUsername = "username"
	TestPassword = "password"
)

func BuildTestIMAPServer(t *testing.T) (*server.Server, string, *memory.Mailbox) {
	s, addr, mailboxes := BuildTestIMAPServerWithMailboxes(t)
	return s, addr, mailboxes["INBOX"]
}

// BuildTestIMAPServerWithMailboxes starts an in-memory IMAP server with an
// empty INBOX plus the named extra mailboxes.
func BuildTestIMAPServerWithMailboxes(t *testing.T, names ...string) (*server.Server, string, map[string]*memory.Mailbox) {
	be := memory.New()
	user, err := be.Login(nil, TestUsername, TestPassword)
	assert.NoError(t, err)
	if err != nil {
		t.FailNow()
	}

	for _, name := range names {
		if err := user.CreateMailbox(name); !assert.NoError(t, err) {
			t.FailNow()
		}
	}

	mailboxes := map[string]*memory.Mailbox{}
	for _, name := range append([]string{"INBOX"}, names...) {
		mb, err := user.GetMailbox(name)
		assert.NoError(t, err)
		if err != nil {
			t.FailNow()
		}

		mailbox := mb.(*memory.Mailbox)
		mailbox.Messages = nil
		mailboxes[name] = mailbox
	}

	s := server.New(be)
	t.Cleanup(func() { _ = s.Close() })

	s.AllowInsecureAuth = true

	l, err := net.Listen("tcp", "localhost:0")
	assert.NoError(t, err)
	if err != nil {
		t.FailNow()
	}

	go func() { err = s.Serve(l) }()

	return s, l.Addr().String(), mailboxes
}

// MakeTestMessage builds a single-part text/plain message.
func MakeTestMessage(t *testing.T, from string, subject string, body string) []byte {
	hdr := message.Header{}
	hdr.Add("From", from)
	hdr.Add("To", "bot@example.com")
	hdr.Add("Subject", subject)
	hdr.Add("Date", "Wed, 11 May 2016 14:31:59 +0000")
	hdr.Add("Content-Type", "text/plain; charset=utf-8")
	hdr.Add("Message-ID", "<"+strings.ReplaceAll(subject, " ", "-")+"@example.com>")

	msg, err := message.New(hdr, strings.NewReader(body))
	assert.NoError(t, err)
	if err != nil {
		t.FailNow()
	}

	bb := new(bytes.Buffer)
	err = msg.WriteTo(bb)
	assert.NoError(t, err)
	if err != nil {
		t.FailNow()
	}

	return bb.Bytes()
}

// AddTestMessage appends raw to mailbox with the given flags.
func AddTestMessage(t *testing.T, mailbox *memory.Mailbox, raw []byte, flags ...string) uint32 {
	if flags == nil {
		flags = []string{}
	}

	err := mailbox.CreateMessage(flags, time.Date(2016, 5, 11, 14, 31, 59, 0, time.UTC), bytes.NewBuffer(raw))
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	return mailbox.Messages[len(mailbox.Messages)-1].Uid
}

var errTestAuthFailed = errors.New("invalid credentials")

type SentMail struct {
	From string
	To   []string
	Data []byte
}

// TestSMTPBackend records every message accepted by the test SMTP server.
type TestSMTPBackend struct {
	mu   sync.Mutex
	sent []SentMail
	fail error
}

func (be *TestSMTPBackend) Login(_ *smtp.ConnectionState, username, password string) (smtp.Session, error) {
	if username != TestUsername || password != TestPassword {
		return nil, errTestAuthFailed
	}
	return &testSMTPSession{be: be}, nil
}

func (be *TestSMTPBackend) AnonymousLogin(_ *smtp.ConnectionState) (smtp.Session, error) {
	return nil, smtp.ErrAuthRequired
}

// FailData makes every subsequent DATA command fail with err.
func (be *TestSMTPBackend) FailData(err error) {
	be.mu.Lock()
	defer be.mu.Unlock()
	be.fail = err
}

func (be *TestSMTPBackend) Sent() []SentMail {
	be.mu.Lock()
	defer be.mu.Unlock()
	out := make([]SentMail, len(be.sent))
	copy(out, be.sent)
	return out
}

type testSMTPSession struct {
	be   *TestSMTPBackend
	from string
	to   []string
}

func (s *testSMTPSession) Reset() {
	s.from = ""
	s.to = nil
}

func (s *testSMTPSession) Logout() error {
	return nil
}

func (s *testSMTPSession) Mail(from string, _ smtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *testSMTPSession) Rcpt(to string) error {
	s.to = append(s.to, to)
	return nil
}

func (s *testSMTPSession) Data(r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	s.be.mu.Lock()
	defer s.be.mu.Unlock()

	if s.be.fail != nil {
		return s.be.fail
	}

	s.be.sent = append(s.be.sent, SentMail{From: s.from, To: s.to, Data: b})
	return nil
}

// BuildTestSMTPServer starts a plaintext SMTP server accepting PLAIN auth
// with the test credentials.
func BuildTestSMTPServer(t *testing.T) (*smtp.Server, string, *TestSMTPBackend) {
	be := &TestSMTPBackend{}

	s := smtp.NewServer(be)
	s.Domain = "localhost"
	s.AllowInsecureAuth = true
	t.Cleanup(func() { _ = s.Close() })

	l, err := net.Listen("tcp", "localhost:0")
	assert.NoError(t, err)
	if err != nil {
		t.FailNow()
	}

	go func() { _ = s.Serve(l) }()

	return s, l.Addr().String(), be
}
