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

package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

const baseSettings = `GMAIL_USER=bot@example.com
GMAIL_PASS=hunter2
OPENAI_API_KEY=sk-test
CHATGPT_PROMPT="Answer politely."
POLL_INTERVAL=60
`

func writeSettings(t *testing.T, path string, content string, mtime time.Time) {
	err := os.WriteFile(path, []byte(content), 0600)
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	err = os.Chtimes(path, mtime, mtime)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
}

func messages(hook *test.Hook) []string {
	var msgs []string
	for _, e := range hook.AllEntries() {
		msgs = append(msgs, e.Message)
	}
	return msgs
}

func newTestStore(t *testing.T, content string) (*Store, *test.Hook, string, time.Time) {
	path := filepath.Join(t.TempDir(), "settings.env")
	mtime := time.Date(2022, 5, 1, 12, 0, 0, 0, time.UTC)
	writeSettings(t, path, content, mtime)

	logger, hook := test.NewNullLogger()
	return NewStore(path, logger), hook, path, mtime
}

func TestInitialLoad(t *testing.T) {
	store, hook, _, _ := newTestStore(t, baseSettings)

	s := store.Refresh()
	assert.Equal(t, 5, s.Len())
	assert.Equal(t, "bot@example.com", s.User())
	assert.Equal(t, "Answer politely.", s.Prompt())
	assert.Equal(t, 60*time.Second, s.PollInterval())
	assert.NoError(t, s.Validate())

	// No diff against an empty snapshot.
	assert.Equal(t, []string{"settings_reloaded"}, messages(hook))
}

func TestRefreshUnchangedIsSilent(t *testing.T) {
	store, hook, _, _ := newTestStore(t, baseSettings)

	first := store.Refresh()
	hook.Reset()

	second := store.Refresh()
	assert.Equal(t, first, second)
	assert.Empty(t, hook.AllEntries())
}

func TestRefreshSingleRemoval(t *testing.T) {
	store, hook, path, mtime := newTestStore(t, baseSettings)
	store.Refresh()
	hook.Reset()

	writeSettings(t, path, `GMAIL_USER=bot@example.com
GMAIL_PASS=hunter2
OPENAI_API_KEY=sk-test
CHATGPT_PROMPT="Answer politely."
`, mtime.Add(time.Minute))

	s := store.Refresh()
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, DefaultPollInterval, s.PollInterval())

	entries := hook.AllEntries()
	if !assert.Len(t, entries, 2) {
		t.FailNow()
	}

	assert.Equal(t, "settings_removed", entries[0].Message)
	assert.Equal(t, KeyPollInterval, entries[0].Data["key"])
	assert.Equal(t, "settings_reloaded", entries[1].Message)
}

func TestRefreshChangedAndAdded(t *testing.T) {
	store, hook, path, mtime := newTestStore(t, baseSettings)
	store.Refresh()
	hook.Reset()

	writeSettings(t, path, baseSettings+"LOG_LEVEL=DEBUG\n", mtime.Add(time.Minute))
	s := store.Refresh()
	assert.Equal(t, log.DebugLevel, s.LogLevel())

	entries := hook.AllEntries()
	if !assert.Len(t, entries, 2) {
		t.FailNow()
	}

	assert.Equal(t, "settings_changed", entries[0].Message)
	assert.Equal(t, KeyLogLevel, entries[0].Data["key"])
	assert.Equal(t, "", entries[0].Data["old_value"])
	assert.Equal(t, "DEBUG", entries[0].Data["new_value"])
}

func TestSecretsAreMasked(t *testing.T) {
	store, hook, path, mtime := newTestStore(t, baseSettings)
	store.Refresh()
	hook.Reset()

	writeSettings(t, path, `GMAIL_USER=bot@example.com
GMAIL_PASS=correcthorse
OPENAI_API_KEY=sk-test
CHATGPT_PROMPT="Answer politely."
POLL_INTERVAL=60
`, mtime.Add(time.Minute))
	store.Refresh()

	entries := hook.AllEntries()
	if !assert.Len(t, entries, 2) {
		t.FailNow()
	}

	assert.Equal(t, KeyPass, entries[0].Data["key"])
	assert.Equal(t, "********", entries[0].Data["old_value"])
	assert.Equal(t, "********", entries[0].Data["new_value"])
}

func TestParseFailureKeepsPrevious(t *testing.T) {
	store, hook, path, mtime := newTestStore(t, baseSettings)
	prev := store.Refresh()
	hook.Reset()

	writeSettings(t, path, "GMAIL-USER=broken\n", mtime.Add(time.Minute))

	s := store.Refresh()
	assert.Equal(t, prev, s)
	assert.Equal(t, []string{"settings_reload_failed"}, messages(hook))
	assert.Equal(t, log.ErrorLevel, hook.LastEntry().Level)

	// The mtime wasn't recorded, so the next refresh tries again.
	hook.Reset()
	s = store.Refresh()
	assert.Equal(t, prev, s)
	assert.Equal(t, []string{"settings_reload_failed"}, messages(hook))
}

func TestMissingFile(t *testing.T) {
	logger, hook := test.NewNullLogger()
	store := NewStore(filepath.Join(t.TempDir(), "nope.env"), logger)

	s := store.Refresh()
	assert.True(t, s.Empty())
	assert.Equal(t, []string{"settings_stat_failed"}, messages(hook))
}

func TestValidate(t *testing.T) {
	s := New(map[string]string{
		KeyUser:   "bot@example.com",
		KeyPrompt: "   ",
	})

	err := s.Validate()
	assert.ErrorIs(t, err, ErrMissingKey)
	assert.Contains(t, err.Error(), KeyPass)
	assert.Contains(t, err.Error(), KeyAPIKey)
	assert.Contains(t, err.Error(), KeyPrompt)
	assert.NotContains(t, err.Error(), KeyUser)
}

func TestAccessors(t *testing.T) {
	s := New(map[string]string{
		KeyPollInterval:   "-5",
		KeyIMAPDebugLevel: "2",
		KeySMTPDebugLevel: "zero",
		KeyAuthMethod:     "oauthbearer",
		KeyModel:          "",
		KeyReplyAll:       "true",
	})

	assert.Equal(t, DefaultPollInterval, s.PollInterval())
	assert.True(t, s.IMAPDebug())
	assert.False(t, s.SMTPDebug())
	assert.Equal(t, "OAUTHBEARER", s.AuthMethod())
	assert.Equal(t, DefaultModel, s.Model())
	assert.True(t, s.Bool(KeyReplyAll, false))
	assert.Equal(t, "", s.SentFolder())
	assert.Equal(t, DefaultAuthMethod, New(nil).AuthMethod())
}

func TestParseLevel(t *testing.T) {
	cases := map[string]log.Level{
		"DEBUG":    log.DebugLevel,
		"info":     log.InfoLevel,
		"WARNING":  log.WarnLevel,
		"ERROR":    log.ErrorLevel,
		"CRITICAL": log.FatalLevel,
		"verbose":  log.InfoLevel,
		"":         log.InfoLevel,
	}

	for name, want := range cases {
		assert.Equal(t, want, ParseLevel(name), name)
	}
}
