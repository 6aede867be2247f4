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
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	KeyUser              = "GMAIL_USER"
	KeyPass              = "GMAIL_PASS"
	KeyAuthMethod        = "GMAIL_AUTH_METHOD"
	KeyOAuthClientID     = "GMAIL_OAUTH_CLIENT_ID"
	KeyOAuthClientSecret = "GMAIL_OAUTH_CLIENT_SECRET"
	KeyAPIKey            = "OPENAI_API_KEY"
	KeyModel             = "OPENAI_MODEL"
	KeyPrompt            = "CHATGPT_PROMPT"
	KeyLogLevel          = "LOG_LEVEL"
	KeyPollInterval      = "POLL_INTERVAL"
	KeyReplyAll          = "REPLY_ALL"
	KeySMTPDebugLevel    = "SMTP_DEBUGLEVEL"
	KeyIMAPDebugLevel    = "IMAP_DEBUGLEVEL"
	KeySentFolder        = "SENT_FOLDER"
)

const (
	DefaultModel        = "gpt-4o-mini"
	DefaultPollInterval = 900 * time.Second
	DefaultLogLevel     = "INFO"
	DefaultAuthMethod   = "LOGIN"
)

// RequiredKeys have no sensible default. A cycle cannot run without them.
var RequiredKeys = []string{KeyUser, KeyPass, KeyAPIKey, KeyPrompt}

var ErrMissingKey = errors.New("missing required setting")

// Settings is an immutable snapshot of the settings file.
type Settings struct {
	values map[string]string
}

func New(values map[string]string) Settings {
	s := Settings{values: make(map[string]string, len(values))}
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

// String returns the value of key, or def if the key is absent.
func (s Settings) String(key string, def string) string {
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

// Int returns the integer value of key, or def if the key is absent
// or not an integer.
func (s Settings) Int(key string, def int) int {
	v, ok := s.values[key]
	if !ok {
		return def
	}

	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}

	return i
}

func (s Settings) Bool(key string, def bool) bool {
	v, ok := s.values[key]
	if !ok {
		return def
	}

	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}

	return b
}

// Keys returns all keys in lexical order.
func (s Settings) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s Settings) Len() int {
	return len(s.values)
}

func (s Settings) Empty() bool {
	return len(s.values) == 0
}

// Validate checks that every required key is present and non-empty.
func (s Settings) Validate() error {
	var missing []string
	for _, k := range RequiredKeys {
		if strings.TrimSpace(s.values[k]) == "" {
			missing = append(missing, k)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrMissingKey, strings.Join(missing, ", "))
	}

	return nil
}

func (s Settings) User() string {
	return s.values[KeyUser]
}

func (s Settings) Password() string {
	return s.values[KeyPass]
}

func (s Settings) AuthMethod() string {
	m := strings.ToUpper(strings.TrimSpace(s.values[KeyAuthMethod]))
	if m == "" {
		return DefaultAuthMethod
	}
	return m
}

func (s Settings) APIKey() string {
	return s.values[KeyAPIKey]
}

func (s Settings) Model() string {
	if m := strings.TrimSpace(s.values[KeyModel]); m != "" {
		return m
	}
	return DefaultModel
}

func (s Settings) Prompt() string {
	return s.values[KeyPrompt]
}

func (s Settings) SentFolder() string {
	return strings.TrimSpace(s.values[KeySentFolder])
}

func (s Settings) IMAPDebug() bool {
	return s.Int(KeyIMAPDebugLevel, 0) > 0
}

func (s Settings) SMTPDebug() bool {
	return s.Int(KeySMTPDebugLevel, 0) > 0
}

// PollInterval falls back to DefaultPollInterval when the value is
// missing, malformed or not positive.
func (s Settings) PollInterval() time.Duration {
	secs := s.Int(KeyPollInterval, int(DefaultPollInterval/time.Second))
	if secs <= 0 {
		return DefaultPollInterval
	}
	return time.Duration(secs) * time.Second
}

// LogLevel maps the DEBUG/INFO/WARNING/ERROR/CRITICAL names onto logrus
// levels. Anything else is INFO.
func (s Settings) LogLevel() log.Level {
	return ParseLevel(s.String(KeyLogLevel, DefaultLogLevel))
}

func ParseLevel(name string) log.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return log.DebugLevel
	case "INFO":
		return log.InfoLevel
	case "WARNING", "WARN":
		return log.WarnLevel
	case "ERROR":
		return log.ErrorLevel
	case "CRITICAL":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

var secretSuffixes = []string{"_PASS", "_KEY", "_SECRET", "_TOKEN"}

func isSecret(key string) bool {
	upper := strings.ToUpper(key)
	for _, suffix := range secretSuffixes {
		if strings.HasSuffix(upper, suffix) {
			return true
		}
	}
	return false
}

// displayValue masks values that shouldn't end up in log files.
func displayValue(key string, value string) string {
	if value != "" && isSecret(key) {
		return "********"
	}
	return value
}
