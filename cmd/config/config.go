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

package config

import (
	"crypto/tls"
	"net"
	"net/url"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/vs49688/mailresponder/completion"
	"github.com/vs49688/mailresponder/imap"
	"github.com/vs49688/mailresponder/logging"
	"github.com/vs49688/mailresponder/reply"
)

func DefaultConfig() CliConfig {
	logs := logging.DefaultConfig()

	return CliConfig{
		SettingsFile:  "settings.env",
		AllowListFile: "whitelist.txt",
		IMAPURL:       "imaps://imap.gmail.com:993/INBOX",
		SMTPURL:       "smtps://smtp.gmail.com:465",
		CompletionURL: completion.DefaultBaseURL,
		TLSSkipVerify: false,
		LogFile:       logs.File,
		LogMaxSize:    logs.MaxSizeMB,
		LogBackups:    logs.MaxBackups,
		LogFormat:     logs.Format,
		Once:          false,
	}
}

func (cfg *CliConfig) Parameters() []cli.Flag {
	def := DefaultConfig()

	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "settings file (KEY=VALUE lines)",
			EnvVars:     []string{"MAILRESPONDER_CONFIG"},
			Destination: &cfg.SettingsFile,
			Value:       def.SettingsFile,
		},
		&cli.StringFlag{
			Name:        "whitelist",
			Usage:       "allowed sender list, one address per line",
			EnvVars:     []string{"MAILRESPONDER_WHITELIST"},
			Destination: &cfg.AllowListFile,
			Value:       def.AllowListFile,
		},
		&cli.StringFlag{
			Name:        "imap-url",
			Usage:       "imap url of the polled mailbox",
			EnvVars:     []string{"MAILRESPONDER_IMAP_URL"},
			Destination: &cfg.IMAPURL,
			Value:       def.IMAPURL,
		},
		&cli.StringFlag{
			Name:        "smtp-url",
			Usage:       "smtp submission url (smtps:// or smtp:// with STARTTLS)",
			EnvVars:     []string{"MAILRESPONDER_SMTP_URL"},
			Destination: &cfg.SMTPURL,
			Value:       def.SMTPURL,
		},
		&cli.StringFlag{
			Name:        "completion-url",
			Usage:       "base url of the chat completion api",
			EnvVars:     []string{"MAILRESPONDER_COMPLETION_URL"},
			Destination: &cfg.CompletionURL,
			Value:       def.CompletionURL,
		},
		&cli.BoolFlag{
			Name:        "tls-skip-verify",
			Usage:       "skip imap and smtp tls verification",
			EnvVars:     []string{"MAILRESPONDER_TLS_SKIP_VERIFY"},
			Destination: &cfg.TLSSkipVerify,
			Value:       def.TLSSkipVerify,
		},
		&cli.StringFlag{
			Name:        "log-file",
			Usage:       "log file, empty to disable",
			EnvVars:     []string{"MAILRESPONDER_LOG_FILE"},
			Destination: &cfg.LogFile,
			Value:       def.LogFile,
		},
		&cli.IntFlag{
			Name:        "log-max-size",
			Usage:       "log file size in megabytes before it is rotated",
			EnvVars:     []string{"MAILRESPONDER_LOG_MAX_SIZE"},
			Destination: &cfg.LogMaxSize,
			Value:       def.LogMaxSize,
		},
		&cli.IntFlag{
			Name:        "log-backups",
			Usage:       "number of rotated log files to keep",
			EnvVars:     []string{"MAILRESPONDER_LOG_BACKUPS"},
			Destination: &cfg.LogBackups,
			Value:       def.LogBackups,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "console logging format (text/json)",
			EnvVars:     []string{"MAILRESPONDER_LOG_FORMAT"},
			Destination: &cfg.LogFormat,
			Value:       def.LogFormat,
		},
		&cli.BoolFlag{
			Name:        "once",
			Usage:       "run a single poll cycle and exit",
			EnvVars:     []string{"MAILRESPONDER_ONCE"},
			Destination: &cfg.Once,
			Value:       def.Once,
		},
	}
}

func splitURL(u *url.URL, plainScheme string, plainPort string, tlsScheme string, tlsPort string) (string, bool, error) {
	var defaultPort string
	var useTLS bool
	switch strings.ToLower(u.Scheme) {
	case plainScheme:
		defaultPort = plainPort
		useTLS = false
	case tlsScheme:
		defaultPort = tlsPort
		useTLS = true
	default:
		return "", false, errInvalidScheme
	}

	host := u.Hostname()
	if host == "" {
		return "", false, errNoHost
	}

	port := u.Port()
	if port == "" {
		port = defaultPort
	}

	return net.JoinHostPort(host, port), useTLS, nil
}

func (cfg *CliConfig) tlsConfig() *tls.Config {
	if cfg.TLSSkipVerify {
		// #nosec G402
		return &tls.Config{InsecureSkipVerify: true}
	}
	return nil
}

// ResolveIMAP turns the imap url into a connection config. The mailbox
// is the url path, INBOX if empty.
func (cfg *CliConfig) ResolveIMAP() (imap.ConnectionConfig, error) {
	u, err := url.Parse(cfg.IMAPURL)
	if err != nil {
		return imap.ConnectionConfig{}, err
	}

	hostPort, wantTLS, err := splitURL(u, "imap", "143", "imaps", "993")
	if err != nil {
		return imap.ConnectionConfig{}, err
	}

	mailbox := strings.TrimPrefix(u.Path, "/")
	if mailbox == "" {
		mailbox = "INBOX"
	}

	return imap.ConnectionConfig{
		HostPort:  hostPort,
		Mailbox:   mailbox,
		TLS:       wantTLS,
		TLSConfig: cfg.tlsConfig(),
	}, nil
}

func (cfg *CliConfig) ResolveSMTP() (reply.Config, error) {
	u, err := url.Parse(cfg.SMTPURL)
	if err != nil {
		return reply.Config{}, err
	}

	hostPort, wantTLS, err := splitURL(u, "smtp", "587", "smtps", "465")
	if err != nil {
		return reply.Config{}, err
	}

	return reply.Config{
		HostPort:  hostPort,
		TLS:       wantTLS,
		TLSConfig: cfg.tlsConfig(),
	}, nil
}

func (cfg *CliConfig) ResolveCompletion() (completion.Config, error) {
	u, err := url.Parse(cfg.CompletionURL)
	if err != nil {
		return completion.Config{}, err
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return completion.Config{}, errInvalidScheme
	}

	if u.Host == "" {
		return completion.Config{}, errNoHost
	}

	return completion.Config{BaseURL: u.String(), Timeout: completion.DefaultTimeout}, nil
}

func (cfg *CliConfig) Logging() logging.Config {
	return logging.Config{
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSize,
		MaxBackups: cfg.LogBackups,
		Format:     cfg.LogFormat,
	}
}
