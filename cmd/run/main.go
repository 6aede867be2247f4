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

package run

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/vs49688/mailresponder/cmd/config"
	"github.com/vs49688/mailresponder/completion"
	"github.com/vs49688/mailresponder/imap/client"
	"github.com/vs49688/mailresponder/logging"
	"github.com/vs49688/mailresponder/poller"
	"github.com/vs49688/mailresponder/reply"
	"github.com/vs49688/mailresponder/scheduler"
	"github.com/vs49688/mailresponder/settings"
)

func RegisterCommand(app *cli.App) *cli.App {
	cfg := &config.CliConfig{}
	app.Commands = append(app.Commands, &cli.Command{
		Name:   "run",
		Usage:  "Run the responder",
		Flags:  cfg.Parameters(),
		Action: func(context *cli.Context) error { return run(context, cfg) },
	})
	return app
}

// buildScheduler loads the initial settings and wires the cycle
// components. Anything wrong here is fatal.
func buildScheduler(cfg *config.CliConfig, store *settings.Store) (*scheduler.Scheduler, error) {
	initial := store.Refresh()
	if initial.Empty() {
		return nil, fmt.Errorf("unable to load settings from %v", store.Path())
	}

	if err := initial.Validate(); err != nil {
		return nil, err
	}

	log.SetLevel(initial.LogLevel())

	if _, err := config.ResolveAuth(initial); err != nil {
		return nil, err
	}

	imapConfig, err := cfg.ResolveIMAP()
	if err != nil {
		return nil, fmt.Errorf("invalid imap url: %w", err)
	}

	smtpConfig, err := cfg.ResolveSMTP()
	if err != nil {
		return nil, fmt.Errorf("invalid smtp url: %w", err)
	}

	completionConfig, err := cfg.ResolveCompletion()
	if err != nil {
		return nil, fmt.Errorf("invalid completion url: %w", err)
	}

	log.WithFields(log.Fields{
		"settings_file":   cfg.SettingsFile,
		"allow_list_file": cfg.AllowListFile,
		"imap_host":       imapConfig.HostPort,
		"imap_mailbox":    imapConfig.Mailbox,
		"imap_tls":        imapConfig.TLS,
		"smtp_host":       smtpConfig.HostPort,
		"smtp_tls":        smtpConfig.TLS,
		"completion_url":  completionConfig.BaseURL,
		"tls_skip_verify": cfg.TLSSkipVerify,
		"user":            initial.User(),
		"auth_method":     initial.AuthMethod(),
		"model":           initial.Model(),
		"poll_interval":   initial.PollInterval(),
		"log_level":       logging.LevelName(initial.LogLevel()),
		"sent_folder":     initial.SentFolder(),
		"once":            cfg.Once,
	}).Info("starting")

	if initial.Bool(settings.KeyReplyAll, false) {
		log.Warn("reply_all_ignored")
	}

	p, err := poller.NewPoller(&poller.Config{
		Connection:    imapConfig,
		Factory:       &client.Factory{},
		AllowListPath: cfg.AllowListFile,
		Completer:     completion.NewClient(completionConfig),
		Replier:       reply.NewSender(smtpConfig),
		Auth:          config.ResolveAuth,
	})
	if err != nil {
		return nil, err
	}

	return scheduler.NewScheduler(&scheduler.Config{
		Settings: store,
		Poller:   p,
		Once:     cfg.Once,
		OnRefresh: func(s settings.Settings) {
			log.SetLevel(s.LogLevel())
		},
	})
}

func run(_ *cli.Context, cfg *config.CliConfig) error {
	closer, err := logging.Setup(log.StandardLogger(), cfg.Logging())
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	store := settings.NewStore(cfg.SettingsFile, log.StandardLogger())

	sched, err := buildScheduler(cfg, store)
	if err != nil {
		return err
	}

	doneChan := make(chan error)
	stopChan := make(chan struct{})

	go func() { doneChan <- sched.Run(stopChan) }()

	sigchan := make(chan os.Signal, 10)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)

	sigcount := 0
	for {
		select {
		case sig := <-sigchan:
			log.WithFields(log.Fields{"signal": sig, "count": sigcount}).Trace("caught_signal")

			sigcount += 1
			if sigcount > 1 {
				log.WithFields(log.Fields{"signal": sig}).Warn("received_interrupt_force_exit")
				os.Exit(1)
			}
			log.WithFields(log.Fields{"signal": sig}).Info("received_interrupt")

			close(stopChan)
		case err := <-doneChan:
			log.Info("responder_terminated")
			return err
		}
	}
}
