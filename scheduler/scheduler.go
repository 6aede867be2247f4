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

package scheduler

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vs49688/mailresponder/settings"
)

func NewScheduler(cfg *Config) (*Scheduler, error) {
	if cfg.Settings == nil || cfg.Poller == nil {
		return nil, errMissingDependency
	}

	sleep := cfg.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	onRefresh := cfg.OnRefresh
	if onRefresh == nil {
		onRefresh = func(settings.Settings) {}
	}

	return &Scheduler{
		settings:  cfg.Settings,
		poller:    cfg.Poller,
		onRefresh: onRefresh,
		once:      cfg.Once,
		sleep:     sleep,
	}, nil
}

// Sleep is the default SleepFunc.
func Sleep(d time.Duration, stop <-chan struct{}) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-stop:
		return false
	}
}

func (s *Scheduler) refresh() settings.Settings {
	snapshot := s.settings.Refresh()
	s.onRefresh(snapshot)
	return snapshot
}

// RunOnce refreshes the settings, runs a single cycle and returns the
// interval to wait before the next one. The interval is read from a
// second refresh so edits made during the cycle take effect immediately.
func (s *Scheduler) RunOnce(ctx context.Context) time.Duration {
	s.poller.Poll(ctx, s.refresh())

	return s.refresh().PollInterval()
}

// Run loops until stop is closed. Cycles never overlap; a stop request
// only interrupts the sleep between them.
func (s *Scheduler) Run(stop <-chan struct{}) error {
	ctx := context.Background()

	for {
		select {
		case <-stop:
			log.Trace("exit_requested")
			return nil
		default:
		}

		interval := s.RunOnce(ctx)
		if s.once {
			return nil
		}

		log.WithField("interval", interval).Debug("scheduler_sleeping")
		if !s.sleep(interval, stop) {
			log.Trace("exit_requested")
			return nil
		}
	}
}
