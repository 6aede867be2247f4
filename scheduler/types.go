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
	"errors"
	"time"

	"github.com/vs49688/mailresponder/poller"
	"github.com/vs49688/mailresponder/settings"
)

type Refresher interface {
	Refresh() settings.Settings
}

type Poller interface {
	Poll(ctx context.Context, s settings.Settings) *poller.Report
}

// SleepFunc waits for d or until stop is closed. It returns false if it
// was interrupted.
type SleepFunc func(d time.Duration, stop <-chan struct{}) bool

type Config struct {
	Settings Refresher
	Poller   Poller

	// OnRefresh is called with every refreshed snapshot before the cycle
	// runs.
	OnRefresh func(s settings.Settings)

	// Once runs a single cycle and returns.
	Once bool

	Sleep SleepFunc
}

type Scheduler struct {
	settings  Refresher
	poller    Poller
	onRefresh func(s settings.Settings)
	once      bool
	sleep     SleepFunc
}

var errMissingDependency = errors.New("scheduler needs a settings store and a poller")
