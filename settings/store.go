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
	"sync"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Store caches the settings file and reloads it whenever its
// modification time changes.
type Store struct {
	path   string
	logger log.FieldLogger

	mu      sync.Mutex
	loaded  bool
	mtime   time.Time
	current Settings
}

func NewStore(path string, logger log.FieldLogger) *Store {
	if logger == nil {
		logger = log.StandardLogger()
	}

	return &Store{
		path:    path,
		logger:  logger,
		current: New(nil),
	}
}

func (s *Store) Path() string {
	return s.path
}

// Refresh returns the current snapshot, reloading the file first if it
// changed since the last successful load. Errors are logged and the
// previous snapshot is kept.
func (s *Store) Refresh() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	fi, err := os.Stat(s.path)
	if err != nil {
		s.logger.WithError(err).WithField("path", s.path).Error("settings_stat_failed")
		return s.current
	}

	mtime := fi.ModTime()
	if s.loaded && mtime.Equal(s.mtime) {
		return s.current
	}

	values, err := godotenv.Read(s.path)
	if err != nil {
		s.logger.WithError(err).WithField("path", s.path).Error("settings_reload_failed")
		return s.current
	}

	next := Settings{values: values}
	if !s.current.Empty() {
		s.logDiff(s.current, next)
	}

	s.current = next
	s.mtime = mtime
	s.loaded = true

	s.logger.WithFields(log.Fields{
		"path": s.path,
		"keys": next.Len(),
	}).Info("settings_reloaded")

	return s.current
}

func (s *Store) logDiff(prev Settings, next Settings) {
	for _, k := range next.Keys() {
		newValue := next.values[k]
		oldValue, existed := prev.values[k]
		if existed && oldValue == newValue {
			continue
		}

		s.logger.WithFields(log.Fields{
			"key":       k,
			"old_value": displayValue(k, oldValue),
			"new_value": displayValue(k, newValue),
		}).Info("settings_changed")
	}

	for _, k := range prev.Keys() {
		if _, ok := next.values[k]; ok {
			continue
		}

		s.logger.WithField("key", k).Info("settings_removed")
	}
}
