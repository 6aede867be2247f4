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

package allowlist

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Set is a set of normalised sender addresses. The zero value denies
// everyone.
type Set map[string]struct{}

// Normalize trims and lower-cases an address.
func Normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Parse reads one address per line, skipping blank lines and comments.
func Parse(r io.Reader) (Set, error) {
	set := Set{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := Normalize(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		set[line] = struct{}{}
	}

	if err := scanner.Err(); err != nil {
		return Set{}, err
	}

	return set, nil
}

// Load reads the allow-list at path. If the file can't be read, a warning
// is logged and an empty set is returned.
func Load(path string, logger log.FieldLogger) Set {
	if logger == nil {
		logger = log.StandardLogger()
	}

	f, err := os.Open(path)
	if err != nil {
		logger.WithError(err).WithField("path", path).Warn("allowlist_unreadable")
		return Set{}
	}
	defer func() { _ = f.Close() }()

	set, err := Parse(f)
	if err != nil {
		logger.WithError(err).WithField("path", path).Warn("allowlist_unreadable")
		return Set{}
	}

	logger.WithFields(log.Fields{
		"path":      path,
		"count":     set.Len(),
		"addresses": set.Addresses(),
	}).Debug("allowlist_loaded")
	return set
}

func (s Set) Allowed(addr string) bool {
	addr = Normalize(addr)
	if addr == "" {
		return false
	}

	_, ok := s[addr]
	return ok
}

func (s Set) Len() int {
	return len(s)
}

func (s Set) Addresses() []string {
	addrs := make([]string, 0, len(s))
	for a := range s {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)
	return addrs
}
