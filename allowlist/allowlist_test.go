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
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	set, err := Parse(strings.NewReader(`
# staff
  Alice@Example.com
bob@example.com  

#carol@example.com
`))
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	assert.Equal(t, []string{"alice@example.com", "bob@example.com"}, set.Addresses())
	assert.True(t, set.Allowed("alice@example.com"))
	assert.True(t, set.Allowed(" ALICE@EXAMPLE.COM "))
	assert.True(t, set.Allowed("Bob@Example.Com"))
	assert.False(t, set.Allowed("carol@example.com"))
	assert.False(t, set.Allowed(""))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whitelist.txt")
	err := os.WriteFile(path, []byte("alice@example.com\r\nbob@example.com\n"), 0600)
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	logger, hook := test.NewNullLogger()
	set := Load(path, logger)
	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Allowed("bob@example.com"))
	assert.Empty(t, hook.AllEntries())

	logger.SetLevel(log.DebugLevel)
	Load(path, logger)
	if assert.NotNil(t, hook.LastEntry()) {
		assert.Equal(t, "allowlist_loaded", hook.LastEntry().Message)
		assert.Equal(t, []string{"alice@example.com", "bob@example.com"}, hook.LastEntry().Data["addresses"])
	}
}

func TestLoadMissingDeniesAll(t *testing.T) {
	logger, hook := test.NewNullLogger()
	set := Load(filepath.Join(t.TempDir(), "missing.txt"), logger)

	assert.Equal(t, 0, set.Len())
	assert.False(t, set.Allowed("alice@example.com"))
	if assert.NotNil(t, hook.LastEntry()) {
		assert.Equal(t, "allowlist_unreadable", hook.LastEntry().Message)
	}
}
