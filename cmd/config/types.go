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
	"errors"

	"golang.org/x/oauth2"
)

var (
	errInvalidScheme = errors.New("invalid uri scheme")
	errNoHost        = errors.New("url has no host")
)

type CliConfig struct {
	SettingsFile  string `json:"settings_file"`
	AllowListFile string `json:"allow_list_file"`
	IMAPURL       string `json:"imap_url"`
	SMTPURL       string `json:"smtp_url"`
	CompletionURL string `json:"completion_url"`
	TLSSkipVerify bool   `json:"tls_skip_verify"`
	LogFile       string `json:"log_file"`
	LogMaxSize    int    `json:"log_max_size"`
	LogBackups    int    `json:"log_backups"`
	LogFormat     string `json:"log_format"`
	Once          bool   `json:"once"`
}

type OAuth2Config struct {
	ClientID     string
	ClientSecret string

	Config oauth2.Config
}
