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
	"context"
	"fmt"
	"strings"

	"github.com/emersion/go-sasl"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/vs49688/mailresponder/imap"
	"github.com/vs49688/mailresponder/settings"
)

var oauthEndpoint = endpoints.Google

var oauthScopes = []string{"https://mail.google.com/"}

func googleOAuth2Config(clientID string, clientSecret string) oauth2.Config {
	return oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     oauthEndpoint,
		Scopes:       oauthScopes,
	}
}

// ResolveAuth builds the mailbox authenticator from the settings file.
// For OAUTHBEARER, GMAIL_PASS holds a refresh token.
func ResolveAuth(s settings.Settings) (imap.Authenticator, error) {
	user := s.User()
	pass := s.Password()

	if user == "" {
		return nil, fmt.Errorf("%v is required", settings.KeyUser)
	}

	if pass == "" {
		return nil, fmt.Errorf("%v is required", settings.KeyPass)
	}

	switch method := s.AuthMethod(); method {
	case "LOGIN", "NORMAL":
		return imap.NewNormalAuthenticator(user, pass), nil
	case sasl.Plain:
		return imap.NewSASLAuthenticator(sasl.NewPlainClient("", user, pass)), nil
	case sasl.OAuthBearer:
		clientID := s.String(settings.KeyOAuthClientID, "")
		if clientID == "" {
			return nil, fmt.Errorf("%v is required when using %v auth", settings.KeyOAuthClientID, method)
		}

		conf := googleOAuth2Config(clientID, s.String(settings.KeyOAuthClientSecret, ""))
		ts := conf.TokenSource(context.Background(), &oauth2.Token{RefreshToken: pass})
		return imap.NewOAuthBearerAuthenticator(user, ts), nil
	default:
		return nil, fmt.Errorf("unsupported auth method: %v", method)
	}
}

func (cfg *OAuth2Config) Parameters() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "client-id",
			Usage:       "oauth2 client id",
			EnvVars:     []string{"MAILRESPONDER_OAUTH_CLIENT_ID"},
			Destination: &cfg.ClientID,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "client-secret",
			Usage:       "oauth2 client secret",
			EnvVars:     []string{"MAILRESPONDER_OAUTH_CLIENT_SECRET"},
			Destination: &cfg.ClientSecret,
		},
	}
}

func (cfg *OAuth2Config) Resolve() error {
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	if cfg.ClientID == "" {
		return fmt.Errorf("a client id is required")
	}

	cfg.Config = googleOAuth2Config(cfg.ClientID, strings.TrimSpace(cfg.ClientSecret))
	return nil
}
