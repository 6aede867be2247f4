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

package imap

import (
	"github.com/emersion/go-sasl"
	"golang.org/x/oauth2"
)

type plainAuthenticator struct {
	username string
	password string
}

// NewNormalAuthenticator uses IMAP LOGIN, and SASL PLAIN for SMTP.
func NewNormalAuthenticator(username string, password string) Authenticator {
	return &plainAuthenticator{username: username, password: password}
}

func (a *plainAuthenticator) Authenticate(c Authenticatable) error {
	return c.Login(a.username, a.password)
}

func (a *plainAuthenticator) SASLClient() (sasl.Client, error) {
	return sasl.NewPlainClient("", a.username, a.password), nil
}

type saslAuthenticator struct {
	client sasl.Client
}

func NewSASLAuthenticator(client sasl.Client) Authenticator {
	return &saslAuthenticator{client: client}
}

func (a *saslAuthenticator) Authenticate(c Authenticatable) error {
	return c.Authenticate(a.client)
}

func (a *saslAuthenticator) SASLClient() (sasl.Client, error) {
	return a.client, nil
}

type oauthBearerAuthenticator struct {
	username    string
	tokenSource oauth2.TokenSource
}

// NewOAuthBearerAuthenticator fetches a fresh access token from ts every
// time a connection is authenticated.
func NewOAuthBearerAuthenticator(username string, ts oauth2.TokenSource) Authenticator {
	return &oauthBearerAuthenticator{username: username, tokenSource: ts}
}

func (a *oauthBearerAuthenticator) Authenticate(c Authenticatable) error {
	sc, err := a.SASLClient()
	if err != nil {
		return err
	}

	return c.Authenticate(sc)
}

func (a *oauthBearerAuthenticator) SASLClient() (sasl.Client, error) {
	tok, err := a.tokenSource.Token()
	if err != nil {
		return nil, err
	}

	return sasl.NewOAuthBearerClient(&sasl.OAuthBearerOptions{
		Username: a.username,
		Token:    tok.AccessToken,
	}), nil
}
