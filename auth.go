package mailbox

import (
	"github.com/sqs/go-xoauth2"
)

// AuthenticateXOAuth2 performs XOAUTH2 authentication using an access token
func (c *Conn) AuthenticateXOAuth2(username, accessToken string) (err error) {
	b64 := xoauth2.XOAuth2String(username, accessToken)
	c.secret = b64
	_, err = c.Exec("AUTHENTICATE XOAUTH2 "+b64, nil)
	return err
}

// Login performs LOGIN authentication using username and password
func (c *Conn) Login(username, password string) (err error) {
	c.secret = Quote(password)
	_, err = c.Exec("LOGIN "+Quote(username)+" "+Quote(password), nil)
	return err
}
