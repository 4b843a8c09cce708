// Package cli implements the interactive sigfeed client: key management,
// publishing, browsing and pulling items from a server.
package cli

import (
	"bufio"
	"os"

	"github.com/dmitrijs2005/sigfeed/internal/client/config"
	"github.com/dmitrijs2005/sigfeed/internal/client/keyring"
	"github.com/dmitrijs2005/sigfeed/internal/client/remote"
	"github.com/dmitrijs2005/sigfeed/internal/identity"
)

type App struct {
	config  *config.Config
	client  *remote.Client
	keyring *keyring.Keyring

	// key is set while an identity is open.
	key    identity.SigningKey
	opened bool

	reader *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {
	return &App{
		config:  c,
		client:  remote.NewClient(c.ServerURL, c.RequestTimeout),
		keyring: keyring.New(c.KeyringDir),
		reader:  bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) isOpen() bool {
	return a.opened
}
