package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/sigfeed/internal/common"
	"github.com/dmitrijs2005/sigfeed/internal/identity"
)

// Keygen creates a fresh identity and seals it in the keyring.
func (a *App) Keygen(ctx context.Context) error {
	user, key, err := identity.GenerateKeyPair()
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	pw, err := GetPassphrase(os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}
	defer common.WipeByteArray(pw)

	if err := a.keyring.Save(key, pw); err != nil {
		fmt.Println(err.Error())
		return err
	}

	a.key = key
	a.opened = true

	fmt.Println("New identity:", user.String())
	return nil
}

// Open unseals an identity from the keyring. With a single stored key the
// user id prompt is skipped.
func (a *App) Open(ctx context.Context) error {
	users, err := a.keyring.List()
	if err != nil {
		fmt.Println(err.Error())
		return err
	}
	if len(users) == 0 {
		fmt.Println("Keyring is empty; run 'keygen' first")
		return common.ErrNotFound
	}

	var user identity.UserID
	if len(users) == 1 {
		user = users[0]
	} else {
		for _, u := range users {
			fmt.Println("  " + u.String())
		}
		text, err := GetSimpleText(a.reader, "Enter user id to open:", os.Stdout)
		if err != nil {
			fmt.Println(err.Error())
			return err
		}
		user, err = identity.DecodeUserID(text)
		if err != nil {
			fmt.Println(err.Error())
			return err
		}
	}

	pw, err := GetPassphrase(os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}
	defer common.WipeByteArray(pw)

	key, err := a.keyring.Load(user, pw)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	a.key = key
	a.opened = true

	fmt.Println("Opened", user.String())
	return nil
}

// Close forgets the open identity.
func (a *App) Close(ctx context.Context) error {
	a.key = identity.SigningKey{}
	a.opened = false
	fmt.Println("Identity closed")
	return nil
}
