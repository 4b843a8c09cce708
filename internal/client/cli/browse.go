package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/sigfeed/internal/identity"
	"github.com/dmitrijs2005/sigfeed/internal/item"
	"github.com/dmitrijs2005/sigfeed/internal/syncx"
)

// List shows the open identity's items, newest first.
func (a *App) List(ctx context.Context) error {
	return a.printListing(ctx, a.client.UserItems(a.key.UserID()))
}

// Feed shows the server's global feed in insertion order.
func (a *App) Feed(ctx context.Context) error {
	return a.printListing(ctx, a.client.AllItems())
}

func (a *App) printListing(ctx context.Context, src syncx.Source) error {
	cursor := syncx.Cursor("")
	shown := 0
	for {
		page, err := src.NextPage(ctx, cursor, a.config.PageSize)
		if err != nil {
			fmt.Println(err.Error())
			return err
		}
		if len(page.Entries) == 0 {
			break
		}
		for _, e := range page.Entries {
			ts := time.UnixMilli(e.TimestampMsUTC).UTC().Format(time.RFC3339)
			fmt.Printf("%6d  %s  %s  %s\n", e.Seq, ts, e.UserID.String(), e.Signature.String())
			shown++
		}
		cursor = page.Next
	}
	fmt.Printf("%d item(s)\n", shown)
	return nil
}

// Show fetches one item by address and prints its decoded content.
func (a *App) Show(ctx context.Context) error {
	ref, err := a.promptAddress()
	if err != nil {
		return err
	}

	raw, err := a.client.FetchItem(ctx, ref.UserID, ref.Signature)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	// Never trust bytes from the network without checking the signature.
	if !ref.UserID.Verify(ref.Signature, raw) {
		fmt.Println("signature verification failed; item bytes are not authentic")
		return nil
	}

	it, err := item.Decode(raw)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	printItem(it)
	return nil
}

// WhoIs resolves a user's display name.
func (a *App) WhoIs(ctx context.Context) error {
	userText, err := GetSimpleText(a.reader, "Enter user id:", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	user, err := identity.DecodeUserID(userText)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	name, err := a.client.DisplayName(ctx, user)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	fmt.Println(name)
	return nil
}

func printItem(it item.Item) {
	ts := time.UnixMilli(it.TimestampMsUTC).UTC().Format(time.RFC3339)
	fmt.Printf("Timestamp: %s (offset %+d min)\n", ts, it.OffsetMinutes)

	switch c := it.Content.(type) {
	case item.Post:
		if c.Title != "" {
			fmt.Println("Title:", c.Title)
		}
		fmt.Println(c.Body)
	case item.Profile:
		fmt.Println("Profile:", c.DisplayName)
		if c.About != "" {
			fmt.Println(c.About)
		}
		for _, f := range c.Follows {
			fmt.Printf("Follows: %s (%s)\n", f.UserID.String(), f.DisplayName)
		}
	case item.Comment:
		fmt.Printf("Reply to %s/%s\n", c.ReplyTo.UserID.String(), c.ReplyTo.Signature.String())
		fmt.Println(c.Text)
	default:
		fmt.Println("Unknown content kind; bytes verified but not understood")
	}
}
