package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/sigfeed/internal/identity"
	"github.com/dmitrijs2005/sigfeed/internal/item"
)

// publish encodes, signs and uploads an item under the open identity.
func (a *App) publish(ctx context.Context, content item.Content) error {
	now := time.Now()
	_, offsetSeconds := now.Zone()

	it := item.Item{
		TimestampMsUTC: now.UnixMilli(),
		OffsetMinutes:  int32(offsetSeconds / 60),
		Content:        content,
	}

	raw, err := item.Encode(it)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}
	sig := a.key.Sign(raw)

	out, err := a.client.PutItem(ctx, a.key.UserID(), sig, raw)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	if out.Accepted {
		fmt.Printf("Published %s (seq %d)\n", sig.String(), out.Seq)
	} else {
		fmt.Printf("Already present %s (seq %d)\n", sig.String(), out.Seq)
	}
	return nil
}

// Post publishes a new post.
func (a *App) Post(ctx context.Context) error {
	title, err := GetSimpleText(a.reader, "Enter title (optional):", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	body, err := GetMultiline(a.reader, "Enter post text:", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	return a.publish(ctx, item.Post{Title: title, Body: body})
}

// Profile publishes a new profile; the latest one wins display resolution.
func (a *App) Profile(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "Enter display name:", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	about, err := GetMultiline(a.reader, "Enter about text:", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	return a.publish(ctx, item.Profile{DisplayName: name, About: about})
}

// Comment publishes a reply to another item.
func (a *App) Comment(ctx context.Context) error {
	ref, err := a.promptAddress()
	if err != nil {
		return err
	}

	text, err := GetMultiline(a.reader, "Enter comment text:", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	return a.publish(ctx, item.Comment{ReplyTo: ref, Text: text})
}

func (a *App) promptAddress() (item.Ref, error) {
	userText, err := GetSimpleText(a.reader, "Enter target user id:", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return item.Ref{}, err
	}
	user, err := identity.DecodeUserID(userText)
	if err != nil {
		fmt.Println(err.Error())
		return item.Ref{}, err
	}

	sigText, err := GetSimpleText(a.reader, "Enter target signature:", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return item.Ref{}, err
	}
	sig, err := identity.DecodeSignature(sigText)
	if err != nil {
		fmt.Println(err.Error())
		return item.Ref{}, err
	}

	return item.Ref{UserID: user, Signature: sig}, nil
}
