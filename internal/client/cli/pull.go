package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/sigfeed/internal/client/remote"
	"github.com/dmitrijs2005/sigfeed/internal/identity"
	"github.com/dmitrijs2005/sigfeed/internal/syncx"
)

// Pull replicates items from a peer server into the home server. Entries
// stream through the prefetching pipeline in listing order; every item is
// re-verified locally before it is pushed, so a hostile peer cannot inject
// forged bytes. Leaving the peer URL empty verifies the home server's own
// feed instead of replicating.
func (a *App) Pull(ctx context.Context) error {
	peerURL, err := GetSimpleText(a.reader, "Peer server URL (empty = verify home server):", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	source := a.client
	replicate := false
	if peerURL != "" && peerURL != a.config.ServerURL {
		source = remote.NewClient(peerURL, a.config.RequestTimeout)
		replicate = true
	}

	text, err := GetSimpleText(a.reader, "Pull from ('all' or user id):", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	var src syncx.Source
	if text == "all" || text == "" {
		src = source.AllItems()
	} else {
		user, err := identity.DecodeUserID(text)
		if err != nil {
			fmt.Println(err.Error())
			return err
		}
		src = source.UserItems(user)
	}

	pipeline := syncx.NewPipeline(source, a.config.Prefetch)

	var stored, present, failed, rejected int
	for res := range pipeline.Run(ctx, src) {
		if res.Err != nil {
			failed++
			fmt.Printf("  ! %s: %s\n", res.Entry.Signature.String(), res.Err.Error())
			continue
		}
		if !res.Entry.UserID.Verify(res.Entry.Signature, res.Bytes) {
			rejected++
			fmt.Printf("  ! %s: signature verification failed\n", res.Entry.Signature.String())
			continue
		}

		if !replicate {
			present++
			fmt.Printf("  %6d  %s  %d bytes\n", res.Entry.Seq, res.Entry.Signature.String(), len(res.Bytes))
			continue
		}

		out, err := a.client.PutItem(ctx, res.Entry.UserID, res.Entry.Signature, res.Bytes)
		switch {
		case err != nil:
			failed++
			fmt.Printf("  ! %s: %s\n", res.Entry.Signature.String(), err.Error())
		case out.Accepted:
			stored++
			fmt.Printf("  + %s (seq %d)\n", res.Entry.Signature.String(), out.Seq)
		default:
			present++
		}
	}

	if replicate {
		fmt.Printf("Stored %d item(s), %d already present, %d failed, %d rejected\n",
			stored, present, failed, rejected)
	} else {
		fmt.Printf("Verified %d item(s), %d failed, %d rejected\n", present, failed, rejected)
	}
	return nil
}
