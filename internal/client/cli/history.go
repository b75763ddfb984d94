package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
)

const historyLimit = 20

// History shows the most recent saved downloads, or wipes the ledger with
// "history clear".
func (a *App) History(ctx context.Context, args []string) error {
	if a.history == nil {
		a.say("Download history is not available without local storage")
		return nil
	}
	if len(args) > 0 && args[0] == "clear" {
		if err := a.history.Clear(ctx); err != nil {
			a.log.Warn(ctx, "clearing download history failed", "error", err)
			a.failure("Failed to clear download history")
			return err
		}
		a.success("Download history cleared")
		return nil
	}

	recs, err := a.history.List(ctx, historyLimit)
	if err != nil {
		a.log.Warn(ctx, "reading download history failed", "error", err)
		a.failure("Failed to read download history")
		return err
	}
	if len(recs) == 0 {
		a.say("No downloads yet")
		return nil
	}

	a.outMu.Lock()
	defer a.outMu.Unlock()
	tw := tabwriter.NewWriter(a.out, 4, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSAVED\tSIZE\tTYPE\tLOCATION")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.ArtifactID, r.SavedAt.Local().Format(dateLayout), formatSize(r.Size), r.ContentType, r.Location)
	}
	return tw.Flush()
}
