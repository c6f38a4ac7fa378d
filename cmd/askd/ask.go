package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"askd/internal/session"
)

func newAskCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ask QUESTION...",
		Short: "Load the model and answer one question in the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return a.ask(ctx, strings.Join(args, " "), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func (a *app) ask(ctx context.Context, question string, out, errOut io.Writer) error {
	svc, err := buildService(a.cfg, a.log)
	if err != nil {
		return err
	}
	defer svc.Dispose()

	pr := newProgressPrinter(errOut)
	if err := svc.Load(ctx, pr.print); err != nil {
		pr.finish()
		if kind, ok := session.LoadErrorKindOf(err); ok && kind.Retryable() {
			return fmt.Errorf("%w (temporary, try again)", err)
		}
		return err
	}
	pr.finish()

	reply, err := svc.GenerateReply(ctx, question)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, reply.Text)
	return err
}

// progressPrinter renders load progress on one line when writing to a
// terminal and as one line per update otherwise.
type progressPrinter struct {
	w    io.Writer
	tty  bool
	last int
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd())
	}
	return &progressPrinter{w: w, tty: tty, last: -1}
}

func (p *progressPrinter) print(pr session.Progress) {
	pct := int(pr.Percent)
	if !p.tty && pct == p.last && pr.Status != session.ProgressDone {
		return
	}
	p.last = pct
	line := formatProgress(pr)
	if p.tty {
		fmt.Fprintf(p.w, "\r\033[K%s", line)
		return
	}
	fmt.Fprintln(p.w, line)
}

func (p *progressPrinter) finish() {
	if p.tty && p.last >= 0 {
		fmt.Fprintln(p.w)
	}
}

func formatProgress(pr session.Progress) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%3d%%", int(pr.Percent))
	if pr.Total > 0 {
		fmt.Fprintf(&b, " %s / %s", humanize.IBytes(uint64(pr.Loaded)), humanize.IBytes(uint64(pr.Total)))
	}
	if pr.Text != "" {
		b.WriteString("  ")
		b.WriteString(pr.Text)
	}
	return b.String()
}
