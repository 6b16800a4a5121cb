package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/BaSui01/agentinbox/compose"
	"github.com/BaSui01/agentinbox/inbox"
	"github.com/BaSui01/agentinbox/interrupt"
)

// =============================================================================
// 🖨️ 输出
// =============================================================================

func renderList(w io.Writer, items []inbox.ThreadData, hasMore bool, page inbox.Pagination) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No threads.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "THREAD\tKIND\tUPDATED\tSUMMARY")
	for _, td := range items {
		th := td.Thread()
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			th.ThreadID,
			inbox.Kind(td),
			formatTime(th.UpdatedAt),
			summary(td),
		)
	}
	_ = tw.Flush()
	if hasMore {
		fmt.Fprintf(w, "More threads available: --offset %d --limit %d\n", page.Next().Offset, page.Limit)
	}
}

func renderGeneric(w io.Writer, td inbox.ThreadData) {
	th := td.Thread()
	fmt.Fprintf(w, "Thread:  %s\n", th.ThreadID)
	fmt.Fprintf(w, "Status:  %s\n", inbox.Kind(td))
	fmt.Fprintf(w, "Updated: %s\n", formatTime(th.UpdatedAt))
}

func renderDetail(w io.Writer, in *inbox.Interrupted, draft *compose.Draft) {
	renderGeneric(w, in)
	if in.InvalidSchema {
		fmt.Fprintln(w, "Interrupt payload could not be parsed; ignore or resolve this thread.")
	}

	for i, hi := range in.Interrupts {
		fmt.Fprintf(w, "\nInterrupt %d: %s\n", i+1, hi.ActionRequest.Action)
		if hi.Description != "" {
			fmt.Fprintf(w, "  %s\n", hi.Description)
		}
		keys := make([]string, 0, len(hi.ActionRequest.Args))
		for k := range hi.ActionRequest.Args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s = %s\n", k, compose.Stringify(hi.ActionRequest.Args[k]))
		}
		fmt.Fprintf(w, "  allows: %s\n", allowed(hi.Config))
	}

	if draft == nil {
		return
	}
	fmt.Fprintf(w, "\nDraft (submit type: %s)\n", draft.SubmitType())
	for _, r := range draft.Responses() {
		args, _ := json.Marshal(r.Args)
		fmt.Fprintf(w, "  %-8s %s\n", r.Type, args)
	}
}

func renderSummary(w io.Writer, at time.Time, filter inbox.Filter, items []inbox.ThreadData) {
	counts := make(map[string]int)
	for _, td := range items {
		counts[inbox.Kind(td)]++
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	fmt.Fprintf(w, "[%s] %s: %d threads", at.Format(time.TimeOnly), filter, len(items))
	for _, k := range kinds {
		fmt.Fprintf(w, " %s=%d", k, counts[k])
	}
	fmt.Fprintln(w)
}

func summary(td inbox.ThreadData) string {
	in, ok := td.(*inbox.Interrupted)
	if !ok {
		return ""
	}
	if len(in.Interrupts) == 0 {
		return "-"
	}
	first := in.Interrupts[0]
	s := first.ActionRequest.Action
	if first.Description != "" {
		s += ": " + first.Description
	}
	if n := len(in.Interrupts); n > 1 {
		s += fmt.Sprintf(" (+%d)", n-1)
	}
	return s
}

func allowed(cfg interrupt.Config) string {
	var out []string
	if cfg.AllowAccept {
		out = append(out, "accept")
	}
	if cfg.AllowEdit {
		out = append(out, "edit")
	}
	if cfg.AllowRespond {
		out = append(out, "respond")
	}
	if cfg.AllowIgnore {
		out = append(out, "ignore")
	}
	if len(out) == 0 {
		return "none"
	}
	return strings.Join(out, ", ")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
