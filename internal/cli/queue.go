package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/jobtrail/internal/model"
)

// NewQueueCommand creates the queue command.
func NewQueueCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show pending mutations in sync order",
		Long: `Show the mutation queue in the order a sync client sends it.

Each line shows the entry id, operation, kind, entity id, the time of the
last edit and, once a send was attempted, the time of the last attempt.
Acknowledge an entry with "jobtrail ack <entry-id>" after the remote system
accepted it.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showQueue(rootOpts, cmd)
		},
	}

	return cmd
}

// NewAckCommand creates the ack command.
func NewAckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ack <entry-id>",
		Short: "Acknowledge a synced queue entry",
		Long: `Remove a queue entry after the remote system accepted it.

An entry replaced by a newer edit has a new id, so acknowledging the id a
sync client sent keeps the newer content queued. Unknown ids are ignored.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ackEntry(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

// NewAttemptCommand creates the attempt command.
func NewAttemptCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "attempt <entry-id>",
		Short:         "Record a send attempt for a queue entry",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return attemptEntry(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile <kind> <provisional-id> <server-id>",
		Short: "Replace a provisional id with its server id",
		Long: `Move a record created offline to the id the remote system assigned.

The record, its pending queue entry and, for an application, the
applicationId of its interviews are rewritten in one transaction.

Example:
  jobtrail reconcile application -- -1 1001`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return reconcileRecord(rootOpts, args, cmd)
		},
	}

	return cmd
}

// QueueView is the JSON payload of the queue command.
type QueueView struct {
	Entries []model.QueueEntry `json:"entries"`
	Depth   int                `json:"depth"`
}

func showQueue(opts *RootOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	ed, closeStore, err := opts.openEditor(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	entries, err := ed.DrainQueue(cmd.Context())
	if err != nil {
		return out.Fail(err)
	}
	if entries == nil {
		entries = []model.QueueEntry{}
	}
	view := QueueView{Entries: entries, Depth: len(entries)}
	return out.Result(view, func(w io.Writer) {
		if len(entries) == 0 {
			fmt.Fprintln(w, "Queue is empty.")
			return
		}
		for _, e := range entries {
			fmt.Fprintf(w, "%s  at %s", e, e.Timestamp.UTC().Format(time.RFC3339Nano))
			if e.LastAttempt != nil {
				fmt.Fprintf(w, "  attempted %s", e.LastAttempt.UTC().Format(time.RFC3339Nano))
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%d pending\n", len(entries))
	})
}

// EntryResult is the JSON payload of the ack and attempt commands.
type EntryResult struct {
	EntryID int64 `json:"entryId"`
}

func ackEntry(opts *RootOptions, arg string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	entryID, err := parseID(arg)
	if err != nil {
		return err
	}

	ed, closeStore, err := opts.openEditor(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := ed.Acknowledge(cmd.Context(), entryID); err != nil {
		return out.Fail(err)
	}
	return out.Result(EntryResult{EntryID: entryID}, func(w io.Writer) {
		fmt.Fprintf(w, "Acknowledged #%d\n", entryID)
	})
}

func attemptEntry(opts *RootOptions, arg string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	entryID, err := parseID(arg)
	if err != nil {
		return err
	}

	ed, closeStore, err := opts.openEditor(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := ed.RecordAttempt(cmd.Context(), entryID); err != nil {
		return out.Fail(err)
	}
	return out.Result(EntryResult{EntryID: entryID}, func(w io.Writer) {
		fmt.Fprintf(w, "Recorded attempt for #%d\n", entryID)
	})
}

func reconcileRecord(opts *RootOptions, args []string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	kind, oldID, err := parseKey(args[0], args[1])
	if err != nil {
		return err
	}
	newID, err := parseID(args[2])
	if err != nil {
		return err
	}

	ed, closeStore, err := opts.openEditor(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	res, err := ed.ReconcileID(cmd.Context(), kind, oldID, newID)
	if err != nil {
		return out.Fail(err)
	}
	return out.Result(res, func(w io.Writer) {
		fmt.Fprintf(w, "Reconciled %s %d -> %d\n", kind, oldID, newID)
		for _, child := range res.Children {
			fmt.Fprintf(w, "  updated %s\n", child)
		}
		if res.QueueRekeyed {
			fmt.Fprintln(w, "  pending entry moved to server id")
		}
	})
}
