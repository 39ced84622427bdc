package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/jobtrail/internal/editor"
	"github.com/roach88/jobtrail/internal/model"
)

// RecordOptions holds flags for the record editing commands.
type RecordOptions struct {
	*RootOptions
	Set         []string // key=value assignments
	Application int64    // list: interviews of one application
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <kind> --set key=value ...",
		Short: "Create a record",
		Long: `Create an application, interview or status code.

Without an id the record receives the next provisional id (-1, -2, ...)
until a sync client reconciles it. Setting id assigns a server id directly.
Every create queues an upsert.

Examples:
  jobtrail create application --set companyName=Acme --set roleTitle=Engineer
  jobtrail create interview --set applicationId=-1 --set interviewDate=2025-03-04
  jobtrail create statusCode --set id=3 --set code=OFFER --set isActive=true`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return createRecord(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "field assignment key=value (repeatable)")

	return cmd
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <kind> <id> --set key=value ...",
		Short: "Update fields of a record",
		Long: `Merge field assignments into an existing record and queue an upsert.

An empty value clears the field. The id cannot be changed.

Examples:
  jobtrail update application 1001 --set statusCode=OFFER
  jobtrail update application --set notes= -- -1`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateRecord(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "field assignment key=value (repeatable)")

	return cmd
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "remove <kind> <id>",
		Short: "Remove a record",
		Long: `Remove a record and queue its delete.

Removing a provisional record that was never synced cancels its queued
upsert instead. Removing a record that does not exist is a no-op.
Interviews of a removed application are kept.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return removeRecord(opts, args[0], args[1], cmd)
		},
	}

	return cmd
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "get <kind> <id>",
		Short:         "Show one record",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return getRecord(opts, args[0], args[1], cmd)
		},
	}

	return cmd
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "List records of a kind",
		Long: `List every record of a kind ordered by id.

Examples:
  jobtrail list applications
  jobtrail list interviews --application 1001`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRecords(opts, args[0], cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Application, "application", 0, "only interviews of this application id")

	return cmd
}

func createRecord(opts *RecordOptions, kindArg string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	kind, err := parseKind(kindArg)
	if err != nil {
		return err
	}
	fields, err := parseAssignments(kind, opts.Set)
	if err != nil {
		return out.Fail(err)
	}

	ed, closeStore, err := opts.openEditor(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	rec, err := ed.Create(cmd.Context(), kind, fields)
	if err != nil {
		return out.Fail(err)
	}
	return out.Result(rec, func(w io.Writer) {
		fmt.Fprintf(w, "Created %s\n", rec)
	})
}

func updateRecord(opts *RecordOptions, kindArg, idArg string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	kind, id, err := parseKey(kindArg, idArg)
	if err != nil {
		return err
	}
	fields, err := parseAssignments(kind, opts.Set)
	if err != nil {
		return out.Fail(err)
	}
	if len(fields) == 0 {
		return NewExitError(ExitCommandError, "update requires at least one --set")
	}

	ed, closeStore, err := opts.openEditor(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	rec, err := ed.Update(cmd.Context(), kind, id, fields)
	if err != nil {
		return out.Fail(err)
	}
	return out.Result(rec, func(w io.Writer) {
		fmt.Fprintf(w, "Updated %s\n", rec)
	})
}

// RemoveResult is the JSON payload of the remove command.
type RemoveResult struct {
	Kind    model.Kind `json:"kind"`
	ID      int64      `json:"id"`
	Removed bool       `json:"removed"`
}

func removeRecord(opts *RecordOptions, kindArg, idArg string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	kind, id, err := parseKey(kindArg, idArg)
	if err != nil {
		return err
	}

	ed, closeStore, err := opts.openEditor(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	res := RemoveResult{Kind: kind, ID: id, Removed: true}
	if err := ed.Remove(cmd.Context(), kind, id); err != nil {
		if editor.Code(err) != editor.CodeNotFound {
			return out.Fail(err)
		}
		res.Removed = false
	}
	return out.Result(res, func(w io.Writer) {
		if res.Removed {
			fmt.Fprintf(w, "Removed %s %d\n", kind, id)
		} else {
			fmt.Fprintf(w, "No %s %d to remove\n", kind, id)
		}
	})
}

func getRecord(opts *RecordOptions, kindArg, idArg string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	kind, id, err := parseKey(kindArg, idArg)
	if err != nil {
		return err
	}

	ed, closeStore, err := opts.openEditor(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	rec, err := ed.Get(cmd.Context(), kind, id)
	if err != nil {
		return out.Fail(err)
	}
	return out.Result(rec, func(w io.Writer) {
		fmt.Fprintln(w, rec)
	})
}

func listRecords(opts *RecordOptions, kindArg string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	kind, err := parseKind(kindArg)
	if err != nil {
		return err
	}
	byApplication := cmd.Flags().Changed("application")
	if byApplication && kind != model.KindInterview {
		return NewExitError(ExitCommandError, "--application only applies to interviews")
	}

	ed, closeStore, err := opts.openEditor(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	var recs []model.Record
	if byApplication {
		recs, err = ed.InterviewsFor(cmd.Context(), opts.Application)
	} else {
		recs, err = ed.List(cmd.Context(), kind)
	}
	if err != nil {
		return out.Fail(err)
	}
	if recs == nil {
		recs = []model.Record{}
	}
	return out.Result(recs, func(w io.Writer) {
		if len(recs) == 0 {
			fmt.Fprintf(w, "No %s records.\n", kind)
			return
		}
		for _, rec := range recs {
			fmt.Fprintln(w, rec)
		}
	})
}

// parseKind resolves a kind argument such as "applications" or "statusCode".
func parseKind(arg string) (model.Kind, error) {
	kind, err := model.ParseKind(arg)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "invalid kind", err)
	}
	return kind, nil
}

// parseKey resolves a kind and record id argument pair.
func parseKey(kindArg, idArg string) (model.Kind, int64, error) {
	kind, err := parseKind(kindArg)
	if err != nil {
		return "", 0, err
	}
	id, err := parseID(idArg)
	if err != nil {
		return "", 0, err
	}
	return kind, id, nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid id %q: must be an integer", arg))
	}
	return id, nil
}

// parseAssignments converts key=value flags into typed fields. An empty
// value maps to nil, which clears the field on update and omits it on create.
func parseAssignments(kind model.Kind, sets []string) (model.Fields, error) {
	fields := make(model.Fields, len(sets))
	for _, set := range sets {
		name, raw, ok := strings.Cut(set, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, &model.FieldError{Kind: kind, Field: set, Msg: "expected key=value"}
		}
		if raw == "" {
			fields[name] = nil
			continue
		}
		if name == model.FieldIDName {
			fields[name] = raw
			continue
		}
		v, err := model.ParseFieldValue(kind, name, raw)
		if err != nil {
			return nil, err
		}
		fields[name] = v
	}
	return fields, nil
}
