package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/jobtrail/internal/model"
)

// SeedFile is the YAML layout read by the seed command.
type SeedFile struct {
	StatusCodes []map[string]any `yaml:"statusCodes"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Load status codes from a YAML file",
		Long: `Load status codes received from the remote system.

Status codes are reference data: they are stored under their server ids,
replacing existing codes with the same id, and are never queued.

File format:
  statusCodes:
    - id: 1
      code: APPLIED
      label: Applied
      isActive: true`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return seedStatusCodes(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

// SeedResult is the JSON payload of the seed command.
type SeedResult struct {
	Kind    model.Kind     `json:"kind"`
	Count   int            `json:"count"`
	Records []model.Record `json:"records"`
}

func seedStatusCodes(opts *RootOptions, path string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	file, err := loadSeedFile(path)
	if err != nil {
		return err
	}
	out.VerboseLog("read %d status codes from %s", len(file.StatusCodes), path)

	rows := make([]model.Fields, len(file.StatusCodes))
	for i, row := range file.StatusCodes {
		rows[i] = model.Fields(row)
	}

	ed, closeStore, err := opts.openEditor(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	recs, err := ed.Seed(cmd.Context(), model.KindStatusCode, rows)
	if err != nil {
		return out.Fail(err)
	}
	res := SeedResult{Kind: model.KindStatusCode, Count: len(recs), Records: recs}
	return out.Result(res, func(w io.Writer) {
		for _, rec := range recs {
			fmt.Fprintf(w, "Seeded %s\n", rec)
		}
		fmt.Fprintf(w, "%d status codes loaded\n", len(recs))
	})
}

func loadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to read seed file %s", path), err)
	}

	var file SeedFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid seed file %s", path), err)
	}
	return &file, nil
}
