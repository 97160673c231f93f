package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"quantkit/internal/storage"

	"github.com/spf13/cobra"
)

type namesOutput struct {
	Kind  string   `json:"kind"`
	Names []string `json:"names"`
}

type recordsOutput struct {
	Kind    string           `json:"kind"`
	Name    string           `json:"name"`
	Records []storage.Record `json:"records"`
}

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var (
		since  string
		until  string
		latest bool
	)

	cmd := &cobra.Command{
		Use:   "history KIND [NAME]",
		Short: "List stored results",
		Long: fmt.Sprintf(`History reads the local store. With only KIND it lists the stored names;
with NAME it prints every record kept under that name, oldest first, or only
the newest one with --latest.

Kinds: %s`, strings.Join(storage.Kinds, ", ")),
		Example: `  quantkit history probabilities
  quantkit history samples mask --since 2024-01-01T00:00:00Z
  quantkit history probabilities fitness --latest`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]
			if !slices.Contains(storage.Kinds, kind) {
				return &UsageError{Err: fmt.Errorf("unknown kind %q, choose one of %v", kind, storage.Kinds)}
			}
			if latest && len(args) == 1 {
				return &UsageError{Err: errors.New("--latest needs a NAME")}
			}

			start, err := parseTime("since", since, time.Time{})
			if err != nil {
				return err
			}
			end, err := parseTime("until", until, time.Now())
			if err != nil {
				return err
			}

			store, err := openStore(opts.settings.DataPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				names, err := store.Names(kind)
				if err != nil {
					return err
				}
				if names == nil {
					names = []string{}
				}
				return writeJSON(cmd, namesOutput{Kind: kind, Names: names})
			}

			if latest {
				rec, err := store.Latest(kind, args[1])
				if err != nil {
					return err
				}
				return writeJSON(cmd, rec)
			}

			records, err := store.Records(kind, args[1], start, end)
			if err != nil {
				return err
			}
			return writeJSON(cmd, recordsOutput{Kind: kind, Name: args[1], Records: records})
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "Only records at or after this RFC 3339 time")
	cmd.Flags().StringVar(&until, "until", "", "Only records at or before this RFC 3339 time (default now)")
	cmd.Flags().BoolVar(&latest, "latest", false, "Print only the newest record for NAME")
	cmd.MarkFlagsMutuallyExclusive("latest", "since")
	cmd.MarkFlagsMutuallyExclusive("latest", "until")
	return cmd
}

func parseTime(flag, v string, fallback time.Time) (time.Time, error) {
	if v == "" {
		return fallback, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, &UsageError{Err: fmt.Errorf("--%s: %w", flag, err)}
	}
	return t, nil
}
