package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mediarelay/internal/link"
)

func newClassifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "classify <text>",
		Short:       "Show how a message would be recognized as a link",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := link.Classify(strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(tableSpec{
				headers: []string{"Field", "Value"},
				rows: [][]string{
					{"Content ID", l.ContentID},
					{"Shape", string(l.Shape)},
					{"URL", l.URL},
				},
			}))
			return nil
		},
	}
}
