package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTermsCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "terms",
		Short: "List enrollment terms and the favorite courses in each",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			client, _ := newCanvasClient(cfg, nil)

			courses, err := fetchCourses(cmd.Context(), client)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(courses) == 0 {
				fmt.Fprintln(out, "No favorite courses found; star some courses in Canvas first.")
				return nil
			}
			fmt.Fprintln(out, renderTermTable(courses))
			return nil
		},
	}
}
