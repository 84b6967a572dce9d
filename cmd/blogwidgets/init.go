package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eringen/blogwidgets/scaffold"
	"github.com/eringen/blogwidgets/templates"
)

func newInitCmd() *cobra.Command {
	var languages string
	cmd := &cobra.Command{
		Use:   "init <dir>",
		Short: "Create a new site directory with config and editable templates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			var langs []string
			for _, l := range strings.Split(languages, ",") {
				if l = strings.TrimSpace(l); l != "" {
					langs = append(langs, l)
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Creating new site: %s\n\n", dir)
			if err := scaffold.Generate(dir, scaffold.NewData(dir, langs), templates.Defaults(), out); err != nil {
				return err
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Done! Next steps:")
			fmt.Fprintln(out)
			fmt.Fprintf(out, "  cd %s\n", dir)
			fmt.Fprintln(out, "  cp .env.example .env   # then set the admin password and secret")
			fmt.Fprintln(out, "  blogwidgets serve --config config.yaml")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Edit templates/ to customize the page layout and plugin markup.")
			return nil
		},
	}
	cmd.Flags().StringVar(&languages, "languages", "en", "comma-separated languages, default first")
	return cmd
}
