package main

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/eringen/blogwidgets"
	"github.com/eringen/blogwidgets/plugins"
)

func newRenderCmd(configPath *string) *cobra.Command {
	var (
		query       string
		language    string
		placeholder string
	)
	cmd := &cobra.Command{
		Use:   "render <plugin-type> <instance-id>",
		Short: "Render one plugin instance to stdout",
		Example: "  blogwidgets render CMSLatestEntriesPlugin 1 --query 'month=2&year=2024'\n" +
			"  blogwidgets render SideMenu 2 --language de",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("instance id %q: %w", args[1], err)
			}
			q, err := url.ParseQuery(query)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			cfg, err := blogwidgets.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			app := blogwidgets.New(cfg)
			if err := app.Open(); err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			inst, err := app.Store.GetInstance(ctx, args[0], id)
			if err != nil {
				return fmt.Errorf("load %s %d: %w", args[0], id, err)
			}
			lang := app.Languages.Fallback()
			if language != "" {
				lang = app.Languages.Match(language)
			}
			req := plugins.Request{
				Query:           q,
				Language:        lang,
				DefaultLanguage: app.Languages.Fallback(),
				Now:             time.Now(),
			}
			cmp, err := app.RenderInstance(ctx, req, inst, placeholder)
			if err != nil {
				return err
			}
			return cmp.Render(ctx, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "request query string, e.g. 'page=2' or 'entry=my-slug'")
	cmd.Flags().StringVarP(&language, "language", "l", "", "request language (defaults to the site default)")
	cmd.Flags().StringVar(&placeholder, "placeholder", "content", "placeholder name passed to the template")
	return cmd
}
