package main

import (
	"github.com/spf13/cobra"
)

// newUsageCmd prints or resets the service call counters.
func newUsageCmd(getApp func() *app) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show service call counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			if reset {
				if err := a.tracker.Reset(); err != nil {
					return err
				}
				a.println(a.render.Success("Usage counters reset."))
				return nil
			}
			stats, ok := a.studio.Usage()
			if !ok {
				a.println(a.render.Styles.Muted.Render("Usage tracking is off."))
				return nil
			}
			a.println(a.render.Usage(stats))
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Clear all counters")
	return cmd
}
