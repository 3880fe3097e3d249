package main

import (
	"fmt"

	"campaigner/internal/publish"
	"campaigner/internal/types"

	"github.com/spf13/cobra"
)

// newListCmd lists the session's saved campaigns.
func newListCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved campaigns with their publish status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			ctx, cancel := commandContext(cmd)
			defer cancel()

			campaigns, err := a.studio.List(ctx)
			if err != nil {
				return err
			}
			if len(campaigns) == 0 {
				a.println(a.render.Styles.Muted.Render("No campaigns yet. Generate content and save it first."))
				return nil
			}
			for _, c := range campaigns {
				a.println(a.render.CampaignRow(c))
			}
			return nil
		},
	}
}

// newPublishCmd posts a saved campaign to one or more platforms.
func newPublishCmd(getApp func() *app) *cobra.Command {
	var platforms []string
	cmd := &cobra.Command{
		Use:   "publish <campaign-id>",
		Short: "Publish a saved campaign",
		Long: `Publish a saved campaign to one or more platforms. Without --platform the
configured default platform is used. A publish that has reached the service
is not aborted by Ctrl-C.

Example:
  campaigner publish cmp-42
  campaigner publish cmp-42 --platform twitter --platform linkedin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			names := platforms
			if len(names) == 0 {
				names = []string{a.cfg.Publish.DefaultPlatform}
			}
			var targets []types.PlatformID
			for _, name := range names {
				p, err := types.ParsePlatform(name)
				if err != nil {
					return types.Rekind(err, types.ErrInvalidInput, err.Error())
				}
				targets = append(targets, p)
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			var states map[types.PlatformID]types.PublishState
			err := a.waitOn("Publishing...", func() error {
				var err error
				states, err = a.studio.Publish(ctx, args[0], targets...)
				return err
			})
			for _, p := range targets {
				state, ok := states[p]
				if !ok {
					continue
				}
				switch state.Phase {
				case types.PhasePublished:
					a.println(a.render.Success(publish.Confirmation(p)))
				case types.PhaseFailed:
					if len(targets) > 1 {
						a.println(a.render.Styles.Warning.Render(fmt.Sprintf("%s: %s", p, state.Reason)))
					}
				}
			}
			if err != nil && len(targets) > 1 {
				return types.Fail(types.ErrPublishFailed, "Some platforms failed to publish.")
			}
			return err
		},
	}
	cmd.Flags().StringSliceVar(&platforms, "platform", nil, "Platform to publish to (repeatable)")
	return cmd
}

// newStatusCmd prints the journaled publish history of a campaign.
func newStatusCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <campaign-id>",
		Short: "Show the publish history of a campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			records, err := a.studio.History(args[0])
			if err != nil {
				return err
			}
			if len(records) == 0 {
				a.println(a.render.Styles.Muted.Render("No publish attempts recorded for " + args[0] + "."))
				return nil
			}
			for _, rec := range records {
				a.printf("%s  %-10s %s\n",
					rec.RecordedAt.Local().Format("2006-01-02 15:04:05"),
					rec.Platform,
					a.render.StatusBadge(rec.State))
			}
			return nil
		},
	}
}
