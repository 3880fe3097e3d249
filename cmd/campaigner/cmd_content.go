package main

import (
	"fmt"
	"strings"

	"campaigner/internal/types"

	"github.com/spf13/cobra"
)

// newGenerateCmd requests a content bundle and holds it as the draft.
func newGenerateCmd(getApp func() *app) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "generate <prompt...>",
		Short: "Generate Twitter, LinkedIn, email and blog copy from a prompt",
		Long: `Send the prompt to the generation service and hold the result as the
current draft. The draft replaces any earlier one and survives until it is
saved, discarded or replaced.

Example:
  campaigner generate launch of our eco-friendly water bottle
  campaigner generate --save summer sale announcement`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			ctx, cancel := commandContext(cmd)
			defer cancel()

			var bundle types.ContentBundle
			err := a.waitOn("Generating content...", func() error {
				var err error
				bundle, err = a.studio.Generate(ctx, joinArgs(args))
				return err
			})
			if err != nil {
				return err
			}
			a.println(a.render.Bundle(bundle))

			if !save {
				a.println(a.render.Styles.Muted.Render("Run `campaigner save` to keep this draft or `campaigner discard` to drop it."))
				return nil
			}
			c, err := a.studio.Save(ctx)
			if err != nil {
				return err
			}
			a.println(a.render.Success("Saved campaign " + c.ID))
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "Save the generated draft as a campaign")
	return cmd
}

// newDiscardCmd drops the held draft.
func newDiscardCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "discard",
		Short: "Drop the held draft without saving it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			if !a.studio.Discard() {
				a.println(a.render.Styles.Muted.Render("No draft to discard."))
				return nil
			}
			a.println(a.render.Success("Draft discarded."))
			return nil
		},
	}
}

// newSaveCmd persists the held draft as a new campaign.
func newSaveCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Save the held draft as a campaign",
		Long: `Save the held draft through the persistence service. Saving is not
idempotent: saving the same draft twice creates two campaigns.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			if draft, ok := a.studio.Draft(); ok && draft.Saved() {
				a.println(a.render.Styles.Warning.Render(fmt.Sprintf(
					"This draft was already saved as %s; saving again creates another campaign.", draft.CampaignID)))
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			c, err := a.studio.Save(ctx)
			if err != nil {
				return err
			}
			a.println(a.render.Success("Saved campaign " + c.ID))
			a.println(a.render.CampaignRow(c))
			return nil
		},
	}
}

// newShowCmd prints a saved campaign, or the held draft without an id.
func newShowCmd(getApp func() *app) *cobra.Command {
	var channel string
	cmd := &cobra.Command{
		Use:   "show [campaign-id]",
		Short: "Show a saved campaign or the held draft",
		Long: `Show a saved campaign, or the held draft when no id is given.

With --channel only that channel's copyable text is printed (twitter,
linkedin, email or blog), ready to paste elsewhere.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()

			var (
				bundle   types.ContentBundle
				campaign *types.Campaign
			)
			if len(args) == 0 {
				draft, ok := a.studio.Draft()
				if !ok {
					return types.Fail(types.ErrInvalidInput, "No draft held. Generate content first.")
				}
				bundle = draft.Content
			} else {
				ctx, cancel := commandContext(cmd)
				defer cancel()
				c, err := a.studio.Show(ctx, args[0])
				if err != nil {
					return err
				}
				bundle = c.Content
				campaign = &c
			}

			if channel != "" {
				text, err := bundle.ChannelText(types.Channel(strings.ToLower(strings.TrimSpace(channel))))
				if err != nil {
					return types.Rekind(err, types.ErrInvalidInput, err.Error())
				}
				a.println(text)
				return nil
			}
			if campaign != nil {
				a.println(a.render.Campaign(*campaign))
			} else {
				a.println(a.render.Bundle(bundle))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "", "Print only one channel: twitter, linkedin, email, blog")
	return cmd
}
