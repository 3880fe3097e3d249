package main

import (
	"campaigner/internal/types"

	"github.com/spf13/cobra"
)

// newOnboardCmd registers the brand profile and starts a session.
func newOnboardCmd(getApp func() *app) *cobra.Command {
	var (
		company     string
		platforms   []string
		tone        string
		description string
	)
	cmd := &cobra.Command{
		Use:   "onboard",
		Short: "Register your brand profile and start a session",
		Long: `Submit the brand profile to the onboarding service.

The profile needs a company name and at least one platform. The tone
defaults to Professional; accepted tones are Professional, Friendly,
Witty, Bold, Luxury and Educational.

Example:
  campaigner onboard --company Acme --platform twitter --platform linkedin --tone witty`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			profile := types.BrandProfile{CompanyName: company}
			for _, name := range platforms {
				p, err := types.ParsePlatform(name)
				if err != nil {
					return types.Rekind(err, types.ErrInvalidInput, err.Error())
				}
				profile.Platforms = append(profile.Platforms, p)
			}
			t, err := types.ParseTone(tone)
			if err != nil {
				return types.Rekind(err, types.ErrInvalidInput, err.Error())
			}
			profile.BrandVoice = types.BrandVoice{Tone: t, Description: description}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			established, err := a.studio.Onboard(ctx, profile)
			if err != nil {
				return err
			}
			a.println(a.render.Success("Welcome, " + established.CompanyName + "!"))
			a.println(a.render.Profile(established))
			return nil
		},
	}
	cmd.Flags().StringVar(&company, "company", "", "Company name")
	cmd.Flags().StringSliceVar(&platforms, "platform", nil, "Target platform (repeatable): twitter, linkedin, instagram, youtube, facebook")
	cmd.Flags().StringVar(&tone, "tone", "", "Brand tone (default Professional)")
	cmd.Flags().StringVar(&description, "description", "", "Free-text brand voice description")
	return cmd
}

// newWhoamiCmd prints the session profile.
func newWhoamiCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the brand profile of the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			profile, err := a.studio.Session.Current()
			if err != nil {
				return err
			}
			a.println(a.render.Profile(profile))
			return nil
		},
	}
}

// newLogoutCmd clears the session, its cookie and the held draft.
func newLogoutCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the held draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			if err := a.studio.Logout(); err != nil {
				return err
			}
			a.println(a.render.Success("Logged out."))
			return nil
		},
	}
}
