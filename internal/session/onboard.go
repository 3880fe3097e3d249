package session

import (
	"context"
	"strings"

	"campaigner/internal/api"
	"campaigner/internal/logging"
	"campaigner/internal/types"
)

// OnboardingService is the part of api.Client used for onboarding.
type OnboardingService interface {
	Onboard(ctx context.Context, req api.OnboardingRequest) (types.BrandProfile, error)
}

// Onboard validates the submitted profile, sends it to the onboarding
// service and, on success, establishes the session with the profile the
// service returned.
//
// Validation failures are types.ErrInvalidInput and issue no call. Service
// and transport failures are types.ErrOnboardingFailed and leave the
// current session untouched.
func Onboard(ctx context.Context, svc OnboardingService, sc *Context, profile types.BrandProfile) (types.BrandProfile, error) {
	profile.CompanyName = strings.TrimSpace(profile.CompanyName)
	profile.BrandVoice.Description = strings.TrimSpace(profile.BrandVoice.Description)
	if profile.BrandVoice.Tone == "" {
		profile.BrandVoice.Tone = types.ToneProfessional
	}
	profile.Platforms = uniquePlatforms(profile.Platforms)
	if err := profile.Validate(); err != nil {
		return types.BrandProfile{}, err
	}

	timer := logging.StartTimer(logging.CategorySession, "Onboard")
	defer timer.Stop()

	returned, err := svc.Onboard(ctx, api.OnboardingRequest{
		CompanyName: profile.CompanyName,
		Platforms:   profile.Platforms,
		BrandVoice:  profile.BrandVoice,
	})
	if err != nil {
		wrapped := types.Rekind(err, types.ErrOnboardingFailed, types.FallbackOnboarding)
		logging.Get(logging.CategorySession).With("kind", types.KindName(wrapped), "status", wrapped.Status).
			Error("Onboarding failed: %v", wrapped)
		return types.BrandProfile{}, wrapped
	}

	// The service echoes the stored user; anything it leaves out falls back
	// to what was submitted.
	if returned.CompanyName == "" {
		returned.CompanyName = profile.CompanyName
	}
	if len(returned.Platforms) == 0 {
		returned.Platforms = profile.Platforms
	}
	if returned.BrandVoice.Tone == "" {
		returned.BrandVoice = profile.BrandVoice
	}

	if err := sc.Establish(returned); err != nil {
		return types.BrandProfile{}, types.Rekind(err, types.ErrOnboardingFailed, types.FallbackOnboarding)
	}
	return returned, nil
}

// uniquePlatforms drops repeated platforms, keeping first-seen order.
func uniquePlatforms(platforms []types.PlatformID) []types.PlatformID {
	seen := make(map[types.PlatformID]bool, len(platforms))
	out := platforms[:0:0]
	for _, p := range platforms {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
