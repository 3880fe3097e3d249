// Package types provides the shared data model of the campaign content lifecycle.
// This package exists so that session, generation, campaign and publish can share
// definitions without importing each other.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// PLATFORMS AND BRAND VOICE
// =============================================================================

// PlatformID identifies an external channel a brand posts to.
type PlatformID string

const (
	PlatformTwitter   PlatformID = "Twitter"
	PlatformLinkedIn  PlatformID = "LinkedIn"
	PlatformInstagram PlatformID = "Instagram"
	PlatformYouTube   PlatformID = "YouTube"
	PlatformFacebook  PlatformID = "Facebook"
)

// AllPlatforms lists every known platform in display order.
var AllPlatforms = []PlatformID{
	PlatformTwitter,
	PlatformLinkedIn,
	PlatformInstagram,
	PlatformYouTube,
	PlatformFacebook,
}

// ParsePlatform resolves a platform name case-insensitively.
// "x" is accepted as an alias for Twitter.
func ParsePlatform(s string) (PlatformID, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "x" {
		return PlatformTwitter, nil
	}
	for _, p := range AllPlatforms {
		if strings.ToLower(string(p)) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: unknown platform %q", ErrInvalidInput, s)
}

// Slug returns the lower-case form used on the publish wire ("twitter").
func (p PlatformID) Slug() string {
	return strings.ToLower(string(p))
}

// Tone is the brand voice tone chosen at onboarding.
type Tone string

const (
	ToneProfessional Tone = "Professional"
	ToneFriendly     Tone = "Friendly"
	ToneWitty        Tone = "Witty / Humorous"
	ToneBold         Tone = "Bold / Aggressive"
	ToneLuxury       Tone = "Luxury / Elegant"
	ToneEducational  Tone = "Educational"
)

// AllTones lists the selectable tones.
var AllTones = []Tone{ToneProfessional, ToneFriendly, ToneWitty, ToneBold, ToneLuxury, ToneEducational}

// ParseTone resolves a tone by exact name or by its first word ("witty" -> Witty / Humorous).
func ParseTone(s string) (Tone, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return ToneProfessional, nil
	}
	for _, t := range AllTones {
		full := strings.ToLower(string(t))
		first := strings.TrimSpace(strings.SplitN(full, "/", 2)[0])
		if name == full || name == first {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown tone %q", ErrInvalidInput, s)
}

// BrandVoice describes how generated content should sound.
type BrandVoice struct {
	Tone        Tone   `json:"tone"`
	Description string `json:"description"`
}

// BrandProfile is the onboarded brand. Immutable once established.
type BrandProfile struct {
	CompanyName string       `json:"companyName"`
	Platforms   []PlatformID `json:"platforms"`
	BrandVoice  BrandVoice   `json:"brandVoice"`
}

// Validate checks the client-side onboarding preconditions.
func (p BrandProfile) Validate() error {
	if strings.TrimSpace(p.CompanyName) == "" {
		return Fail(ErrInvalidInput, "Please enter your company name.")
	}
	if len(p.Platforms) == 0 {
		return Fail(ErrInvalidInput, "Please select at least one platform.")
	}
	return nil
}

// HasPlatform reports whether the profile lists the platform.
func (p BrandProfile) HasPlatform(id PlatformID) bool {
	for _, existing := range p.Platforms {
		if existing == id {
			return true
		}
	}
	return false
}

// Equal compares two profiles field by field, platforms in order.
func (p BrandProfile) Equal(other BrandProfile) bool {
	if p.CompanyName != other.CompanyName || p.BrandVoice != other.BrandVoice {
		return false
	}
	if len(p.Platforms) != len(other.Platforms) {
		return false
	}
	for i := range p.Platforms {
		if p.Platforms[i] != other.Platforms[i] {
			return false
		}
	}
	return true
}

// =============================================================================
// GENERATED CONTENT
// =============================================================================

// EmailContent is the generated email for a campaign.
type EmailContent struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Channel names one slot of a ContentBundle.
type Channel string

const (
	ChannelTwitter  Channel = "twitter"
	ChannelLinkedIn Channel = "linkedin"
	ChannelEmail    Channel = "email"
	ChannelBlog     Channel = "blog"
)

// AllChannels lists the bundle channels in display order.
var AllChannels = []Channel{ChannelTwitter, ChannelLinkedIn, ChannelEmail, ChannelBlog}

// ContentBundle is the per-channel output of one generation call.
type ContentBundle struct {
	Twitter  string       `json:"twitter"`
	LinkedIn string       `json:"linkedin"`
	Email    EmailContent `json:"email"`
	Blog     string       `json:"blog"`
	ImageURL string       `json:"imageUrl,omitempty"`
}

// IsEmpty reports whether no channel carries any content.
func (b ContentBundle) IsEmpty() bool {
	return b.Twitter == "" && b.LinkedIn == "" && b.Blog == "" &&
		b.Email.Subject == "" && b.Email.Body == "" && b.ImageURL == ""
}

// ChannelText returns the copyable text of one channel.
// Email is flattened as "Subject: <subject>\n\n<body>".
func (b ContentBundle) ChannelText(ch Channel) (string, error) {
	switch ch {
	case ChannelTwitter:
		return b.Twitter, nil
	case ChannelLinkedIn:
		return b.LinkedIn, nil
	case ChannelBlog:
		return b.Blog, nil
	case ChannelEmail:
		return fmt.Sprintf("Subject: %s\n\n%s", b.Email.Subject, b.Email.Body), nil
	default:
		return "", fmt.Errorf("%w: unknown channel %q", ErrInvalidInput, ch)
	}
}

// Draft is a generated bundle held client-side until it is saved or discarded.
type Draft struct {
	ID          string        `json:"id"`
	Prompt      string        `json:"prompt"`
	Content     ContentBundle `json:"content"`
	GeneratedAt time.Time     `json:"generatedAt"`
	CampaignID  string        `json:"campaignId,omitempty"` // set once saved
}

// Saved reports whether the draft has been persisted as a campaign.
func (d Draft) Saved() bool { return d.CampaignID != "" }

// =============================================================================
// CAMPAIGNS
// =============================================================================

// TitleMaxRunes bounds a campaign title derived from its prompt.
const TitleMaxRunes = 60

// TitleFromPrompt truncates a prompt to TitleMaxRunes characters.
func TitleFromPrompt(prompt string) string {
	runes := []rune(prompt)
	if len(runes) <= TitleMaxRunes {
		return prompt
	}
	return string(runes[:TitleMaxRunes])
}

// Campaign is a persisted, named ContentBundle plus its publish status.
type Campaign struct {
	ID            string                      `json:"id"`
	Title         string                      `json:"title"`
	Prompt        string                      `json:"prompt"`
	Content       ContentBundle               `json:"content"`
	CreatedAt     time.Time                   `json:"createdAt"`
	PublishStatus map[PlatformID]PublishState `json:"publishStatus,omitempty"`
}

// campaignWire is the persistence service's document shape. The service
// uses "_id" and keeps imageUrl beside the content rather than inside it.
type campaignWire struct {
	MongoID   string        `json:"_id"`
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Prompt    string        `json:"prompt"`
	Content   ContentBundle `json:"content"`
	ImageURL  string        `json:"imageUrl"`
	CreatedAt time.Time     `json:"createdAt"`
}

// UnmarshalJSON accepts both the service document and this package's own encoding.
func (c *Campaign) UnmarshalJSON(data []byte) error {
	var w struct {
		campaignWire
		PublishStatus map[PlatformID]PublishState `json:"publishStatus"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.ID = w.ID
	if c.ID == "" {
		c.ID = w.MongoID
	}
	c.Title = w.Title
	c.Prompt = w.Prompt
	c.Content = w.Content
	if c.Content.ImageURL == "" {
		c.Content.ImageURL = w.ImageURL
	}
	c.CreatedAt = w.CreatedAt
	c.PublishStatus = w.PublishStatus
	return nil
}

// DisplayTitle falls back to "Untitled Campaign" when the title is blank.
func (c Campaign) DisplayTitle() string {
	if strings.TrimSpace(c.Title) == "" {
		return "Untitled Campaign"
	}
	return c.Title
}

// =============================================================================
// PUBLISH STATE
// =============================================================================

// PublishPhase is the lifecycle position of one (campaign, platform) publish.
type PublishPhase string

const (
	PhaseNotStarted PublishPhase = "not_started"
	PhasePublishing PublishPhase = "publishing"
	PhasePublished  PublishPhase = "published"
	PhaseFailed     PublishPhase = "failed"
)

// PublishState is NotStarted, Publishing, Published(at) or Failed(reason).
type PublishState struct {
	Phase  PublishPhase `json:"phase"`
	At     time.Time    `json:"at,omitzero"`
	Reason string       `json:"reason,omitempty"`
}

// NotStarted is the initial state of every key.
func NotStarted() PublishState { return PublishState{Phase: PhaseNotStarted} }

// Publishing marks a call in flight.
func Publishing() PublishState { return PublishState{Phase: PhasePublishing} }

// Published records a successful post.
func Published(at time.Time) PublishState { return PublishState{Phase: PhasePublished, At: at} }

// Failed records a failed post.
func Failed(reason string) PublishState { return PublishState{Phase: PhaseFailed, Reason: reason} }

// IsTerminal reports whether the invocation that produced s has settled.
func (s PublishState) IsTerminal() bool {
	return s.Phase == PhasePublished || s.Phase == PhaseFailed
}

func (s PublishState) String() string {
	switch s.Phase {
	case PhasePublished:
		return fmt.Sprintf("Published(%s)", s.At.Format(time.RFC3339))
	case PhaseFailed:
		return fmt.Sprintf("Failed(%s)", s.Reason)
	case PhasePublishing:
		return "Publishing"
	default:
		return "NotStarted"
	}
}
