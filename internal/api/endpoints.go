package api

import (
	"context"
	"fmt"
	"net/http"

	"campaigner/internal/types"
)

// Service paths.
const (
	PathOnboarding   = "/api/v1/auth/onboarding"
	PathGenerate     = "/api/v1/content/generate"
	PathSaveCampaign = "/api/v1/campaign/save"
	PathMyCampaigns  = "/api/v1/campaign/my"
	PathPublish      = "/api/v1/content/publish"
)

// Operation names passed to the Recorder and used as log context.
const (
	OpOnboarding = "onboarding"
	OpGenerate   = "generate"
	OpSave       = "save"
	OpList       = "list"
	OpPublish    = "publish"
)

// OnboardingRequest is the onboarding body.
type OnboardingRequest struct {
	CompanyName string             `json:"companyName"`
	Platforms   []types.PlatformID `json:"platforms"`
	BrandVoice  types.BrandVoice   `json:"brandVoice"`
}

type onboardingResponse struct {
	Data *types.BrandProfile `json:"data"`
}

// Onboard submits a brand profile and returns the service's user record.
func (c *Client) Onboard(ctx context.Context, req OnboardingRequest) (types.BrandProfile, error) {
	var resp onboardingResponse
	if err := c.Do(ctx, OpOnboarding, http.MethodPost, PathOnboarding, req, &resp); err != nil {
		return types.BrandProfile{}, err
	}
	if resp.Data == nil {
		return types.BrandProfile{}, &types.Error{Status: http.StatusOK, Err: fmt.Errorf("response missing data")}
	}
	return *resp.Data, nil
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Job *struct {
		GeneratedContent *types.ContentBundle `json:"generatedContent"`
	} `json:"job"`
}

// Generate asks the generation service for a bundle.
func (c *Client) Generate(ctx context.Context, prompt string) (types.ContentBundle, error) {
	var resp generateResponse
	if err := c.Do(ctx, OpGenerate, http.MethodPost, PathGenerate, generateRequest{Prompt: prompt}, &resp); err != nil {
		return types.ContentBundle{}, err
	}
	if resp.Job == nil || resp.Job.GeneratedContent == nil {
		return types.ContentBundle{}, &types.Error{Status: http.StatusOK, Err: fmt.Errorf("response missing job.generatedContent")}
	}
	return *resp.Job.GeneratedContent, nil
}

// SaveContent is the content object of a save request. The image travels
// beside it, not inside it.
type SaveContent struct {
	Twitter  string             `json:"twitter"`
	LinkedIn string             `json:"linkedin"`
	Blog     string             `json:"blog"`
	Email    types.EmailContent `json:"email"`
}

// SaveCampaignRequest is the save body.
type SaveCampaignRequest struct {
	Title    string      `json:"title"`
	Prompt   string      `json:"prompt"`
	Content  SaveContent `json:"content"`
	ImageURL string      `json:"imageUrl,omitempty"`
}

// NewSaveCampaignRequest lays a bundle out in the service's save shape.
func NewSaveCampaignRequest(title, prompt string, b types.ContentBundle) SaveCampaignRequest {
	return SaveCampaignRequest{
		Title:  title,
		Prompt: prompt,
		Content: SaveContent{
			Twitter:  b.Twitter,
			LinkedIn: b.LinkedIn,
			Blog:     b.Blog,
			Email:    b.Email,
		},
		ImageURL: b.ImageURL,
	}
}

type campaignResponse struct {
	Data *types.Campaign `json:"data"`
}

type campaignListResponse struct {
	Data []types.Campaign `json:"data"`
}

// SaveCampaign persists a bundle and returns the stored campaign.
func (c *Client) SaveCampaign(ctx context.Context, req SaveCampaignRequest) (types.Campaign, error) {
	var resp campaignResponse
	if err := c.Do(ctx, OpSave, http.MethodPost, PathSaveCampaign, req, &resp); err != nil {
		return types.Campaign{}, err
	}
	if resp.Data == nil {
		return types.Campaign{}, &types.Error{Status: http.StatusOK, Err: fmt.Errorf("response missing data")}
	}
	return *resp.Data, nil
}

// ListCampaigns returns the session's campaigns in service order.
// A missing or null data field is an empty list.
func (c *Client) ListCampaigns(ctx context.Context) ([]types.Campaign, error) {
	var resp campaignListResponse
	if err := c.Do(ctx, OpList, http.MethodGet, PathMyCampaigns, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return []types.Campaign{}, nil
	}
	return resp.Data, nil
}

type publishRequest struct {
	CampaignID string `json:"campaignId"`
	Platform   string `json:"platform"`
}

// Publish posts a stored campaign to one platform. Success is any 2xx.
func (c *Client) Publish(ctx context.Context, campaignID string, platform types.PlatformID) error {
	req := publishRequest{CampaignID: campaignID, Platform: platform.Slug()}
	return c.Do(ctx, OpPublish, http.MethodPost, PathPublish, req, nil)
}
