package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/creatorlab/viralbot/internal/models"
	"github.com/creatorlab/viralbot/internal/tokens"
	"github.com/sirupsen/logrus"
)

// Discovery strategy names, in the order they are attempted
const (
	StrategyPageMe       = "page_me"
	StrategyInstagramMe  = "instagram_me"
	StrategyPagesListing = "pages_listing"
	StrategyPageDetails  = "page_details"
)

const linkedAccountFields = "instagram_business_account,connected_page_backed_instagram_account"

var (
	errNoLinkedAccount = errors.New("no linked Instagram account")
	errSkipped         = errors.New("skipped")
)

// graphID accepts ids encoded either as JSON strings or numbers
type graphID string

func (g *graphID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "null" {
		s = ""
	}
	*g = graphID(s)
	return nil
}

type linkedAccount struct {
	ID graphID `json:"id"`
}

type pageNode struct {
	ID                         graphID        `json:"id"`
	Name                       string         `json:"name"`
	AccessToken                string         `json:"access_token"`
	InstagramBusinessAccount   *linkedAccount `json:"instagram_business_account"`
	ConnectedPageBackedAccount *linkedAccount `json:"connected_page_backed_instagram_account"`
}

// linkedID prefers the page-backed account over the business account
func (p pageNode) linkedID() string {
	if p.ConnectedPageBackedAccount != nil && p.ConnectedPageBackedAccount.ID != "" {
		return string(p.ConnectedPageBackedAccount.ID)
	}
	if p.InstagramBusinessAccount != nil && p.InstagramBusinessAccount.ID != "" {
		return string(p.InstagramBusinessAccount.ID)
	}
	return ""
}

type pagesResponse struct {
	Data []pageNode `json:"data"`
}

type instagramMeResponse struct {
	ID       graphID `json:"id"`
	UserID   graphID `json:"user_id"`
	Username string  `json:"username"`
}

// Discoverer resolves which Instagram account a credential can read
type Discoverer struct {
	getter       Getter
	facebookURL  string
	instagramURL string
	log          logrus.FieldLogger
}

// discoveryState carries data between strategies of a single Discover call
type discoveryState struct {
	pages        []pageNode
	listingToken string
}

type strategy struct {
	name string
	run  func(ctx context.Context, creds tokens.Credentials, st *discoveryState) (*models.AccountHandle, error)
}

// NewDiscoverer creates a new account discoverer
func NewDiscoverer(getter Getter, facebookURL, instagramURL string, log logrus.FieldLogger) *Discoverer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Discoverer{
		getter:       getter,
		facebookURL:  facebookURL,
		instagramURL: instagramURL,
		log:          log,
	}
}

// Discover tries each strategy in order and returns the first linked account.
// Individual failures are recorded; only exhaustion is an error.
func (d *Discoverer) Discover(ctx context.Context, creds tokens.Credentials) (*models.AccountHandle, error) {
	if err := creds.Require(); err != nil {
		return nil, err
	}

	st := &discoveryState{}
	var attempts []Attempt

	for _, s := range d.strategies() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		handle, err := s.run(ctx, creds, st)
		if errors.Is(err, errSkipped) {
			d.log.WithField("strategy", s.name).Debug("Discovery strategy skipped")
			continue
		}
		if err != nil {
			d.log.WithFields(logrus.Fields{
				"strategy": s.name,
				"error":    RedactToken(err.Error()),
			}).Warn("Discovery strategy failed")
			attempts = append(attempts, Attempt{Strategy: s.name, Error: RedactToken(err.Error())})
			continue
		}

		handle.Strategy = s.name
		d.log.WithFields(logrus.Fields{
			"strategy":   s.name,
			"account_id": handle.ExternalAccountID,
			"page_name":  handle.PageName,
		}).Info("Discovered Instagram account")
		return handle, nil
	}

	return nil, &DiscoveryError{Attempts: attempts}
}

func (d *Discoverer) strategies() []strategy {
	return []strategy{
		{name: StrategyPageMe, run: d.pageMe},
		{name: StrategyInstagramMe, run: d.instagramMe},
		{name: StrategyPagesListing, run: d.pagesListing},
		{name: StrategyPageDetails, run: d.pageDetails},
	}
}

func (d *Discoverer) pageMe(ctx context.Context, creds tokens.Credentials, _ *discoveryState) (*models.AccountHandle, error) {
	if creds.PageToken == "" {
		return nil, errSkipped
	}

	params := url.Values{"fields": {"id,name," + linkedAccountFields}}
	body, err := d.getter.Get(ctx, d.facebookURL, "/me", params, creds.PageToken)
	if err != nil {
		return nil, err
	}

	var page pageNode
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to decode page: %w", err)
	}

	id := page.linkedID()
	if id == "" {
		return nil, errNoLinkedAccount
	}
	return &models.AccountHandle{
		ExternalAccountID: id,
		EffectiveToken:    creds.PageToken,
		BaseURL:           d.facebookURL,
		PageName:          page.Name,
	}, nil
}

func (d *Discoverer) instagramMe(ctx context.Context, creds tokens.Credentials, _ *discoveryState) (*models.AccountHandle, error) {
	candidates := nonEmpty(creds.UserToken, creds.PageToken)
	if len(candidates) == 0 {
		return nil, errSkipped
	}

	var lastErr error
	for _, token := range candidates {
		body, err := d.getter.Get(ctx, d.instagramURL, "/me", url.Values{"fields": {"user_id,username"}}, token)
		if err != nil {
			lastErr = err
			continue
		}

		var me instagramMeResponse
		if err := json.Unmarshal(body, &me); err != nil {
			lastErr = fmt.Errorf("failed to decode instagram user: %w", err)
			continue
		}

		id := string(me.UserID)
		if id == "" {
			id = string(me.ID)
		}
		if id == "" {
			lastErr = errNoLinkedAccount
			continue
		}
		return &models.AccountHandle{
			ExternalAccountID: id,
			EffectiveToken:    token,
			BaseURL:           d.instagramURL,
			PageName:          me.Username,
		}, nil
	}
	return nil, lastErr
}

func (d *Discoverer) pagesListing(ctx context.Context, creds tokens.Credentials, st *discoveryState) (*models.AccountHandle, error) {
	candidates := nonEmpty(creds.UserToken, creds.PageToken)
	if len(candidates) == 0 {
		return nil, errSkipped
	}

	params := url.Values{
		"fields": {"id,name,access_token," + linkedAccountFields},
		"limit":  {"100"},
	}

	var lastErr error
	for _, token := range candidates {
		body, err := d.getter.Get(ctx, d.facebookURL, "/me/accounts", params, token)
		if err != nil {
			lastErr = err
			continue
		}

		var listing pagesResponse
		if err := json.Unmarshal(body, &listing); err != nil {
			lastErr = fmt.Errorf("failed to decode pages: %w", err)
			continue
		}

		st.pages = listing.Data
		st.listingToken = token

		for _, page := range listing.Data {
			if id := page.linkedID(); id != "" {
				return &models.AccountHandle{
					ExternalAccountID: id,
					EffectiveToken:    firstNonEmpty(page.AccessToken, token),
					BaseURL:           d.facebookURL,
					PageName:          page.Name,
				}, nil
			}
		}
		return nil, fmt.Errorf("%w on %d pages", errNoLinkedAccount, len(listing.Data))
	}
	return nil, lastErr
}

func (d *Discoverer) pageDetails(ctx context.Context, _ tokens.Credentials, st *discoveryState) (*models.AccountHandle, error) {
	if len(st.pages) == 0 {
		return nil, errSkipped
	}

	params := url.Values{"fields": {linkedAccountFields}}
	var lastErr error = errNoLinkedAccount
	for _, page := range st.pages {
		if page.ID == "" {
			continue
		}
		token := firstNonEmpty(page.AccessToken, st.listingToken)

		body, err := d.getter.Get(ctx, d.facebookURL, "/"+string(page.ID), params, token)
		if err != nil {
			lastErr = err
			continue
		}

		var detail pageNode
		if err := json.Unmarshal(body, &detail); err != nil {
			lastErr = fmt.Errorf("failed to decode page %s: %w", page.ID, err)
			continue
		}

		if id := detail.linkedID(); id != "" {
			return &models.AccountHandle{
				ExternalAccountID: id,
				EffectiveToken:    token,
				BaseURL:           d.facebookURL,
				PageName:          page.Name,
			}, nil
		}
	}
	return nil, lastErr
}

func nonEmpty(values ...string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range values {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
