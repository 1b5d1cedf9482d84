// Package content holds the copy and seed data rendered by the site.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/irfndi/claw-quants/internal/simulator"
)

//go:embed content.yaml
var embedded []byte

type Link struct {
	Label      string `yaml:"label"`
	Href       string `yaml:"href"`
	MobileOnly bool   `yaml:"mobile_only"`
}

type Stat struct {
	Label string `yaml:"label"`
	Value string `yaml:"value"`
	Note  string `yaml:"note"`
}

type Brand struct {
	Name        string `yaml:"name"`
	Tagline     string `yaml:"tagline"`
	Logo        string `yaml:"logo"`
	Description string `yaml:"description"`
	Social      []Link `yaml:"social"`
}

type Navbar struct {
	Links []Link `yaml:"links"`
	CTA   string `yaml:"cta"`
}

type Hero struct {
	Badge          string `yaml:"badge"`
	TitleLead      string `yaml:"title_lead"`
	TitleHighlight string `yaml:"title_highlight"`
	Subtitle       string `yaml:"subtitle"`
	PrimaryCTA     Link   `yaml:"primary_cta"`
	SecondaryCTA   Link   `yaml:"secondary_cta"`
	Stats          []Stat `yaml:"stats"`
}

type LeaderboardCopy struct {
	Badge          string `yaml:"badge"`
	TitleLead      string `yaml:"title_lead"`
	TitleHighlight string `yaml:"title_highlight"`
	Subtitle       string `yaml:"subtitle"`
	Stats          []Stat `yaml:"stats"`
	ActiveAgents   struct {
		Label  string `yaml:"label"`
		Offset int    `yaml:"offset"`
		Note   string `yaml:"note"`
	} `yaml:"active_agents"`
	CTA struct {
		Title  string `yaml:"title"`
		Body   string `yaml:"body"`
		Button string `yaml:"button"`
	} `yaml:"cta"`
}

type Feature struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

type Features struct {
	TitleLead      string    `yaml:"title_lead"`
	TitleHighlight string    `yaml:"title_highlight"`
	Subtitle       string    `yaml:"subtitle"`
	Items          []Feature `yaml:"items"`
}

type Industries struct {
	TitleLead      string   `yaml:"title_lead"`
	TitleHighlight string   `yaml:"title_highlight"`
	Items          []string `yaml:"items"`
}

type FAQEntry struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

type FAQ struct {
	Badge          string     `yaml:"badge"`
	TitleLead      string     `yaml:"title_lead"`
	TitleHighlight string     `yaml:"title_highlight"`
	Subtitle       string     `yaml:"subtitle"`
	Items          []FAQEntry `yaml:"items"`
}

type DocItem struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

type CodeSample struct {
	Request  string `yaml:"request"`
	Response string `yaml:"response"`
}

type DocSection struct {
	ID         string      `yaml:"id"`
	Title      string      `yaml:"title"`
	Subtitle   string      `yaml:"subtitle"`
	Paragraphs []string    `yaml:"paragraphs"`
	Items      []DocItem   `yaml:"items"`
	Code       *CodeSample `yaml:"code"`
}

type Docs struct {
	Status      string       `yaml:"status"`
	LastUpdated string       `yaml:"last_updated"`
	EditURL     string       `yaml:"edit_url"`
	Sections    []DocSection `yaml:"sections"`
}

// Section returns the docs section with id, falling back to the first one.
func (d Docs) Section(id string) DocSection {
	for _, s := range d.Sections {
		if s.ID == id {
			return s
		}
	}
	if len(d.Sections) == 0 {
		return DocSection{}
	}
	return d.Sections[0]
}

type FooterColumn struct {
	Title string `yaml:"title"`
	Links []Link `yaml:"links"`
}

type Footer struct {
	Columns   []FooterColumn `yaml:"columns"`
	Copyright string         `yaml:"copyright"`
	Legal     []Link         `yaml:"legal"`
}

type ErrorCopy struct {
	Code      string `yaml:"code"`
	Title     string `yaml:"title"`
	Message   string `yaml:"message"`
	Note      string `yaml:"note"`
	Primary   string `yaml:"primary"`
	Secondary string `yaml:"secondary"`
}

type Errors struct {
	NotFound    ErrorCopy `yaml:"not_found"`
	ServerError ErrorCopy `yaml:"server_error"`
	Critical    ErrorCopy `yaml:"critical"`
}

// TraderSeed describes one of the traders the leaderboard starts with.
type TraderSeed struct {
	Name             string   `yaml:"name"`
	Avatar           string   `yaml:"avatar"`
	Creator          string   `yaml:"creator"`
	WinRate          float64  `yaml:"win_rate"`
	MarketCap        float64  `yaml:"market_cap"`
	ExpectedReturn   float64  `yaml:"expected_return"`
	StartedAt        string   `yaml:"started_at"`
	Trend            string   `yaml:"trend"`
	TotalTrades      int      `yaml:"total_trades"`
	SuccessfulTrades int      `yaml:"successful_trades"`
	InitialPrice     float64  `yaml:"initial_price"`
	Personality      string   `yaml:"personality"`
	Tags             []string `yaml:"tags"`
}

// Site is the full set of copy for every page.
type Site struct {
	Brand       Brand           `yaml:"brand"`
	Navbar      Navbar          `yaml:"navbar"`
	Hero        Hero            `yaml:"hero"`
	Leaderboard LeaderboardCopy `yaml:"leaderboard"`
	Features    Features        `yaml:"features"`
	Industries  Industries      `yaml:"industries"`
	FAQ         FAQ             `yaml:"faq"`
	Docs        Docs            `yaml:"docs"`
	Footer      Footer          `yaml:"footer"`
	Errors      Errors          `yaml:"errors"`
	BotNames    []string        `yaml:"bot_names"`
	Creators    []string        `yaml:"creators"`
	TopTraders  []TraderSeed    `yaml:"top_traders"`
}

// Load decodes the embedded site content.
func Load() (*Site, error) {
	return Parse(embedded)
}

// Parse decodes and validates site content from YAML.
func Parse(data []byte) (*Site, error) {
	var site Site
	if err := yaml.Unmarshal(data, &site); err != nil {
		return nil, fmt.Errorf("failed to decode site content: %w", err)
	}
	if err := site.Validate(); err != nil {
		return nil, err
	}
	return &site, nil
}

// Validate checks that every section the pages depend on is present.
func (s *Site) Validate() error {
	var errs []error
	if strings.TrimSpace(s.Brand.Name) == "" {
		errs = append(errs, errors.New("brand.name is required"))
	}
	if strings.TrimSpace(s.Hero.TitleLead) == "" && strings.TrimSpace(s.Hero.TitleHighlight) == "" {
		errs = append(errs, errors.New("hero title is required"))
	}
	if len(s.FAQ.Items) == 0 {
		errs = append(errs, errors.New("faq.items must not be empty"))
	}
	if len(s.Docs.Sections) == 0 {
		errs = append(errs, errors.New("docs.sections must not be empty"))
	}
	seen := make(map[string]bool, len(s.Docs.Sections))
	for i, section := range s.Docs.Sections {
		if section.ID == "" {
			errs = append(errs, fmt.Errorf("docs.sections[%d].id is required", i))
			continue
		}
		if seen[section.ID] {
			errs = append(errs, fmt.Errorf("duplicate docs section %q", section.ID))
		}
		seen[section.ID] = true
	}
	if len(s.BotNames) == 0 {
		errs = append(errs, errors.New("bot_names must not be empty"))
	}
	if len(s.Creators) == 0 {
		errs = append(errs, errors.New("creators must not be empty"))
	}
	for i, seed := range s.TopTraders {
		if seed.Name == "" {
			errs = append(errs, fmt.Errorf("top_traders[%d].name is required", i))
		}
		if seed.InitialPrice <= 0 {
			errs = append(errs, fmt.Errorf("top_traders[%d].initial_price must be positive", i))
		}
		if _, err := simulator.ParsePersonality(seed.Personality); err != nil {
			errs = append(errs, fmt.Errorf("top_traders[%d]: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid site content: %w", errors.Join(errs...))
	}
	return nil
}
