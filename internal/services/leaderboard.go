package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/claw-quants/internal/content"
	"github.com/irfndi/claw-quants/internal/models"
	"github.com/irfndi/claw-quants/internal/simulator"
	"github.com/irfndi/claw-quants/internal/telemetry"
)

const (
	maxCardTags   = 3
	deployWindow  = 5 * time.Hour
	winRateJitter = 0.1
)

var (
	traderColors   = []string{"blue", "purple", "indigo", "cyan"}
	deploymentTags = []string{"New Deployment", "AI", "Scalping"}
)

// LeaderboardConfig controls the roster and its deployment schedule.
type LeaderboardConfig struct {
	Schedule          string
	DeployProbability float64
	MaxTraders        int
	SeedTraders       bool
	Window            int
}

// Leaderboard holds the ranked roster of AI traders. New traders are deployed
// on a cron schedule, newest first, until the roster is full.
type Leaderboard struct {
	config   LeaderboardConfig
	botNames []string
	creators []string
	store    simulator.SnapshotStore
	rnd      Random
	clock    func() time.Time
	logger   *logrus.Logger
	tracer   *telemetry.BusinessTracer

	mu      sync.RWMutex
	traders []models.AITrader
	logs    map[string]*ActivityLog

	cron *cron.Cron
}

// NewLeaderboard builds the roster, seeding it from site content when configured.
func NewLeaderboard(cfg LeaderboardConfig, site *content.Site, store simulator.SnapshotStore, rnd Random, logger *logrus.Logger) *Leaderboard {
	if cfg.MaxTraders <= 0 {
		cfg.MaxTraders = 12
	}
	if cfg.Window < 2 {
		cfg.Window = simulator.DefaultWindow
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 5s"
	}
	if rnd == nil {
		rnd = NewLockedRand(0)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	l := &Leaderboard{
		config:   cfg,
		botNames: site.BotNames,
		creators: site.Creators,
		store:    store,
		rnd:      rnd,
		clock:    time.Now,
		logger:   logger,
		tracer:   telemetry.NewBusinessTracer(),
		logs:     make(map[string]*ActivityLog),
	}

	if cfg.SeedTraders {
		now := l.clock()
		for i, seed := range site.TopTraders {
			if len(l.traders) == cfg.MaxTraders {
				break
			}
			l.traders = append(l.traders, traderFromSeed(i+1, seed, rnd, now))
		}
	}
	return l
}

func traderFromSeed(id int, seed content.TraderSeed, rnd Random, now time.Time) models.AITrader {
	personality, err := simulator.ParsePersonality(seed.Personality)
	if err != nil {
		personality = simulator.Stable
	}
	return models.AITrader{
		ID:               strconv.Itoa(id),
		Name:             seed.Name,
		Avatar:           seed.Avatar,
		Creator:          seed.Creator,
		WinRate:          seed.WinRate,
		MarketCap:        decimal.NewFromFloat(seed.MarketCap),
		ExpectedReturn:   seed.ExpectedReturn,
		StartedAt:        seed.StartedAt,
		DeployedAt:       now.Add(-time.Duration(rnd.Float64() * float64(deployWindow))),
		Trend:            seed.Trend,
		TotalTrades:      seed.TotalTrades,
		SuccessfulTrades: seed.SuccessfulTrades,
		Tags:             seed.Tags,
		InitialPrice:     seed.InitialPrice,
		Volatility:       float64(1 + id%5),
		Personality:      personality,
		Color:            traderColors[rnd.Intn(len(traderColors))],
	}
}

// GenerateTrader creates a freshly deployed trader with randomized stats.
func GenerateTrader(rnd Random, botNames, creators []string, now time.Time) models.AITrader {
	name := fmt.Sprintf("%s %d", botNames[rnd.Intn(len(botNames))], rnd.Intn(100))
	avatar := avatarFor(name)

	trend := models.TrendDown
	if rnd.Float64() > 0.5 {
		trend = models.TrendUp
	}

	return models.AITrader{
		ID:               uuid.NewString(),
		Name:             name,
		Avatar:           avatar,
		Creator:          creators[rnd.Intn(len(creators))],
		WinRate:          60 + rnd.Float64()*30,
		MarketCap:        decimal.NewFromFloat(1_000_000 + rnd.Float64()*9_000_000).Round(2),
		ExpectedReturn:   10 + rnd.Float64()*40,
		StartedAt:        "Just now",
		DeployedAt:       now,
		Trend:            trend,
		TotalTrades:      rnd.Intn(100),
		SuccessfulTrades: rnd.Intn(80),
		Tags:             append([]string(nil), deploymentTags...),
		InitialPrice:     100 + rnd.Float64()*500,
		Volatility:       1 + rnd.Float64()*4,
		Personality:      simulator.Personalities[rnd.Intn(len(simulator.Personalities))],
		Color:            traderColors[rnd.Intn(len(traderColors))],
	}
}

// avatarFor returns the first two non-space runes of name, upper-cased.
func avatarFor(name string) string {
	avatar := make([]rune, 0, 2)
	for _, r := range name {
		if unicode.IsSpace(r) {
			continue
		}
		avatar = append(avatar, unicode.ToUpper(r))
		if len(avatar) == 2 {
			break
		}
	}
	return string(avatar)
}

// Start registers the deployment job and starts the scheduler.
// Calls while the scheduler is running do nothing.
func (l *Leaderboard) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.cron != nil {
		l.mu.Unlock()
		return nil
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(l.config.Schedule, func() { l.MaybeDeploy(ctx) }); err != nil {
		l.mu.Unlock()
		return fmt.Errorf("register deployment job: %w", err)
	}
	l.cron = c
	l.mu.Unlock()

	c.Start()
	l.logger.WithFields(logrus.Fields{
		"schedule":    l.config.Schedule,
		"probability": l.config.DeployProbability,
		"max_traders": l.config.MaxTraders,
	}).Info("Leaderboard deployment scheduler started")
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (l *Leaderboard) Stop() {
	l.mu.Lock()
	c := l.cron
	l.cron = nil
	l.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	l.logger.Info("Leaderboard deployment scheduler stopped")
}

// MaybeDeploy adds a new trader at the top of the roster with the configured
// probability while the roster has room.
func (l *Leaderboard) MaybeDeploy(ctx context.Context) (models.AITrader, bool) {
	l.mu.Lock()
	if len(l.traders) >= l.config.MaxTraders || l.rnd.Float64() >= l.config.DeployProbability {
		l.mu.Unlock()
		return models.AITrader{}, false
	}

	trader := GenerateTrader(l.rnd, l.botNames, l.creators, l.clock())
	l.traders = append([]models.AITrader{trader}, l.traders...)
	for _, evicted := range l.traders[min(len(l.traders), l.config.MaxTraders):] {
		delete(l.logs, evicted.ID)
	}
	l.traders = l.traders[:min(len(l.traders), l.config.MaxTraders)]
	size := len(l.traders)
	l.mu.Unlock()

	l.tracer.TraceTraderDeployment(ctx, trader.ID, trader.Name, size)
	l.logger.WithFields(logrus.Fields{
		"trader_id":   trader.ID,
		"trader_name": trader.Name,
		"roster_size": size,
	}).Info("Deployed new AI trader")
	return trader, true
}

// Size returns the number of traders on the roster.
func (l *Leaderboard) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.traders)
}

// Traders returns the roster, highest rank first.
func (l *Leaderboard) Traders() []models.AITrader {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.AITrader(nil), l.traders...)
}

// Trader looks up a trader by id.
func (l *Leaderboard) Trader(id string) (models.AITrader, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, t := range l.traders {
		if t.ID == id {
			return t, true
		}
	}
	return models.AITrader{}, false
}

// Window returns the number of samples in each trader's chart.
func (l *Leaderboard) Window() int {
	return l.config.Window
}

// Cards renders the roster as ranked cards. Each chart is resumed from the
// snapshot store when possible and never written back.
func (l *Leaderboard) Cards(ctx context.Context) []models.TraderCard {
	traders := l.Traders()
	cards := make([]models.TraderCard, 0, len(traders))
	for i, t := range traders {
		cards = append(cards, l.Card(ctx, t, i+1))
	}
	return cards
}

// Card renders a single trader at rank.
func (l *Leaderboard) Card(ctx context.Context, t models.AITrader, rank int) models.TraderCard {
	now := l.clock()
	state, _ := simulator.Initialize(ctx, l.store, t.SeriesID(), t.SeriesParams(l.config.Window), l.rnd, now)

	direction := state.Direction()
	pnl := state.PnLPercent()
	winRate := math.Min(99, t.WinRate+(l.rnd.Float64()-0.5)*winRateJitter)

	tags := t.Tags
	if len(tags) > maxCardTags {
		tags = tags[:maxCardTags]
	}

	return models.TraderCard{
		Rank:           rank,
		RankClass:      RankClass(rank),
		ID:             t.ID,
		Name:           t.Name,
		Avatar:         t.Avatar,
		Creator:        t.Creator,
		Color:          t.Color,
		StartedAt:      t.StartedAt,
		DeployedAgo:    FormatDeployedAgo(now.Sub(t.DeployedAt)),
		WinRate:        FormatPercent(winRate),
		LiveWinRate:    FormatPercent(LiveWinRate(pnl)),
		ExpectedReturn: FormatSignedPercent(t.ExpectedReturn, 1),
		MarketCap:      FormatMarketCap(t.MarketCap),
		TotalTrades:    FormatCount(t.TotalTrades),
		Tags:           append([]string(nil), tags...),
		Trend:          direction,
		Strategy:       StrategyLabel(direction),
		SeriesID:       t.SeriesID(),
		Personality:    t.Personality,
		StartValue:     t.InitialPrice,
		Volatility:     t.Volatility,
		Series:         state.Window,
		CurrentPrice:   FormatPrice(state.CurrentPrice()),
		PnLPercent:     pnl,
		PnL:            FormatSignedPercent(pnl, 2),
	}
}

// Logs advances the trader's activity log by one line and returns it.
func (l *Leaderboard) Logs(id string) ([]models.LogLine, bool) {
	l.mu.Lock()
	var trader *models.AITrader
	for i := range l.traders {
		if l.traders[i].ID == id {
			trader = &l.traders[i]
			break
		}
	}
	if trader == nil {
		l.mu.Unlock()
		return nil, false
	}
	log, ok := l.logs[id]
	if !ok {
		log = NewActivityLog(trader.Name, l.rnd, l.clock)
		l.logs[id] = log
	}
	l.mu.Unlock()

	log.Next()
	return log.Lines(), true
}
