package services

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/irfndi/claw-quants/internal/models"
)

// MaxActivityLines is how many terminal lines a trader's log retains.
const MaxActivityLines = 8

const tradeProbability = 0.3

var (
	tradeSymbols    = []string{"ETH", "BTC", "SOL", "ARB", "LINK", "UNI"}
	analysisActions = []string{
		"Scanning order book depth...",
		"Calculating RSI divergence...",
		"Detecting liquidity sweep...",
		"Monitoring mempool for sandwich attacks...",
		"Verifying on-chain oracle prices...",
		"Rebalancing portfolio weights...",
	}
)

// ActivityLog is the rolling execution terminal shown for a trader.
type ActivityLog struct {
	mu    sync.Mutex
	lines []models.LogLine
	rnd   Random
	clock func() time.Time
}

// NewActivityLog creates a log primed with the connection banner for traderName.
func NewActivityLog(traderName string, rnd Random, clock func() time.Time) *ActivityLog {
	if clock == nil {
		clock = time.Now
	}
	return &ActivityLog{
		rnd:   rnd,
		clock: clock,
		lines: []models.LogLine{
			{Type: models.LogInfo, Message: fmt.Sprintf("> Initializing connection to %s...", traderName)},
			{Type: models.LogInfo, Message: "> Verifying smart contract integrity..."},
		},
	}
}

// Next generates one line, appends it and returns it.
func (l *ActivityLog) Next() models.LogLine {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := l.generate()
	l.lines = append(l.lines, line)
	if len(l.lines) > MaxActivityLines {
		l.lines = append([]models.LogLine(nil), l.lines[len(l.lines)-MaxActivityLines:]...)
	}
	return line
}

// Lines returns a copy of the retained lines, oldest first.
func (l *ActivityLog) Lines() []models.LogLine {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.LogLine(nil), l.lines...)
}

func (l *ActivityLog) generate() models.LogLine {
	if l.rnd.Float64() >= tradeProbability {
		return models.LogLine{
			Type:    models.LogInfo,
			Message: "> " + analysisActions[l.rnd.Intn(len(analysisActions))],
		}
	}

	side, kind := "SELL", models.LogError
	if l.rnd.Float64() > 0.5 {
		side, kind = "BUY", models.LogSuccess
	}
	amount := l.rnd.Float64() * 2
	symbol := tradeSymbols[l.rnd.Intn(len(tradeSymbols))]
	price := int(math.Floor(l.rnd.Float64()*3000)) + 1000

	return models.LogLine{
		Type: kind,
		Message: fmt.Sprintf("> EXECUTING: %s %.2f %s @ $%d [%s]",
			side, amount, symbol, price, l.clock().Format("15:04:05")),
	}
}
