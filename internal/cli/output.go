package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/mcoot/tapearn/internal/api/response"
	"github.com/mcoot/tapearn/internal/model"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case ActionView:
		o.printAction(v)
	case StatusView:
		o.printStatus(v)
	case TaskList:
		o.printTasks(v)
	case Leaderboard:
		o.printLeaderboard(v)
	case response.HealthResponse:
		o.printHealth(v)
	case HashResult:
		fmt.Fprintln(o.w, v.Hash)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// PlayerView is the player summary shown after every command
type PlayerView struct {
	TelegramID       model.PlayerID    `json:"telegramId"`
	Username         string            `json:"username,omitempty"`
	Balance          int64             `json:"balance"`
	Stamina          int               `json:"stamina"`
	MaxStamina       int               `json:"maxStamina"`
	Multiplier       int               `json:"multiplier"`
	RegenInterval    string            `json:"regenInterval"`
	Package          model.PackageTier `json:"package"`
	PackageExpiresAt *time.Time        `json:"packageExpiresAt,omitempty"`
	TapBot           string            `json:"tapBot"`
	Referrals        int               `json:"referrals"`
	Synced           bool              `json:"synced"`
}

func newPlayerView(s model.PlayerState, synced bool) PlayerView {
	bot := "none"
	switch {
	case s.AutoTapperActive:
		bot = "on"
	case s.HasAutoTapper:
		bot = "off"
	}
	return PlayerView{
		TelegramID:       s.PlayerID,
		Username:         s.Username,
		Balance:          s.Balance,
		Stamina:          s.Stamina,
		MaxStamina:       s.MaxStamina,
		Multiplier:       s.Multiplier,
		RegenInterval:    (time.Duration(s.StaminaRegenIntervalMs) * time.Millisecond).String(),
		Package:          s.PackageTier,
		PackageExpiresAt: s.PackageExpiresAt,
		TapBot:           bot,
		Referrals:        len(s.Referrals),
		Synced:           synced,
	}
}

// ActionView is the result of a command that changed the player
type ActionView struct {
	Message string     `json:"message"`
	Player  PlayerView `json:"player"`
}

// StatusView is the full player status with limits and timers
type StatusView struct {
	Player        PlayerView            `json:"player"`
	Remaining     map[model.Feature]int `json:"remaining"`
	NextRegenIn   string                `json:"nextRegenIn,omitempty"`
	DailyRewardIn string                `json:"dailyRewardIn,omitempty"`
}

// TaskView is one task of the catalog as seen by the player
type TaskView struct {
	ID      model.TaskID `json:"id"`
	Action  string       `json:"action"`
	URL     string       `json:"url,omitempty"`
	Reward  int64        `json:"reward"`
	Visited bool         `json:"visited"`
	Claimed bool         `json:"claimed"`
}

// TaskList is the task catalog
type TaskList []TaskView

// Leaderboard is the referral leaderboard
type Leaderboard []response.LeaderboardEntry

// HashResult is a bcrypt hash for ADMIN_KEY_HASH
type HashResult struct {
	Hash string `json:"hash"`
}

func (o *Output) printAction(a ActionView) {
	if a.Message != "" {
		fmt.Fprintln(o.w, a.Message)
	}
	o.printPlayer(a.Player)
}

func (o *Output) printPlayer(p PlayerView) {
	name := string(p.TelegramID)
	if p.Username != "" {
		name = fmt.Sprintf("%s (%s)", p.Username, p.TelegramID)
	}
	sync := ""
	if !p.Synced {
		sync = " [offline, not synced]"
	}
	fmt.Fprintf(o.w, "Player: %s%s\n", name, sync)
	fmt.Fprintf(o.w, "Balance: %s coins\n", humanize.Comma(p.Balance))
	fmt.Fprintf(o.w, "Stamina: %d/%d (+1 every %s)\n", p.Stamina, p.MaxStamina, p.RegenInterval)
	fmt.Fprintf(o.w, "Multiplier: x%d\n", p.Multiplier)
	fmt.Fprintf(o.w, "Tap bot: %s\n", p.TapBot)
	if p.PackageExpiresAt != nil {
		fmt.Fprintf(o.w, "Package: %s (expires %s)\n", p.Package, humanize.Time(*p.PackageExpiresAt))
	} else {
		fmt.Fprintf(o.w, "Package: %s\n", p.Package)
	}
	if p.Referrals > 0 {
		fmt.Fprintf(o.w, "Referrals: %d\n", p.Referrals)
	}
}

func (o *Output) printStatus(s StatusView) {
	o.printPlayer(s.Player)
	if s.NextRegenIn != "" {
		fmt.Fprintf(o.w, "Next stamina in: %s\n", s.NextRegenIn)
	}
	fmt.Fprintln(o.w, "Left today:")
	for _, f := range model.CountedFeatures {
		fmt.Fprintf(o.w, "  %s: %d\n", f, s.Remaining[f])
	}
	if s.DailyRewardIn == "" {
		fmt.Fprintln(o.w, "Daily reward: ready")
	} else {
		fmt.Fprintf(o.w, "Daily reward in: %s\n", s.DailyRewardIn)
	}
}

func (o *Output) printTasks(tasks TaskList) {
	if len(tasks) == 0 {
		fmt.Fprintln(o.w, "No tasks")
		return
	}
	for _, t := range tasks {
		mark := "[ ]"
		switch {
		case t.Claimed:
			mark = "[x]"
		case t.Visited:
			mark = "[~]"
		}
		fmt.Fprintf(o.w, "%s %s: %s (+%s coins)\n", mark, t.ID, t.Action, humanize.Comma(t.Reward))
		if t.URL != "" && !t.Claimed {
			fmt.Fprintf(o.w, "    %s\n", t.URL)
		}
	}
}

func (o *Output) printLeaderboard(entries Leaderboard) {
	if len(entries) == 0 {
		fmt.Fprintln(o.w, "No referrals yet")
		return
	}
	for _, e := range entries {
		name := e.Username
		if name == "" {
			name = string(e.TelegramID)
		}
		fmt.Fprintf(o.w, "%4s  %s - %d referrals\n", humanize.Ordinal(e.Rank), name, e.Referrals)
	}
}

func (o *Output) printHealth(h response.HealthResponse) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	if h.Storage != "" {
		fmt.Fprintf(o.w, "Storage: %s\n", h.Storage)
	}
}
