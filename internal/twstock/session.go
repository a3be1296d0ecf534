package twstock

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

// Phase is the coarse trading phase of an exchange day
type Phase string

const (
	PhasePreOpen   Phase = "pre_open"
	PhaseMorning   Phase = "morning"
	PhaseAfternoon Phase = "afternoon"
	PhasePostClose Phase = "post_close"
	PhaseHoliday   Phase = "holiday"
)

const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Exchange describes a trading venue's local session window [Open, Close)
type Exchange struct {
	Name     string
	Suffix   string // symbol suffix, e.g. ".TW"
	Location *time.Location

	OpenHour, OpenMinute   int
	CloseHour, CloseMinute int
}

// MarketSession is the session state of an exchange at one instant
type MarketSession struct {
	Exchange    string    `json:"exchange"`
	IsOpen      bool      `json:"is_open"`
	TradingDay  bool      `json:"trading_day"`
	Status      string    `json:"status"`
	Phase       Phase     `json:"phase"`
	NextOpen    time.Time `json:"next_open"`
	NextClose   time.Time `json:"next_close"`
	CurrentTime time.Time `json:"current_time"`
	Timezone    string    `json:"timezone"`
}

// NewExchange validates the window and binds it to a location
func NewExchange(name, suffix string, loc *time.Location, openHour, openMinute, closeHour, closeMinute int) (*Exchange, error) {
	if loc == nil {
		return nil, fmt.Errorf("exchange %s: nil location", name)
	}
	for _, hm := range [][2]int{{openHour, openMinute}, {closeHour, closeMinute}} {
		if hm[0] < 0 || hm[0] > 23 || hm[1] < 0 || hm[1] > 59 {
			return nil, fmt.Errorf("exchange %s: invalid clock %02d:%02d", name, hm[0], hm[1])
		}
	}
	if closeHour*60+closeMinute <= openHour*60+openMinute {
		return nil, fmt.Errorf("exchange %s: close %02d:%02d is not after open %02d:%02d",
			name, closeHour, closeMinute, openHour, openMinute)
	}
	return &Exchange{
		Name:        name,
		Suffix:      suffix,
		Location:    loc,
		OpenHour:    openHour,
		OpenMinute:  openMinute,
		CloseHour:   closeHour,
		CloseMinute: closeMinute,
	}, nil
}

func mustLocation(name string, fallbackOffset int) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone(name, fallbackOffset)
	}
	return loc
}

var (
	taipei  = mustLocation("Asia/Taipei", 8*3600)
	newYork = mustLocation("America/New_York", -5*3600)
)

// TWSE is the Taiwan Stock Exchange, 09:00–13:30 Asia/Taipei
func TWSE() *Exchange {
	return &Exchange{Name: "TWSE", Suffix: ".TW", Location: taipei, OpenHour: 9, CloseHour: 13, CloseMinute: 30}
}

// TPEx is the Taipei Exchange (OTC), 09:00–13:30 Asia/Taipei
func TPEx() *Exchange {
	return &Exchange{Name: "TPEx", Suffix: ".TWO", Location: taipei, OpenHour: 9, CloseHour: 13, CloseMinute: 30}
}

// NYSE is the New York Stock Exchange, 09:30–16:00 America/New_York
func NYSE() *Exchange {
	return &Exchange{Name: "NYSE", Location: newYork, OpenHour: 9, OpenMinute: 30, CloseHour: 16}
}

// ExchangeByName resolves a built-in exchange, case-insensitively
func ExchangeByName(name string) (*Exchange, error) {
	switch {
	case strings.EqualFold(name, "TWSE"), strings.EqualFold(name, "TW"):
		return TWSE(), nil
	case strings.EqualFold(name, "TPEX"), strings.EqualFold(name, "OTC"):
		return TPEx(), nil
	case strings.EqualFold(name, "NYSE"), strings.EqualFold(name, "US"):
		return NYSE(), nil
	}
	return nil, fmt.Errorf("unknown exchange %q", name)
}

// WithHours returns a copy using a different session window
func (e *Exchange) WithHours(openHour, openMinute, closeHour, closeMinute int) (*Exchange, error) {
	return NewExchange(e.Name, e.Suffix, e.Location, openHour, openMinute, closeHour, closeMinute)
}

// OpenOn is the session open on t's local calendar day
func (e *Exchange) OpenOn(t time.Time) time.Time {
	local := t.In(e.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), e.OpenHour, e.OpenMinute, 0, 0, e.Location)
}

// CloseOn is the session close on t's local calendar day
func (e *Exchange) CloseOn(t time.Time) time.Time {
	local := t.In(e.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), e.CloseHour, e.CloseMinute, 0, 0, e.Location)
}

// IsTradingDay reports whether t falls on Monday–Friday locally
func (e *Exchange) IsTradingDay(t time.Time) bool {
	switch t.In(e.Location).Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}

// nextTradingDay returns a time on the first trading day after t's day
func (e *Exchange) nextTradingDay(t time.Time) time.Time {
	local := t.In(e.Location)
	day := time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, e.Location)
	for {
		day = day.AddDate(0, 0, 1)
		if e.IsTradingDay(day) {
			return day
		}
	}
}

// IsOpen reports whether now ∈ [open, close) on a trading day
func (e *Exchange) IsOpen(now time.Time) bool {
	if !e.IsTradingDay(now) {
		return false
	}
	return !now.Before(e.OpenOn(now)) && now.Before(e.CloseOn(now))
}

// Status is "open" or "closed"
func (e *Exchange) Status(now time.Time) string {
	if e.IsOpen(now) {
		return StatusOpen
	}
	return StatusClosed
}

// Phase splits the day at local noon into morning and afternoon sessions
func (e *Exchange) Phase(now time.Time) Phase {
	if !e.IsTradingDay(now) {
		return PhaseHoliday
	}
	switch {
	case now.Before(e.OpenOn(now)):
		return PhasePreOpen
	case !now.Before(e.CloseOn(now)):
		return PhasePostClose
	case now.In(e.Location).Hour() < 12:
		return PhaseMorning
	default:
		return PhaseAfternoon
	}
}

// SessionFor computes the session state at now
func (e *Exchange) SessionFor(now time.Time) MarketSession {
	local := now.In(e.Location)
	session := MarketSession{
		Exchange:    e.Name,
		TradingDay:  e.IsTradingDay(local),
		IsOpen:      e.IsOpen(local),
		Status:      e.Status(local),
		Phase:       e.Phase(local),
		CurrentTime: local,
		Timezone:    e.Location.String(),
	}

	openAt, closeAt := e.OpenOn(local), e.CloseOn(local)
	switch {
	case !session.TradingDay:
		day := e.nextTradingDay(local)
		session.NextOpen, session.NextClose = e.OpenOn(day), e.CloseOn(day)
	case local.Before(openAt):
		session.NextOpen, session.NextClose = openAt, closeAt
	case session.IsOpen:
		day := e.nextTradingDay(local)
		session.NextOpen, session.NextClose = e.OpenOn(day), closeAt
	default:
		day := e.nextTradingDay(local)
		session.NextOpen, session.NextClose = e.OpenOn(day), e.CloseOn(day)
	}
	return session
}

// LastSessionWindow returns the most recent [open, close] at or before now.
// During a session close is the scheduled close, not now.
func (e *Exchange) LastSessionWindow(now time.Time) (time.Time, time.Time) {
	local := now.In(e.Location)
	if e.IsTradingDay(local) && !local.Before(e.OpenOn(local)) {
		return e.OpenOn(local), e.CloseOn(local)
	}
	day := time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, e.Location)
	for {
		day = day.AddDate(0, 0, -1)
		if e.IsTradingDay(day) {
			return e.OpenOn(day), e.CloseOn(day)
		}
	}
}
