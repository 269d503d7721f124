package alert

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/udayhese96/Gemscap-Assignment/internal/store"
	"github.com/udayhese96/Gemscap-Assignment/pkg/logger"
)

// Subscriber receives fired alerts. Called synchronously on the caller's
// goroutine; a panicking subscriber is isolated and never takes the engine
// down.
type Subscriber func(Alert)

// Engine evaluates rules against incoming metric values, enforcing a
// per-rule per-symbol cooldown so a sustained breach fires once per window
// instead of once per tick. Fired alerts are kept in a bounded history,
// newest first.
type Engine struct {
	mu          sync.Mutex
	rules       []Rule
	lastFired   map[string]time.Time
	history     store.Ring[Alert]
	subscribers []Subscriber
}

// NewEngine creates an engine with the given rules and history capacity
func NewEngine(rules []Rule, maxHistory int) *Engine {
	if maxHistory <= 0 {
		maxHistory = 100
	}
	return &Engine{
		rules:     rules,
		lastFired: make(map[string]time.Time),
		history:   store.NewRing[Alert](maxHistory),
	}
}

// Subscribe registers a callback for every fired alert. Not safe to call
// concurrently with Check.
func (e *Engine) Subscribe(sub Subscriber) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers = append(e.subscribers, sub)
}

// AddRule appends a rule to the evaluation set
func (e *Engine) AddRule(rule Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, rule)
}

// RemoveRule deletes the named rule, reporting whether it existed.
// Cooldown state is kept so re-adding the rule does not refire immediately.
func (e *Engine) RemoveRule(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, r := range e.rules {
		if r.Name == name {
			e.rules = append(e.rules[:i], e.rules[i+1:]...)
			return true
		}
	}
	return false
}

// Rules returns a copy of the current rule set
func (e *Engine) Rules() []Rule {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// CheckZScore evaluates all z-score rules against a value. symbol
// identifies the pair being watched; it scopes the cooldown so two pairs
// breaching the same rule alert independently. NaN never triggers.
func (e *Engine) CheckZScore(symbol string, value float64, now time.Time) []Alert {
	return e.check(TypeZScore, symbol, value, now)
}

// CheckValue evaluates rules of an arbitrary type against a value
func (e *Engine) CheckValue(alertType AlertType, symbol string, value float64, now time.Time) []Alert {
	return e.check(alertType, symbol, value, now)
}

// CheckRule evaluates a single rule without registering it. Cooldowns,
// history and subscriber delivery behave exactly as for registered rules,
// so a one-off rule still respects a prior firing under the same name.
func (e *Engine) CheckRule(rule Rule, symbol string, value float64, now time.Time) *Alert {
	if math.IsNaN(value) || !rule.Pred.Matches(value) {
		return nil
	}

	e.mu.Lock()
	key := cooldownKey(rule.Name, symbol)
	if last, ok := e.lastFired[key]; ok && now.Sub(last) < rule.Cooldown {
		e.mu.Unlock()
		return nil
	}
	e.lastFired[key] = now

	a := Alert{
		ID:        fmt.Sprintf("%s-%d", rule.Name, now.UnixNano()),
		Rule:      rule.Name,
		Type:      rule.Type,
		Severity:  rule.Severity,
		Symbol:    symbol,
		Value:     value,
		Message:   rule.Render(value),
		Timestamp: now,
	}
	e.history.Append(a)
	subs := make([]Subscriber, len(e.subscribers))
	copy(subs, e.subscribers)
	e.mu.Unlock()

	e.announce(subs, a)
	return &a
}

func (e *Engine) check(alertType AlertType, symbol string, value float64, now time.Time) []Alert {
	if math.IsNaN(value) {
		return nil
	}

	var fired []Alert
	var subs []Subscriber

	e.mu.Lock()
	for _, rule := range e.rules {
		if rule.Type != alertType || !rule.Pred.Matches(value) {
			continue
		}
		key := cooldownKey(rule.Name, symbol)
		if last, ok := e.lastFired[key]; ok && now.Sub(last) < rule.Cooldown {
			continue
		}
		e.lastFired[key] = now

		a := Alert{
			ID:        fmt.Sprintf("%s-%d", rule.Name, now.UnixNano()),
			Rule:      rule.Name,
			Type:      rule.Type,
			Severity:  rule.Severity,
			Symbol:    symbol,
			Value:     value,
			Message:   rule.Render(value),
			Timestamp: now,
		}
		e.history.Append(a)
		fired = append(fired, a)
	}
	if len(fired) > 0 {
		subs = make([]Subscriber, len(e.subscribers))
		copy(subs, e.subscribers)
	}
	e.mu.Unlock()

	for _, a := range fired {
		e.announce(subs, a)
	}
	return fired
}

func (e *Engine) announce(subs []Subscriber, a Alert) {
	logger.AlertsFired.WithLabelValues(string(a.Severity)).Inc()
	logger.Warn("Alert fired",
		logger.String("rule", a.Rule),
		logger.String("symbol", a.Symbol),
		logger.String("severity", string(a.Severity)),
		logger.Float64("value", a.Value),
	)
	for _, sub := range subs {
		e.deliver(sub, a)
	}
}

func (e *Engine) deliver(sub Subscriber, a Alert) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Alert subscriber panicked",
				logger.Any("panic", r),
				logger.String("rule", a.Rule),
			)
		}
	}()
	sub(a)
}

// cooldownKey scopes a rule's cooldown to one symbol. An empty symbol
// shares one window across all symbols.
func cooldownKey(rule, symbol string) string {
	if symbol == "" {
		return rule + "_all"
	}
	return rule + "_" + symbol
}

// HistoryFilter narrows History results. Zero values match everything.
type HistoryFilter struct {
	Severity Severity
	Type     AlertType
	Limit    int
}

// History returns fired alerts newest first, optionally filtered
func (e *Engine) History(filter HistoryFilter) []Alert {
	e.mu.Lock()
	all := e.history.Snapshot()
	e.mu.Unlock()

	out := make([]Alert, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		a := all[i]
		if filter.Severity != "" && a.Severity != filter.Severity {
			continue
		}
		if filter.Type != "" && a.Type != filter.Type {
			continue
		}
		out = append(out, a)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out
}

// ClearHistory empties the alert history, keeping cooldown state
func (e *Engine) ClearHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.Clear()
}

// ClearAll empties the history and resets every cooldown
func (e *Engine) ClearAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.Clear()
	e.lastFired = make(map[string]time.Time)
}
