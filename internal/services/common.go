// Package services holds the use-cases the HTTP API and the worker call:
// ledger CRUD, dashboard, analytics, reports and admin views.
//
// Services read through ledger.Store and hand the records to the pure
// analytics and report packages. They never see credentials; callers pass the
// authenticated user id (and role, for admin use-cases).
package services

import (
	"context"
	"strings"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/cache"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
)

// Publisher receives an event for every ledger mutation. *amqp.Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, evt *amqp.LedgerEvent) error
}

// Invalidator drops every cached payload computed for a user.
type Invalidator interface {
	InvalidateUser(userID string)
}

// ListQuery narrows a list to one month. Month and Year go together: when only
// one is set the other defaults to the current one; when both are zero the
// list is not narrowed.
type ListQuery struct {
	Month    int
	Year     int
	Category string
}

// Resolve returns the month the query selects, or nil for "no filter".
func (q ListQuery) Resolve(today core.Date) (*core.Period, error) {
	if q.Month == 0 && q.Year == 0 {
		return nil, nil
	}
	p := today.Period()
	if q.Month != 0 {
		p.Month = time.Month(q.Month)
	}
	if q.Year != 0 {
		p.Year = q.Year
	}
	return checkPeriod(p)
}

// PeriodOrCurrent is Resolve with the current month in place of "no filter".
func (q ListQuery) PeriodOrCurrent(today core.Date) (core.Period, error) {
	p, err := q.Resolve(today)
	if err != nil || p == nil {
		return today.Period(), err
	}
	return *p, nil
}

func checkPeriod(p core.Period) (*core.Period, error) {
	verr := &core.ValidationError{}
	if p.Month < time.January || p.Month > time.December {
		verr.Add("month", "Month must be between 1 and 12")
	}
	if p.Year < core.MinYear || p.Year > core.MaxYear {
		verr.Add("year", "Year must be between 2000 and 2100")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}
	return &p, nil
}

// clock is embedded by every service so tests can pin "today".
type clock struct {
	now func() time.Time
}

func (c clock) today() core.Date {
	if c.now == nil {
		return core.DateOf(time.Now())
	}
	return core.DateOf(c.now())
}

func (c clock) timestamp() time.Time {
	if c.now == nil {
		return time.Now().UTC()
	}
	return c.now().UTC()
}

// userCache keeps one computed payload per (user, month).
type userCache[T any] struct {
	lru    *cache.LRUCache[T]
	logger *applog.Logger
}

func newUserCache[T any](lru *cache.LRUCache[T], logger *applog.Logger) userCache[T] {
	return userCache[T]{lru: lru, logger: logger}
}

func userPrefix(userID string) string {
	return "u:" + userID + ":"
}

func userKey(userID string, p core.Period) string {
	return userPrefix(userID) + p.String()
}

func (c userCache[T]) load(userID string, p core.Period, load func() (T, error)) (T, error) {
	if c.lru == nil {
		return load()
	}
	return c.lru.GetOrLoad(userKey(userID, p), load)
}

// InvalidateUser drops every cached payload of userID. An empty userID is
// the admin scope and clears everything.
func (c userCache[T]) InvalidateUser(userID string) {
	if c.lru == nil {
		return
	}
	prefix := userPrefix(userID)
	if userID == "" {
		prefix = "u:"
	}
	n := c.lru.DeleteFunc(func(key string) bool { return strings.HasPrefix(key, prefix) })
	if n > 0 {
		c.logger.Debug("Invalidated cached payloads", applog.FieldUserID, userID, "count", n)
	}
}
