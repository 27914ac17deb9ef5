// Package premium decides which users may use the premium analysis features.
package premium

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/samjhill/dream-companion/internal/database"
	"github.com/samjhill/dream-companion/internal/metrics"
)

// DefaultCacheTTL is how long an entitlement answer is reused.
const DefaultCacheTTL = 5 * time.Minute

// monthDays is the length of one billed month.
const monthDays = 30

// BasicFeatures are available to every user.
var BasicFeatures = []string{
	"basic_dream_storage",
	"basic_interpretations",
}

// PremiumFeatures are available to premium subscribers.
var PremiumFeatures = []string{
	"basic_dream_storage",
	"basic_interpretations",
	"advanced_dream_analysis",
	"psychological_patterns",
	"dream_archetypes",
	"historical_trends",
	"personalized_reports",
}

// Store persists subscriptions.
type Store interface {
	GetSubscription(userID string) (*database.Subscription, error)
	UpsertSubscription(userID, plan string, end *time.Time) error
	DeleteSubscription(userID string) error
}

// Status is a user's subscription as reported to clients.
type Status struct {
	IsPremium        bool     `json:"is_premium"`
	SubscriptionType *string  `json:"subscription_type"`
	SubscriptionEnd  *string  `json:"subscription_end"`
	Features         []string `json:"features"`
}

// Checker answers entitlement questions, caching positive and negative
// answers per user.
type Checker struct {
	store   Store
	cache   *gocache.Cache
	now     func() time.Time
	enforce bool
	logger  *zap.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithClock sets the clock subscriptions are compared against.
func WithClock(now func() time.Time) Option {
	return func(c *Checker) { c.now = now }
}

// WithEnforce turns the HTTP guard on or off. It is on by default.
func WithEnforce(enforce bool) Option {
	return func(c *Checker) { c.enforce = enforce }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Checker) { c.logger = l }
}

// NewChecker creates a Checker over store. ttl <= 0 uses DefaultCacheTTL.
func NewChecker(store Store, ttl time.Duration, opts ...Option) *Checker {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &Checker{
		store:   store,
		cache:   gocache.New(ttl, 2*ttl),
		now:     time.Now,
		enforce: true,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsPremium reports whether userID has an active premium subscription.
func (c *Checker) IsPremium(userID string) (bool, error) {
	if v, found := c.cache.Get(userID); found {
		metrics.PremiumChecks.WithLabelValues("cached").Inc()
		return v.(bool), nil
	}

	sub, err := c.store.GetSubscription(userID)
	if err != nil {
		metrics.PremiumChecks.WithLabelValues("error").Inc()
		return false, fmt.Errorf("reading subscription: %w", err)
	}
	ok := c.active(sub)
	c.cache.SetDefault(userID, ok)
	if ok {
		metrics.PremiumChecks.WithLabelValues("granted").Inc()
	} else {
		metrics.PremiumChecks.WithLabelValues("denied").Inc()
	}
	return ok, nil
}

// Entitled reports whether userID may use premium features. Every user is
// entitled when enforcement is off.
func (c *Checker) Entitled(userID string) (bool, error) {
	if !c.enforce {
		return true, nil
	}
	return c.IsPremium(userID)
}

// Status returns the current subscription status of userID.
func (c *Checker) Status(userID string) (*Status, error) {
	sub, err := c.store.GetSubscription(userID)
	if err != nil {
		return nil, fmt.Errorf("reading subscription: %w", err)
	}
	if sub == nil {
		return &Status{Features: BasicFeatures}, nil
	}

	st := &Status{
		IsPremium:        c.active(sub),
		SubscriptionType: &sub.Type,
		SubscriptionEnd:  sub.SubscriptionEnd,
		Features:         BasicFeatures,
	}
	if sub.Type == database.PlanPremium {
		st.Features = PremiumFeatures
	}
	return st, nil
}

// Grant gives userID a plan lasting months billed months and returns its
// end time. months <= 0 grants one month.
func (c *Checker) Grant(userID, plan string, months int) (time.Time, error) {
	if months <= 0 {
		months = 1
	}
	end := c.now().UTC().Add(time.Duration(monthDays*months) * 24 * time.Hour)
	if err := c.store.UpsertSubscription(userID, plan, &end); err != nil {
		return time.Time{}, fmt.Errorf("saving subscription: %w", err)
	}
	c.cache.Delete(userID)
	c.logger.Info("subscription granted", zap.String("user", userID), zap.String("plan", plan), zap.Time("end", end))
	return end, nil
}

// Revoke cancels userID's subscription.
func (c *Checker) Revoke(userID string) error {
	if err := c.store.DeleteSubscription(userID); err != nil {
		return fmt.Errorf("deleting subscription: %w", err)
	}
	c.cache.Delete(userID)
	c.logger.Info("subscription revoked", zap.String("user", userID))
	return nil
}

// active reports whether sub is an unexpired premium plan. A premium plan
// without an end never expires; an unparsable end counts as expired.
func (c *Checker) active(sub *database.Subscription) bool {
	if sub == nil || sub.Type != database.PlanPremium {
		return false
	}
	if sub.SubscriptionEnd == nil {
		return true
	}
	end, err := time.Parse(time.RFC3339, *sub.SubscriptionEnd)
	if err != nil {
		c.logger.Warn("unparsable subscription end", zap.String("user", sub.UserID), zap.Error(err))
		return false
	}
	return c.now().Before(end)
}

// Guard wraps next so that it requires a bearer token and a premium
// subscription for the user named by the userParam path wildcard.
func (c *Checker) Guard(userParam string, next http.Handler) http.Handler {
	if !c.enforce {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")) == "" {
			writeError(w, http.StatusUnauthorized, "Missing or invalid authorization header")
			return
		}
		userID := r.PathValue(userParam)
		if userID == "" {
			writeError(w, http.StatusBadRequest, "Phone number required")
			return
		}

		ok, err := c.IsPremium(userID)
		if err != nil {
			c.logger.Error("premium check failed", zap.String("user", userID), zap.Error(err))
		}
		if !ok {
			writeError(w, http.StatusForbidden, "Premium subscription required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
