package questionbank

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	onboarding "github.com/creastat/onboarding"
	"github.com/creastat/onboarding/api"
	"github.com/creastat/onboarding/internal/metrics"
	"github.com/creastat/onboarding/patterns"
	"github.com/creastat/onboarding/question"
)

const (
	defaultCacheSize = 128
	defaultCacheTTL  = 10 * time.Minute
)

// Question set origins, as reported by Fetch.
const (
	SourceRemote = "remote"
	SourceCache  = "cache"
	SourceStatic = "static"
)

// Fetcher loads a tier's question set from the profile service.
type Fetcher interface {
	FetchQuestions(ctx context.Context, tier int, userID string) (*api.QuestionsResponse, error)
}

// Request describes which question set to load. Scores, AgeBracket and
// Guidance only parametrize the static tier-2 fallback.
type Request struct {
	Tier   int
	UserID string

	Scores     patterns.Scores
	AgeBracket string
	Guidance   string
}

// Config configures a Bank.
type Config struct {
	// CacheSize bounds the number of cached remote question sets.
	CacheSize int
	// CacheTTL is how long a cached question set stays valid.
	CacheTTL time.Duration
	// Seed seeds tier-1 sampling; zero uses the current time.
	Seed int64

	// Metrics records question fetches by origin. Default: metrics.New()
	Metrics *metrics.Metrics
}

// DefaultConfig returns the default bank configuration.
func DefaultConfig() Config {
	return Config{CacheSize: defaultCacheSize, CacheTTL: defaultCacheTTL}
}

type cacheEntry struct {
	resp     *api.QuestionsResponse
	storedAt time.Time
}

// Bank serves question sets remote-first with the static catalogs as
// fallback. A nil Fetcher serves static sets only.
type Bank struct {
	fetcher Fetcher
	cache   *lru.Cache[string, cacheEntry]
	ttl     time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Bank.
func New(fetcher Fetcher, cfg Config, logger *zap.Logger) (*Bank, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}

	cache, err := lru.New[string, cacheEntry](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create question cache: %w", err)
	}

	return &Bank{
		fetcher: fetcher,
		cache:   cache,
		ttl:     cfg.CacheTTL,
		logger:  logger,
		metrics: cfg.Metrics,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Static builds the static question set for req in the remote response
// shape.
func Static(req Request) (*api.QuestionsResponse, error) {
	switch req.Tier {
	case 1:
		return &api.QuestionsResponse{Success: true, Tier: 1, Questions: Tier1Pool()}, nil
	case 2:
		domains := BuildTier2(req.Scores, req.AgeBracket, req.Guidance)
		return &api.QuestionsResponse{Success: true, Tier: 2, Domains: question.DomainMap(domains)}, nil
	case 3:
		return &api.QuestionsResponse{Success: true, Tier: 3, Questions: Tier3(nil)}, nil
	}
	return nil, fmt.Errorf("%w: unknown tier %d", onboarding.ErrValidation, req.Tier)
}

// Fetch returns the question set for req and its origin. Any remote failure,
// including an unsuccessful or empty response, falls back to Static.
func (b *Bank) Fetch(ctx context.Context, req Request) (*api.QuestionsResponse, string, error) {
	static, err := Static(req)
	if err != nil {
		return nil, "", err
	}
	tier := strconv.Itoa(req.Tier)

	if b.fetcher == nil {
		b.metrics.RecordQuestionFetch(tier, SourceStatic)
		return static, SourceStatic, nil
	}

	key := cacheKey(req.Tier, req.UserID)
	if e, ok := b.cache.Get(key); ok {
		if time.Since(e.storedAt) < b.ttl {
			b.metrics.RecordQuestionFetch(tier, SourceCache)
			return e.resp, SourceCache, nil
		}
		b.cache.Remove(key)
	}

	resp, err := b.fetcher.FetchQuestions(ctx, req.Tier, req.UserID)
	if err == nil {
		err = usable(req.Tier, resp)
	}
	if err != nil {
		b.logger.Warn("question fetch failed, using static catalog",
			zap.Int("tier", req.Tier),
			zap.String("user_id", req.UserID),
			zap.Error(err))
		b.metrics.RecordQuestionFetch(tier, SourceStatic)
		return static, SourceStatic, nil
	}

	b.cache.Add(key, cacheEntry{resp: resp, storedAt: time.Now()})
	b.metrics.RecordQuestionFetch(tier, SourceRemote)
	return resp, SourceRemote, nil
}

// Tier1 returns the sampled tier-1 question list.
func (b *Bank) Tier1(ctx context.Context, userID string) ([]question.Question, error) {
	resp, _, err := b.Fetch(ctx, Request{Tier: 1, UserID: userID})
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return SelectTier1(resp.Questions, b.rng), nil
}

// Tier2 returns the ordered tier-2 domains.
func (b *Bank) Tier2(ctx context.Context, req Request) ([]question.Domain, error) {
	req.Tier = 2
	resp, _, err := b.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	return question.OrderedDomains(resp.Domains), nil
}

// Tier3 returns the tier-3 question sequence.
func (b *Bank) Tier3(ctx context.Context, userID string) ([]question.Question, error) {
	resp, _, err := b.Fetch(ctx, Request{Tier: 3, UserID: userID})
	if err != nil {
		return nil, err
	}
	return resp.Questions, nil
}

// Invalidate drops the cached question sets of userID.
func (b *Bank) Invalidate(userID string) {
	for tier := 1; tier <= 3; tier++ {
		b.cache.Remove(cacheKey(tier, userID))
	}
}

func cacheKey(tier int, userID string) string {
	return strconv.Itoa(tier) + ":" + userID
}

func usable(tier int, resp *api.QuestionsResponse) error {
	switch {
	case resp == nil:
		return fmt.Errorf("%w: empty response", onboarding.ErrRemote)
	case !resp.Success:
		return fmt.Errorf("%w: %s", onboarding.ErrRemote, resp.Error)
	case tier == 2 && len(resp.Domains) == 0:
		return fmt.Errorf("%w: no domains returned", onboarding.ErrRemote)
	case tier != 2 && len(resp.Questions) == 0:
		return fmt.Errorf("%w: no questions returned", onboarding.ErrRemote)
	}
	return nil
}
