//go:build integration

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"stevedore/internal/reconcile/models"
	"stevedore/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	rc  *containers.RedisContainer
	ctx context.Context
}

func (s *RedisCacheSuite) SetupSuite() {
	s.rc = containers.NewRedisContainer(s.T())
	s.ctx = context.Background()
}

func (s *RedisCacheSuite) TearDownSuite() {
	s.rc.Close(context.Background())
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.rc.FlushAll(s.ctx))
}

func TestRedisCacheSuite(t *testing.T) {
	suite.Run(t, new(RedisCacheSuite))
}

// countingSource counts fall-throughs so hits are observable.
type countingSource struct {
	calls int
	fail  bool
}

func (c *countingSource) FieldConfigs(ctx context.Context, pairKey string) ([]models.FieldConfig, error) {
	c.calls++
	if c.fail {
		return nil, errors.New("source down")
	}
	return Static{}.FieldConfigs(ctx, pairKey)
}

func (s *RedisCacheSuite) TestReadThrough() {
	src := &countingSource{}
	cache := NewRedisCache(s.rc.Client, src, time.Minute)

	first, err := cache.FieldConfigs(s.ctx, models.PairSIVsChecklist)
	s.Require().NoError(err)
	s.NotEmpty(first)
	s.Equal(1, src.calls)

	second, err := cache.FieldConfigs(s.ctx, models.PairSIVsChecklist)
	s.Require().NoError(err)
	s.Equal(first, second)
	s.Equal(1, src.calls, "second read should be served from redis")
}

func (s *RedisCacheSuite) TestRefreshDropsEntry() {
	src := &countingSource{}
	cache := NewRedisCache(s.rc.Client, src, time.Minute)

	_, err := cache.FieldConfigs(s.ctx, models.PairSIVsChecklist)
	s.Require().NoError(err)
	s.Require().NoError(cache.Refresh(s.ctx, models.PairSIVsChecklist))

	_, err = cache.FieldConfigs(s.ctx, models.PairSIVsChecklist)
	s.Require().NoError(err)
	s.Equal(2, src.calls)
}

func (s *RedisCacheSuite) TestUnknownPairNotCached() {
	src := &countingSource{}
	cache := NewRedisCache(s.rc.Client, src, time.Minute)

	_, err := cache.FieldConfigs(s.ctx, "si_vs_unknown")
	s.Error(err)

	_, err = cache.FieldConfigs(s.ctx, "si_vs_unknown")
	s.Error(err)
	s.Equal(2, src.calls)
}
