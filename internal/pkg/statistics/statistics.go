package statistics

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/pressbrief/pressbrief/app/models"
	"github.com/pressbrief/pressbrief/internal/pkg/cache"
	"github.com/pressbrief/pressbrief/internal/pkg/database"
)

const (
	CacheKeyArticlesTotal = "statistics:articles:total"
	CacheKeyArticlesDaily = "statistics:articles:daily:%s" // Format with date YYYY-MM-DD
	CacheKeyUsers         = "statistics:users:total"
	CacheKeyMeteredReads  = "statistics:reads:total"
	CacheExpiration       = 30 * time.Minute
)

// StatisticsData holds the aggregate numbers shown on public status pages.
type StatisticsData struct {
	TodayArticles int `json:"today_articles"`
	TotalArticles int `json:"total_articles"`
	TotalUsers    int `json:"total_users"`
	MeteredReads  int `json:"metered_reads"`
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache reports whether the cached aggregates are stale.
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cache when the interval has passed.
func UpdateCacheIfNeeded() {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		if err := UpdateStatisticsCache(); err != nil {
			log.Printf("statistics cache update failed: %v", err)
		} else {
			lastCacheUpdate = time.Now()
		}
	}
}

// UpdateStatisticsCache recomputes all aggregates and stores them in Redis.
func UpdateStatisticsCache() error {
	db := database.GetDB()

	var totalArticles int64
	if err := db.Model(&models.Article{}).Count(&totalArticles).Error; err != nil {
		return err
	}

	var todayArticles int64
	today := time.Now().UTC().Format("2006-01-02")
	todayStart, _ := time.Parse("2006-01-02", today)
	todayEnd := todayStart.Add(24 * time.Hour)
	if err := db.Model(&models.Article{}).Where("published_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&todayArticles).Error; err != nil {
		return err
	}

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		return err
	}

	// Lifetime metered reads across all identities.
	var meteredReads int64
	if err := db.Model(&models.UsageRecord{}).Select("COALESCE(SUM(total_count), 0)").Scan(&meteredReads).Error; err != nil {
		return err
	}

	if err := cache.Set(CacheKeyArticlesTotal, strconv.FormatInt(totalArticles, 10), CacheExpiration); err != nil {
		return err
	}
	dailyKey := fmt.Sprintf(CacheKeyArticlesDaily, today)
	if err := cache.Set(dailyKey, strconv.FormatInt(todayArticles, 10), CacheExpiration); err != nil {
		return err
	}
	if err := cache.Set(CacheKeyUsers, strconv.FormatInt(totalUsers, 10), CacheExpiration); err != nil {
		return err
	}
	return cache.Set(CacheKeyMeteredReads, strconv.FormatInt(meteredReads, 10), CacheExpiration)
}

func cachedInt(key string) (int, bool) {
	val, err := cache.Get(key)
	if err != nil {
		return 0, false
	}
	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return int(count), true
}

// GetTotalArticles returns the article count from cache, falling back to the DB.
func GetTotalArticles() int {
	if v, ok := cachedInt(CacheKeyArticlesTotal); ok {
		return v
	}
	var count int64
	if err := database.GetDB().Model(&models.Article{}).Count(&count).Error; err != nil {
		log.Printf("error counting articles: %v", err)
		return 0
	}
	_ = cache.Set(CacheKeyArticlesTotal, strconv.FormatInt(count, 10), CacheExpiration)
	return int(count)
}

// GetTodayArticles returns today's article count from cache, falling back to the DB.
func GetTodayArticles() int {
	today := time.Now().UTC().Format("2006-01-02")
	dailyKey := fmt.Sprintf(CacheKeyArticlesDaily, today)
	if v, ok := cachedInt(dailyKey); ok {
		return v
	}

	todayStart, _ := time.Parse("2006-01-02", today)
	todayEnd := todayStart.Add(24 * time.Hour)
	var count int64
	if err := database.GetDB().Model(&models.Article{}).Where("published_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&count).Error; err != nil {
		log.Printf("error counting today's articles: %v", err)
		return 0
	}
	_ = cache.Set(dailyKey, strconv.FormatInt(count, 10), CacheExpiration)
	return int(count)
}

// GetTotalUsers returns the user count from cache, falling back to the DB.
func GetTotalUsers() int {
	if v, ok := cachedInt(CacheKeyUsers); ok {
		return v
	}
	var count int64
	if err := database.GetDB().Model(&models.User{}).Count(&count).Error; err != nil {
		log.Printf("error counting users: %v", err)
		return 0
	}
	_ = cache.Set(CacheKeyUsers, strconv.FormatInt(count, 10), CacheExpiration)
	return int(count)
}

// GetMeteredReads returns the lifetime read total from cache, falling back to the DB.
func GetMeteredReads() int {
	if v, ok := cachedInt(CacheKeyMeteredReads); ok {
		return v
	}
	var sum int64
	if err := database.GetDB().Model(&models.UsageRecord{}).Select("COALESCE(SUM(total_count), 0)").Scan(&sum).Error; err != nil {
		log.Printf("error summing metered reads: %v", err)
		return 0
	}
	_ = cache.Set(CacheKeyMeteredReads, strconv.FormatInt(sum, 10), CacheExpiration)
	return int(sum)
}

// GetStatisticsData returns all statistics, refreshing the cache when stale.
func GetStatisticsData() StatisticsData {
	UpdateCacheIfNeeded()

	return StatisticsData{
		TodayArticles: GetTodayArticles(),
		TotalArticles: GetTotalArticles(),
		TotalUsers:    GetTotalUsers(),
		MeteredReads:  GetMeteredReads(),
	}
}
