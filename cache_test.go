package blogwidgets

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryCachePublishedEntries(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveEntry(ctx, sampleEntry("live", date(2024, 1, 1), true, "news")))
	require.NoError(t, s.SaveEntry(ctx, sampleEntry("scheduled", date(2024, 7, 1), true)))
	require.NoError(t, s.SaveEntry(ctx, sampleEntry("draft", date(2024, 1, 2), false)))

	c := NewEntryCache(s, time.Minute)

	got, err := c.PublishedEntries(ctx, date(2024, 6, 1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "live", got[0].Slug)

	// Scheduled entries appear once their date passes, without a reload.
	got, err = c.PublishedEntries(ctx, date(2024, 7, 2))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "scheduled", got[0].Slug)

	_, err = c.GetPublished(ctx, "scheduled", date(2024, 6, 1))
	assert.True(t, IsNotFound(err))
	_, err = c.GetPublished(ctx, "draft", date(2024, 6, 1))
	assert.True(t, IsNotFound(err))
	e, err := c.GetPublished(ctx, "live", date(2024, 6, 1))
	require.NoError(t, err)
	assert.Equal(t, []string{"news"}, e.Tags)
}

func TestEntryCacheTTLAndInvalidate(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveEntry(ctx, sampleEntry("one", date(2024, 1, 1), true)))

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	c := NewEntryCache(s, time.Minute)
	c.clock = func() time.Time { return now }

	got, err := c.PublishedEntries(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)

	require.NoError(t, s.SaveEntry(ctx, sampleEntry("two", date(2024, 1, 2), true, "go")))

	got, err = c.PublishedEntries(ctx, now)
	require.NoError(t, err)
	assert.Len(t, got, 1, "served from cache within the TTL")

	now = now.Add(2 * time.Minute)
	got, err = c.PublishedEntries(ctx, now)
	require.NoError(t, err)
	assert.Len(t, got, 2, "reloaded after the TTL")

	require.NoError(t, s.SaveEntry(ctx, sampleEntry("three", date(2024, 1, 3), true)))
	c.Invalidate()
	got, err = c.PublishedEntries(ctx, now)
	require.NoError(t, err)
	assert.Len(t, got, 3, "reloaded after Invalidate")

	tags, err := c.Tags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, tags)

	existing, err := c.ExistingTags(ctx, []string{"GO", "rust"})
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, existing)
}

func TestEntryCacheEmptyStore(t *testing.T) {
	s := setupTestStore(t)
	c := NewEntryCache(s, time.Minute)

	got, err := c.PublishedEntries(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, got)

	// An empty result is still cached.
	c.mu.RLock()
	valid := c.valid()
	c.mu.RUnlock()
	assert.True(t, valid)
}

func TestEntryCacheConcurrentReads(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	for _, slug := range []string{"a", "b", "c"} {
		require.NoError(t, s.SaveEntry(ctx, sampleEntry(slug, date(2024, 1, 1), true)))
	}
	c := NewEntryCache(s, time.Minute)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.PublishedEntries(ctx, date(2024, 6, 1))
			if err == nil && len(got) != 3 {
				err = assert.AnError
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestEntryCacheInvalidateDuringConcurrentLoads(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveEntry(ctx, sampleEntry("seed", date(2024, 1, 1), true)))
	c := NewEntryCache(s, time.Hour)
	readAt := date(2024, 6, 1)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				c.Invalidate()
				_, _ = c.PublishedEntries(ctx, readAt)
			}
		}()
	}

	var missed []string
	for i := 0; i < 100; i++ {
		slug := fmt.Sprintf("entry-%d", i)
		require.NoError(t, s.SaveEntry(ctx, sampleEntry(slug, date(2024, 2, 1), true)))
		c.Invalidate()
		if _, err := c.GetPublished(ctx, slug, readAt); err != nil {
			missed = append(missed, slug)
		}
	}
	close(stop)
	wg.Wait()
	assert.Empty(t, missed, "entries saved before Invalidate must be visible to later reads")

	got, err := c.PublishedEntries(ctx, readAt)
	require.NoError(t, err)
	assert.Len(t, got, 101)
}

func TestEntryCacheLoadIgnoresCallerCancellation(t *testing.T) {
	s := setupTestStore(t)
	require.NoError(t, s.SaveEntry(context.Background(), sampleEntry("one", date(2024, 1, 1), true)))
	c := NewEntryCache(s, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := c.PublishedEntries(ctx, date(2024, 6, 1))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
