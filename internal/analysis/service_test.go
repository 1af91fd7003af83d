package analysis_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/foodlens/internal/analysis"
	"github.com/edgard/foodlens/internal/cache"
	errs "github.com/edgard/foodlens/internal/errors"
	"github.com/edgard/foodlens/internal/imaging"
	"github.com/edgard/foodlens/internal/nutrition"
	"github.com/edgard/foodlens/internal/resilience"
	"github.com/edgard/foodlens/internal/storage"
)

type fakeExtractor struct {
	facts *nutrition.Facts
	err   error
	calls int
	seen  imaging.Image
}

func (f *fakeExtractor) ExtractNutrition(_ context.Context, img imaging.Image) (*nutrition.Facts, error) {
	f.calls++
	f.seen = img
	if f.err != nil {
		return nil, f.err
	}
	facts := *f.facts
	return &facts, nil
}

type fakeStore struct {
	failures int
	uploads  int
	objects  map[string][]byte
	types    map[string]string
	deleted  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeStore) Upload(_ context.Context, data []byte, contentType, filename string) (storage.Object, error) {
	f.uploads++
	if f.uploads <= f.failures {
		return storage.Object{}, errs.NewStorageError("bucket unavailable", errors.New("503"))
	}
	key := storage.ObjectName(time.Now(), contentType, filename)
	f.objects[key] = data
	f.types[key] = contentType
	return storage.Object{Path: key, URL: "https://cdn.example/" + key}, nil
}

func (f *fakeStore) Delete(_ context.Context, objectPath string) error {
	f.deleted = append(f.deleted, objectPath)
	delete(f.objects, objectPath)
	return nil
}

type fakeRepo struct {
	mu       sync.Mutex
	failures int
	saves    int
	gets     int
	records  map[string]*nutrition.Record
	since    time.Time
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: map[string]*nutrition.Record{}}
}

func (f *fakeRepo) SaveAnalysis(_ context.Context, r *nutrition.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saves <= f.failures {
		return errs.NewPersistenceError("database locked", errors.New("busy"))
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	stored := *r
	f.records[r.ID] = &stored
	return nil
}

func (f *fakeRepo) GetAnalysis(_ context.Context, id string) (*nutrition.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	r, ok := f.records[id]
	if !ok {
		return nil, errs.NewNotFoundError("analysis not found")
	}
	out := *r
	return &out, nil
}

func (f *fakeRepo) ListAnalyses(_ context.Context, limit, offset int) ([]*nutrition.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]*nutrition.Record, 0, len(f.records))
	for _, r := range f.records {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return []*nutrition.Record{}, nil
	}
	return all[offset:min(offset+limit, len(all))], nil
}

func (f *fakeRepo) CountAnalyses(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.records)), nil
}

func (f *fakeRepo) DeleteAnalysis(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[id]; !ok {
		return errs.NewNotFoundError("analysis not found")
	}
	delete(f.records, id)
	return nil
}

func (f *fakeRepo) GetStatistics(_ context.Context, since time.Time) (*nutrition.Statistics, error) {
	f.since = since
	return &nutrition.Statistics{TotalMeals: int64(len(f.records))}, nil
}

type fakeNotifier struct{ published []*nutrition.Record }

func (f *fakeNotifier) Publish(r *nutrition.Record) { f.published = append(f.published, r) }

type fixture struct {
	extractor *fakeExtractor
	store     *fakeStore
	repo      *fakeRepo
	notifier  *fakeNotifier
	svc       *analysis.Service
}

func goodFacts() *nutrition.Facts {
	score := 64
	return &nutrition.Facts{
		FoodName: "Burrito", Calories: 650, Sugar: 4, Protein: 28, Carbs: 70, Fat: 24, Fiber: 9,
		HealthScore: &score, Notes: "Beans and rice",
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		extractor: &fakeExtractor{facts: goodFacts()},
		store:     newFakeStore(),
		repo:      newFakeRepo(),
		notifier:  &fakeNotifier{},
	}
	memCache := cache.NewMemoryCache()
	t.Cleanup(func() { _ = memCache.Close() })

	f.svc = analysis.NewService(analysis.ServiceDeps{
		Extractor: f.extractor,
		Store:     f.store,
		Repo:      f.repo,
		Cache:     memCache,
		Notifier:  f.notifier,
	}, analysis.Options{
		Retry: resilience.Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond},
	})
	return f
}

// paddedJPEG returns a decodable JPEG grown to size bytes with trailing data.
func paddedJPEG(t *testing.T, size int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8)), nil))
	require.Less(t, buf.Len(), size)
	return append(buf.Bytes(), make([]byte, size-buf.Len())...)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h/2; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestAnalyzeAndStoreSuccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	rec, err := f.svc.AnalyzeAndStore(ctx, pngBytes(t, 32, 32), "meal.png")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "Burrito", rec.FoodName)
	assert.Equal(t, "https://cdn.example/"+rec.ImagePath, rec.ImageURL)
	assert.False(t, rec.CreatedAt.IsZero())

	assert.Equal(t, imaging.ContentType, f.extractor.seen.ContentType)
	assert.Equal(t, 1, f.store.uploads)
	assert.Equal(t, imaging.ContentType, f.store.types[rec.ImagePath])
	assert.Equal(t, 1, f.repo.saves)
	require.Len(t, f.notifier.published, 1)
	assert.Equal(t, rec.ID, f.notifier.published[0].ID)

	// Served from the cache without touching the repository.
	got, err := f.svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Facts, got.Facts)
	assert.Zero(t, f.repo.gets)
}

func TestAnalyzeAndStoreLargeTransparentImage(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec, err := f.svc.AnalyzeAndStore(context.Background(), pngBytes(t, 3000, 3000), "big.png")
	require.NoError(t, err)
	require.Equal(t, 1, f.store.uploads)

	stored := f.store.objects[rec.ImagePath]
	require.NotEmpty(t, stored)
	assert.Less(t, len(stored), imaging.DefaultMaxBytes)
	decoded, err := jpeg.Decode(bytes.NewReader(stored))
	require.NoError(t, err)
	assert.Equal(t, 3000, decoded.Bounds().Dx())
}

func TestAnalyzeAndStoreFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		raw         func(t *testing.T) []byte
		setup       func(f *fixture)
		wantCode    string
		wantExtract int
		wantUploads int
		wantSaves   int
	}{
		{
			name:     "not an image",
			raw:      func(*testing.T) []byte { return []byte("plain text") },
			wantCode: errs.CodeValidation,
		},
		{
			name:     "over the default ceiling",
			raw:      func(t *testing.T) []byte { return paddedJPEG(t, 15<<20) },
			wantCode: errs.CodeValidation,
		},
		{
			name:        "extractor failure",
			setup:       func(f *fixture) { f.extractor.err = errors.New("model overloaded") },
			wantCode:    errs.CodeAnalysis,
			wantExtract: 1,
		},
		{
			name: "zero calories",
			setup: func(f *fixture) {
				f.extractor.facts.Calories = 0
			},
			wantCode:    errs.CodeValidation,
			wantExtract: 1,
		},
		{
			name:        "upload keeps failing",
			setup:       func(f *fixture) { f.store.failures = 10 },
			wantCode:    errs.CodeStorage,
			wantExtract: 1,
			wantUploads: 3,
		},
		{
			name:        "save keeps failing",
			setup:       func(f *fixture) { f.repo.failures = 10 },
			wantCode:    errs.CodePersistence,
			wantExtract: 1,
			wantUploads: 1,
			wantSaves:   3,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			if tc.setup != nil {
				tc.setup(f)
			}
			raw := pngBytes(t, 16, 16)
			if tc.raw != nil {
				raw = tc.raw(t)
			}

			rec, err := f.svc.AnalyzeAndStore(context.Background(), raw, "x.png")
			assert.Nil(t, rec)
			require.Error(t, err)
			assert.Equal(t, tc.wantCode, errs.Code(err))
			assert.Equal(t, tc.wantExtract, f.extractor.calls)
			assert.Equal(t, tc.wantUploads, f.store.uploads)
			assert.Equal(t, tc.wantSaves, f.repo.saves)
			assert.Empty(t, f.repo.records)
			assert.Empty(t, f.notifier.published)
		})
	}
}

func TestAnalyzeAndStoreRetriesTransientFailures(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.store.failures = 2
	f.repo.failures = 1

	rec, err := f.svc.AnalyzeAndStore(context.Background(), pngBytes(t, 16, 16), "x.png")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, 3, f.store.uploads)
	assert.Equal(t, 2, f.repo.saves)
	assert.Len(t, f.store.objects, 1)
}

func TestGetErrors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.Get(context.Background(), "not-a-uuid")
	assert.True(t, errs.IsValidation(err))

	_, err = f.svc.Get(context.Background(), uuid.NewString())
	assert.True(t, errs.IsNotFound(err))
}

func TestHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	for i := 0; i < 3; i++ {
		_, err := f.svc.AnalyzeAndStore(ctx, pngBytes(t, 8, 8), "x.png")
		require.NoError(t, err)
	}

	page, err := f.svc.History(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, 2, page.Limit)

	for _, bad := range [][2]int{{0, 0}, {101, 0}, {10, -1}} {
		_, err := f.svc.History(ctx, bad[0], bad[1])
		assert.True(t, errs.IsValidation(err), "limit=%d offset=%d", bad[0], bad[1])
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	rec, err := f.svc.AnalyzeAndStore(ctx, pngBytes(t, 8, 8), "x.png")
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, rec.ID))
	assert.Equal(t, []string{rec.ImagePath}, f.store.deleted)

	_, err = f.svc.Get(ctx, rec.ID)
	assert.True(t, errs.IsNotFound(err), "cache must be evicted")

	assert.True(t, errs.IsNotFound(f.svc.Delete(ctx, rec.ID)))
}

func TestStatistics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	stats, err := f.svc.Statistics(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Days)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, -7), f.repo.since, time.Minute)

	_, err = f.svc.Statistics(ctx, 0)
	assert.True(t, errs.IsValidation(err))
	_, err = f.svc.Statistics(ctx, analysis.MaxStatsDays+1)
	assert.True(t, errs.IsValidation(err))
}
