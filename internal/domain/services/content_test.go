package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredcamaral/slidekiosk/internal/domain/entities"
)

func newTestStore(t *testing.T, opts ContentOptions) (*ContentService, *memRepo, *eventLog) {
	t.Helper()
	repo := newMemRepo(entities.NewPaths(t.TempDir()))
	store := NewContentService(repo, nil, opts, nil)
	log := &eventLog{}
	store.AddObserver(log.record)
	return store, repo, log
}

func writeTestImage(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte("img"), 0600))
	return p
}

func ev(action entities.SlideAction, id int) entities.SlideEvent {
	return entities.SlideEvent{Action: action, SlideID: id}
}

func TestContentService_LoadFromFile_Defaults(t *testing.T) {
	store, repo, log := newTestStore(t, ContentOptions{SeedDefaults: true, BackupEnabled: true})

	require.NoError(t, store.LoadFromFile(context.Background()))

	assert.Equal(t, []int{1, 2, 3, 4, 5}, store.SlideIDs())
	slide, err := store.GetSlide(1)
	require.NoError(t, err)
	assert.Equal(t, "BumbleB - Das automatisierte Shuttle", slide.Title)

	assert.Equal(t, []entities.SlideEvent{
		ev(entities.SlideLoaded, 1), ev(entities.SlideLoaded, 2), ev(entities.SlideLoaded, 3),
		ev(entities.SlideLoaded, 4), ev(entities.SlideLoaded, 5),
	}, log.all())

	idx := repo.savedIndex()
	require.NotNil(t, idx)
	assert.Equal(t, 5, idx.TotalSlides)
	assert.Equal(t, entities.SchemaVersion, idx.Version)
	assert.Len(t, repo.records, 5)
	for _, dir := range repo.paths.BaseDirectories() {
		assert.DirExists(t, dir)
	}
}

func TestContentService_LoadFromFile_MalformedIndexFallsBack(t *testing.T) {
	store, repo, _ := newTestStore(t, ContentOptions{SeedDefaults: true})
	repo.loadErr = errors.New("unexpected end of JSON input")

	require.NoError(t, store.LoadFromFile(context.Background()))
	assert.Equal(t, 5, store.SlideCount())
}

func TestContentService_LoadFromFile_UnreadableIndexKeepsSlides(t *testing.T) {
	store, repo, log := newTestStore(t, ContentOptions{SeedDefaults: true, BackupEnabled: true})
	require.NoError(t, store.CreateSlide(10, "operator", "", entities.LayoutText))
	require.NoError(t, store.CreateSlide(11, "deck", "", entities.LayoutText))
	log.reset()
	saves := repo.indexes

	repo.loadErr = errors.New("unexpected end of JSON input")
	err := store.LoadFromFile(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading slide index")
	assert.Contains(t, err.Error(), "unexpected end of JSON input")

	assert.Equal(t, []int{10, 11}, store.SlideIDs())
	slide, err := store.GetSlide(10)
	require.NoError(t, err)
	assert.Equal(t, "operator", slide.Title)

	assert.Empty(t, log.all())
	assert.Equal(t, saves, repo.indexes, "index must not be overwritten")
	assert.Equal(t, 2, repo.savedIndex().TotalSlides)
}

func TestContentService_LoadFromFile_NoSeed(t *testing.T) {
	store, repo, log := newTestStore(t, ContentOptions{})

	require.NoError(t, store.LoadFromFile(context.Background()))
	assert.Zero(t, store.SlideCount())
	assert.Empty(t, log.all())
	assert.Nil(t, repo.savedIndex())
}

func TestContentService_LoadFromFile_Index(t *testing.T) {
	store, repo, log := newTestStore(t, ContentOptions{AutoCleanup: true})

	idx := entities.SlideIndex{Slides: map[string]entities.SlideRecord{
		"7": {SlideID: 99, Title: "seven", ExtraData: map[string]interface{}{
			entities.CanvasElementsKey: []interface{}{
				map[string]interface{}{"type": "image", "file_path": "/nowhere/missing.png"},
				map[string]interface{}{"type": "text", "text": "kept"},
			},
		}},
		"2": {Title: "two", Layout: "image"},
	}}
	repo.index = &idx

	require.NoError(t, store.LoadFromFile(context.Background()))

	assert.Equal(t, []int{2, 7}, store.SlideIDs())
	assert.Equal(t, []entities.SlideEvent{ev(entities.SlideLoaded, 2), ev(entities.SlideLoaded, 7)}, log.all())

	seven, err := store.GetSlide(7)
	require.NoError(t, err)
	assert.Equal(t, 7, seven.ID)
	assert.Empty(t, seven.Images())
	assert.Len(t, seven.CanvasElements(), 1)

	two, err := store.GetSlide(2)
	require.NoError(t, err)
	assert.Equal(t, entities.LayoutImage, two.Layout)
}

func TestContentService_CreateSlide(t *testing.T) {
	store, repo, log := newTestStore(t, ContentOptions{})

	require.NoError(t, store.CreateSlide(3, "Three", "body", entities.LayoutText))
	require.NoError(t, store.CreateSlide(3, "Three again", "", entities.LayoutMixed))

	assert.Equal(t, []entities.SlideEvent{ev(entities.SlideCreated, 3), ev(entities.SlideCreated, 3)}, log.all())

	slide, err := store.GetSlide(3)
	require.NoError(t, err)
	assert.Equal(t, "Three again", slide.Title)
	assert.Equal(t, entities.LayoutMixed, slide.Layout)
	assert.DirExists(t, repo.paths.ImagesDir(3))
	assert.Equal(t, "Three again", repo.records[3].Title)
	assert.Equal(t, 1, repo.savedIndex().TotalSlides)
	assert.Zero(t, repo.backups)
}

func TestContentService_UpdateSlideContent(t *testing.T) {
	store, _, log := newTestStore(t, ContentOptions{})

	t.Run("creates when absent", func(t *testing.T) {
		require.NoError(t, store.UpdateSlideContent(1, "T", "C", map[string]interface{}{"a": 1.0, "b": "x"}))
		slide, err := store.GetSlide(1)
		require.NoError(t, err)
		assert.Equal(t, "T", slide.Title)
		assert.Equal(t, map[string]interface{}{"a": 1.0, "b": "x"}, slide.ExtraData)
	})

	t.Run("merges by top-level key", func(t *testing.T) {
		require.NoError(t, store.UpdateSlideContent(1, "T2", "C2", map[string]interface{}{"b": "y", "c": true}))
		slide, err := store.GetSlide(1)
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"a": 1.0, "b": "y", "c": true}, slide.ExtraData)
	})

	t.Run("nil extra leaves extra data untouched", func(t *testing.T) {
		before, err := store.GetSlide(1)
		require.NoError(t, err)

		require.NoError(t, store.UpdateSlideContent(1, "T3", "C3", nil))
		slide, err := store.GetSlide(1)
		require.NoError(t, err)
		assert.Equal(t, before.ExtraData, slide.ExtraData)
		assert.Equal(t, "T3", slide.Title)
		assert.False(t, slide.ModifiedAt.Before(before.ModifiedAt))
	})

	t.Run("replace swaps extra data wholesale", func(t *testing.T) {
		require.NoError(t, store.ReplaceSlideContent(1, "T4", "C4", map[string]interface{}{"only": "this"}))
		slide, err := store.GetSlide(1)
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"only": "this"}, slide.ExtraData)
	})

	t.Run("caller map is not retained", func(t *testing.T) {
		extra := map[string]interface{}{"nested": map[string]interface{}{"k": "v"}}
		require.NoError(t, store.UpdateSlideContent(1, "T5", "C5", extra))
		extra["nested"].(map[string]interface{})["k"] = "changed"

		slide, err := store.GetSlide(1)
		require.NoError(t, err)
		assert.Equal(t, "v", slide.ExtraData["nested"].(map[string]interface{})["k"])
	})

	for _, e := range log.all() {
		assert.Equal(t, ev(entities.SlideUpdated, 1), e)
	}
	assert.Len(t, log.all(), 5)
}

func TestContentService_GetSlide(t *testing.T) {
	store, _, _ := newTestStore(t, ContentOptions{})

	_, err := store.GetSlide(42)
	assert.ErrorIs(t, err, entities.ErrSlideNotFound)

	require.NoError(t, store.CreateSlide(1, "Original", "", entities.LayoutText))
	copy1, err := store.GetSlide(1)
	require.NoError(t, err)
	copy1.Title = "mutated"
	copy1.ExtraData["x"] = 1

	fresh, err := store.GetSlide(1)
	require.NoError(t, err)
	assert.Equal(t, "Original", fresh.Title)
	assert.NotContains(t, fresh.ExtraData, "x")

	all := store.GetAllSlides()
	require.Contains(t, all, 1)
	all[1].Title = "also mutated"
	fresh, _ = store.GetSlide(1)
	assert.Equal(t, "Original", fresh.Title)
}

func TestContentService_SelfHealingRead(t *testing.T) {
	store, _, log := newTestStore(t, ContentOptions{AutoCleanup: true})
	require.NoError(t, store.CreateSlide(1, "T", "", entities.LayoutImage))

	path, err := store.AddImage(1, writeTestImage(t, "a.png"), nil)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))
	log.reset()

	first, err := store.GetSlide(1)
	require.NoError(t, err)
	assert.Empty(t, first.Images())

	second, err := store.GetSlide(1)
	require.NoError(t, err)
	assert.Empty(t, second.Images())
	assert.Equal(t, first.ModifiedAt, second.ModifiedAt)

	all := store.GetAllSlides()
	assert.Empty(t, all[1].Images())
	assert.Empty(t, log.all())
}

func TestContentService_DeleteSlide(t *testing.T) {
	store, repo, log := newTestStore(t, ContentOptions{})
	require.NoError(t, store.CreateSlide(1, "T", "", entities.LayoutText))
	require.NoError(t, store.CreateSlide(2, "T", "", entities.LayoutText))
	log.reset()

	require.NoError(t, store.DeleteSlide(1))
	assert.Equal(t, []int{2}, store.SlideIDs())
	assert.NoDirExists(t, repo.paths.SlideDir(1))
	assert.Equal(t, []entities.SlideEvent{ev(entities.SlideDeleted, 1)}, log.all())
	assert.Equal(t, 1, repo.savedIndex().TotalSlides)

	err := store.DeleteSlide(1)
	assert.ErrorIs(t, err, entities.ErrSlideNotFound)
	assert.Len(t, log.all(), 1)
}

func TestContentService_DuplicateSlide(t *testing.T) {
	store, repo, log := newTestStore(t, ContentOptions{})
	require.NoError(t, store.CreateSlide(1, "Intro", "hello", entities.LayoutMixed))
	require.NoError(t, store.CreateSlide(4, "Other", "", entities.LayoutText))
	_, err := store.AddImage(1, writeTestImage(t, "a.png"), &entities.Placement{X: 1, Y: 2, Width: 30, Height: 40})
	require.NoError(t, err)
	log.reset()

	newID, err := store.DuplicateSlide(1, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, newID)
	assert.Equal(t, []entities.SlideEvent{ev(entities.SlideCreated, 5)}, log.all())

	dup, err := store.GetSlide(5)
	require.NoError(t, err)
	assert.Equal(t, "Intro (Copy)", dup.Title)
	assert.Equal(t, "hello", dup.Content)
	assert.Equal(t, entities.LayoutMixed, dup.Layout)
	images := dup.Images()
	require.Len(t, images, 1)
	assert.Equal(t, repo.paths.ImagesDir(5), filepath.Dir(images[0].FilePath()))
	assert.FileExists(t, images[0].FilePath())
	assert.Equal(t, entities.Placement{X: 1, Y: 2, Width: 30, Height: 40}, entities.PlacementOf(images[0]))

	t.Run("explicit target", func(t *testing.T) {
		id, err := store.DuplicateSlide(4, 10)
		require.NoError(t, err)
		assert.Equal(t, 10, id)
	})

	t.Run("taken target", func(t *testing.T) {
		_, err := store.DuplicateSlide(4, 1)
		assert.ErrorIs(t, err, entities.ErrSlideExists)
	})

	t.Run("missing source", func(t *testing.T) {
		_, err := store.DuplicateSlide(99, 0)
		assert.ErrorIs(t, err, entities.ErrSlideNotFound)
	})
}

func TestContentService_MoveSlide(t *testing.T) {
	store, repo, log := newTestStore(t, ContentOptions{AutoCleanup: true})
	require.NoError(t, store.CreateSlide(1, "Moving", "", entities.LayoutImage))
	require.NoError(t, store.CreateSlide(2, "Blocker", "", entities.LayoutText))
	_, err := store.AddImage(1, writeTestImage(t, "a.png"), nil)
	require.NoError(t, err)
	log.reset()

	require.NoError(t, store.MoveSlide(1, 8))

	assert.Equal(t, []int{2, 8}, store.SlideIDs())
	assert.Equal(t, []entities.SlideEvent{ev(entities.SlideDeleted, 1), ev(entities.SlideCreated, 8)}, log.all())
	assert.NoDirExists(t, repo.paths.SlideDir(1))

	moved, err := store.GetSlide(8)
	require.NoError(t, err)
	require.Len(t, moved.Images(), 1)
	assert.Equal(t, repo.paths.ImagesDir(8), filepath.Dir(moved.Images()[0].FilePath()))
	assert.FileExists(t, moved.Images()[0].FilePath())

	t.Run("target exists", func(t *testing.T) {
		log.reset()
		err := store.MoveSlide(8, 2)
		assert.ErrorIs(t, err, entities.ErrSlideExists)
		assert.Empty(t, log.all())
	})

	t.Run("same id is a no-op", func(t *testing.T) {
		log.reset()
		assert.NoError(t, store.MoveSlide(8, 8))
		assert.Empty(t, log.all())
	})

	t.Run("missing source", func(t *testing.T) {
		assert.ErrorIs(t, store.MoveSlide(50, 51), entities.ErrSlideNotFound)
	})
}

func TestContentService_Images(t *testing.T) {
	store, _, log := newTestStore(t, ContentOptions{})
	require.NoError(t, store.CreateSlide(1, "T", "", entities.LayoutImage))
	log.reset()

	path, err := store.AddImage(1, writeTestImage(t, "a.png"), nil)
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = store.AddImage(1, "/does/not/exist.png", nil)
	assert.ErrorIs(t, err, entities.ErrImageNotFound)

	_, err = store.AddImage(2, writeTestImage(t, "b.png"), nil)
	assert.ErrorIs(t, err, entities.ErrSlideNotFound)

	busy := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(busy, "inside.png"), []byte("img"), 0600))
	before, err := store.GetSlide(1)
	require.NoError(t, err)
	require.Error(t, store.RemoveImage(1, busy))
	after, err := store.GetSlide(1)
	require.NoError(t, err)
	assert.Equal(t, before.ModifiedAt, after.ModifiedAt, "a failed removal leaves the stored slide alone")
	assert.Len(t, after.Images(), 1)

	require.NoError(t, store.RemoveImage(1, path))
	assert.NoFileExists(t, path)

	slide, err := store.GetSlide(1)
	require.NoError(t, err)
	assert.Empty(t, slide.Images())

	assert.Equal(t, []entities.SlideEvent{ev(entities.SlideUpdated, 1), ev(entities.SlideUpdated, 1)}, log.all())
}

func TestContentService_SaveToFile(t *testing.T) {
	store, repo, _ := newTestStore(t, ContentOptions{BackupEnabled: true})
	require.NoError(t, store.CreateSlide(1, "T", "", entities.LayoutText))
	require.Zero(t, repo.backups)

	require.NoError(t, store.SaveToFile(context.Background()))
	assert.Equal(t, 1, repo.backups)
	assert.True(t, repo.savedIndex().BackupEnabled)
}

func TestContentService_PersistFailureStillNotifies(t *testing.T) {
	store, repo, log := newTestStore(t, ContentOptions{})
	repo.saveErr = errors.New("disk full")

	err := store.CreateSlide(1, "T", "", entities.LayoutText)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, []entities.SlideEvent{ev(entities.SlideCreated, 1)}, log.all())
	assert.Equal(t, 1, store.SlideCount())
}

func TestContentService_ObserverIsolation(t *testing.T) {
	store, _, log := newTestStore(t, ContentOptions{})
	store.AddObserver(func(entities.SlideEvent) { panic("observer failure") })
	after := &eventLog{}
	store.AddObserver(after.record)

	require.NoError(t, store.CreateSlide(1, "T", "", entities.LayoutText))
	assert.Len(t, log.all(), 1)
	assert.Len(t, after.all(), 1)
}

func TestContentService_ObserverMayRead(t *testing.T) {
	store, _, _ := newTestStore(t, ContentOptions{AutoCleanup: true})

	var titles []string
	sub := store.AddObserver(func(e entities.SlideEvent) {
		slide, err := store.GetSlide(e.SlideID)
		if err == nil {
			titles = append(titles, slide.Title)
		}
		_ = store.SlideIDs()
	})

	require.NoError(t, store.CreateSlide(1, "first", "", entities.LayoutText))
	require.NoError(t, store.UpdateSlideContent(1, "second", "", nil))
	sub.Unsubscribe()
	require.NoError(t, store.UpdateSlideContent(1, "third", "", nil))

	assert.Equal(t, []string{"first", "second"}, titles)
}

func TestContentService_ObserverMayWrite(t *testing.T) {
	store, repo, log := newTestStore(t, ContentOptions{})

	store.AddObserver(func(e entities.SlideEvent) {
		if e.Action == entities.SlideCreated && e.SlideID == 1 {
			_ = store.UpdateSlideContent(1, "stamped", "by observer", nil)
		}
	})

	done := make(chan error, 1)
	go func() { done <- store.CreateSlide(1, "new", "", entities.LayoutText) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("CreateSlide blocked on an observer writing back")
	}

	assert.Equal(t, []entities.SlideEvent{ev(entities.SlideCreated, 1), ev(entities.SlideUpdated, 1)}, log.all())

	slide, err := store.GetSlide(1)
	require.NoError(t, err)
	assert.Equal(t, "stamped", slide.Title)
	assert.Equal(t, "stamped", repo.savedIndex().Slides["1"].Title)
}

func TestContentService_ConcurrentWritesNotifyOncePerWrite(t *testing.T) {
	store, _, log := newTestStore(t, ContentOptions{})

	var wg sync.WaitGroup
	for i := 1; i <= 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.UpdateSlideContent(i%4+1, "t", "c", map[string]interface{}{"n": i})
		}(i)
	}
	wg.Wait()

	assert.Len(t, log.all(), 40)
	assert.Equal(t, []int{1, 2, 3, 4}, store.SlideIDs())
}

func TestContentService_Statistics(t *testing.T) {
	store, _, _ := newTestStore(t, ContentOptions{})
	require.NoError(t, store.CreateSlide(1, "T", "12345", entities.LayoutText))
	require.NoError(t, store.CreateSlide(2, "T", "abc", entities.LayoutImage))
	_, err := store.AddImage(2, writeTestImage(t, "a.png"), nil)
	require.NoError(t, err)

	stats := store.Statistics()
	assert.Equal(t, 2, stats.TotalSlides)
	assert.Equal(t, 1, stats.TotalImages)
	assert.Equal(t, 8, stats.TotalContentLength)
	assert.Equal(t, map[string]int{"text": 1, "image": 1}, stats.Layouts)
	assert.Equal(t, []int{1, 2}, stats.SlideIDs)
}
