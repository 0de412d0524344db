package collection

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWantTable echoes inserts back with a server id, like the remote
// store does.
type fakeWantTable struct {
	mu      sync.Mutex
	rows    []WantItem
	nextID  int
	patches map[string]string
}

func (f *fakeWantTable) List(_ context.Context) ([]WantItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]WantItem(nil), f.rows...), nil
}

func (f *fakeWantTable) Insert(_ context.Context, draft WantItem) (WantItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	draft.ID = fmt.Sprintf("want-%d", f.nextID)
	draft.CreatedAt = time.Now()
	f.rows = append([]WantItem{draft}, f.rows...)
	return draft, nil
}

func (f *fakeWantTable) Delete(_ context.Context, serverID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rows {
		if r.ID == serverID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeWantTable) UpdateImage(_ context.Context, serverID, imageURL string) (WantItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.patches == nil {
		f.patches = make(map[string]string)
	}
	f.patches[serverID] = imageURL
	for i, r := range f.rows {
		if r.ID == serverID {
			f.rows[i].ImageURL = imageURL
			return f.rows[i], nil
		}
	}
	return WantItem{}, nil
}

// A recognized product URL yields the extractor's derived image, not
// the category default.
func TestInsertUsesDerivedPreviewImage(t *testing.T) {
	c := New[WantItem](&fakeWantTable{}, WantItemSpec())

	entry, err := c.Insert(context.Background(), WantItem{
		ProductName: "Lamp",
		Category:    "home",
		ProductURL:  "https://marketplace.example/dp/ABCDEFGHIJ",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://images.marketplace.example/images/P/ABCDEFGHIJ.jpg", entry.Row.ImageURL)
}

// An unrecognized product URL falls back to the category default.
func TestInsertFallsBackToCategoryDefault(t *testing.T) {
	c := New[WantItem](&fakeWantTable{}, WantItemSpec())

	entry, err := c.Insert(context.Background(), WantItem{
		ProductName: "Mystery thing",
		Category:    "home",
		ProductURL:  "https://example.com/just/a/page",
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultImageForCategory("home"), entry.Row.ImageURL)
}

func TestInsertWithoutURLUsesCategoryDefault(t *testing.T) {
	c := New[WantItem](&fakeWantTable{}, WantItemSpec())

	entry, err := c.Insert(context.Background(), WantItem{
		ProductName: "Notebook",
		Category:    "unmapped-category",
	})
	require.NoError(t, err)
	assert.Equal(t, genericCategoryImage, entry.Row.ImageURL)
}

func TestInsertKeepsExplicitImage(t *testing.T) {
	c := New[WantItem](&fakeWantTable{}, WantItemSpec())

	entry, err := c.Insert(context.Background(), WantItem{
		ProductName: "Poster",
		Category:    "home",
		ImageURL:    "https://cdn.example/poster.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/poster.png", entry.Row.ImageURL)
}

func TestWantItemValidation(t *testing.T) {
	c := New[WantItem](&fakeWantTable{}, WantItemSpec())

	_, err := c.Insert(context.Background(), WantItem{Category: "home"})
	require.Error(t, err)

	_, err = c.Insert(context.Background(), WantItem{ProductName: "Lamp"})
	require.Error(t, err)
}
