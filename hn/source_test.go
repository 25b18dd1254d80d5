package hn

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockClient struct {
	top    []int
	topErr error
	items  map[int]*Item
}

func (m *mockClient) TopStories(ctx context.Context, limit int) ([]int, error) {
	if m.topErr != nil {
		return nil, m.topErr
	}
	if limit > 0 && limit < len(m.top) {
		return m.top[:limit], nil
	}
	return m.top, nil
}

func (m *mockClient) GetItem(ctx context.Context, id int) (*Item, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("item %d not found", id)
	}
	return item, nil
}

func TestLinkSource_Links(t *testing.T) {
	client := &mockClient{
		top: []int{1, 2, 3, 4, 5, 6},
		items: map[int]*Item{
			1: {ID: 1, Type: "story", URL: "https://one.example"},
			2: {ID: 2, Type: "story"},
			3: {ID: 3, Type: "job", URL: "https://jobs.example"},
			4: {ID: 4, Type: "story", URL: "https://dead.example", Dead: true},
			// 5 is missing
			6: {ID: 6, Type: "story", URL: "https://six.example"},
		},
	}

	links, err := NewLinkSource(client, 10, nil).Links(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://one.example",
		"https://news.ycombinator.com/item?id=2",
		"https://six.example",
	}, links)
}

func TestLinkSource_RespectsLimit(t *testing.T) {
	client := &mockClient{
		top: []int{1, 2, 3},
		items: map[int]*Item{
			1: {ID: 1, URL: "https://a"},
			2: {ID: 2, URL: "https://b"},
			3: {ID: 3, URL: "https://c"},
		},
	}

	links, err := NewLinkSource(client, 2, nil).Links(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a", "https://b"}, links)
}

func TestLinkSource_TopStoriesError(t *testing.T) {
	client := &mockClient{topErr: errors.New("unavailable")}

	_, err := NewLinkSource(client, 10, nil).Links(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unavailable")
}
