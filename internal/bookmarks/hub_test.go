package bookmarks

import (
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/recipebox/internal/model"
)

func refs(n int) []model.BookmarkRef {
	out := make([]model.BookmarkRef, n)
	for i := range out {
		out[i] = model.BookmarkRef{RecipeID: uuid.Must(uuid.NewV4())}
	}
	return out
}

func TestHub_ScopedDelivery(t *testing.T) {
	h := NewHub()
	alice, stopA := h.Subscribe("alice")
	defer stopA()
	bob, stopB := h.Subscribe("bob")
	defer stopB()

	h.Publish("alice", refs(2))

	select {
	case got := <-alice:
		require.Len(t, got, 2)
	case <-time.After(time.Second):
		t.Fatal("alice got nothing")
	}
	select {
	case got := <-bob:
		t.Fatalf("bob got %v", got)
	default:
	}
}

func TestHub_LatestWins(t *testing.T) {
	h := NewHub()
	ch, stop := h.Subscribe("u")
	defer stop()

	h.Publish("u", refs(1))
	h.Publish("u", refs(2))
	h.Publish("u", refs(3))

	got := <-ch
	require.Len(t, got, 3)
	select {
	case extra := <-ch:
		t.Fatalf("stale list delivered: %v", extra)
	default:
	}
}

func TestHub_PublishCopies(t *testing.T) {
	h := NewHub()
	ch, stop := h.Subscribe("u")
	defer stop()

	list := refs(1)
	h.Publish("u", list)
	list[0].RecipeID = uuid.Nil
	require.NotEqual(t, uuid.Nil, (<-ch)[0].RecipeID)
}

func TestHub_UnsubscribeIdempotent(t *testing.T) {
	h := NewHub()
	ch, stop := h.Subscribe("u")
	require.Equal(t, 1, h.Subscribers("u"))

	stop()
	stop()
	require.Equal(t, 0, h.Subscribers("u"))
	_, open := <-ch
	require.False(t, open)

	h.Publish("u", refs(1))
}

func TestHub_SubscribeFrom(t *testing.T) {
	h := NewHub()
	ch, stop := h.SubscribeFrom("u", refs(4))
	defer stop()
	require.Len(t, <-ch, 4)

	empty, stop2 := h.SubscribeFrom("u", nil)
	defer stop2()
	got := <-empty
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestHub_ConcurrentPublishAndUnsubscribe(t *testing.T) {
	h := NewHub()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		ch, stop := h.Subscribe("u")
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.Publish("u", refs(1))
			}
		}()
		go func() {
			defer wg.Done()
			<-ch
			stop()
		}()
	}
	wg.Wait()
	require.Equal(t, 0, h.Subscribers("u"))
}
