package conversation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTranscriptStore(t *testing.T) (*TranscriptStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewTranscriptStore(rdb), mr
}

func TestTranscriptStoreAppendAndList(t *testing.T) {
	store, mr := newTestTranscriptStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "s1", TranscriptMessage{Role: ChatRoleUser, Body: "hi"}))
	require.NoError(t, store.Append(ctx, "s1", TranscriptMessage{Role: ChatRoleAssistant, Body: "hello", Intent: IntentOther}))

	msgs, err := store.List(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Body)
	assert.NotEmpty(t, msgs[0].ID)
	assert.False(t, msgs[0].Timestamp.IsZero())
	assert.Equal(t, IntentOther, msgs[1].Intent)

	assert.Equal(t, transcriptTTL, mr.TTL(transcriptKeyPrefix+"s1"))

	last, err := store.List(ctx, "s1", 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "hello", last[0].Body)
}

func TestTranscriptStoreTrimsToCap(t *testing.T) {
	store, _ := newTestTranscriptStore(t)
	store.maxMessages = 3
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, "s", TranscriptMessage{Role: ChatRoleUser, Body: fmt.Sprintf("m%d", i)}))
	}
	msgs, err := store.List(ctx, "s", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "m2", msgs[0].Body)
	assert.Equal(t, "m4", msgs[2].Body)
}

func TestTranscriptStoreSkipsCorruptEntries(t *testing.T) {
	store, _ := newTestTranscriptStore(t)
	ctx := context.Background()

	require.NoError(t, store.redis.RPush(ctx, transcriptKeyPrefix+"s", "not-json").Err())
	require.NoError(t, store.Append(ctx, "s", TranscriptMessage{Role: ChatRoleUser, Body: "ok", Timestamp: time.Now()}))

	msgs, err := store.List(ctx, "s", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "ok", msgs[0].Body)
}

func TestTranscriptStoreNilSafe(t *testing.T) {
	var store *TranscriptStore
	assert.Nil(t, NewTranscriptStore(nil))
	assert.NoError(t, store.Append(context.Background(), "s", TranscriptMessage{Body: "x"}))
	msgs, err := store.List(context.Background(), "s", 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	live, _ := newTestTranscriptStore(t)
	assert.Error(t, live.Append(context.Background(), "", TranscriptMessage{}))
	_, err = live.List(context.Background(), "", 0)
	assert.Error(t, err)
}
