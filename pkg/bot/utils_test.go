package bot

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", 300)
	out := Truncate(long, 280)
	assert.Equal(t, 280, utf8.RuneCountInString(out))
	assert.Equal(t, strings.Repeat("a", 277)+"...", out)

	exact := strings.Repeat("b", 280)
	assert.Equal(t, exact, Truncate(exact, 280))

	assert.Equal(t, "short", Truncate("short", 280))
	assert.Equal(t, "🧠🧠...", Truncate("🧠🧠🧠🧠🧠🧠", 5))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
	assert.Equal(t, "", Truncate("abc", 0))
}

func TestSleep(t *testing.T) {
	assert.True(t, sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleep(ctx, time.Hour))
	assert.False(t, sleep(ctx, 0))
}

func TestNewPacer(t *testing.T) {
	pacer := newPacer(0)
	for i := 0; i < 5; i++ {
		require.NoError(t, pacer.Wait(context.Background()))
	}

	pacer = newPacer(30 * time.Millisecond)
	start := time.Now()
	require.NoError(t, pacer.Wait(context.Background()))
	require.NoError(t, pacer.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}
