package secondaryd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replogio/replog/internal/replog"
)

func TestLog_InOrderDelivery(t *testing.T) {
	l := NewLog()
	assert.Equal(t, outcomeApplied, l.Replicate(replog.Message{ID: 1, Text: "A"}))
	assert.Equal(t, outcomeApplied, l.Replicate(replog.Message{ID: 2, Text: "B"}))

	snap := l.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "A", snap[0].Text)
	assert.Equal(t, "B", snap[1].Text)
	assert.Equal(t, 0, l.PendingSize())
}

func TestLog_OutOfOrderArrivalIsBufferedThenDrained(t *testing.T) {
	l := NewLog()
	assert.Equal(t, outcomeBuffered, l.Replicate(replog.Message{ID: 2, Text: "Y"}))
	assert.Empty(t, l.Snapshot())
	assert.Equal(t, 1, l.PendingSize())

	assert.Equal(t, outcomeApplied, l.Replicate(replog.Message{ID: 1, Text: "X"}))

	snap := l.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "X", snap[0].Text)
	assert.Equal(t, "Y", snap[1].Text)
	assert.Equal(t, 0, l.PendingSize())
}

func TestLog_DrainsContiguousRunAcrossMultipleGaps(t *testing.T) {
	l := NewLog()
	l.Replicate(replog.Message{ID: 4, Text: "D"})
	l.Replicate(replog.Message{ID: 3, Text: "C"})
	l.Replicate(replog.Message{ID: 2, Text: "B"})
	require.Equal(t, 3, l.PendingSize())
	require.Empty(t, l.Snapshot())

	assert.Equal(t, outcomeApplied, l.Replicate(replog.Message{ID: 1, Text: "A"}))

	snap := l.Snapshot()
	require.Len(t, snap, 4)
	for i, text := range []string{"A", "B", "C", "D"} {
		assert.Equal(t, text, snap[i].Text)
	}
	assert.Equal(t, 0, l.PendingSize())
}

func TestLog_DuplicateAfterDeliveryIsIgnored(t *testing.T) {
	l := NewLog()
	l.Replicate(replog.Message{ID: 1, Text: "A"})

	assert.Equal(t, outcomeDuplicate, l.Replicate(replog.Message{ID: 1, Text: "A"}))
	assert.Len(t, l.Snapshot(), 1)
}

func TestLog_RepeatedBufferedRetryOverwritesSameID(t *testing.T) {
	l := NewLog()
	l.Replicate(replog.Message{ID: 2, Text: "first"})
	l.Replicate(replog.Message{ID: 2, Text: "first"})
	assert.Equal(t, 1, l.PendingSize())
}
