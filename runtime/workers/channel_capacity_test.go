package workers

import (
	"alumni-chat/observability"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestChannelCapacityWorker_Sample(t *testing.T) {
	req := require.New(t)
	changes := make(chan int, 8)
	changes <- 1
	changes <- 2

	worker := NewChannelCapacityWorker(slog.Default(), []NamedChannel{
		{Name: "test_changes", Channel: changes},
		{Name: "not_a_channel", Channel: 42},
	}, 0)

	worker.Sample()

	req.Equal(float64(8), testutil.ToFloat64(observability.ChannelCapacity.WithLabelValues("test_changes")))
	req.Equal(float64(2), testutil.ToFloat64(observability.ChannelLength.WithLabelValues("test_changes")))
}
