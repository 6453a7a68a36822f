package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCacheRequestsIncrement(t *testing.T) {
	before := testutil.ToFloat64(CacheRequests.WithLabelValues("bio", "hit"))
	CacheRequests.WithLabelValues("bio", "hit").Inc()
	after := testutil.ToFloat64(CacheRequests.WithLabelValues("bio", "hit"))

	if after-before != 1 {
		t.Errorf("expected counter to grow by 1, grew by %f", after-before)
	}
}

func TestWriteTextfile(t *testing.T) {
	TokensUsed.WithLabelValues("test-model").Add(42)

	path := filepath.Join(t.TempDir(), "petcore.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read textfile: %v", err)
	}
	if !strings.Contains(string(data), "petcore_tokens_used_total") {
		t.Error("expected tokens metric in textfile output")
	}
}
