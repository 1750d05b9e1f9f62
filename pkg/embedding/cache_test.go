package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// countingProvider returns a fixed vector per text and counts backend calls.
type countingProvider struct {
	calls int
	fail  error
}

func (p *countingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.calls++
	if p.fail != nil {
		return nil, fmt.Errorf("%w: backend down", p.fail)
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func TestCacheMemoizesProviderCalls(t *testing.T) {
	ctx := context.Background()
	provider := &countingProvider{}
	c := NewCache(provider)

	first, err := c.Get(ctx, "hello world")
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	second, err := c.Get(ctx, "hello world")
	if err != nil {
		t.Fatalf("second get: %v", err)
	}

	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.calls)
	}
	if len(first) != len(second) {
		t.Errorf("cached vector length changed: %d vs %d", len(first), len(second))
	}
}

func TestCacheNormalizesKeys(t *testing.T) {
	ctx := context.Background()
	provider := &countingProvider{}
	c := NewCache(provider)

	if _, err := c.Get(ctx, "Hello   World"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := c.Get(ctx, "hello world"); err != nil {
		t.Fatalf("get normalized twin: %v", err)
	}

	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1 (keys should normalize to the same entry)", provider.calls)
	}
}

func TestCachePropagatesProviderFailure(t *testing.T) {
	ctx := context.Background()
	provider := &countingProvider{fail: ErrUnavailable}
	c := NewCache(provider)

	_, err := c.Get(ctx, "anything")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}

	// No internal retry: exactly one backend call per Get.
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.calls)
	}

	// The failed lookup must not poison the cache.
	provider.fail = nil
	if _, err := c.Get(ctx, "anything"); err != nil {
		t.Fatalf("get after recovery: %v", err)
	}
	if provider.calls != 2 {
		t.Errorf("provider calls = %d, want 2", provider.calls)
	}
}

func TestCacheExportImport(t *testing.T) {
	ctx := context.Background()
	provider := &countingProvider{}
	c := NewCache(provider)

	if _, err := c.Get(ctx, "returns are accepted"); err != nil {
		t.Fatalf("get: %v", err)
	}

	entries := c.Export([]string{"returns are accepted", "never embedded"})
	if len(entries) != 1 {
		t.Fatalf("exported %d entries, want 1", len(entries))
	}

	fresh := NewCache(&countingProvider{fail: ErrUnavailable})
	fresh.Import(entries)

	if _, err := fresh.Get(ctx, "Returns  Are Accepted"); err != nil {
		t.Errorf("imported entry should serve without touching the provider: %v", err)
	}
}
