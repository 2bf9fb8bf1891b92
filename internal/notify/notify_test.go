package notify

import (
	"fmt"
	"testing"

	"github.com/Conversly/storefront/internal/types"
)

func TestFeedDrainOrder(t *testing.T) {
	f := NewFeed(10)
	f.Success("Added to cart")
	f.Error("Failed to update cart")

	got := f.Drain()
	if len(got) != 2 {
		t.Fatalf("expected 2 notices, got %d", len(got))
	}
	if got[0].Level != types.NoticeSuccess || got[1].Level != types.NoticeError {
		t.Fatalf("unexpected order: %+v", got)
	}
	if f.Pending() != 0 {
		t.Fatal("feed should be empty after drain")
	}
	if empty := f.Drain(); empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", empty)
	}
}

func TestFeedCapacityKeepsNewest(t *testing.T) {
	f := NewFeed(3)
	for i := 0; i < 5; i++ {
		f.Success(fmt.Sprintf("n%d", i))
	}
	got := f.Drain()
	if len(got) != 3 || got[0].Message != "n2" || got[2].Message != "n4" {
		t.Fatalf("unexpected notices: %+v", got)
	}
}
