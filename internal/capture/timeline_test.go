package capture

import (
	"context"
	"testing"
	"time"
)

func TestTimelineMarksNonDecreasing(t *testing.T) {
	tl := NewTimeline(time.Now())
	tl.Mark("dns")
	tl.Mark("connect")
	tl.Mark("first_byte")

	marks := tl.Marks()
	if len(marks) != 3 {
		t.Fatalf("expected 3 marks, got %d", len(marks))
	}
	for i := 1; i < len(marks); i++ {
		if marks[i].Offset < marks[i-1].Offset {
			t.Errorf("mark %q offset %s precedes %q offset %s",
				marks[i].Name, marks[i].Offset, marks[i-1].Name, marks[i-1].Offset)
		}
	}
}

func TestTimelineMarksAreACopy(t *testing.T) {
	tl := NewTimeline(time.Now())
	tl.Mark("a")

	marks := tl.Marks()
	tl.Mark("b")

	if len(marks) != 1 {
		t.Fatalf("earlier copy has %d marks, want 1", len(marks))
	}
}

func TestTimelineContextRoundTrip(t *testing.T) {
	if _, ok := TimelineFrom(context.Background()); ok {
		t.Fatal("empty context should carry no timeline")
	}

	tl := NewTimeline(time.Now())
	ctx := WithTimeline(context.Background(), tl)

	got, ok := TimelineFrom(ctx)
	if !ok {
		t.Fatal("timeline should be retrievable from context")
	}
	if got != tl {
		t.Fatal("retrieved timeline is not the one stored")
	}
}
