package buffer

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestUnboundedPreservesOrder(t *testing.T) {
	in, out := Unbounded[int](4, 1000, nil)
	for i := range 100 {
		in <- i
	}
	close(in)

	want := 0
	for v := range out {
		if v != want {
			t.Fatalf("got %d, want %d", v, want)
		}
		want++
	}
	if want != 100 {
		t.Fatalf("received %d items, want 100", want)
	}
}

func TestUnboundedDropsOldestAtLimit(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	in, out := Unbounded[int](4, 3, logger)

	// Nothing reads until the input is closed, so the queue fills past the limit.
	for i := range 50 {
		in <- i
	}
	close(in)

	var got []int
	for v := range out {
		got = append(got, v)
	}
	if len(got) >= 50 {
		t.Fatalf("nothing dropped: %d items", len(got))
	}
	if got[len(got)-1] != 49 {
		t.Fatalf("last item = %d, want the newest", got[len(got)-1])
	}
	if !strings.Contains(buf.String(), "queue limit reached") {
		t.Fatalf("no warning logged: %q", buf.String())
	}
}

func TestUnboundedCloseFlushesQueue(t *testing.T) {
	in, out := Unbounded[string](2, 100, nil)
	in <- "a"
	if got := <-out; got != "a" {
		t.Fatalf("got %q, want a", got)
	}

	for _, s := range []string{"b", "c", "d"} {
		in <- s
	}
	close(in)

	var rest []string
	for s := range out {
		rest = append(rest, s)
	}
	if strings.Join(rest, "") != "bcd" {
		t.Fatalf("flushed %q, want [b c d]", rest)
	}
	if _, ok := <-out; ok {
		t.Fatal("output still open after flush")
	}
}
