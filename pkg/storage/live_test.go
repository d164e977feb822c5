package storage

import (
	"context"
	"testing"
	"time"

	"github.com/rubiojr/fanfic/pkg/storage/storagetest"
)

func TestLiveReopenSeesNewData(t *testing.T) {
	path := storagetest.NewDB(t, storagetest.Row{Title: "one"})

	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	live := NewLive(s)
	defer live.Close()

	storagetest.Exec(t, path, "INSERT INTO metadata_full (Title) VALUES ('two')")

	if err := live.Reopen(context.Background()); err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if live.Current() == s {
		t.Fatalf("Reopen did not swap the store")
	}

	res, err := live.Search(context.Background(), NewSearchFilter())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.TotalCount != 2 {
		t.Fatalf("TotalCount = %d, want 2", res.TotalCount)
	}
}

func TestLiveReopenFailureKeepsStore(t *testing.T) {
	path := storagetest.NewDB(t, storagetest.Row{Title: "one"})

	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	live := NewLive(s)
	defer live.Close()

	storagetest.Exec(t, path, "ALTER TABLE metadata_full RENAME TO gone")

	if err := live.Reopen(context.Background()); err == nil {
		t.Fatalf("Reopen should fail without the metadata table")
	}
	if live.Current() != s {
		t.Fatalf("failed Reopen replaced the store")
	}
}

func TestLiveReopenWaitsForRunningQueries(t *testing.T) {
	path := storagetest.NewDB(t, storagetest.Row{Title: "one"})

	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	live := NewLive(s)
	defer live.Close()

	// A request that picked the store up before the swap.
	held := live.acquire()

	done := make(chan error, 1)
	go func() {
		done <- live.Reopen(context.Background())
	}()

	select {
	case err := <-done:
		t.Fatalf("Reopen returned while a query was running: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	if _, err := held.Search(context.Background(), NewSearchFilter()); err != nil {
		t.Fatalf("Search on the held store: %v", err)
	}
	live.release()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Reopen: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Reopen did not finish after the query was released")
	}
	if live.Current() == held {
		t.Fatalf("Reopen did not swap the store")
	}
	if _, err := held.Search(context.Background(), NewSearchFilter()); err == nil {
		t.Errorf("previous store should be closed after the swap")
	}
}
