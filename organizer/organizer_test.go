package organizer

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestPlanBuildsOneOperationPerFile(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "a.nes"), "aaaa")
	writeFile(t, filepath.Join(src, "b.nes"), "bbbb")

	plan, err := Plan(PlanInput{
		SourcePath:       src,
		DestinationRoot:  dst,
		FolderTemplate:   "",
		FilenameTemplate: "{name}.{extension}",
		MoveFiles:        true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if plan.FileCount != 2 {
		t.Fatalf("expected 2 operations, got %d", plan.FileCount)
	}
	if plan.TotalBytes != 8 {
		t.Fatalf("expected 8 total bytes, got %d", plan.TotalBytes)
	}
}

func TestExecuteMoveAndRollbackRoundTrip(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "a.nes"), "aaaa")

	plan, err := Plan(PlanInput{
		SourcePath:       src,
		DestinationRoot:  dst,
		FilenameTemplate: "{name}.{extension}",
		MoveFiles:        true,
	})
	if err != nil {
		t.Fatal(err)
	}

	journal := NewMemJournal()
	res, err := Execute(plan, journal)
	if err != nil {
		t.Fatal(err)
	}
	if res.FilesProcessed != 1 || res.FilesFailed != 0 {
		t.Fatalf("unexpected execute result: %+v", res)
	}
	if _, err := os.Stat(filepath.Join(dst, "a.nes")); err != nil {
		t.Fatalf("expected destination file to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(src, "a.nes")); !os.IsNotExist(err) {
		t.Fatalf("expected source file to be gone after move")
	}

	rbRes, err := Rollback(journal, res.Operation.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !rbRes.AllRestored || rbRes.Restored != 1 {
		t.Fatalf("unexpected rollback result: %+v", rbRes)
	}
	if _, err := os.Stat(filepath.Join(src, "a.nes")); err != nil {
		t.Fatalf("expected source file restored: %v", err)
	}
}

func TestExecuteCollisionSkipsOnlyThatFile(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "a.nes"), "aaaa")
	writeFile(t, filepath.Join(src, "b.nes"), "bbbb")
	writeFile(t, filepath.Join(src, "c.nes"), "cccc")
	// b.nes's destination already exists with different content.
	writeFile(t, filepath.Join(dst, "b.nes"), "different-content")

	plan, err := Plan(PlanInput{
		SourcePath:       src,
		DestinationRoot:  dst,
		FilenameTemplate: "{name}.{extension}",
		MoveFiles:        true,
	})
	if err != nil {
		t.Fatal(err)
	}

	journal := NewMemJournal()
	res, err := Execute(plan, journal)
	if err != nil {
		t.Fatal(err)
	}
	if res.FilesProcessed != 2 {
		t.Fatalf("expected 2 files processed, got %d", res.FilesProcessed)
	}
	if res.FilesFailed != 1 {
		t.Fatalf("expected 1 file failed, got %d", res.FilesFailed)
	}

	rbRes, err := Rollback(journal, res.Operation.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rbRes.Restored != 2 {
		t.Fatalf("expected rollback to restore only the 2 moved files, got %d", rbRes.Restored)
	}
}

func TestFileJournalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	j, err := NewFileJournal(dir)
	if err != nil {
		t.Fatal(err)
	}

	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "a.nes"), "aaaa")
	plan, err := Plan(PlanInput{SourcePath: src, DestinationRoot: dst, FilenameTemplate: "{name}.{extension}", MoveFiles: true})
	if err != nil {
		t.Fatal(err)
	}
	res, err := Execute(plan, j)
	if err != nil {
		t.Fatal(err)
	}

	loaded, found, err := j.Load(res.Operation.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected journal entry to be found after Execute")
	}
	if len(loaded.RollbackEntries) != 1 {
		t.Fatalf("expected 1 rollback entry, got %d", len(loaded.RollbackEntries))
	}
}
