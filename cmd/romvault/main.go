// Copyright (c) 2013 Uwe Hoffmann. All rights reserved.

/*
Redistribution and use in source and binary forms, with or without
modification, are permitted provided that the following conditions are
met:

   * Redistributions of source code must retain the above copyright
notice, this list of conditions and the following disclaimer.
   * Redistributions in binary form must reproduce the above
copyright notice, this list of conditions and the following disclaimer
in the documentation and/or other materials provided with the
distribution.
   * Neither the name of Google Inc. nor the names of its
contributors may be used to endorse or promote products derived from
this software without specific prior written permission.

THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS
"AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT
LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR
A PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT
OWNER OR CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT
LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE,
DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON ANY
THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
(INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.
*/

// Command romvault is the CLI surface: scan, import-dat, verify,
// organize, and rollback, each built as a commander.Command the same
// way cmds/romba/main.go builds its own command tree, using the
// uwedeportivo/commander fork consistently (service/commander.go's
// choice) instead of the unforked gonuts/commander that cmds/romba/main.go
// itself happens to use.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gonuts/flag"
	"github.com/uwedeportivo/commander"

	"github.com/romvault/romvault/catalogstore"
	"github.com/romvault/romvault/config"
	"github.com/romvault/romvault/datparser"
	"github.com/romvault/romvault/hashing"
	"github.com/romvault/romvault/hashqueue"
	"github.com/romvault/romvault/organizer"
	"github.com/romvault/romvault/orgtemplate"
	"github.com/romvault/romvault/rverr"
	"github.com/romvault/romvault/scanner"
	"github.com/romvault/romvault/types"
)

// Exit codes: 0 success, 1 usage error, 2 runtime error, 3 partial
// success (some files errored).
const (
	exitSuccess = 0
	exitUsage   = 1
	exitRuntime = 2
	exitPartial = 3
)

var cfg *config.Config
var store catalogstore.Store

func loadConfig() *config.Config {
	path, err := config.FindDefault()
	if err != nil {
		return config.Default()
	}
	c, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading config from %s failed: %v\n", path, err)
		os.Exit(exitRuntime)
	}
	return c
}

func openStore() catalogstore.Store {
	if cfg.CatalogStore.DbPath == "" {
		return catalogstore.NewMemStore()
	}
	ls, err := catalogstore.NewLevelStore(cfg.CatalogStore.DbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening catalog store at %s failed: %v\n", cfg.CatalogStore.DbPath, err)
		os.Exit(exitRuntime)
	}
	return ls
}

func runScan(cmd *commander.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("scan requires exactly one path argument")
	}
	root := args[0]

	incremental := cmd.Flag.Lookup("incremental").Value.Get().(bool)
	archives := cmd.Flag.Lookup("archives").Value.Get().(bool)
	parallel := cmd.Flag.Lookup("parallel").Value.Get().(int)
	checkpoint := cmd.Flag.Lookup("checkpoint").Value.Get().(string)

	if parallel < 1 {
		parallel = cfg.HashPool.Workers
	}

	pool := hashqueue.New(parallel, nil, nil)
	defer pool.Shutdown()

	sc := scanner.New(pool)
	res, err := sc.Scan(context.Background(), scanner.Options{
		Root:               root,
		Priority:           types.PriorityNormal,
		Incremental:        incremental,
		ScanArchives:       archives,
		ComputeHashes:      true,
		Recursive:          true,
		MaxParallelIO:      cfg.Scan.ParallelIO,
		CheckpointPath:     checkpoint,
		CheckpointInterval: time.Duration(cfg.Scan.CheckpointInterval) * time.Second,
	})
	if err != nil {
		fmt.Fprintf(cmd.Stdout, "scan failed: %v\n", err)
		return err
	}
	fmt.Fprintf(cmd.Stdout, "scanned %d files, enqueued %d, skipped %d (%s)\n",
		res.FilesVisited, res.FilesEnqueued, res.FilesSkipped, humanize.Bytes(uint64(res.BytesEnqueued)))
	fmt.Fprintf(cmd.Stdout, "new=%d modified=%d deleted=%d errors=%d\n",
		res.NewFilesFound, res.ModifiedFilesFound, res.DeletedFilesDetected, len(res.ScanErrors))
	for _, se := range res.ScanErrors {
		fmt.Fprintf(cmd.Stdout, "  error: %s (%s): %s\n", se.Path, se.Kind, se.Message)
	}
	return nil
}

func runImportDat(cmd *commander.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("import-dat requires exactly one file argument")
	}
	res, err := datparser.Parse(args[0])
	if err != nil {
		return err
	}
	if err := store.ImportCatalog(res.Catalog, res.Games, res.Entries); err != nil {
		return err
	}
	fmt.Fprintf(cmd.Stdout, "imported catalog %s: %d games, %d roms\n",
		res.Catalog.ID, res.Catalog.GameCount, res.Catalog.RomCount)
	return nil
}

func runVerify(cmd *commander.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("verify requires at least one file or directory argument")
	}

	var verified, badDump, notInCatalog, failed int
	var files []types.StoredRomFile
	for _, root := range args {
		err := walkAndVerify(root, &verified, &badDump, &notInCatalog, &failed, &files)
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.Stdout, "verified=%d bad_dump=%d not_in_catalog=%d failed=%d\n",
		verified, badDump, notInCatalog, failed)

	for _, g := range catalogstore.FindDuplicateFiles(files) {
		fmt.Fprintf(cmd.Stdout, "duplicate: %d copies, %s wasted (first: %s)\n",
			len(g.Files), humanize.Bytes(g.WastedBytes), g.Files[0].RelativePath)
	}

	if failed > 0 {
		return rverr.New(rverr.IOError, "one or more files could not be hashed")
	}
	return nil
}

// walkAndVerify re-hashes every plain file under root and runs the
// catalog store's tiered verification rule on it, combining the
// catalog match with the file's own filename markers. Every hashed
// file is recorded in *files so the caller can run on-disk duplicate
// detection across the whole verify run once walking finishes.
func walkAndVerify(root string, verified, badDump, notInCatalog, failed *int, files *[]types.StoredRomFile) error {
	return filepathWalk(root, func(path string, isDir bool) {
		if isDir {
			return
		}
		res, err := hashing.HashFile(path, 0, nil, nil)
		if err != nil {
			*failed++
			return
		}
		matches, err := store.FindByFingerprint(res.Fingerprint)
		if err != nil {
			*failed++
			return
		}

		status, entryID, catalogID, source := catalogstore.Verify(matches, filepath.Base(path))
		switch status {
		case types.VerificationBadDump:
			*badDump++
		case types.VerificationVerified:
			*verified++
		default:
			*notInCatalog++
		}

		fp := res.Fingerprint
		*files = append(*files, types.StoredRomFile{
			RelativePath:       path,
			Filename:           filepath.Base(path),
			Size:               uint64(res.Size),
			Fingerprint:        &fp,
			VerificationStatus: status,
			VerificationSource: source,
			MatchedCatalogID:   catalogID,
			MatchedEntryID:     entryID,
		})
	})
}

func runOrganize(cmd *commander.Command, args []string) error {
	planOnly := cmd.Flag.Lookup("plan").Value.Get().(bool)
	execute := cmd.Flag.Lookup("execute").Value.Get().(bool)
	template := cmd.Flag.Lookup("template").Value.Get().(string)
	source := cmd.Flag.Lookup("source").Value.Get().(string)
	dest := cmd.Flag.Lookup("dest").Value.Get().(string)
	copyFiles := cmd.Flag.Lookup("copy").Value.Get().(bool)

	if source == "" || dest == "" {
		return fmt.Errorf("organize requires --source and --dest")
	}
	if err := orgtemplate.Validate(template); err != nil {
		return err
	}

	plan, err := organizer.Plan(organizer.PlanInput{
		SourcePath:       source,
		DestinationRoot:  dest,
		FilenameTemplate: template,
		MoveFiles:        !copyFiles,
		BuildContext:     organizer.DefaultContextBuilder,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.Stdout, "plan: %d files, %d bytes\n", plan.FileCount, plan.TotalBytes)
	if planOnly || !execute {
		return nil
	}

	journalDir := cfg.Organize.JournalDir
	if journalDir == "" {
		journalDir = os.TempDir()
	}
	journal, err := organizer.NewFileJournal(journalDir)
	if err != nil {
		return err
	}

	res, err := organizer.Execute(plan, journal)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Stdout, "operation %s: processed=%d skipped=%d failed=%d\n",
		res.Operation.ID, res.FilesProcessed, res.FilesSkipped, res.FilesFailed)
	if res.FilesFailed > 0 {
		return rverr.New(rverr.Conflict, "some files could not be organized")
	}
	return nil
}

func runRollback(cmd *commander.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("rollback requires exactly one operation-id argument")
	}
	id, err := parseUUID(args[0])
	if err != nil {
		return err
	}

	journalDir := cfg.Organize.JournalDir
	if journalDir == "" {
		journalDir = os.TempDir()
	}
	journal, err := organizer.NewFileJournal(journalDir)
	if err != nil {
		return err
	}

	res, err := organizer.Rollback(journal, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Stdout, "rollback %s: restored=%d failed=%d all_restored=%v\n",
		res.OperationID, res.Restored, res.Failed, res.AllRestored)
	if !res.AllRestored {
		return rverr.New(rverr.Conflict, "some entries could not be rolled back")
	}
	return nil
}

func newCommand() *commander.Command {
	cmd := new(commander.Command)
	cmd.UsageLine = "romvault"
	cmd.Flag = *flag.NewFlagSet("romvault", flag.ExitOnError)
	cmd.Subcommands = make([]*commander.Command, 5)

	cmd.Subcommands[0] = &commander.Command{
		Run:       runScan,
		UsageLine: "scan <path> [--incremental] [--archives] [--parallel N]",
		Short:     "Walks path, hashing every file into the hash pool.",
		Flag:      *flag.NewFlagSet("romvault-scan", flag.ExitOnError),
	}
	cmd.Subcommands[0].Flag.Bool("incremental", false, "skip files already fingerprinted at the same mtime/size")
	cmd.Subcommands[0].Flag.Bool("archives", false, "also enumerate archive members")
	cmd.Subcommands[0].Flag.Int("parallel", 0, "hash pool worker count (0 = config default)")
	cmd.Subcommands[0].Flag.String("checkpoint", "", "checkpoint file path for resumable scans")

	cmd.Subcommands[1] = &commander.Command{
		Run:       runImportDat,
		UsageLine: "import-dat <file>",
		Short:     "Parses a ClrMamePro or Logiqx XML dat file and imports it into the catalog store.",
		Flag:      *flag.NewFlagSet("romvault-import-dat", flag.ExitOnError),
	}

	cmd.Subcommands[2] = &commander.Command{
		Run:       runVerify,
		UsageLine: "verify <path...> [--drive ID]",
		Short:     "Re-hashes files and checks them against the catalog store.",
		Flag:      *flag.NewFlagSet("romvault-verify", flag.ExitOnError),
	}
	cmd.Subcommands[2].Flag.String("drive", "", "volume id to scope verification to (informational)")

	cmd.Subcommands[3] = &commander.Command{
		Run:       runOrganize,
		UsageLine: "organize --plan|--execute --template NAME --source S --dest D [--copy]",
		Short:     "Plans or executes moving scanned files into a templated destination tree.",
		Flag:      *flag.NewFlagSet("romvault-organize", flag.ExitOnError),
	}
	cmd.Subcommands[3].Flag.Bool("plan", false, "only print the plan, make no filesystem changes")
	cmd.Subcommands[3].Flag.Bool("execute", false, "execute the plan")
	cmd.Subcommands[3].Flag.String("template", "{clean_name}/{name}.{extension}", "filename/folder template")
	cmd.Subcommands[3].Flag.String("source", "", "source directory")
	cmd.Subcommands[3].Flag.String("dest", "", "destination root directory")
	cmd.Subcommands[3].Flag.Bool("copy", false, "copy instead of move")

	cmd.Subcommands[4] = &commander.Command{
		Run:       runRollback,
		UsageLine: "rollback <operation-id>",
		Short:     "Reverts a previously executed organize run from its journal.",
		Flag:      *flag.NewFlagSet("romvault-rollback", flag.ExitOnError),
	}

	for _, sub := range cmd.Subcommands {
		sub.Stdout = os.Stdout
		sub.Stderr = os.Stderr
	}

	return cmd
}

func main() {
	cfg = loadConfig()
	store = openStore()
	defer store.Close()

	cmd := newCommand()

	if err := cmd.Flag.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "parsing command line failed: %v\n", err)
		os.Exit(exitUsage)
	}

	args := cmd.Flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: romvault <scan|import-dat|verify|organize|rollback> ...")
		os.Exit(exitUsage)
	}

	err := cmd.Dispatch(args)
	if err == nil {
		os.Exit(exitSuccess)
	}

	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	if rverr.Is(err, rverr.Conflict) || rverr.Is(err, rverr.IOError) {
		os.Exit(exitPartial)
	}
	os.Exit(exitRuntime)
}
