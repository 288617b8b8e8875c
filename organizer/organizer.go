// Package organizer implements the plan/execute/rollback organization
// engine: move or copy scanned files into a destination tree named by
// an orgtemplate.Context, with a rollback journal persisted as it is
// built so a crash mid-execute leaves the system recoverable. Grounded
// on worker.Cp/worker.Mv (cross-device aware move, destination-directory
// creation) and archive/depot_root.go's rename-then-backup
// journal-safety idiom (persist before mutating, not after).
package organizer

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/karrick/godirwalk"

	"github.com/romvault/romvault/orgtemplate"
	"github.com/romvault/romvault/rverr"
	"github.com/romvault/romvault/types"
)

// OpType is the kind of action a FileOperation performs.
type OpType string

const (
	OpMove    OpType = "move"
	OpCopy    OpType = "copy"
	OpSkip    OpType = "skip"
	OpExtract OpType = "extract"
)

// FileOperation is one planned action over one source file.
type FileOperation struct {
	Type              OpType
	SourcePath        string
	DestinationPath   string
	Size              int64
	Context           orgtemplate.Context
	DestinationExists bool
	WouldOverwrite    bool
	Warning           string
}

// ContextBuilder derives an orgtemplate.Context for one source file,
// the "filename parsing + system inference" step left as an external
// collaborator contract: schema-mapped construction via explicit
// per-element builders, not reflection.
type ContextBuilder func(sourcePath string) (orgtemplate.Context, error)

// PlanInput configures one organization run.
type PlanInput struct {
	SourcePath         string
	DestinationRoot    string
	FolderTemplate     string
	FilenameTemplate   string
	MoveFiles          bool
	ProcessArchives    bool
	ExtractArchives    bool
	DeleteEmptyFolders bool
	IncludeGlobs       []string
	ExcludeGlobs       []string
	BuildContext       ContextBuilder
}

// Plan is the immutable result of planning one organization run.
type Plan struct {
	Input      PlanInput
	Operations []FileOperation
	FileCount  int
	TotalBytes int64
}

// DefaultContextBuilder derives Name/Extension/CleanName purely from
// the source filename, with Region/Languages left blank — callers with
// catalog metadata available (a matched CatalogEntry's parent GameEntry)
// should supply a richer ContextBuilder instead.
func DefaultContextBuilder(sourcePath string) (orgtemplate.Context, error) {
	base := filepath.Base(sourcePath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	if len(ext) > 0 {
		ext = ext[1:]
	}
	return orgtemplate.Context{
		Name:      name,
		Extension: ext,
		CleanName: cleanName(name),
	}, nil
}

func matchesAny(patterns []string, name string) (bool, error) {
	for _, p := range patterns {
		ok, err := filepath.Match(p, name)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func included(rel string, includeGlobs, excludeGlobs []string) (bool, error) {
	base := filepath.Base(rel)
	if len(excludeGlobs) > 0 {
		excluded, err := matchesAny(excludeGlobs, base)
		if err != nil {
			return false, err
		}
		if excluded {
			return false, nil
		}
	}
	if len(includeGlobs) == 0 {
		return true, nil
	}
	return matchesAny(includeGlobs, base)
}

// Plan walks in.SourcePath, renders each matching file's destination
// path, and returns the resulting immutable Plan. It performs no
// filesystem mutation; it only stats files and checks whether a
// destination already exists.
func Plan(in PlanInput) (*Plan, error) {
	buildCtx := in.BuildContext
	if buildCtx == nil {
		buildCtx = DefaultContextBuilder
	}

	var ops []FileOperation
	var totalBytes int64

	err := godirwalk.Walk(in.SourcePath, &godirwalk.Options{
		Unsorted: false,
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			rel, relErr := filepath.Rel(in.SourcePath, osPathname)
			if relErr != nil {
				return relErr
			}

			ok, matchErr := included(rel, in.IncludeGlobs, in.ExcludeGlobs)
			if matchErr != nil {
				return matchErr
			}
			if !ok {
				return nil
			}

			size, sizeErr := fileSize(osPathname)
			if sizeErr != nil {
				return sizeErr
			}

			ctx, ctxErr := buildCtx(osPathname)
			if ctxErr != nil {
				return ctxErr
			}

			folder, _, folderErr := orgtemplate.Render(in.FolderTemplate, ctx)
			if folderErr != nil {
				return folderErr
			}
			filename, _, filenameErr := orgtemplate.Render(in.FilenameTemplate, ctx)
			if filenameErr != nil {
				return filenameErr
			}

			dest := filepath.Join(in.DestinationRoot, folder, filename)

			destExists, existsErr := pathExists(dest)
			if existsErr != nil {
				return existsErr
			}

			op := FileOperation{
				Type:              opType(in),
				SourcePath:        osPathname,
				DestinationPath:   dest,
				Size:              size,
				Context:           ctx,
				DestinationExists: destExists,
			}
			if destExists {
				differs, diffErr := differsFrom(osPathname, dest)
				if diffErr != nil {
					return diffErr
				}
				if differs {
					op.WouldOverwrite = true
					op.Warning = "destination already exists and differs from source"
				}
			}

			ops = append(ops, op)
			totalBytes += size
			return nil
		},
	})
	if err != nil {
		return nil, rverr.Wrap(rverr.IOError, in.SourcePath, err)
	}

	return &Plan{
		Input:      in,
		Operations: ops,
		FileCount:  len(ops),
		TotalBytes: totalBytes,
	}, nil
}

func opType(in PlanInput) OpType {
	if in.ExtractArchives {
		return OpExtract
	}
	if in.MoveFiles {
		return OpMove
	}
	return OpCopy
}

// Result summarizes one Execute run.
type Result struct {
	Operation      types.OrganizationOperation
	Success        bool
	FilesProcessed int
	FilesSkipped   int
	FilesFailed    int
	BytesProcessed int64
	Duration       time.Duration
	CanRollback    bool
	Errors         []error
}

func cleanName(name string) string {
	// A light echo of selector.CleanName kept local to avoid an import
	// cycle (selector has no need to depend on organizer or vice versa,
	// but duplicating ~5 lines beats adding a shared leaf package for
	// one helper used by exactly two callers).
	out := make([]rune, 0, len(name))
	depth := 0
	for _, r := range name {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				out = append(out, r)
			}
		}
	}
	result := string(out)
	for len(result) > 0 && (result[len(result)-1] == ' ') {
		result = result[:len(result)-1]
	}
	return result
}

// NewOperationID derives a fresh operation identity; kept as a function
// (not uuid.New() called inline) so tests can substitute a fixed id.
func NewOperationID() uuid.UUID {
	return uuid.New()
}
