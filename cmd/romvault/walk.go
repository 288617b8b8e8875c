package main

import (
	"github.com/google/uuid"
	"github.com/karrick/godirwalk"
)

// filepathWalk visits every entry under root, matching the rest of the
// codebase's choice of karrick/godirwalk over filepath.Walk.
func filepathWalk(root string, visit func(path string, isDir bool)) error {
	return godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			visit(path, de.IsDir())
			return nil
		},
	})
}

func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}
