package datparser

import "github.com/spacemonkeygo/errors"

// ParseError is the class every CMP/XML syntax failure is raised as,
// carrying line number and file path as structured error data exactly
// as parser/parse.go's own ParseError does.
var (
	ParseError    = errors.NewClass("DAT Parse Error")
	XMLParseError = errors.NewClass("XML DAT Parse Error")

	lineNumberErrorKey = errors.GenSym()
	filePathErrorKey   = errors.GenSym()
)

// ErrorLineNumber extracts the 1-based line number a ParseError was
// raised at, or -1 if err carries none.
func ErrorLineNumber(err error) int {
	v, ok := errors.GetData(err, lineNumberErrorKey).(int)
	if !ok {
		return -1
	}
	return v
}

// ErrorFilePath extracts the source path a ParseError was raised for.
func ErrorFilePath(err error) string {
	v, ok := errors.GetData(err, filePathErrorKey).(string)
	if !ok {
		return ""
	}
	return v
}

func setErrorLineNumber(lnr int) errors.ErrorOption {
	return errors.SetData(lineNumberErrorKey, lnr)
}

func setErrorFilePath(path string) errors.ErrorOption {
	return errors.SetData(filePathErrorKey, path)
}
