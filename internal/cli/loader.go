package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue/token"

	"github.com/roach88/ledgerq/internal/compiler"
	"github.com/roach88/ledgerq/internal/ir"
)

// LoadMode controls how errors are handled during descriptor loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the contracts compiled from a file or directory.
type LoadResult struct {
	Contracts []*ir.ContractSpec
	Files     []string
}

// LoadError represents an error that occurred while loading descriptors.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadContracts compiles every .cue file at path, which may be a file or a
// directory, and validates each contract. Schema and validation failures
// are returned as errors alongside whatever compiled cleanly.
func LoadContracts(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s: %v", path, err)}}
	}

	files := []string{path}
	if info.IsDir() {
		files, err = FindCUEFiles(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
		if len(files) == 0 {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}}
		}
	}

	result := &LoadResult{Files: files}
	var errs []error
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", file, err)})
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}

		specs, err := compiler.CompileSource(file, src)
		if err != nil {
			errs = append(errs, convertCompileError(err, file))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}

		for _, spec := range specs {
			verrs := compiler.Validate(spec)
			for _, v := range verrs {
				errs = append(errs, &LoadError{
					Code:    v.Code,
					Message: fmt.Sprintf("%s: %s: %s", spec.Name, v.Field, v.Message),
				})
			}
			if len(verrs) > 0 {
				if mode == LoadModeFailFast {
					return result, errs
				}
				continue
			}
			result.Contracts = append(result.Contracts, spec)
		}
	}

	if len(result.Contracts) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no contracts declared"})
	}
	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths, sorted.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, file string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeLoadFailed,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeLoadFailed,
		Message: fmt.Sprintf("%s: %v", file, err),
	}
}

// errorCode extracts the code and message of a load error.
func errorCode(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// reportLoadErrors prints load errors and returns the command error.
func reportLoadErrors(f *OutputFormatter, errs []error) error {
	cliErrors := make([]CLIError, len(errs))
	for i, err := range errs {
		code, message := errorCode(err)
		cliErrors[i] = CLIError{Code: code, Message: message}
	}

	if f.Format == "json" {
		_ = f.Error(cliErrors[0].Code, cliErrors[0].Message, cliErrors)
	} else {
		fmt.Fprintln(f.Writer, "✗ Loading failed")
		fmt.Fprintln(f.Writer)
		for i, err := range errs {
			var loadErr *LoadError
			if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
				fmt.Fprintf(f.Writer, "%s:%d:%d\n", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
			}
			fmt.Fprintf(f.Writer, "  %s: %s\n\n", cliErrors[i].Code, cliErrors[i].Message)
		}
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("loading failed with %d error(s)", len(errs)))
}
