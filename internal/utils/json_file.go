package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	jsonIndentConstant                 = "  "
	jsonFilePermissionsConstant        = 0o644
	jsonDirectoryPermissionsConstant   = 0o755
	temporaryFilePatternConstant       = ".%s.*.tmp"
	jsonEncodeErrorTemplateConstant    = "unable to encode %s: %w"
	jsonWriteErrorTemplateConstant     = "unable to write %s: %w"
	jsonDirectoryErrorTemplateConstant = "unable to create directory for %s: %w"
)

// WriteJSONFile encodes value as indented JSON and replaces filePath atomically.
func WriteJSONFile(filePath string, value any) error {
	encoded, encodeError := json.MarshalIndent(value, "", jsonIndentConstant)
	if encodeError != nil {
		return fmt.Errorf(jsonEncodeErrorTemplateConstant, filePath, encodeError)
	}
	encoded = append(encoded, '\n')

	directory := filepath.Dir(filePath)
	if directoryError := os.MkdirAll(directory, jsonDirectoryPermissionsConstant); directoryError != nil {
		return fmt.Errorf(jsonDirectoryErrorTemplateConstant, filePath, directoryError)
	}

	temporaryFile, createError := os.CreateTemp(directory, fmt.Sprintf(temporaryFilePatternConstant, filepath.Base(filePath)))
	if createError != nil {
		return fmt.Errorf(jsonWriteErrorTemplateConstant, filePath, createError)
	}
	temporaryPath := temporaryFile.Name()

	_, writeError := temporaryFile.Write(encoded)
	closeError := temporaryFile.Close()
	if writeError == nil {
		writeError = closeError
	}
	if writeError == nil {
		writeError = os.Chmod(temporaryPath, jsonFilePermissionsConstant)
	}
	if writeError == nil {
		writeError = os.Rename(temporaryPath, filePath)
	}
	if writeError != nil {
		_ = os.Remove(temporaryPath)
		return fmt.Errorf(jsonWriteErrorTemplateConstant, filePath, writeError)
	}
	return nil
}
