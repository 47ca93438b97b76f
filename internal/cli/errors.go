package cli

import (
	"errors"

	"github.com/roach88/immutag/internal/provision"
	"github.com/roach88/immutag/internal/registry"
	"github.com/roach88/immutag/internal/wallet"
)

// Error codes for CLI output.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeConfig       = "E002" // Configuration could not be loaded
	ErrCodeUsage        = "E003" // Invalid flag combination
	ErrCodeInvalidKey   = "E101" // Unknown or unusable key
	ErrCodeInvalidFile  = "E102" // Document missing required about fields
	ErrCodeDuplicateKey = "E103" // Key already defined
	ErrCodeNoFile       = "E104" // Document not initialized
	ErrCodeIO           = "E201" // Filesystem failure
	ErrCodeParse        = "E202" // Malformed document
	ErrCodeMnemonic     = "E301" // Mnemonic rejected
)

// classify maps an error to its output code and exit code.
func classify(err error) (string, int) {
	switch registry.KindOf(err) {
	case registry.KindInvalidKey:
		return ErrCodeInvalidKey, ExitFailure
	case registry.KindInvalidFile:
		return ErrCodeInvalidFile, ExitFailure
	case registry.KindDuplicateKey:
		return ErrCodeDuplicateKey, ExitFailure
	case registry.KindNoFile:
		return ErrCodeNoFile, ExitFailure
	case registry.KindIO:
		return ErrCodeIO, ExitCommandError
	case registry.KindParse:
		return ErrCodeParse, ExitCommandError
	}
	if provision.IsInvalidIdentity(err) {
		return ErrCodeInvalidKey, ExitFailure
	}
	if errors.Is(err, wallet.ErrInvalidMnemonic) {
		return ErrCodeMnemonic, ExitCommandError
	}
	return ErrCodeGeneric, ExitCommandError
}

// errorDetails returns the structured fields of a registry error.
func errorDetails(err error) interface{} {
	var re *registry.Error
	if !errors.As(err, &re) {
		return nil
	}
	details := map[string]string{"kind": string(re.Kind)}
	if re.Key != "" {
		details["key"] = re.Key
	}
	if re.Path != "" {
		details["path"] = re.Path
	}
	return details
}

// fail reports err through the formatter and returns the matching
// ExitError.
func fail(f *OutputFormatter, err error) error {
	code, exit := classify(err)
	_ = f.Error(code, err.Error(), errorDetails(err))
	return WrapExitError(exit, code, err)
}

// failCode reports a command error with an explicit code.
func failCode(f *OutputFormatter, code, message string) error {
	_ = f.Error(code, message, nil)
	return NewExitError(ExitCommandError, code+": "+message)
}
