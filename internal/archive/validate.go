package archive

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed schema.cue
var schemaCUE string

// schemaSet holds the compiled archive schemas. Compiled once per
// process; cue.Context values are safe for concurrent use.
type schemaSet struct {
	ctx      *cue.Context
	manifest cue.Value
	envelope cue.Value
}

var (
	schemasOnce sync.Once
	schemas     *schemaSet
	schemasErr  error
)

func loadSchemas() (*schemaSet, error) {
	schemasOnce.Do(func() {
		ctx := cuecontext.New()
		v := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemasErr = fmt.Errorf("compile archive schema: %w", err)
			return
		}
		set := &schemaSet{
			ctx:      ctx,
			manifest: v.LookupPath(cue.ParsePath("#Manifest")),
			envelope: v.LookupPath(cue.ParsePath("#EntityFile")),
		}
		if err := set.manifest.Err(); err != nil {
			schemasErr = fmt.Errorf("archive schema missing #Manifest: %w", err)
			return
		}
		if err := set.envelope.Err(); err != nil {
			schemasErr = fmt.Errorf("archive schema missing #EntityFile: %w", err)
			return
		}
		schemas = set
	})
	return schemas, schemasErr
}

// validateManifest structurally validates manifest bytes before any
// JSON decoding. Unknown fields, missing fields, and malformed values
// all fail here with file positions from the document itself.
func validateManifest(data []byte) error {
	set, err := loadSchemas()
	if err != nil {
		return err
	}
	return validateDocument(set, set.manifest, ManifestName, data, ErrCodeManifest, PhaseManifest)
}

// validateEnvelope structurally validates one entity file.
func validateEnvelope(file string, data []byte) error {
	set, err := loadSchemas()
	if err != nil {
		return err
	}
	return validateDocument(set, set.envelope, file, data, ErrCodeEnvelope, PhaseVerify)
}

func validateDocument(set *schemaSet, schema cue.Value, file string, data []byte, code ErrorCode, phase Phase) error {
	expr, err := cuejson.Extract(file, data)
	if err != nil {
		return &ArchiveError{Code: code, Phase: phase, File: file, Message: "invalid JSON", Err: err}
	}

	val := set.ctx.BuildExpr(expr)
	if err := val.Err(); err != nil {
		return &ArchiveError{Code: code, Phase: phase, File: file, Message: "cannot build document value", Err: err}
	}

	unified := schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &ArchiveError{
			Code:    code,
			Phase:   phase,
			File:    file,
			Message: formatCUEMessage(err),
			Err:     err,
		}
	}
	return nil
}

// formatCUEMessage extracts the first CUE error with its position in
// the validated document.
func formatCUEMessage(err error) string {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}
	first := errs[0]
	positions := cueerrors.Positions(first)
	if len(positions) > 0 {
		pos := positions[0]
		return fmt.Sprintf("%s:%d:%d: %s", pos.Filename(), pos.Line(), pos.Column(), first.Error())
	}
	return first.Error()
}
