package config

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE []byte

// ParseCUE compiles data, unifies it with the #Config schema and decodes
// the result. filename only labels error positions.
func ParseCUE(data []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return nil, formatCUEError(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// formatCUEError keeps the first CUE error with its position.
func formatCUEError(err error) error {
	list := errors.Errors(err)
	if len(list) == 0 {
		return err
	}
	first := list[0]
	cfgErr := &Error{Field: "cue", Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		pos := positions[0]
		cfgErr.Pos = fmt.Sprintf("%s:%d:%d", pos.Filename(), pos.Line(), pos.Column())
	}
	return cfgErr
}
