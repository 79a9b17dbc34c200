package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	vgerrors "github.com/Chifiwang/obsidian-git-integration/internal/errors"
)

//go:embed record.schema.json
var recordSchemaJSON string

const recordSchemaURL = "record.schema.json"

var (
	recordSchemaOnce sync.Once
	recordSchema     *jsonschema.Schema
	recordSchemaErr  error
)

func compiledRecordSchema() (*jsonschema.Schema, error) {
	recordSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(recordSchemaJSON))
		if err != nil {
			recordSchemaErr = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(recordSchemaURL, doc); err != nil {
			recordSchemaErr = err
			return
		}
		recordSchema, recordSchemaErr = c.Compile(recordSchemaURL)
	})
	return recordSchema, recordSchemaErr
}

// validateAgainstSchema checks the JSON projection of r against the embedded
// record schema.
func validateAgainstSchema(r Record) error {
	sch, err := compiledRecordSchema()
	if err != nil {
		return vgerrors.Wrap(err, "compile record schema")
	}

	raw, err := json.Marshal(r)
	if err != nil {
		return vgerrors.NewConfigError("record", nil,
			vgerrors.Wrapf(vgerrors.ErrInvalidConfiguration, "cannot encode record: %v", err))
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return vgerrors.Wrap(err, "decode record projection")
	}

	if err := sch.Validate(inst); err != nil {
		param := "record"
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			leaf := ve
			for len(leaf.Causes) > 0 {
				leaf = leaf.Causes[0]
			}
			if len(leaf.InstanceLocation) > 0 {
				param = strings.Join(leaf.InstanceLocation, ".")
			}
		}
		return vgerrors.NewConfigError(param, nil,
			vgerrors.Wrapf(vgerrors.ErrInvalidConfiguration, "%v", err))
	}
	return nil
}
