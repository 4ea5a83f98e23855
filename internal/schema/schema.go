// Package schema validates the JSON IPC envelope a workflow collaborator
// (e.g. the out-of-scope Telegram bot) exchanges with the gate daemon,
// before it is ever decoded into a gatekey.Request or PasswordRecord.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const (
	generateRequestID = "generate-request-v1.schema.json"
	verifyRequestID   = "verify-request-v1.schema.json"
	responseID        = "response-v1.schema.json"
)

var (
	compileOnce sync.Once
	compileErr  error
	schemas     map[string]*jsonschema.Schema
)

func compile() {
	compiler := jsonschema.NewCompiler()

	files := []string{generateRequestID, verifyRequestID, responseID}
	for _, name := range files {
		data, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			compileErr = fmt.Errorf("read embedded schema %s: %w", name, err)
			return
		}
		if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
			compileErr = fmt.Errorf("add schema resource %s: %w", name, err)
			return
		}
	}

	schemas = make(map[string]*jsonschema.Schema, len(files))
	for _, name := range files {
		s, err := compiler.Compile(name)
		if err != nil {
			compileErr = fmt.Errorf("compile schema %s: %w", name, err)
			return
		}
		schemas[name] = s
	}
}

func validate(schemaID string, envelope []byte) error {
	compileOnce.Do(compile)
	if compileErr != nil {
		return compileErr
	}

	var instance any
	if err := json.Unmarshal(envelope, &instance); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}

	return schemas[schemaID].Validate(instance)
}

// ValidateGenerateRequest validates a generate-request JSON envelope.
func ValidateGenerateRequest(envelope []byte) error {
	return validate(generateRequestID, envelope)
}

// ValidateVerifyRequest validates a verify-request JSON envelope.
func ValidateVerifyRequest(envelope []byte) error {
	return validate(verifyRequestID, envelope)
}

// ValidateResponse validates a generate/verify response JSON envelope.
func ValidateResponse(envelope []byte) error {
	return validate(responseID, envelope)
}
