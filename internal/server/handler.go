// Package server provides the WebSocket command layer of the mix-route daemon.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/oszuidwest/zwfm-mixroute/internal/types"
)

// validate checks decoded command data. Field errors carry JSON names.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// DecodeAndValidate fills data from the command payload and validates it.
// An empty payload validates the zero value. On failure the error result is
// already sent and false is returned.
func DecodeAndValidate[T any](cmd WSCommand, send chan<- any, data *T) bool {
	if len(cmd.Data) > 0 {
		if err := json.Unmarshal(cmd.Data, data); err != nil {
			SendError(send, cmd.Type, fmt.Errorf("invalid JSON: %w", err))
			return false
		}
	}
	if err := validate.Struct(data); err != nil {
		SendValidationErrors(send, cmd.Type, err)
		return false
	}
	return true
}

// HandleCommand runs process on the validated request synchronously and
// answers with a data-less success or the returned error.
func HandleCommand[T any](cmd WSCommand, send chan<- any, process func(*T) error) {
	var req T
	if !DecodeAndValidate(cmd, send, &req) {
		return
	}
	if err := process(&req); err != nil {
		SendError(send, cmd.Type, err)
		return
	}
	SendSuccess(send, cmd.Type, nil)
}

// HandleActionAsync runs action on its own goroutine and answers with its
// result. A panic is logged and answered as an internal error.
func HandleActionAsync(cmd WSCommand, send chan<- any, action func() (any, error)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in async command", "command", cmd.Type, "panic", r)
				SendError(send, cmd.Type, errors.New("internal error"))
			}
		}()

		result, err := action()
		if err != nil {
			SendError(send, cmd.Type, err)
			return
		}
		SendSuccess(send, cmd.Type, result)
	}()
}

// --- Response helpers ---

// SendSuccess sends a success response for a command. Nil data is omitted.
func SendSuccess(send chan<- any, cmdType string, data any) {
	reply(send, types.WSCommandResult{Type: cmdType + "_result", Success: true, Data: data})
}

// SendError sends an error response for a command.
func SendError(send chan<- any, cmdType string, err error) {
	reply(send, types.WSCommandResult{Type: cmdType + "_result", Error: err.Error()})
}

// SendValidationErrors sends validator failures as a *types.ValidationError
// keyed by JSON field name.
func SendValidationErrors(send chan<- any, cmdType string, err error) {
	verr := types.NewValidationError()

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, e := range fieldErrs {
			verr.Add(e.Field(), formatValidationMessage(e), e.Value())
		}
	} else {
		verr.Add("", err.Error(), nil)
	}

	reply(send, types.WSCommandResult{Type: cmdType + "_result", Error: verr})
}

// reply queues a result without blocking; a full queue drops it.
func reply(send chan<- any, result types.WSCommandResult) {
	select {
	case send <- result:
	default:
		slog.Warn("dropped command result: send queue full", "type", result.Type)
	}
}

// formatValidationMessage maps the tags used in requests.go to messages.
func formatValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", e.Param())
	case "nefield":
		return "must differ from source_a"
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}
