// Package timestamp provides the TimestampTool, which reports the current
// date and time in one of three formats: default ("2006-01-02 15:04:05"),
// iso (RFC 3339), or unix (seconds since epoch).
package timestamp

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/loquax-ai/loquax/internal/tools"
)

// Name is the registry key for this tool.
const Name = "TimestampTool"

// Tool implements tools.Tool for clock queries.
type Tool struct {
	now func() time.Time
}

// New returns a TimestampTool reading the system clock.
func New() *Tool {
	return &Tool{now: time.Now}
}

// newWithClock is used by tests to pin the clock.
func newWithClock(now func() time.Time) *Tool {
	return &Tool{now: now}
}

// Spec implements tools.Tool.
func (t *Tool) Spec() tools.Spec {
	return tools.Spec{
		Name:        Name,
		Description: "Get the current date and time",
		Parameters: map[string]tools.Param{
			"format": {
				Type:        tools.TypeString,
				Description: "Optional: The format for the timestamp (default, iso, unix)",
				Required:    false,
			},
		},
	}
}

// Execute implements tools.Tool.
func (t *Tool) Execute(_ context.Context, args map[string]any) (string, error) {
	now := t.now()

	switch strings.ToLower(tools.StringArg(args, "format", "default")) {
	case "iso":
		return now.Format(time.RFC3339), nil
	case "unix":
		return strconv.FormatInt(now.Unix(), 10), nil
	default:
		return now.Format("2006-01-02 15:04:05"), nil
	}
}
