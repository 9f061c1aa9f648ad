package convert

import (
	"fmt"
	"maps"

	"github.com/gso-bench/gso-ingest/internal/models"
)

// invocation is the structured part of a tool call before an id is assigned.
type invocation struct {
	function  string
	arguments map[string]any
	view      string
}

type invocationBuilder func(action string, raw map[string]any, args actionArgs) invocation

// invocations maps action tags to their tool call shape. Unlisted tags fall
// back to genericInvocation.
var invocations = map[string]invocationBuilder{
	models.ActionRun:   runInvocation,
	models.ActionRead:  readInvocation,
	models.ActionWrite: writeInvocation,
}

func runInvocation(_ string, _ map[string]any, args actionArgs) invocation {
	return invocation{
		function:  "bash",
		arguments: map[string]any{"command": args.Command},
		view:      fmt.Sprintf("```bash\n%s\n```", args.Command),
	}
}

func readInvocation(_ string, _ map[string]any, args actionArgs) invocation {
	return invocation{
		function:  "read_file",
		arguments: map[string]any{"path": args.Path},
		view:      fmt.Sprintf("Reading file: `%s`", args.Path),
	}
}

func writeInvocation(_ string, _ map[string]any, args actionArgs) invocation {
	return invocation{
		function:  "write_file",
		arguments: map[string]any{"path": args.Path},
		view:      fmt.Sprintf("Writing to file: `%s`\n```\n%s\n```", args.Path, WritePreview(args.Content)),
	}
}

func genericInvocation(action string, raw map[string]any, _ actionArgs) invocation {
	arguments := maps.Clone(raw)
	if arguments == nil {
		arguments = map[string]any{}
	}
	return invocation{
		function:  action,
		arguments: arguments,
		view:      "Action: " + action,
	}
}

// narration is an agent action that becomes plain assistant text instead of a
// tool call.
type narration struct {
	label string
	text  func(args actionArgs) string
}

var narrations = map[string]narration{
	models.ActionThink: {
		label: "**Thinking:** ",
		text:  func(args actionArgs) string { return args.Thought },
	},
	models.ActionFinish: {
		label: "**Finished:** ",
		text: func(args actionArgs) string {
			if args.FinalThought != "" {
				return args.FinalThought
			}
			return args.Thought
		},
	},
}
