package convert

import (
	"log/slog"

	"github.com/go-viper/mapstructure/v2"
)

// actionArgs holds every argument field the converter reads from an event's
// args mapping. Absent or mistyped fields keep their zero value.
type actionArgs struct {
	Thought      string `mapstructure:"thought"`
	FinalThought string `mapstructure:"final_thought"`
	Command      string `mapstructure:"command"`
	Path         string `mapstructure:"path"`
	Content      string `mapstructure:"content"`
}

func decodeArgs(raw map[string]any) actionArgs {
	var args actionArgs
	if len(raw) == 0 {
		return args
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &args,
	})
	if err != nil {
		return args
	}

	// mapstructure keeps every field it could decode, so a partial result is fine.
	if err := dec.Decode(raw); err != nil {
		slog.Debug("decoding event args", "error", err)
	}
	return args
}
