package coordinator

import "encoding/json"

// ShellCommand.Args is stored as a JSON-encoded string array rather than a
// dedicated join table, since args are opaque to every query the Store runs.
func encodeArgs(args []string) string {
	if args == nil {
		args = []string{}
	}
	b, _ := json.Marshal(args)
	return string(b)
}

func decodeArgs(raw string) []string {
	var args []string
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil
	}
	return args
}
