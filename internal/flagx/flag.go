// Package flagx lets independent configuration loaders read their own
// command-line flags without tripping over flags owned by someone else.
package flagx

import (
	"flag"
	"io"
	"os"
	"strings"
)

// FilterArgs returns the subset of args made of allowed flags and their values.
//
// Two shapes are recognized:
//
//	-c conf.json        flag and value as separate arguments
//	--config=conf.json  flag and value joined by '='
//
// A separate value is only consumed when it does not itself start with '-'.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// stringFlag parses os.Args for a single string option registered under all
// of names. The last occurrence wins; def is returned when none is present.
func stringFlag(names []string, def string) string {
	value := def

	allowed := make([]string, 0, len(names)*2)
	for _, n := range names {
		allowed = append(allowed, "-"+n, "--"+n)
	}
	args := FilterArgs(os.Args[1:], allowed)

	fs := flag.NewFlagSet("flagx", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	for _, n := range names {
		fs.StringVar(&value, n, def, "")
	}
	_ = fs.Parse(args)

	return value
}

// JsonConfigFlags returns the JSON config path given with -c or -config,
// or an empty string when neither is set.
func JsonConfigFlags() string {
	return stringFlag([]string{"c", "config"}, "")
}

// EnvFileFlag returns the dotenv path given with -env-file, defaulting to ".env".
func EnvFileFlag() string {
	return stringFlag([]string{"env-file"}, ".env")
}
