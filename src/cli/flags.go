// Package cli contains helper functions related to flag parsing, logging and process handling.
package cli

import (
	"net/url"

	cli "github.com/peterebden/go-cli-init/v5/flags"
	"github.com/thought-machine/go-flags"
)

// ParseFlagsOrDie parses the app's flags and dies if unsuccessful.
// Also dies if any unexpected arguments are passed.
func ParseFlagsOrDie(appname string, data interface{}) string {
	return cli.ParseFlagsOrDie(appname, data, nil)
}

// ParseFlags parses the given arguments (the first of which is taken to be the program name)
// and returns the parser, any extra arguments, and any error encountered.
func ParseFlags(appname string, data interface{}, args []string) (*flags.Parser, []string, error) {
	return cli.ParseFlags(appname, data, args, flags.HelpFlag|flags.PassDoubleDash, nil, nil)
}

// A Duration is used for flags that represent a time duration; it's just a wrapper
// around time.Duration that implements the flags.Unmarshaler and
// encoding.TextUnmarshaler interfaces.
type Duration = cli.Duration

// A URL is used for flags that represent a URL.
// It's just a string because it's more convenient that way.
type URL string

// UnmarshalFlag implements the flags.Unmarshaler interface.
func (u *URL) UnmarshalFlag(in string) error {
	parsed, err := url.Parse(in)
	if err != nil {
		return flagsError(err)
	} else if parsed.Scheme == "" || parsed.Host == "" {
		return &flags.Error{Type: flags.ErrMarshal, Message: "URL must have a scheme and host: " + in}
	}
	*u = URL(in)
	return nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface
func (u *URL) UnmarshalText(text []byte) error {
	return u.UnmarshalFlag(string(text))
}

// String implements the fmt.Stringer interface
func (u URL) String() string {
	return string(u)
}

// flagsError converts an error to a flags.Error, which is required for flag parsing.
func flagsError(err error) error {
	if err == nil {
		return nil
	}
	return &flags.Error{Type: flags.ErrMarshal, Message: err.Error()}
}
