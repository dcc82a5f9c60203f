package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
)

// Exit codes returned by the runners.
const (
	ExitOK      = 0
	ExitFailure = 1
)

// setup parses the shared -url and -timeout flags and builds a Client.
// When done is true the caller should return code immediately.
func setup(name string, env *Env, args []string, stdout, stderr io.Writer, usage string, opts []ClientOption) (client *Client, rest []string, code int, done bool) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { _, _ = io.WriteString(stdout, usage) }

	url := fs.String("url", env.APIURL, "Base URL of the reputation API")
	timeout := fs.Duration("timeout", DefaultTimeout, "HTTP request timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, nil, ExitOK, true
		}
		return nil, nil, ExitFailure, true
	}
	if *timeout <= 0 {
		fmt.Fprintln(stderr, "Error: -timeout must be positive")
		return nil, nil, ExitFailure, true
	}
	return NewClient(*url, env.AdminAPIKey, *timeout, opts...), fs.Args(), ExitOK, false
}

// failure prints err the way the tools report errors and returns ExitFailure.
func failure(stderr io.Writer, err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		fmt.Fprintln(stderr, "Error:", apiErr.Message)
		return ExitFailure
	}
	fmt.Fprintln(stderr, "Error:", err.Error())
	return ExitFailure
}

// flagHelp is appended to every usage text.
const flagHelp = `
Options:
  -url string
        Base URL of the reputation API (default: $API_URL or ` + DefaultAPIURL + `)
  -timeout duration
        HTTP request timeout (default 30s)
`
