package cmd

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var authClear bool

// authCmd represents the auth command.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authenticate with Monzo via the browser OAuth flow",
	Long: `Run the interactive Monzo OAuth2 authorization flow.

Prints an authorization URL to open in a browser, waits for the
redirect on the local callback address, and stores the resulting token
for later runs. Remember to also approve the access request in the
Monzo app before syncing.

Example:
  monzo-sync auth
  monzo-sync auth --clear`,
	Run: runAuth,
}

func init() {
	authCmd.Flags().BoolVar(&authClear, "clear", false, "Remove stored tokens instead of authenticating")
}

func runAuth(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	exitOnError(err, "failed to load configuration")
	exitOnError(cfg.ValidateAuth(), "invalid configuration")

	tokens := newTokenManager(cfg)

	if authClear {
		exitOnError(tokens.Clear(), "failed to clear stored tokens")
		fmt.Println("Stored tokens removed.")
		return
	}

	listenAddr, err := callbackListenAddr(cfg.Monzo.RedirectURI)
	exitOnError(err, "invalid MONZO_REDIRECT_URI")

	tok, err := tokens.Authorize(cmdContext(), listenAddr, func(authorizeURL string) {
		fmt.Println("Open this URL in your browser to authorize access:")
		fmt.Println()
		fmt.Println("  " + authorizeURL)
		fmt.Println()
		fmt.Println("Waiting for the callback...")
	})
	exitOnError(err, "authentication failed")
	exitOnError(tokens.Store(tok), "failed to store tokens")

	fmt.Println("Authentication successful. Approve the request in the Monzo app, then run sync.")
}

// callbackListenAddr derives the local listen address from the
// configured redirect URI.
func callbackListenAddr(redirectURI string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", err
	}
	host := u.Host
	if u.Port() == "" {
		host += ":80"
	}
	return host, nil
}
