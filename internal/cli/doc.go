// Package cli implements the sentinel command-line interface.
//
// # Command Structure
//
//	sentinel serve               - run the refresh loop until interrupted
//	sentinel host add|remove|list - manage monitored hosts
//	sentinel poll [host-id]      - refresh once and print the result
//	sentinel status [host-id]    - show stored hosts without polling
//	sentinel stats <host-id>     - aggregate a host's metric history
//	sentinel version             - print build information
//	sentinel completion <shell>  - generate shell completion
//
// Every command loads sentinel.yaml (see internal/config), opens the host
// store and builds the fleet through openApp. Pass --json for
// machine-readable output wrapped in a JSONEnvelope.
package cli
